package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"distromart-be/internal/auth"
	"distromart-be/internal/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, observed := observer.New(zapcore.DebugLevel)
	original := logger.L()
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(original) })
	return observed
}

func TestDBRecorder_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	actor := auth.Actor{ID: uuid.New(), Role: auth.RoleAdmin}
	mock.ExpectExec(`INSERT INTO activity_logs`).
		WithArgs(sqlmock.AnyArg(), actor.ID, "admin", "payment.recorded", "order", "ord-1", []byte(`{"amount":"300"}`)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	r := NewDBRecorder(db)
	r.Record(context.Background(), Activity{
		Actor:      actor,
		Action:     "payment.recorded",
		EntityType: "order",
		EntityID:   "ord-1",
		Details:    map[string]any{"amount": "300"},
	})
	r.Wait()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBRecorder_FailureIsOnlyLogged(t *testing.T) {
	observed := observe(t)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO activity_logs`).WillReturnError(errors.New("db down"))

	ctx, cancel := context.WithCancel(context.Background())
	r := NewDBRecorder(db)
	r.Record(ctx, Activity{Action: "stock.adjusted"})
	cancel()
	r.Wait()

	logs := observed.FilterMessage("failed to write activity log").All()
	assert.Len(t, logs, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogAlerter(t *testing.T) {
	observed := observe(t)

	LogAlerter{}.Critical(context.Background(), "wallet debit outcome unknown", map[string]string{"order_number": "ORD-1"})

	logs := observed.All()
	require.Len(t, logs, 1)
	assert.Equal(t, zapcore.ErrorLevel, logs[0].Level)
	assert.Equal(t, "CRITICAL", logs[0].ContextMap()["severity"])
	assert.Equal(t, "ORD-1", logs[0].ContextMap()["order_number"])
}

func TestSentryAlerter(t *testing.T) {
	observe(t)

	var mu sync.Mutex
	var captured []*sentry.Event
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn: "https://public@sentry.example.com/1",
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			mu.Lock()
			captured = append(captured, event)
			mu.Unlock()
			return nil
		},
	})
	require.NoError(t, err)

	alerter := NewSentryAlerter(sentry.NewHub(client, sentry.NewScope()))
	ctx := logger.WithRequestID(context.Background(), "req-1")
	alerter.Critical(ctx, "commit outcome unknown", map[string]string{"order_number": "ORD-9"})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, captured, 1)
	assert.Equal(t, "commit outcome unknown", captured[0].Message)
	assert.Equal(t, sentry.LevelFatal, captured[0].Level)
	assert.Equal(t, "ORD-9", captured[0].Tags["order_number"])
	assert.Equal(t, "req-1", captured[0].Tags["request_id"])
}

func TestInitSentry_EmptyDSN(t *testing.T) {
	hub, err := InitSentry("", "test")
	require.NoError(t, err)
	assert.NotNil(t, hub.Client())
}
