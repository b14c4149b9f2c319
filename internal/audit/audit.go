package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"distromart-be/internal/auth"
	"distromart-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Activity struct {
	Actor      auth.Actor
	Action     string
	EntityType string
	EntityID   string
	Details    map[string]any
}

// Recorder receives activities after a successful mutation. Implementations
// must not block the caller and must never report failure back to it.
type Recorder interface {
	Record(ctx context.Context, a Activity)
}

type DBRecorder struct {
	db      *sql.DB
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDBRecorder(db *sql.DB) *DBRecorder {
	return &DBRecorder{db: db, timeout: 5 * time.Second}
}

func (r *DBRecorder) Record(ctx context.Context, a Activity) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		if err := r.write(wctx, a); err != nil {
			logger.FromCtx(ctx).Warn("failed to write activity log",
				zap.String("action", a.Action),
				zap.String("entity_id", a.EntityID),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until every pending write finished.
func (r *DBRecorder) Wait() {
	r.wg.Wait()
}

func (r *DBRecorder) write(ctx context.Context, a Activity) error {
	details, err := json.Marshal(a.Details)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO activity_logs (
			id, actor_id, actor_role, action, entity_type, entity_id, details
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		uuid.New(),
		a.Actor.ID,
		string(a.Actor.Role),
		a.Action,
		a.EntityType,
		a.EntityID,
		details,
	)
	return err
}

// LogRecorder writes activities to the structured log only.
type LogRecorder struct{}

func (LogRecorder) Record(ctx context.Context, a Activity) {
	logger.FromCtx(ctx).Info("activity",
		zap.String("actor", a.Actor.String()),
		zap.String("action", a.Action),
		zap.String("entity_type", a.EntityType),
		zap.String("entity_id", a.EntityID),
		zap.Any("details", a.Details),
	)
}

// Nop drops every activity.
type Nop struct{}

func (Nop) Record(context.Context, Activity) {}
