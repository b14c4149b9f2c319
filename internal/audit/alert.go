package audit

import (
	"context"
	"time"

	"distromart-be/internal/logger"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

// Alerter raises failures that need a human to reconcile state by hand.
type Alerter interface {
	Critical(ctx context.Context, message string, tags map[string]string)
}

type LogAlerter struct{}

func (LogAlerter) Critical(ctx context.Context, message string, tags map[string]string) {
	fields := []zap.Field{zap.String("severity", "CRITICAL")}
	for k, v := range tags {
		fields = append(fields, zap.String(k, v))
	}
	logger.FromCtx(ctx).Error(message, fields...)
}

// SentryAlerter logs like LogAlerter and also reports to Sentry.
type SentryAlerter struct {
	hub *sentry.Hub
}

func NewSentryAlerter(hub *sentry.Hub) *SentryAlerter {
	return &SentryAlerter{hub: hub}
}

func (a *SentryAlerter) Critical(ctx context.Context, message string, tags map[string]string) {
	LogAlerter{}.Critical(ctx, message, tags)

	hub := a.hub.Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelFatal)
		scope.SetTag("severity", "CRITICAL")
		if reqID := logger.RequestIDFrom(ctx); reqID != "" {
			scope.SetTag("request_id", reqID)
		}
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		hub.CaptureMessage(message)
	})
}

func (a *SentryAlerter) Flush(timeout time.Duration) bool {
	return a.hub.Flush(timeout)
}

// InitSentry builds a hub for dsn. An empty dsn yields a hub whose events
// go nowhere.
func InitSentry(dsn, env string) (*sentry.Hub, error) {
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
	})
	if err != nil {
		return nil, err
	}
	return sentry.NewHub(client, sentry.NewScope()), nil
}
