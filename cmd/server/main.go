package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"distromart-be/internal/audit"
	"distromart-be/internal/config"
	"distromart-be/internal/credit"
	"distromart-be/internal/db"
	"distromart-be/internal/handler"
	"distromart-be/internal/inventory"
	"distromart-be/internal/lock"
	"distromart-be/internal/logger"
	"distromart-be/internal/metrics"
	"distromart-be/internal/middleware"
	"distromart-be/internal/order"
	"distromart-be/internal/payment"
	"distromart-be/internal/reconcile"
	"distromart-be/internal/report"
	"distromart-be/internal/telemetry"
	"distromart-be/internal/wallet"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	initDBFunc      = db.InitDB
	startServerFunc = serve
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Options{
		ServiceName: "distromart-be",
		Environment: cfg.AppEnv,
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = shutdownTracing(sctx)
	}()

	database := initDBFunc(cfg)
	defer database.Close()

	app, err := newServer(cfg, database)
	if err != nil {
		return err
	}
	defer app.close()

	if err := app.sweeper.Start(ctx, cfg.ReconcileSchedule); err != nil {
		return err
	}
	go app.limiter.Cleanup(ctx, time.Minute)

	logger.L().Info("server starting", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
	return startServerFunc(":"+cfg.AppPort, app.handler)
}

type server struct {
	handler  http.Handler
	sweeper  *reconcile.Sweeper
	limiter  *middleware.Limiter
	recorder *audit.DBRecorder
	sentry   *audit.SentryAlerter
	redis    *redis.Client
}

// close must run before the database is closed: pending activity writes
// still need it.
func (s *server) close() {
	s.sweeper.Stop()
	s.recorder.Wait()
	if s.sentry != nil {
		s.sentry.Flush(2 * time.Second)
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
}

// newServer wires repositories, services and middleware over database.
func newServer(cfg *config.Config, database *sql.DB) (*server, error) {
	s := &server{}

	var locker lock.Locker = lock.NewLocal(cfg.LockWait)
	if cfg.RedisAddr != "" {
		s.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		locker = lock.NewRedis(s.redis, cfg.LockTTL, cfg.LockWait)
	}

	var alerter audit.Alerter = audit.LogAlerter{}
	if cfg.SentryDSN != "" {
		hub, err := audit.InitSentry(cfg.SentryDSN, cfg.AppEnv)
		if err != nil {
			return nil, fmt.Errorf("failed to init sentry: %w", err)
		}
		s.sentry = audit.NewSentryAlerter(hub)
		alerter = s.sentry
	}

	tx := db.NewTransactor(database)
	s.recorder = audit.NewDBRecorder(database)
	recorder := s.recorder
	counters := metrics.Default

	creditRepo := credit.NewRepository(database)
	walletRepo := wallet.NewRepository(database)
	inventoryRepo := inventory.NewRepository(database)
	paymentRepo := payment.NewRepository(database)
	orderRepo := order.NewRepository(database)

	orderSvc := order.NewService(order.Deps{
		Repo:     orderRepo,
		Profiles: creditRepo,
		Wallet:   walletRepo,
		Catalog:  inventoryRepo,
		Stock:    inventoryRepo,
		Payments: paymentRepo,
		Tx:       tx,
		Locker:   locker,
		Recorder: recorder,
		Alerter:  alerter,
		Metrics:  counters,
		Now:      time.Now,
	})
	paymentSvc := payment.NewService(payment.Deps{
		Repo:     paymentRepo,
		Wallet:   walletRepo,
		Tx:       tx,
		Locker:   locker,
		Recorder: recorder,
		Alerter:  alerter,
		Metrics:  counters,
	})

	s.sweeper = reconcile.NewSweeper(reconcile.Deps{
		Repo:    reconcile.NewRepository(database),
		Ledgers: paymentRepo,
		Tx:      tx,
		Locker:  locker,
		Alerter: alerter,
		Metrics: counters,
	})

	h := handler.New(handler.Deps{
		Orders:    orderSvc,
		Payments:  paymentSvc,
		Credit:    credit.NewService(creditRepo, recorder),
		Inventory: inventory.NewService(inventoryRepo, tx, recorder, counters),
		Wallet:    wallet.NewService(walletRepo),
		Reports:   report.NewService(report.NewRepository(database), inventoryRepo, cfg.LowStockThreshold),
		Reconcile: s.sweeper,
		Metrics:   counters,
		Retries:   uint(max(cfg.ConflictRetries, 1)),
	})

	s.limiter = middleware.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	var root http.Handler = setupRouter(h)
	root = s.limiter.Middleware(root)
	root = middleware.Authenticate([]byte(cfg.JWTSecret))(root)
	root = logger.LoggingMiddleware(root)
	root = logger.RequestIDMiddleware(root)
	s.handler = root

	return s, nil
}

func setupRouter(h *handler.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	h.Register(mux)
	return mux
}

// serve blocks until SIGINT or SIGTERM, then drains in-flight requests.
func serve(addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
