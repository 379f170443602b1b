// Package main is the entry point for the booking gateway. It loads
// configuration, wires the circuit breakers, downstream facades, sagas, and
// retry worker, assembles the middleware stack, starts the HTTP server, and
// handles graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/triptech/booking-gateway/internal/admin"
	"github.com/triptech/booking-gateway/internal/circuitbreaker"
	"github.com/triptech/booking-gateway/internal/config"
	"github.com/triptech/booking-gateway/internal/downstream"
	"github.com/triptech/booking-gateway/internal/handler"
	"github.com/triptech/booking-gateway/internal/health"
	"github.com/triptech/booking-gateway/internal/logging"
	"github.com/triptech/booking-gateway/internal/metrics"
	"github.com/triptech/booking-gateway/internal/middleware"
	"github.com/triptech/booking-gateway/internal/ratelimit"
	"github.com/triptech/booking-gateway/internal/retryqueue"
	"github.com/triptech/booking-gateway/internal/saga"
)

func main() {
	configPath := flag.String("config", "configs/gateway.yaml", "path to configuration file")
	flag.Parse()

	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, closeLog, err := buildLogger(cfg.Logging)
	if err != nil {
		bootLogger.Error("failed to open log output", "error", err)
		os.Exit(1)
	}
	defer closeLog()

	for _, w := range cfg.Warnings {
		logger.Warn("config warning", "message", w)
	}

	logger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"reservation_url", cfg.Services.Reservation.URL,
		"loyalty_url", cfg.Services.Loyalty.URL,
		"payment_url", cfg.Services.Payment.URL,
		"redis_addr", cfg.Redis.Addr,
		"failure_threshold", cfg.CircuitBreaker.FailureThreshold,
		"reset_timeout", cfg.CircuitBreaker.ResetTimeout,
		"metrics_enabled", cfg.Metrics.IsEnabled(),
		"admin_enabled", cfg.Admin.Enabled,
	)

	if cfg.Metrics.IsEnabled() {
		metrics.Init()
	}

	// One breaker per downstream service, shared process-wide.
	breakers := map[string]*circuitbreaker.ConsecutiveBreaker{}
	newFacade := func(name string, svc config.ServiceConfig) *downstream.Client {
		b := circuitbreaker.New(name, cfg.CircuitBreaker.FailureThreshold, cfg.CircuitBreaker.ResetTimeout, logger)
		breakers[name] = b
		return downstream.NewClient(name, svc.URL, svc.Timeout(), b, logger)
	}
	reservations := downstream.NewReservationClient(newFacade("reservation", cfg.Services.Reservation))
	loyalties := downstream.NewLoyaltyClient(newFacade("loyalty", cfg.Services.Loyalty))
	payments := downstream.NewPaymentClient(newFacade("payment", cfg.Services.Payment))

	// Retry queue and drain worker over redis.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	queue := retryqueue.New(rdb, cfg.Redis.QueueChannel)
	worker := retryqueue.NewWorker(queue, loyalties, cfg.Redis.WorkerIdleWait, logger)
	workerCtx, stopWorker := context.WithCancel(context.Background())
	go worker.Run(workerCtx)

	bookingSaga := saga.NewBookingSaga(reservations, loyalties, payments, logger)
	cancelSaga := saga.NewCancelSaga(reservations, loyalties, payments, queue, logger)
	enricher := saga.NewEnricher(reservations, payments, logger)

	apiMux := http.NewServeMux()
	handler.New(reservations, loyalties, bookingSaga, cancelSaga, enricher, logger).Register(apiMux)

	limiter := ratelimit.New(cfg.RateLimit, cfg.Server.TrustedProxies, logger)
	defer limiter.Stop()

	// Assemble middleware stack:
	// Recovery → RequestID → SecurityHeaders → Logging → CORS → BodyLimit → Deadline → RateLimit → API
	var apiHandler http.Handler = apiMux
	apiHandler = limiter.Middleware()(apiHandler)
	apiHandler = middleware.Deadline(cfg.Server.GlobalTimeout())(apiHandler)
	apiHandler = middleware.BodyLimit(cfg.Server.MaxBodyBytes)(apiHandler)
	apiHandler = middleware.CORS(middleware.DefaultCORSConfig())(apiHandler)
	apiHandler = middleware.Logging(logger, middleware.MuxPattern(apiMux))(apiHandler)
	apiHandler = middleware.SecurityHeaders()(apiHandler)
	apiHandler = middleware.RequestID(apiHandler)
	apiHandler = middleware.Recovery(logger)(apiHandler)

	// Health, metrics, and admin bypass the middleware stack.
	opsMux := http.NewServeMux()
	health.New([]health.Target{
		{Name: "reservation", URL: cfg.Services.Reservation.URL, Breaker: breakers["reservation"]},
		{Name: "loyalty", URL: cfg.Services.Loyalty.URL, Breaker: breakers["loyalty"]},
		{Name: "payment", URL: cfg.Services.Payment.URL, Breaker: breakers["payment"]},
	}, rdb, logger).RegisterRoutes(opsMux)

	metricsPath := cfg.Metrics.Path
	if cfg.Metrics.IsEnabled() {
		opsMux.Handle(metricsPath, metrics.Handler())
		logger.Info("metrics endpoint registered", "path", metricsPath)
	}

	reloader := config.NewReloader(*configPath, cfg, logger)
	reloader.Start()
	defer reloader.Stop()
	reloader.OnReload(func(newCfg *config.Config) {
		limiter.UpdateConfig(newCfg.RateLimit)
	})

	if cfg.Admin.Enabled {
		admin.New(reloader, breakers, queue, cfg.Admin.IPAllowlist, logger).RegisterRoutes(opsMux)
		logger.Info("admin endpoints registered", "allowlist", cfg.Admin.IPAllowlist)
	}

	combined := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/health") ||
			strings.HasPrefix(r.URL.Path, "/ready") ||
			strings.HasPrefix(r.URL.Path, "/admin/") ||
			(cfg.Metrics.IsEnabled() && r.URL.Path == metricsPath) {
			opsMux.ServeHTTP(w, r)
			return
		}
		apiHandler.ServeHTTP(w, r)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      combined,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("starting booking gateway", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutdown signal received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	logger.Info("draining in-flight requests", "timeout", cfg.Server.ShutdownTimeout)
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	// Stop the retry worker after the server: an in-flight cancellation can
	// still enqueue, and the worker finishes its current degrade first.
	stopWorker()
	select {
	case <-worker.Done():
	case <-ctx.Done():
		logger.Warn("retry worker did not stop within shutdown timeout")
	}

	logger.Info("gateway stopped gracefully")
}

// buildLogger constructs the JSON logger on the configured output. File
// outputs rotate by size via logging.RotatingWriter.
func buildLogger(cfg config.LoggingConfig) (*slog.Logger, func(), error) {
	var out io.Writer
	closeFn := func() {}

	switch cfg.Output {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		rw, err := logging.NewRotatingWriter(cfg.Output, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
		if err != nil {
			return nil, nil, err
		}
		out = rw
		closeFn = func() { rw.Close() }
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo})), closeFn, nil
}
