package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"riteswipe-api/internal/auth"
	"riteswipe-api/internal/events"
	"riteswipe-api/internal/handlers"
	"riteswipe-api/internal/jobs"
	"riteswipe-api/internal/logging"
	"riteswipe-api/internal/middleware"
	"riteswipe-api/internal/outbox"
	"riteswipe-api/internal/payments"
	"riteswipe-api/internal/realtime"
	"riteswipe-api/internal/reports"
	"riteswipe-api/internal/routes"
	"riteswipe-api/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long:  "Starts the HTTP API, the websocket hub, the outbox relay and the maintenance schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer e.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, e)
		},
	}
}

func serve(ctx context.Context, e *env) error {
	cfg, logger := e.cfg, e.logger
	log := logging.Component(logger, "server")
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	hub := realtime.NewHub(logging.Component(logger, "realtime"))
	var publisher realtime.Publisher = hub
	caches := map[string]jobs.Purger{}

	var limiter auth.AttemptLimiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
		}

		broker := realtime.NewRedisBroker(rdb, cfg.RedisChannel, hub, logging.Component(logger, "broker"))
		publisher = broker
		go func() {
			if err := broker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("redis broker stopped")
			}
		}()
		limiter = auth.NewRedisAttemptLimiter(rdb, cfg.LoginMaxAttempts, cfg.LoginLockout)
	} else {
		memory := auth.NewMemoryAttemptLimiter(cfg.LoginMaxAttempts, cfg.LoginLockout)
		caches["login-attempts"] = memory
		limiter = memory
	}

	var sinks []outbox.Sink
	if len(cfg.KafkaBrokers) > 0 {
		kafka := events.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafka.Close()
		sinks = append(sinks, kafka)
	}
	relay := outbox.NewRelay(e.db, publisher, outbox.Options{
		BatchSize:   cfg.OutboxBatch,
		MaxAttempts: cfg.OutboxMaxAttempts,
	}, logging.Component(logger, "outbox"), sinks...)
	go relay.Run(ctx)

	rep, err := reports.FromGORM(e.db)
	if err != nil {
		return err
	}
	ledger := payments.NewLedger(logging.Component(logger, "payments"))
	svc := services.New(e.db, relay, ledger, rep, limiter, services.Options{
		SwipePageSize: cfg.SwipePageSize,
	}, logging.Component(logger, "services"))

	restored, err := svc.Escrow.RestoreHolds(ctx, ledger)
	if err != nil {
		return fmt.Errorf("restoring escrow holds: %w", err)
	}
	log.WithField("holds", restored).Info("escrow holds restored")

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTTL)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logging.Component(logger, "ratelimit"))
	caches["rate-limit"] = rateLimiter
	caches["skill-demand"] = jobs.PurgerFunc(svc.Skills.PurgeDemandCache)

	scheduler := jobs.NewScheduler(logging.Component(logger, "jobs"))
	if err := jobs.Register(scheduler, jobs.Maintenance{
		Relay:                 relay,
		Notifications:         svc.Notifications,
		Caches:                caches,
		OutboxSweep:           cfg.OutboxSweep,
		NotificationRetention: cfg.NotificationRetention,
	}); err != nil {
		return err
	}
	scheduler.Start(ctx)
	relay.Kick()

	engine := routes.SetupRoutes(routes.Deps{
		Handler:     handlers.New(svc, issuer, hub, logging.Component(logger, "http")),
		Issuer:      issuer,
		RateLimiter: rateLimiter,
		Log:         logging.Component(logger, "http"),
		Detail:      cfg.IsDevelopment(),
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	log.Info("HTTP server shut down gracefully")
	return nil
}
