package cli

import (
	"context"
	"fmt"

	"riteswipe-api/internal/auth"
	"riteswipe-api/internal/config"
	"riteswipe-api/internal/database"
	"riteswipe-api/internal/logging"
	"riteswipe-api/internal/payments"
	"riteswipe-api/internal/reports"
	"riteswipe-api/internal/services"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// env is what every subcommand starts from: loaded config, logger and a
// migrated database.
type env struct {
	cfg    *config.Config
	logger *logrus.Logger
	db     *gorm.DB
}

func setup(configPath string) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.DBDriver, cfg.DatabaseDSN, logging.Component(logger, "database"))
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, db: db}, nil
}

func (e *env) close() {
	if sqlDB, err := e.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// offlineServices wires the services for one-shot admin commands. Events they
// enqueue are dispatched by the next outbox sweep of a running server.
func (e *env) offlineServices(ctx context.Context) (*services.Services, error) {
	rep, err := reports.FromGORM(e.db)
	if err != nil {
		return nil, err
	}
	log := logging.Component(e.logger, "admin")
	ledger := payments.NewLedger(log)
	limiter := auth.NewMemoryAttemptLimiter(e.cfg.LoginMaxAttempts, e.cfg.LoginLockout)
	svc := services.New(e.db, nil, ledger, rep, limiter, services.Options{SwipePageSize: e.cfg.SwipePageSize}, log)
	if _, err := svc.Escrow.RestoreHolds(ctx, ledger); err != nil {
		return nil, fmt.Errorf("restoring escrow holds: %w", err)
	}
	return svc, nil
}
