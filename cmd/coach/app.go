package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/lowaak/smart-trainer/coach-app/internal/clock"
	"github.com/lowaak/smart-trainer/coach-app/internal/config"
	"github.com/lowaak/smart-trainer/coach-app/internal/logging"
	"github.com/lowaak/smart-trainer/coach-app/internal/policy"
	"github.com/lowaak/smart-trainer/coach-app/internal/storage"
)

// app is what every command needs: configuration, logging and storage.
type app struct {
	cfg       *config.Config
	logger    *logrus.Logger
	logCloser io.Closer
	db        *sql.DB
	clock     clock.Clock
	history   *storage.HistoryRepo
	profiles  *storage.ProfileRepo
	snapshots *storage.SnapshotRepo
	policy    *policy.Policy
}

func loadApp(ctx context.Context, cmd *cobra.Command, configPath string) (*app, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, logCloser := logging.Setup(cfg.LoggingParams())
	if cfg.File != "" {
		logger.Debugf("Config: loaded %s", cfg.File)
	}

	db, err := storage.Open(ctx, cfg.Storage.Path)
	if err != nil {
		_ = logCloser.Close()
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		logCloser: logCloser,
		db:        db,
		clock:     clock.SystemClock{},
		history:   storage.NewHistoryRepo(db),
		profiles:  storage.NewProfileRepo(db),
		snapshots: storage.NewSnapshotRepo(db),
	}
	a.policy = policy.New(cfg.PolicyConfig(), a.history, a.clock, logger)
	return a, nil
}

func (a *app) Close() error {
	return multierr.Combine(a.db.Close(), a.logCloser.Close())
}

// withApp opens the app for the duration of fn.
func withApp(cmd *cobra.Command, configPath string, fn func(ctx context.Context, a *app) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := loadApp(ctx, cmd, configPath)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, a.Close())
	}()
	return fn(ctx, a)
}
