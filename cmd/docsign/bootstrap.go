package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"docsign/internal/config"
	"docsign/internal/database"
	"docsign/internal/logging"
	"docsign/internal/repository/sqlstore"
	"docsign/internal/service"
	"docsign/internal/storage"
)

// runtime bundles the components shared by every command.
type runtime struct {
	cfg   *config.AppConfig
	log   *logrus.Logger
	db    *sql.DB
	repo  *sqlstore.DocumentStore
	store *storage.FileStore
	svc   service.DocumentService
}

func newLogger(cfg *config.AppConfig) *logrus.Logger {
	return logging.New(os.Stdout, cfg.LogLevel, logging.LoadLocation(cfg.Timezone))
}

// openRegistry connects to the configured database and makes sure the schema exists.
func openRegistry(ctx context.Context, cfg *config.AppConfig, log logrus.FieldLogger) (*sql.DB, *sqlstore.DocumentStore, error) {
	db, dialect, err := database.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	repo := sqlstore.NewDocumentStore(db, dialect, log)
	if err := repo.Initialize(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, repo, nil
}

func bootstrap(ctx context.Context) (*runtime, error) {
	cfg := config.Load()
	log := newLogger(cfg)

	db, repo, err := openRegistry(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewFileStore(cfg.Storage)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize file store: %w", err)
	}

	svc := service.NewDocumentService(store, repo, service.Options{
		PathPrefix: cfg.Storage.PathPrefix,
		Logger:     log,
	})

	log.WithFields(logrus.Fields{
		"db_driver":    cfg.Database.Driver,
		"storage_root": store.Root(),
	}).Info("components initialized")

	return &runtime{cfg: cfg, log: log, db: db, repo: repo, store: store, svc: svc}, nil
}

func (r *runtime) Close() {
	if err := r.db.Close(); err != nil {
		r.log.WithError(err).Warn("close database")
	}
}
