// Package database opens the SQL connection pool for the configured driver.
package database

import (
	"context"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/layaway-engine/internal/config"
	"github.com/segyhp/layaway-engine/internal/repository"
)

// Connect opens and pings the pool, applying the schema when
// DATABASE_AUTO_MIGRATE is set. Supported drivers are postgres (lib/pq),
// pgx and sqlite3.
func Connect(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, cfg.Database.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Database.Driver, err)
	}

	if cfg.Database.Driver == "sqlite3" {
		// One writer at a time; a shared in-memory database lives on a single connection.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.GetConnMaxLifetime())

	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		logger.WithField("driver", cfg.Database.Driver).Info("database schema applied")
	}

	logger.WithFields(logrus.Fields{
		"driver":         cfg.Database.Driver,
		"max_open_conns": db.Stats().MaxOpenConnections,
	}).Info("database connected")

	return db, nil
}
