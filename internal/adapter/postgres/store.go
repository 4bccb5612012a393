// Package postgres persists station status observations for the consumer.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tessieres/velib-pipeline/internal/config"
	"github.com/tessieres/velib-pipeline/internal/domain"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS velib_status (
	station_code     TEXT      NOT NULL,
	station_name     TEXT,
	commune          TEXT,
	capacity         INTEGER,
	docks_available  INTEGER,
	bikes_available  INTEGER,
	bikes_mechanical INTEGER,
	bikes_ebike      INTEGER,
	is_installed     BOOLEAN,
	is_returning     BOOLEAN,
	due_date         TIMESTAMP NOT NULL,
	code_insee       TEXT      NOT NULL,
	geo              TEXT      NOT NULL,
	PRIMARY KEY (station_code, due_date)
)`

const upsertSQL = `
INSERT INTO velib_status (
	station_code, station_name, commune, capacity, docks_available,
	bikes_available, bikes_mechanical, bikes_ebike, is_installed,
	is_returning, due_date, code_insee, geo
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (station_code, due_date) DO UPDATE SET
	station_name = EXCLUDED.station_name,
	commune = EXCLUDED.commune,
	capacity = EXCLUDED.capacity,
	docks_available = EXCLUDED.docks_available,
	bikes_available = EXCLUDED.bikes_available,
	bikes_mechanical = EXCLUDED.bikes_mechanical,
	bikes_ebike = EXCLUDED.bikes_ebike,
	is_installed = EXCLUDED.is_installed,
	is_returning = EXCLUDED.is_returning,
	code_insee = EXCLUDED.code_insee,
	geo = EXCLUDED.geo`

// Store writes station observations to PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Connect opens a connection pool, retrying with a fixed delay up to the
// configured retry count. The database regularly comes up after the consumer
// in a compose deployment; exhausting the retries means it is genuinely
// unreachable and the caller should abort.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	var pool *pgxpool.Pool
	attempt := 0
	op := func() error {
		attempt++
		p, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			logger.Warn("database connect failed", "attempt", attempt, "error", err)
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			logger.Warn("database ping failed", "attempt", attempt, "error", err)
			return err
		}
		pool = p
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(cfg.DBConnectDelay), uint64(cfg.DBConnectRetries)),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("connect to database after %d attempts: %w", attempt, err)
	}

	logger.Info("connected to database", "host", cfg.DBHost, "database", cfg.DBName, "attempts", attempt)
	return &Store{pool: pool, logger: logger}, nil
}

// EnsureSchema creates the destination table when absent. It never drops or
// alters an existing table.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create velib_status table: %w", err)
	}
	s.logger.Info("schema ready", "table", "velib_status")
	return nil
}

// Upsert writes one observation. Re-delivery of the same
// (station_code, due_date) pair overwrites every non-key column with the
// newly received values; unknown fields are stored as NULL.
func (s *Store) Upsert(ctx context.Context, rec domain.StationStatusRecord) error {
	_, err := s.pool.Exec(ctx, upsertSQL,
		rec.StationCode, rec.StationName, rec.Commune, rec.Capacity,
		rec.DocksAvailable, rec.BikesAvailable, rec.BikesMechanical,
		rec.BikesEbike, rec.IsInstalled, rec.IsReturning, rec.DueDate,
		rec.CodeInsee, rec.Geo,
	)
	if err != nil {
		return fmt.Errorf("upsert station status: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
