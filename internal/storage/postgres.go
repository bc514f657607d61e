package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaCatalogKV = `
CREATE TABLE IF NOT EXISTS catalog_kv (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresSubstrate keeps values in a single catalog_kv table.
type PostgresSubstrate struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects using a libpq style DSN or URL and creates the table.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresSubstrate, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 4
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err = pool.Exec(ctx, schemaCatalogKV); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create catalog_kv: %w", err)
	}
	return &PostgresSubstrate{pool: pool}, nil
}

func (p *PostgresSubstrate) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := p.pool.QueryRow(ctx, `SELECT value FROM catalog_kv WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(value), true, nil
}

func (p *PostgresSubstrate) Put(ctx context.Context, key string, value []byte) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO catalog_kv (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, key, string(value))
	return err
}

func (p *PostgresSubstrate) Close() error {
	if p != nil && p.pool != nil {
		p.pool.Close()
	}
	return nil
}
