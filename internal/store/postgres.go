package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/divar-cli/internal/db"
)

const itemsTable = "collection_items"

var itemColumns = []string{"name", "seq", "item"}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. The caller keeps ownership.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS collection_items (
	name       TEXT NOT NULL,
	seq        BIGINT NOT NULL,
	item       JSON NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (name, seq)
);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Append serializes writers per collection with a transaction-scoped
// advisory lock, then bulk-loads the items with COPY.
func (s *PostgresStore) Append(ctx context.Context, name string, items []json.RawMessage) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin append")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, name); err != nil {
		return eris.Wrapf(err, "postgres: lock %s", name)
	}

	var maxSeq int64
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM collection_items WHERE name = $1`, name,
	).Scan(&maxSeq); err != nil {
		return eris.Wrapf(err, "postgres: max seq of %s", name)
	}

	rows := make([][]any, len(items))
	for i, item := range items {
		rows[i] = []any{name, maxSeq + int64(i) + 1, string(item)}
	}
	if _, err := db.CopyFrom(ctx, tx, itemsTable, itemColumns, rows); err != nil {
		return eris.Wrapf(err, "postgres: append to %s", name)
	}

	return eris.Wrapf(tx.Commit(ctx), "postgres: commit append to %s", name)
}

func (s *PostgresStore) Read(ctx context.Context, name string) ([]json.RawMessage, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT item::text FROM collection_items WHERE name = $1 ORDER BY seq`, name)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: read %s", name)
	}
	defer rows.Close()

	items := []json.RawMessage{}
	for rows.Next() {
		var item string
		if err := rows.Scan(&item); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan %s", name)
		}
		items = append(items, json.RawMessage(item))
	}
	return items, eris.Wrapf(rows.Err(), "postgres: iterate %s", name)
}

func (s *PostgresStore) Stat(ctx context.Context, name string) (CollectionInfo, error) {
	if err := ValidateName(name); err != nil {
		return CollectionInfo{}, err
	}

	var n int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM collection_items WHERE name = $1`, name,
	).Scan(&n); err != nil {
		return CollectionInfo{}, eris.Wrapf(err, "postgres: count %s", name)
	}
	return CollectionInfo{Name: name, Items: n}, nil
}
