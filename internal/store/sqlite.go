package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS collection_items (
	name       TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	item       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (name, seq)
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Append(ctx context.Context, name string, items []json.RawMessage) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin append")
	}
	defer tx.Rollback() //nolint:errcheck

	var maxSeq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM collection_items WHERE name = ?`, name,
	).Scan(&maxSeq); err != nil {
		return eris.Wrapf(err, "sqlite: max seq of %s", name)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO collection_items (name, seq, item) VALUES (?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	for i, item := range items {
		if _, err := stmt.ExecContext(ctx, name, maxSeq+int64(i)+1, string(item)); err != nil {
			return eris.Wrapf(err, "sqlite: insert item %d of %s", i, name)
		}
	}

	return eris.Wrapf(tx.Commit(), "sqlite: commit append to %s", name)
}

func (s *SQLiteStore) Read(ctx context.Context, name string) ([]json.RawMessage, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT item FROM collection_items WHERE name = ? ORDER BY seq`, name)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: read %s", name)
	}
	defer rows.Close() //nolint:errcheck

	items := []json.RawMessage{}
	for rows.Next() {
		var item string
		if err := rows.Scan(&item); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s", name)
		}
		items = append(items, json.RawMessage(item))
	}
	return items, eris.Wrapf(rows.Err(), "sqlite: iterate %s", name)
}

func (s *SQLiteStore) Stat(ctx context.Context, name string) (CollectionInfo, error) {
	if err := ValidateName(name); err != nil {
		return CollectionInfo{}, err
	}

	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM collection_items WHERE name = ?`, name,
	).Scan(&n); err != nil {
		return CollectionInfo{}, eris.Wrapf(err, "sqlite: count %s", name)
	}
	return CollectionInfo{Name: name, Items: n}, nil
}
