package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schemaVersion = 1

var ErrEmptyArtifact = errors.New("artifact contains no training data")

// Open loads a trained artifact from disk. The sqlite handle is closed before
// returning; the caller gets a fully in-memory model.
func Open(ctx context.Context, path string) (*Model, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	meta, err := readMeta(ctx, db)
	if err != nil {
		return nil, err
	}
	if version := meta["schema_version"]; version != schemaVersion {
		return nil, fmt.Errorf("unsupported artifact schema version %d", version)
	}

	m := New()
	m.spamDocs = meta["spam_docs"]
	m.hamDocs = meta["ham_docs"]

	rows, err := db.QueryContext(ctx, `SELECT token, spam_count, ham_count FROM tokens;`)
	if err != nil {
		return nil, fmt.Errorf("read tokens: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var token string
		var count TokenCount
		if err := rows.Scan(&token, &count.Spam, &count.Ham); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		m.vocab[token] = count
		m.spamTokens += count.Spam
		m.hamTokens += count.Ham
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read tokens: %w", err)
	}

	if len(m.vocab) == 0 || m.spamDocs == 0 || m.hamDocs == 0 {
		return nil, ErrEmptyArtifact
	}
	return m, nil
}

// Save writes the model to path, replacing any previous artifact content.
func (m *Model) Save(ctx context.Context, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create artifact dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS meta (
            key TEXT PRIMARY KEY,
            value INTEGER NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS tokens (
            token TEXT PRIMARY KEY,
            spam_count INTEGER NOT NULL,
            ham_count INTEGER NOT NULL
        );`,
	}
	for _, statement := range statements {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("apply artifact schema: %w", err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin artifact tx: %w", err)
	}
	defer tx.Rollback()

	for _, statement := range []string{`DELETE FROM meta;`, `DELETE FROM tokens;`} {
		if _, err := tx.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("reset artifact: %w", err)
		}
	}

	meta := []struct {
		key   string
		value int64
	}{
		{"schema_version", schemaVersion},
		{"spam_docs", m.spamDocs},
		{"ham_docs", m.hamDocs},
		{"trained_at", time.Now().Unix()},
	}
	for _, row := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?);`, row.key, row.value); err != nil {
			return fmt.Errorf("insert meta: %w", err)
		}
	}

	for token, count := range m.vocab {
		if _, err := tx.ExecContext(ctx, `INSERT INTO tokens (token, spam_count, ham_count) VALUES (?, ?, ?);`,
			token, count.Spam, count.Ham); err != nil {
			return fmt.Errorf("insert token: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit artifact: %w", err)
	}
	return nil
}

func readMeta(ctx context.Context, db *sql.DB) (map[string]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM meta;`)
	if err != nil {
		return nil, fmt.Errorf("read artifact meta: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]int64)
	for rows.Next() {
		var key string
		var value int64
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan artifact meta: %w", err)
		}
		meta[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read artifact meta: %w", err)
	}
	return meta, nil
}
