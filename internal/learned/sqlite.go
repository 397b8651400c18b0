package learned

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// SQLiteStore keeps rules in a SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("execute schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Lookup(ctx context.Context, description string) (string, bool, error) {
	var category string
	err := s.db.QueryRowContext(ctx,
		`SELECT category FROM learned_categories WHERE description = ?`, description,
	).Scan(&category)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup learned rule: %w", err)
	}
	return category, true, nil
}

func (s *SQLiteStore) Record(ctx context.Context, description, category string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO learned_categories (description, category)
		VALUES (?, ?)
		ON CONFLICT(description) DO UPDATE SET
			category = excluded.category,
			updated_at = CURRENT_TIMESTAMP
	`, description, category)
	if err != nil {
		return fmt.Errorf("record learned rule: %w", err)
	}
	return nil
}

func (s *SQLiteStore) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT description, category FROM learned_categories`)
	if err != nil {
		return nil, fmt.Errorf("list learned rules: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var desc, cat string
		if err := rows.Scan(&desc, &cat); err != nil {
			return nil, fmt.Errorf("scan learned rule: %w", err)
		}
		out[desc] = cat
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
