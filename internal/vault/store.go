package vault

import (
	"context"
	"database/sql"
	"fmt"
)

// Store persists disabled preset lists keyed by bundle hash.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Disabled returns the disabled names of a bundle, sorted.
func (s *Store) Disabled(ctx context.Context, hash string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM disabled_presets WHERE bundle_hash = ? ORDER BY name", hash)
	if err != nil {
		return nil, fmt.Errorf("failed to query disabled presets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan disabled preset: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read disabled presets: %w", err)
	}
	return names, nil
}

// SetDisabled replaces the disabled list of a bundle.
func (s *Store) SetDisabled(ctx context.Context, hash, path string, names []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM disabled_presets WHERE bundle_hash = ?", hash); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to clear disabled presets: %w", err)
	}
	for _, name := range names {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO disabled_presets (bundle_hash, bundle_path, name) VALUES (?, ?, ?)",
			hash, path, name)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to store disabled preset %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit disabled presets: %w", err)
	}
	return nil
}

// Forget drops everything stored for a bundle.
func (s *Store) Forget(ctx context.Context, hash string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM disabled_presets WHERE bundle_hash = ?", hash); err != nil {
		return fmt.Errorf("failed to forget bundle: %w", err)
	}
	return nil
}
