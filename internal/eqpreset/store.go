package eqpreset

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Store defines the interface for preset persistence operations.
// The abstraction keeps consumers testable without a database.
type Store interface {
	// Get retrieves the preset for a target.
	// Returns ErrPresetNotFound if no preset is stored.
	Get(ctx context.Context, target string) (*Preset, error)

	// Put validates and stores a preset for a target, replacing any
	// existing one.
	Put(ctx context.Context, target string, preset *Preset) error

	// Delete removes the preset for a target.
	// Returns ErrPresetNotFound if no preset is stored.
	Delete(ctx context.Context, target string) error

	// List returns the target names that have a stored preset,
	// ordered ascending.
	List(ctx context.Context) ([]string, error)
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed preset store.
// The db parameter should be an open SQLite connection with the
// eq_presets table migrated.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get retrieves the preset for a target.
func (s *SQLiteStore) Get(ctx context.Context, target string) (*Preset, error) {
	if err := validateTarget(target); err != nil {
		return nil, err
	}

	var body string
	row := s.db.QueryRowContext(ctx, `SELECT body FROM eq_presets WHERE target = ?`, target)
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPresetNotFound
		}
		return nil, fmt.Errorf("querying preset: %w", err)
	}

	var preset Preset
	if err := json.Unmarshal([]byte(body), &preset); err != nil {
		return nil, fmt.Errorf("unmarshalling preset body: %w", err)
	}
	return &preset, nil
}

// Put validates and stores a preset for a target.
func (s *SQLiteStore) Put(ctx context.Context, target string, preset *Preset) error {
	if err := validateTarget(target); err != nil {
		return err
	}
	if preset == nil {
		return fmt.Errorf("%w: nil preset", ErrInvalidPreset)
	}
	if err := preset.Validate(); err != nil {
		return err
	}

	body, err := json.Marshal(preset)
	if err != nil {
		return fmt.Errorf("marshalling preset: %w", err)
	}

	query := `
		INSERT INTO eq_presets (target, body, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(target) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query, target, string(body), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("storing preset: %w", err)
	}
	return nil
}

// Delete removes the preset for a target.
func (s *SQLiteStore) Delete(ctx context.Context, target string) error {
	if err := validateTarget(target); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM eq_presets WHERE target = ?`, target)
	if err != nil {
		return fmt.Errorf("deleting preset: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return ErrPresetNotFound
	}
	return nil
}

// List returns the target names that have a stored preset.
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT target FROM eq_presets ORDER BY target`)
	if err != nil {
		return nil, fmt.Errorf("listing presets: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only rows

	var targets []string
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, fmt.Errorf("scanning preset target: %w", err)
		}
		targets = append(targets, target)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating presets: %w", err)
	}
	return targets, nil
}
