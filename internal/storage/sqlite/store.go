// Package sqlite provides the SQLite-backed remote store adapter.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/alfred/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/alfred/internal/storage"
	"github.com/louisbranch/alfred/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists widget records in SQLite. It satisfies storage.RemoteStore;
// the widget_data primary key enforces one row per (user, instance).
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite widget data store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Upsert inserts or overwrites the record for (user, instance). A zero
// UpdatedAt is stamped with the current time.
func (s *Store) Upsert(ctx context.Context, record storage.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	record.UserID = strings.TrimSpace(record.UserID)
	if record.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	record.InstanceID = strings.TrimSpace(record.InstanceID)
	if record.InstanceID == "" {
		return fmt.Errorf("widget instance id is required")
	}
	record.WidgetType = strings.TrimSpace(record.WidgetType)
	if record.WidgetType == "" {
		return fmt.Errorf("widget type is required")
	}
	if len(record.Payload) == 0 {
		return fmt.Errorf("payload is required")
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO widget_data (
		    user_id, widget_instance_id, widget_type, payload_json, updated_at
		 ) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, widget_instance_id) DO UPDATE SET
		    widget_type = excluded.widget_type,
		    payload_json = excluded.payload_json,
		    updated_at = excluded.updated_at`,
		record.UserID,
		record.InstanceID,
		record.WidgetType,
		record.Payload,
		toMillis(record.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert widget data: %w", err)
	}
	return nil
}

// Select fetches the record for (user, instance). Missing rows return
// storage.ErrNotFound.
func (s *Store) Select(ctx context.Context, userID, instanceID string) (storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return storage.Record{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Record{}, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.Record{}, fmt.Errorf("user id is required")
	}
	instanceID = strings.TrimSpace(instanceID)
	if instanceID == "" {
		return storage.Record{}, fmt.Errorf("widget instance id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT user_id, widget_instance_id, widget_type, payload_json, updated_at
		 FROM widget_data
		 WHERE user_id = ? AND widget_instance_id = ?`,
		userID,
		instanceID,
	)

	var record storage.Record
	var updatedAt int64
	if err := row.Scan(
		&record.UserID,
		&record.InstanceID,
		&record.WidgetType,
		&record.Payload,
		&updatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return storage.Record{}, storage.ErrNotFound
		}
		return storage.Record{}, fmt.Errorf("select widget data: %w", err)
	}
	record.UpdatedAt = fromMillis(updatedAt)

	return record, nil
}

// Delete removes the record for (user, instance). Deleting an absent row is
// not an error.
func (s *Store) Delete(ctx context.Context, userID, instanceID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	instanceID = strings.TrimSpace(instanceID)
	if instanceID == "" {
		return fmt.Errorf("widget instance id is required")
	}

	if _, err := s.sqlDB.ExecContext(
		ctx,
		`DELETE FROM widget_data WHERE user_id = ? AND widget_instance_id = ?`,
		userID,
		instanceID,
	); err != nil {
		return fmt.Errorf("delete widget data: %w", err)
	}
	return nil
}
