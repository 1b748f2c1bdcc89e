package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// LocalStore is per-widget key-value persistence that never depends on
// network reachability. Values are caller-serialized text.
type LocalStore interface {
	Get(key string) (string, error)
	Set(key string, value string) error
	Remove(key string) error
}

// Record is one remote row of widget data, keyed by user and widget
// instance. Payload is an opaque serialized blob owned by the widget type.
type Record struct {
	UserID     string
	InstanceID string
	WidgetType string
	Payload    []byte
	UpdatedAt  time.Time
}

// RemoteStore persists widget records in a networked backend. Upsert must
// never create duplicate rows for the same (user, instance) pair; the store
// itself enforces that uniqueness.
type RemoteStore interface {
	Upsert(ctx context.Context, record Record) error
	Select(ctx context.Context, userID, instanceID string) (Record, error)
	Delete(ctx context.Context, userID, instanceID string) error
}
