// Package sample implements a minimal note-list widget. Its payload
// carries time.Time fields, so it doubles as the reference user of the
// sync codec contract.
package sample

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/louisbranch/alfred/internal/shell"
	"github.com/louisbranch/alfred/internal/storage"
	"github.com/louisbranch/alfred/internal/sync"
)

// WidgetType is the registry key for this widget.
const WidgetType = "sample-widget"

const (
	// DefaultMaxItems caps the item list unless configured.
	DefaultMaxItems = 20
	maxItemsCeiling = 100

	defaultTitle = "Sample Notes"
)

// Item is one note in the list.
type Item struct {
	ID        string
	Label     string
	CreatedAt time.Time
}

// Data is the widget's persisted payload.
type Data struct {
	Version   int
	Title     string
	MaxItems  int
	Items     []Item
	LastSaved *time.Time
}

// seedTime keeps DefaultData deterministic, so an untouched payload
// compares equal to defaults and is never migrated.
var seedTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// DefaultData seeds a first-run widget with welcome items.
func DefaultData() Data {
	seeded := seedTime
	return Data{
		Version:  1,
		Title:    defaultTitle,
		MaxItems: DefaultMaxItems,
		Items: []Item{
			{ID: "welcome-1", Label: "Welcome to your dashboard", CreatedAt: seeded},
			{ID: "welcome-2", Label: "Widgets keep working offline", CreatedAt: seeded},
			{ID: "welcome-3", Label: "Sign in to sync across devices", CreatedAt: seeded},
		},
	}
}

type itemWire struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	CreatedAt string `json:"createdAt"`
}

type dataWire struct {
	Version   int        `json:"version"`
	Title     string     `json:"title"`
	MaxItems  int        `json:"maxItems"`
	Items     []itemWire `json:"items"`
	LastSaved string     `json:"lastSaved,omitempty"`
}

// Encode serializes data, formatting timestamps as RFC 3339.
func Encode(data Data) ([]byte, error) {
	wire := dataWire{
		Version:  data.Version,
		Title:    data.Title,
		MaxItems: data.MaxItems,
		Items:    make([]itemWire, len(data.Items)),
	}
	for i, item := range data.Items {
		wire.Items[i] = itemWire{
			ID:        item.ID,
			Label:     item.Label,
			CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	}
	if data.LastSaved != nil {
		wire.LastSaved = data.LastSaved.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(wire)
}

// Decode parses a payload produced by Encode.
func Decode(payload []byte) (Data, error) {
	var wire dataWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		return Data{}, fmt.Errorf("decode sample payload: %w", err)
	}
	data := Data{
		Version:  wire.Version,
		Title:    wire.Title,
		MaxItems: wire.MaxItems,
		Items:    make([]Item, len(wire.Items)),
	}
	for i, item := range wire.Items {
		createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
		if err != nil {
			return Data{}, fmt.Errorf("parse createdAt for item %q: %w", item.ID, err)
		}
		data.Items[i] = Item{ID: item.ID, Label: item.Label, CreatedAt: createdAt}
	}
	if wire.LastSaved != "" {
		lastSaved, err := time.Parse(time.RFC3339Nano, wire.LastSaved)
		if err != nil {
			return Data{}, fmt.Errorf("parse lastSaved: %w", err)
		}
		data.LastSaved = &lastSaved
	}
	return data, nil
}

// CoerceConfig builds a Data config from a loosely typed widget config
// map, tolerating absent or mistyped fields by falling back to defaults.
// Numbers arrive as float64 after JSON decoding, so numeric fields accept
// both int and float64.
func CoerceConfig(config map[string]any) Data {
	data := Data{Version: 1, Title: defaultTitle, MaxItems: DefaultMaxItems}
	if config == nil {
		return data
	}
	if title, ok := config["title"].(string); ok && title != "" {
		data.Title = title
	}
	switch v := config["maxItems"].(type) {
	case int:
		data.MaxItems = clampMaxItems(v)
	case float64:
		data.MaxItems = clampMaxItems(int(v))
	}
	return data
}

func clampMaxItems(value int) int {
	if value <= 0 {
		return DefaultMaxItems
	}
	if value > maxItemsCeiling {
		return maxItemsCeiling
	}
	return value
}

// NewProvider builds the sync provider for one sample widget instance.
func NewProvider(local storage.LocalStore, remote storage.RemoteStore, instanceID string, logf func(string, ...any)) (*sync.Provider[Data], error) {
	return sync.NewProvider(sync.Options[Data]{
		WidgetType: WidgetType,
		InstanceID: instanceID,
		Version:    1,
		Defaults:   DefaultData,
		Encode:     Encode,
		Decode:     Decode,
		Local:      local,
		Remote:     remote,
		Logf:       logf,
	})
}

// Descriptor describes the widget to the shell catalog.
func Descriptor() shell.Descriptor {
	return shell.Descriptor{
		Type:          WidgetType,
		Name:          "Sample Notes",
		MinWidth:      2,
		MinHeight:     2,
		DefaultWidth:  2,
		DefaultHeight: 3,
		Category:      "demo",
		Description:   "A small note list used to demo widget sync",
	}
}
