package shell

import (
	"context"
	"fmt"
	"log"
	"strings"
	gosync "sync"

	"github.com/louisbranch/alfred/internal/id"
	"github.com/louisbranch/alfred/internal/sync"
)

// Instance is one placed, configured occurrence of a widget type. The shell
// exclusively owns this record; the widget owns its persisted payload.
type Instance struct {
	ID     string
	Type   string
	Config map[string]any
}

// LayoutItem is an instance's grid geometry.
type LayoutItem struct {
	X    int
	Y    int
	W    int
	H    int
	MinW int
	MinH int
}

// Shell tracks widget instances and layout geometry and routes host calls.
type Shell struct {
	mu        gosync.Mutex
	catalog   *Catalog
	registry  *sync.Registry
	userID    string
	instances []*Instance
	layout    map[string]LayoutItem
	teardowns map[string]func()
	idGen     func() (string, error)
	logf      func(string, ...any)
}

// New builds a shell over a widget catalog and sync registry.
func New(catalog *Catalog, registry *sync.Registry, logf func(string, ...any)) (*Shell, error) {
	if catalog == nil {
		return nil, fmt.Errorf("widget catalog is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("sync registry is required")
	}
	if logf == nil {
		logf = log.Printf
	}
	return &Shell{
		catalog:   catalog,
		registry:  registry,
		layout:    make(map[string]LayoutItem),
		teardowns: make(map[string]func()),
		idGen:     id.NewID,
		logf:      logf,
	}, nil
}

// BindTeardown registers fn to run when instanceID is removed, before the
// instance's persisted data is cleared. Widgets bind their model's Close
// here so a pending debounced save cannot rewrite a removed instance's
// keys after the clear.
func (s *Shell) BindTeardown(instanceID string, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.find(instanceID) == nil {
		return fmt.Errorf("widget instance %s not found", instanceID)
	}
	s.teardowns[instanceID] = fn
	return nil
}

// Login records the authenticated user and triggers the one-shot local to
// remote migration for every registered widget type.
func (s *Shell) Login(ctx context.Context, userID string) {
	userID = strings.TrimSpace(userID)
	s.mu.Lock()
	s.userID = userID
	s.mu.Unlock()
	if userID == "" {
		return
	}
	s.registry.MigrateAll(ctx, userID)
}

// UserID returns the current opaque user identifier, empty when anonymous.
func (s *Shell) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// AddWidget places a new instance of widgetType below the current layout.
func (s *Shell) AddWidget(widgetType string) (Instance, error) {
	descriptor, err := s.catalog.Lookup(widgetType)
	if err != nil {
		return Instance{}, err
	}

	instanceID, err := s.idGen()
	if err != nil {
		return Instance{}, fmt.Errorf("generate instance id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	maxY := 0
	for _, item := range s.layout {
		if bottom := item.Y + item.H; bottom > maxY {
			maxY = bottom
		}
	}

	instance := &Instance{
		ID:     instanceID,
		Type:   descriptor.Type,
		Config: make(map[string]any),
	}
	s.instances = append(s.instances, instance)
	s.layout[instanceID] = LayoutItem{
		X:    0,
		Y:    maxY,
		W:    descriptor.DefaultWidth,
		H:    descriptor.DefaultHeight,
		MinW: descriptor.MinWidth,
		MinH: descriptor.MinHeight,
	}
	return *instance, nil
}

// ApplyPatch merges a partial config diff into an instance's stored config.
func (s *Shell) ApplyPatch(instanceID string, patch Patch) error {
	if len(patch) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	instance := s.find(instanceID)
	if instance == nil {
		return fmt.Errorf("widget instance %s not found", instanceID)
	}
	instance.Config = Merge(instance.Config, patch)
	return nil
}

// RemoveWidget drops the instance and its layout entry, runs its bound
// teardown, and clears its persisted data best-effort. The teardown runs
// before the clear so a pending debounced save cannot resurrect the
// cleared keys.
func (s *Shell) RemoveWidget(ctx context.Context, instanceID string) error {
	s.mu.Lock()
	var removed *Instance
	kept := s.instances[:0]
	for _, instance := range s.instances {
		if instance.ID == instanceID {
			removed = instance
			continue
		}
		kept = append(kept, instance)
	}
	s.instances = kept
	delete(s.layout, instanceID)
	teardown := s.teardowns[instanceID]
	delete(s.teardowns, instanceID)
	userID := s.userID
	s.mu.Unlock()

	if removed == nil {
		return fmt.Errorf("widget instance %s not found", instanceID)
	}
	if teardown != nil {
		teardown()
	}

	provider, ok := s.registry.Lookup(removed.Type)
	if !ok {
		// Unregistered types ran in memory-only mode; nothing persisted.
		s.logf("shell: no sync provider for %s, skipping data clear", removed.Type)
		return nil
	}
	if result := provider.Clear(ctx, userID); !result.Succeeded() {
		s.logf("shell: clear %s data: %s", removed.Type, result.Err)
	}
	return nil
}

// Host returns the host contract wired for one instance.
func (s *Shell) Host(instanceID string) Host {
	return Host{
		OnUpdate: func(patch Patch) {
			if err := s.ApplyPatch(instanceID, patch); err != nil {
				s.logf("shell: apply patch: %v", err)
			}
		},
		OnDelete: func() {
			if err := s.RemoveWidget(context.Background(), instanceID); err != nil {
				s.logf("shell: remove widget: %v", err)
			}
		},
	}
}

// Instances returns a snapshot of the instance list.
func (s *Shell) Instances() []Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]Instance, 0, len(s.instances))
	for _, instance := range s.instances {
		snapshot = append(snapshot, *instance)
	}
	return snapshot
}

// Layout returns an instance's grid geometry.
func (s *Shell) Layout(instanceID string) (LayoutItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.layout[instanceID]
	return item, ok
}

// SetLayout records an instance's grid geometry, clamping to the
// descriptor minimums already captured in the item.
func (s *Shell) SetLayout(instanceID string, item LayoutItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.find(instanceID) == nil {
		return fmt.Errorf("widget instance %s not found", instanceID)
	}
	if item.W < item.MinW {
		item.W = item.MinW
	}
	if item.H < item.MinH {
		item.H = item.MinH
	}
	s.layout[instanceID] = item
	return nil
}

func (s *Shell) find(instanceID string) *Instance {
	for _, instance := range s.instances {
		if instance.ID == instanceID {
			return instance
		}
	}
	return nil
}
