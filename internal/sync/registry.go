package sync

import (
	"context"
	"log"
	"sort"
	"strings"
	gosync "sync"

	platformerrors "github.com/louisbranch/alfred/internal/platform/errors"
)

// Syncer is the payload-agnostic face every Provider exposes to the
// registry, covering the operations the shell drives without knowing the
// widget's payload type.
type Syncer interface {
	WidgetType() string
	Migrate(ctx context.Context, userID string) Result[Void]
	Clear(ctx context.Context, userID string) Result[Void]
}

// Registry maps widget types to their sync providers. It is constructed
// once at startup and passed by reference to whichever component needs
// lookup; there is no package-level instance.
type Registry struct {
	mu        gosync.RWMutex
	providers map[string]Syncer
	logf      func(string, ...any)
}

// NewRegistry builds an empty registry. logf defaults to log.Printf.
func NewRegistry(logf func(string, ...any)) *Registry {
	if logf == nil {
		logf = log.Printf
	}
	return &Registry{
		providers: make(map[string]Syncer),
		logf:      logf,
	}
}

// Register adds a provider, replacing any prior registration for the same
// widget type. Registration is idempotent.
func (r *Registry) Register(provider Syncer) {
	if provider == nil {
		return
	}
	widgetType := strings.TrimSpace(provider.WidgetType())
	if widgetType == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[widgetType]; exists {
		r.logf("sync registry: replacing provider for %s", widgetType)
	}
	r.providers[widgetType] = provider
}

// Lookup returns the provider registered for widgetType. Absence is a
// caller error, not a fault; widgets without a provider fall back to
// in-memory-only mode.
func (r *Registry) Lookup(widgetType string) (Syncer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	provider, ok := r.providers[widgetType]
	return provider, ok
}

// Require returns the provider registered for widgetType or a typed
// not-registered error, for callers that treat absence as a failure
// instead of a memory-only fallback.
func (r *Registry) Require(widgetType string) (Syncer, error) {
	provider, ok := r.Lookup(widgetType)
	if !ok {
		return nil, platformerrors.WithMetadata(
			platformerrors.CodeSyncNotRegistered,
			"no sync provider registered",
			map[string]string{"widget_type": widgetType},
		)
	}
	return provider, nil
}

// Types lists registered widget types in stable order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.providers))
	for widgetType := range r.providers {
		types = append(types, widgetType)
	}
	sort.Strings(types)
	return types
}

// MigrateAll runs the one-shot migration for every registered provider,
// typically on first login. Individual failures are logged and collected;
// they never abort the remaining migrations.
func (r *Registry) MigrateAll(ctx context.Context, userID string) map[string]Result[Void] {
	results := make(map[string]Result[Void])
	for _, widgetType := range r.Types() {
		provider, ok := r.Lookup(widgetType)
		if !ok {
			continue
		}
		result := provider.Migrate(ctx, userID)
		if !result.Succeeded() {
			r.logf("sync registry: %s migration failed: %s", widgetType, result.Err)
		}
		results[widgetType] = result
	}
	return results
}

// ClearAll clears persisted data for every registered provider, typically
// at account teardown. Individual failures are logged and collected; they
// never abort the remaining clears.
func (r *Registry) ClearAll(ctx context.Context, userID string) map[string]Result[Void] {
	results := make(map[string]Result[Void])
	for _, widgetType := range r.Types() {
		provider, ok := r.Lookup(widgetType)
		if !ok {
			continue
		}
		result := provider.Clear(ctx, userID)
		if !result.Succeeded() {
			r.logf("sync registry: %s clear failed: %s", widgetType, result.Err)
		}
		results[widgetType] = result
	}
	return results
}
