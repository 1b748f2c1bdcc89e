package quicklinks

import (
	"github.com/louisbranch/alfred/internal/storage"
	"github.com/louisbranch/alfred/internal/sync"
)

// NewProvider builds the sync provider for one quicklinks instance.
// instanceID may be empty for the default single-instance key.
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
