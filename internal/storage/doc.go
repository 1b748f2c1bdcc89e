// Package storage defines the persistence boundaries of the widget data
// platform: a local cache store that is always available, and a remote
// store adapter that may be unreachable. The sync layer treats both as
// opaque keyed payload stores; "not found" is a recognized empty state,
// distinguishable from failure via ErrNotFound.
package storage
