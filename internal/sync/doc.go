// Package sync reconciles widget data between the always-available local
// cache store and an optional remote store.
//
// The contract is local-first: every save lands locally before any network
// is touched, every load starts from the local baseline, and remote
// failures degrade to the last known local state instead of failing the
// caller. When the remote store is reachable it is authoritative on read
// (last-writer-wins); a successful remote read overwrites the local cache.
package sync
