package migrations

import "embed"

// FS contains embedded SQLite migrations for remote widget data storage.
//
//go:embed *.sql
var FS embed.FS
