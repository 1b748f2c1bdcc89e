// Package widgets indexes the built-in widget implementations.
package widgets

import (
	"github.com/louisbranch/alfred/internal/shell"
	"github.com/louisbranch/alfred/internal/widgets/quicklinks"
	"github.com/louisbranch/alfred/internal/widgets/sample"
)

// DefaultCatalog lists every built-in widget descriptor.
func DefaultCatalog() *shell.Catalog {
	return shell.NewCatalog(
		quicklinks.Descriptor(),
		sample.Descriptor(),
	)
}
