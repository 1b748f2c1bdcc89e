package shell

import (
	"strings"

	platformerrors "github.com/louisbranch/alfred/internal/platform/errors"
)

// Descriptor is the registry metadata for one widget type.
type Descriptor struct {
	Type          string
	Name          string
	MinWidth      int
	MinHeight     int
	DefaultWidth  int
	DefaultHeight int
	Category      string
	Description   string
	MultiInstance bool
}

// Catalog resolves widget types to their descriptors. Unknown types yield a
// typed not-found error rather than a fault.
type Catalog struct {
	descriptors map[string]Descriptor
	order       []string
}

// NewCatalog builds a catalog from descriptors; later duplicates replace
// earlier ones.
func NewCatalog(descriptors ...Descriptor) *Catalog {
	catalog := &Catalog{descriptors: make(map[string]Descriptor)}
	for _, descriptor := range descriptors {
		widgetType := strings.TrimSpace(descriptor.Type)
		if widgetType == "" {
			continue
		}
		if _, exists := catalog.descriptors[widgetType]; !exists {
			catalog.order = append(catalog.order, widgetType)
		}
		catalog.descriptors[widgetType] = descriptor
	}
	return catalog
}

// Lookup resolves a widget type.
func (c *Catalog) Lookup(widgetType string) (Descriptor, error) {
	descriptor, ok := c.descriptors[strings.TrimSpace(widgetType)]
	if !ok {
		return Descriptor{}, platformerrors.WithMetadata(
			platformerrors.CodeWidgetUnknownType,
			"unknown widget type",
			map[string]string{"widget_type": widgetType},
		)
	}
	return descriptor, nil
}

// Descriptors lists descriptors in registration order.
func (c *Catalog) Descriptors() []Descriptor {
	descriptors := make([]Descriptor, 0, len(c.order))
	for _, widgetType := range c.order {
		descriptors = append(descriptors, c.descriptors[widgetType])
	}
	return descriptors
}
