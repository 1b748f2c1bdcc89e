package quicklinks

import "github.com/louisbranch/alfred/internal/shell"

// Descriptor describes the widget to the shell catalog.
func Descriptor() shell.Descriptor {
	return shell.Descriptor{
		Type:          WidgetType,
		Name:          "Quick Links",
		MinWidth:      2,
		MinHeight:     2,
		DefaultWidth:  3,
		DefaultHeight: 4,
		Category:      "productivity",
		Description:   "Session-grouped quick links with click tracking",
		MultiInstance: true,
	}
}
