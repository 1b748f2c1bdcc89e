// Package quicklinks implements the multi-session link widget: named
// sessions grouping quick links, with validated mutation, per-session URL
// dedup, and debounced local-first persistence.
package quicklinks
