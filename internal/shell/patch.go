package shell

// Patch is a partial configuration diff: only the top-level keys that
// changed, never the full config object. Merge semantics are shallow key
// overwrite; the authoritative full state lives in the sync provider's
// store and is never reconstructed from accumulated patches.
type Patch map[string]any

// Merge applies patch onto config, overwriting per top-level key, and
// returns config for chaining. A nil config allocates.
func Merge(config map[string]any, patch Patch) map[string]any {
	if config == nil {
		config = make(map[string]any, len(patch))
	}
	for key, value := range patch {
		config[key] = value
	}
	return config
}

// Host is the boundary a widget sees: report a partial diff upward, or ask
// for the instance's removal. Either func may be nil when the shell does
// not track the widget.
type Host struct {
	OnUpdate func(Patch)
	OnDelete func()
}

// Update reports a partial diff if the host is wired.
func (h Host) Update(patch Patch) {
	if h.OnUpdate != nil && len(patch) > 0 {
		h.OnUpdate(patch)
	}
}

// Delete asks for the widget's removal if the host is wired.
func (h Host) Delete() {
	if h.OnDelete != nil {
		h.OnDelete()
	}
}
