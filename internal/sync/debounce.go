package sync

import (
	gosync "sync"
	"time"
)

// Debouncer coalesces rapid successive writes into a single scheduled task
// per key. Arming a key cancels and replaces its pending task, so at most
// one save is in flight per debounce window; Cancel is the teardown
// boundary for a widget instance's key.
type Debouncer struct {
	mu    gosync.Mutex
	gen   uint64
	slots map[string]*debounceSlot
}

type debounceSlot struct {
	timer *time.Timer
	gen   uint64
}

// NewDebouncer builds an empty debouncer.
func NewDebouncer() *Debouncer {
	return &Debouncer{slots: make(map[string]*debounceSlot)}
}

// Arm schedules fn to run after delay, cancelling any pending task for the
// same key.
func (d *Debouncer) Arm(key string, delay time.Duration, fn func()) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.slots[key]
	if ok {
		slot.timer.Stop()
	} else {
		slot = &debounceSlot{}
		d.slots[key] = slot
	}
	// Generations are debouncer-global so a stale fire can never match a
	// slot recreated after Cancel.
	d.gen++
	slot.gen = d.gen
	gen := slot.gen
	slot.timer = time.AfterFunc(delay, func() {
		// A fire that raced a newer Arm or a Cancel is stale; drop it.
		d.mu.Lock()
		current, ok := d.slots[key]
		if !ok || current.gen != gen {
			d.mu.Unlock()
			return
		}
		delete(d.slots, key)
		d.mu.Unlock()
		fn()
	})
}

// Cancel drops any pending task for key. Results of a task already past its
// staleness check are not interrupted.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if slot, ok := d.slots[key]; ok {
		slot.timer.Stop()
		delete(d.slots, key)
	}
}

// Pending reports whether key has a scheduled task.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.slots[key]
	return ok
}
