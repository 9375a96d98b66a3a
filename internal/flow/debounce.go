package flow

import (
	"sync"
	"time"
)

// Debounce drops repeated triggers for a pid inside the cooldown
// window. The first trigger of a window always passes.
type Debounce struct {
	cooldown time.Duration
	mu       sync.Mutex
	last     map[int64]time.Time
}

// NewDebounce constructs a debounce with the provided cooldown.
// A non-positive cooldown lets everything through.
func NewDebounce(cooldown time.Duration) *Debounce {
	d := new(Debounce)
	d.cooldown = cooldown
	d.last = make(map[int64]time.Time)
	return d
}

// Allow reports whether a trigger for pid should run now.
func (d *Debounce) Allow(pid int64) bool {
	if d == nil || d.cooldown <= 0 {
		return true
	}
	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.last[pid]
	if !ok || now.Sub(last) >= d.cooldown {
		d.last[pid] = now
		return true
	}
	return false
}
