// Package timer implements the kernel's monotonic Timer collaborator.
package timer

import "time"

// WallClock is a Timer backed by the host's monotonic clock, anchored at
// construction time.
type WallClock struct {
	start time.Time
}

// New creates a WallClock anchored at the current instant.
func New() *WallClock {
	return &WallClock{start: time.Now()}
}

// Elapsed returns nanoseconds since the timer was created.
func (w *WallClock) Elapsed() uint64 {
	return uint64(time.Since(w.start).Nanoseconds())
}

// Fake is a Timer whose value is advanced explicitly, for deterministic
// tests of sys_sleep's poll functions.
type Fake struct {
	ns uint64
}

// NewFake creates a Fake timer starting at 0.
func NewFake() *Fake { return &Fake{} }

// Advance moves the fake clock forward by ns nanoseconds.
func (f *Fake) Advance(ns uint64) { f.ns += ns }

// Elapsed returns the fake clock's current value.
func (f *Fake) Elapsed() uint64 { return f.ns }
