// Package klock implements the kernel's "recursive-permissive" lock: a
// spinlock that additionally lets its current owner re-acquire it.
//
// Before the address-translation hardware is enabled, only one logical
// owner can possibly be running, so locking degrades to a cheap assertion.
// Once translation is enabled -- signalled by a call to Ready -- the lock
// switches to a real compare-and-swap, and tracks which owner holds it so
// that owner (and only that owner) may lock it again without deadlocking
// itself. This mirrors a kernel taking the same lock from a syscall handler
// that is itself already holding it on behalf of the running process.
package klock

import (
	"fmt"
	"sync/atomic"
)

// noOwner is never a valid caller-supplied owner token; owner IDs are
// expected to be nonzero (a process id, or a goroutine-scoped token).
const noOwner uint64 = 0

// Lock is a recursive-permissive lock identified by caller-supplied owner
// tokens rather than by goroutine, since the simulated kernel has no
// equivalent of a CPU core id to key off of.
type Lock struct {
	ready atomic.Bool
	owner atomic.Uint64
}

// Ready switches the lock from single-owner assertion mode into real
// compare-and-swap mode. It is called once, when the simulated MMU is
// enabled.
func (l *Lock) Ready() {
	l.ready.Store(true)
}

// TryLock attempts to acquire the lock on behalf of owner. It succeeds
// immediately if the lock is free or already held by owner (recursive
// acquisition); it returns false if held by a different owner.
//
// Before Ready is called, TryLock never contends: it panics if a second,
// distinct owner attempts to acquire the lock, since that can only happen
// if this invariant (no concurrency before the MMU is enabled) has been
// violated.
func (l *Lock) TryLock(owner uint64) bool {
	if owner == noOwner {
		panic("klock: owner token must be nonzero")
	}

	if !l.ready.Load() {
		current := l.owner.Load()
		if current != noOwner && current != owner {
			panic(fmt.Sprintf("klock: concurrent acquisition by %d while %d holds the lock before Ready", owner, current))
		}

		l.owner.Store(owner)

		return true
	}

	if l.owner.CompareAndSwap(noOwner, owner) {
		return true
	}

	return l.owner.Load() == owner
}

// Unlock releases the lock. It is a no-op if owner does not hold it.
func (l *Lock) Unlock(owner uint64) {
	l.owner.CompareAndSwap(owner, noOwner)
}

// Owner returns the current owner token, or 0 if unlocked.
func (l *Lock) Owner() uint64 {
	return l.owner.Load()
}
