package klock_test

import (
	"testing"

	"github.com/relayd/aegis/internal/klock"
)

func TestRecursiveAcquisitionByOwner(t *testing.T) {
	var l klock.Lock
	l.Ready()

	if !l.TryLock(1) {
		t.Fatalf("expected first lock to succeed")
	}

	if !l.TryLock(1) {
		t.Fatalf("expected recursive lock by same owner to succeed")
	}
}

func TestContentionBlocksOtherOwner(t *testing.T) {
	var l klock.Lock
	l.Ready()

	if !l.TryLock(1) {
		t.Fatalf("expected first lock to succeed")
	}

	if l.TryLock(2) {
		t.Fatalf("expected second owner to be denied the lock")
	}
}

func TestUnlockReleasesToOtherOwner(t *testing.T) {
	var l klock.Lock
	l.Ready()

	l.TryLock(1)
	l.Unlock(1)

	if !l.TryLock(2) {
		t.Fatalf("expected lock to be free after Unlock")
	}
}

func TestPreReadyPanicsOnDistinctOwners(t *testing.T) {
	var l klock.Lock

	l.TryLock(1)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for concurrent pre-Ready acquisition")
		}
	}()

	l.TryLock(2)
}
