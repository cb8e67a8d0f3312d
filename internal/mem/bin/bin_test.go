package bin_test

import (
	"errors"
	"testing"

	"github.com/relayd/aegis/internal/mem/bin"
)

func TestAllocBumpsWatermark(t *testing.T) {
	a := bin.New(0x1000, 4096)

	p1, err := a.Alloc(16, 8)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	p2, err := a.Alloc(16, 8)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	if p1 == p2 {
		t.Fatalf("expected distinct addresses, got %#x twice", p1)
	}
}

func TestFreeReusesBlock(t *testing.T) {
	a := bin.New(0x1000, 4096)

	p1, err := a.Alloc(32, 8)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	a.Free(p1, 32, 8)

	p2, err := a.Alloc(32, 8)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	if p1 != p2 {
		t.Fatalf("expected freed block to be reused: %#x != %#x", p1, p2)
	}
}

func TestAllocExhaustsArena(t *testing.T) {
	a := bin.New(0x2000, 128)

	if _, err := a.Alloc(128, 8); err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	if _, err := a.Alloc(128, 8); !errors.Is(err, bin.ErrNoMemory) {
		t.Fatalf("expected ErrNoMemory, got %v", err)
	}
}

func TestAllocOversizePanics(t *testing.T) {
	a := bin.New(0x3000, 4096)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for oversize layout")
		}
	}()

	a.Alloc(1<<63+1, 8)
}

func TestBytesRoundTrip(t *testing.T) {
	a := bin.New(0x4000, 4096)

	ptr, err := a.Alloc(64, 8)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	buf := a.Bytes(ptr, 64)
	copy(buf, []byte("hello, kernel"))

	if got := string(a.Bytes(ptr, 13)); got != "hello, kernel" {
		t.Fatalf("got %q", got)
	}
}

func TestFragmentationAccounting(t *testing.T) {
	a := bin.New(0x5000, 4096)

	p1, _ := a.Alloc(16, 8)

	if a.Fragmentation() != 0 {
		t.Fatalf("expected zero fragmentation before any free")
	}

	a.Free(p1, 16, 8)

	if a.Fragmentation() == 0 {
		t.Fatalf("expected nonzero fragmentation after free")
	}
}
