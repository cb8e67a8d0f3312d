// Package bin implements a segregated free-list ("bin") allocator over a
// fixed arena of simulated physical memory.
//
// Allocations are rounded up to the next power-of-two size class ("bin").
// Each bin holds its own free list of previously freed blocks of exactly
// that size. An allocation first tries to reuse a freed block from its bin;
// failing that, it bumps a watermark pointer forward, aligned to the bin
// size. Freed blocks are never coalesced across bins or with neighbors —
// fragmentation is the price paid for O(1) alloc/free with no bookkeeping
// header stored alongside each block.
package bin

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/relayd/aegis/internal/config"
)

// ErrNoMemory is returned when an allocation cannot be satisfied without
// exceeding the arena's end address.
var ErrNoMemory = errors.New("bin: out of memory")

// Allocator manages a fixed arena [start, end) of simulated physical memory,
// backed by a real byte slice so callers can read and write the bytes they
// are handed.
type Allocator struct {
	arena []byte
	start uintptr
	end   uintptr

	current uintptr // Bump-allocation watermark.
	bins    [config.BinCount][]uintptr
}

// New creates an Allocator managing an arena of size bytes, addressed
// starting at start. The arena's backing storage is allocated immediately.
func New(start uintptr, size uintptr) *Allocator {
	return &Allocator{
		arena:   make([]byte, size),
		start:   start,
		end:     start + size,
		current: start,
	}
}

// binIndex returns the index of the smallest bin whose block size is >= n.
// Bin i holds blocks of size 1<<(i+3): the allocator never hands out
// anything smaller than 8 bytes, which keeps every free-list node able to
// store its own intrusive link.
func binIndex(n uintptr) int {
	if n < 8 {
		n = 8
	}

	return bits.Len64(uint64(n-1)) - 3
}

func binSize(index int) uintptr {
	return 1 << (index + 3)
}

// mapToBin returns the bin index for an allocation of size bytes aligned to
// align bytes. It panics if no bin in the allocator is large enough: a
// layout this oversized would overflow the address space the bins cover,
// which is a caller bug, not a runtime condition to recover from.
func mapToBin(size, align uintptr) int {
	need := size
	if align > need {
		need = align
	}

	index := binIndex(need)
	if index < 0 || index >= config.BinCount {
		panic(fmt.Sprintf("bin: layout (%d, %d) will cause memory address overflow", size, align))
	}

	return index
}

// Alloc returns the address of a newly allocated block of at least size
// bytes, aligned to align bytes (which must be a power of two). It returns
// ErrNoMemory if the arena is exhausted, and panics if size or align is
// larger than any bin can satisfy.
func (a *Allocator) Alloc(size, align uintptr) (uintptr, error) {
	index := mapToBin(size, align)

	if free := a.bins[index]; len(free) > 0 {
		ptr := free[len(free)-1]
		a.bins[index] = free[:len(free)-1]

		return ptr, nil
	}

	blockSize := binSize(index)
	aligned := alignUp(a.current, blockSize)

	if aligned < a.current || aligned > a.end || blockSize > a.end-aligned {
		return 0, fmt.Errorf("%w: arena exhausted requesting %d bytes", ErrNoMemory, blockSize)
	}

	a.current = aligned + blockSize

	return aligned, nil
}

// Free returns a previously allocated block of size bytes (aligned to
// align, as originally requested) to its bin's free list. Adjacent blocks
// are never coalesced.
func (a *Allocator) Free(ptr, size, align uintptr) {
	index := mapToBin(size, align)

	a.bins[index] = append(a.bins[index], ptr)
}

// Bytes returns a slice of the arena's backing storage at [ptr, ptr+size).
// It panics if the range falls outside the arena, which indicates a caller
// bug (an address that didn't come from Alloc).
func (a *Allocator) Bytes(ptr, size uintptr) []byte {
	if ptr < a.start || ptr+size > a.end {
		panic(fmt.Sprintf("bin: address range [%#x, %#x) outside arena [%#x, %#x)",
			ptr, ptr+size, a.start, a.end))
	}

	off := ptr - a.start

	return a.arena[off : off+size]
}

// Fragmentation reports the number of bytes held in free lists: allocated
// once, freed, and not yet reused.
func (a *Allocator) Fragmentation() uintptr {
	var total uintptr

	for i, free := range a.bins {
		total += uintptr(len(free)) * binSize(i)
	}

	return total
}

// Start returns the arena's base address.
func (a *Allocator) Start() uintptr { return a.start }

// End returns the address one past the arena's last byte.
func (a *Allocator) End() uintptr { return a.end }

func alignUp(addr, align uintptr) uintptr {
	return (addr + align - 1) &^ (align - 1)
}
