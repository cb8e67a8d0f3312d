package vmm

import (
	"errors"
	"fmt"

	"github.com/relayd/aegis/internal/config"
	"github.com/relayd/aegis/internal/mem/bin"
)

// ErrBadAddress is returned when a virtual address falls outside a table's
// mapped range, or names a page that has never been allocated.
var ErrBadAddress = errors.New("vmm: bad address")

// l3Table is one of the two leaf tables that together cover a 1 GiB user
// address space.
type l3Table struct {
	entries [l3Entries]PTE
}

// UserTable is a per-process page table. It is created empty: pages are
// faulted in on demand by Alloc, mirroring how a real kernel backs a
// process's heap and stack lazily rather than up front.
type UserTable struct {
	base uintptr
	l3   [l2Entries]*l3Table
}

// NewUserTable creates an empty page table for a process whose address
// space begins at config.UserImgBase.
func NewUserTable() *UserTable {
	return &UserTable{base: config.UserImgBase}
}

// BaseAddress returns the virtual address a process's text segment is
// loaded at.
func (t *UserTable) BaseAddress() uintptr {
	return t.base
}

// Translate returns the page-table entry mapping va, or ErrBadAddress if
// va is out of range or unmapped.
func (t *UserTable) Translate(va uintptr) (PTE, error) {
	if va < t.base || va-t.base >= config.UserMaxVMSize {
		return PTE{}, fmt.Errorf("%w: %#x outside user address space", ErrBadAddress, va)
	}

	l2i, l3i, _ := locate(va - t.base)

	l3 := t.l3[l2i]
	if l3 == nil || !l3.entries[l3i].valid {
		return PTE{}, fmt.Errorf("%w: %#x not mapped", ErrBadAddress, va)
	}

	return l3.entries[l3i], nil
}

// IsValid reports whether va is currently mapped.
func (t *UserTable) IsValid(va uintptr) bool {
	_, err := t.Translate(va)
	return err == nil
}

// Alloc maps the page containing va, backing it with a freshly allocated
// physical page from alloc, and returns a slice over that page's bytes. If
// the page is already mapped, its existing backing bytes are returned
// unchanged (Alloc is idempotent per page, matching sbrk's page-at-a-time
// growth, which may re-request the page straddling the previous break).
func (t *UserTable) Alloc(alloc *bin.Allocator, va uintptr, perm Perm) ([]byte, error) {
	if va < t.base || va-t.base >= config.UserMaxVMSize {
		return nil, fmt.Errorf("%w: %#x outside user address space", ErrBadAddress, va)
	}

	l2i, l3i, _ := locate(va - t.base)

	l3 := t.l3[l2i]
	if l3 == nil {
		l3 = &l3Table{}
		t.l3[l2i] = l3
	}

	entry := &l3.entries[l3i]
	if entry.valid {
		return alloc.Bytes(entry.addr, config.PageSize), nil
	}

	page, err := alloc.Alloc(config.PageSize, config.PageSize)
	if err != nil {
		return nil, fmt.Errorf("vmm: allocating page for %#x: %w", va, err)
	}

	*entry = PTE{valid: true, perm: perm, af: true, addr: page}

	return alloc.Bytes(page, config.PageSize), nil
}

// Release returns every mapped page to alloc exactly once and discards the
// table's leaf tables. It must be called when a process exits, or its pages
// leak for the lifetime of the kernel.
func (t *UserTable) Release(alloc *bin.Allocator) {
	for i, l3 := range t.l3 {
		if l3 == nil {
			continue
		}

		for j := range l3.entries {
			entry := &l3.entries[j]
			if entry.valid {
				alloc.Free(entry.addr, config.PageSize, config.PageSize)
				entry.valid = false
			}
		}

		t.l3[i] = nil
	}
}

// PageCount returns the number of pages currently mapped, for diagnostics
// and tests.
func (t *UserTable) PageCount() int {
	n := 0

	for _, l3 := range t.l3 {
		if l3 == nil {
			continue
		}

		for j := range l3.entries {
			if l3.entries[j].valid {
				n++
			}
		}
	}

	return n
}
