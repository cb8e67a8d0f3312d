// Package vmm simulates an ARMv8 two-level (L2/L3) page-table walk over
// 64 KiB pages. The two L3 tables can index 1 GiB, but a UserTable accepts
// only the config.UserMaxVMSize bytes starting at config.UserImgBase;
// addresses beyond that are rejected with ErrBadAddress.
//
// A virtual address is split into three fields:
//
//	bits [29:29]  L2 index  -- selects one of two L3 tables
//	bits [28:16]  L3 index  -- selects one of 8192 entries in that table
//	bits [15:0]   page offset (64 KiB pages)
//
// This layout is deliberately narrow (1 GiB at most); it is not a general
// multi-level walker for the full 48-bit AArch64 virtual address space.
package vmm

import "fmt"

const (
	offsetBits = 16
	l3Bits     = 13
	l2Bits     = 1

	l3Entries = 1 << l3Bits
	l2Entries = 1 << l2Bits

	offsetMask = uintptr(1)<<offsetBits - 1
	l3Mask     = uintptr(1)<<l3Bits - 1
	l2Mask     = uintptr(1)<<l2Bits - 1
)

// Perm describes the access permissions granted to a mapped page.
type Perm uint8

const (
	PermNone Perm = iota
	PermReadOnly
	PermReadWrite
	PermReadExecute
)

// PTE is a single level-3 page-table entry: a simulated AArch64 page
// descriptor. Only the fields this kernel cares about are modeled; bits that
// real hardware requires but that never vary in this simulation (shareability,
// attribute index) are not modeled at all.
type PTE struct {
	valid bool
	perm  Perm
	af    bool // Access flag: set on first access, in real hardware by a fault; set eagerly here.
	addr  uintptr
}

// Valid reports whether the entry currently maps a physical page.
func (p PTE) Valid() bool { return p.valid }

// Perm returns the entry's access permission.
func (p PTE) Perm() Perm { return p.perm }

// Addr returns the physical address the entry maps to.
func (p PTE) Addr() uintptr { return p.addr }

// locate splits a virtual address into its L2, L3, and page-offset
// components. It does not check that va lies within any particular
// process's address space; callers validate that separately.
func locate(va uintptr) (l2Index, l3Index int, offset uintptr) {
	offset = va & offsetMask
	l3Index = int((va >> offsetBits) & l3Mask)
	l2Index = int((va >> (offsetBits + l3Bits)) & l2Mask)

	return l2Index, l3Index, offset
}

func (p Perm) String() string {
	switch p {
	case PermReadOnly:
		return "r--"
	case PermReadWrite:
		return "rw-"
	case PermReadExecute:
		return "r-x"
	default:
		return "---"
	}
}

func (p PTE) String() string {
	if !p.valid {
		return "<invalid>"
	}

	return fmt.Sprintf("%#x %s af=%t", p.addr, p.perm, p.af)
}
