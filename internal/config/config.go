// Package config collects the compile-time constants that describe the
// simulated machine's memory layout and timing. Everything here would be a
// linker script or a `const` block in a real AArch64 kernel; in this
// simulation they size the bin allocator, the page-table address ranges, and
// the scheduler's tick quantum.
package config

import "time"

const (
	// PageSize is the simulated hardware page size. Real ARMv8 hardware
	// supports 4K, 16K, or 64K granules; this kernel uses 64K pages
	// throughout, matching the two-level L2/L3 table layout.
	PageSize = 64 * 1024

	// UserImgBase is the fixed virtual address every user process's text
	// segment is loaded at.
	UserImgBase uintptr = 0x1000000

	// UserStackBase is the fixed virtual address the user stack's highest
	// page ends at; the stack grows down from here.
	UserStackBase uintptr = 0x2000000

	// UserMaxVMSize bounds how far sys_sbrk may grow a process's heap
	// before colliding with its stack region.
	UserMaxVMSize uintptr = UserStackBase - UserImgBase

	// BinCount is the number of power-of-two size classes the bin
	// allocator maintains, covering allocations from 8 bytes up to 8<<60
	// (1<<63) bytes.
	BinCount = 61

	// Tick is the scheduler's preemption quantum.
	Tick = 10 * time.Millisecond

	// MTU is the simulated Ethernet link's maximum transmission unit.
	MTU = 1500

	// EphemeralPortLow and EphemeralPortHigh bound the range used by
	// GetEphemeralPort when a socket is connected without an explicit
	// local port.
	EphemeralPortLow  = 49152
	EphemeralPortHigh = 65535

	// RamEnd bounds the kernel's identity-mapped physical RAM region,
	// starting at address 0.
	RamEnd uintptr = 0x40000000

	// IOBase and IOBaseEnd bound the identity-mapped device MMIO region,
	// mapped non-cacheable and execute-never.
	IOBase    uintptr = 0x40000000
	IOBaseEnd uintptr = 0x40100000

	// BlockSectorSize and BlockSectorCount size the simulated in-memory
	// block device.
	BlockSectorSize = 512
	BlockSectorCount = 2048
)
