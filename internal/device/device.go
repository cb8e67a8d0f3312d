// Package device defines the interfaces the kernel's syscall and trap
// layers use to reach hardware: a console, a block device, a monotonic
// timer, a peripheral interrupt controller, and a hardware random number
// source. Concrete, host-backed implementations live in sub-packages
// (console, block, timer, rng, irq); tests substitute fakes satisfying
// these same interfaces.
package device

import (
	"io"

	"github.com/relayd/aegis/internal/trap"
)

// Console is a byte-stream serial console.
type Console interface {
	io.Reader
	io.Writer
}

// BlockDevice is a sector-addressed block storage device.
type BlockDevice interface {
	SectorSize() int
	SectorCount() uint64
	ReadSector(index uint64, buf []byte) error
	WriteSector(index uint64, buf []byte) error
}

// Timer is a monotonic clock, used by sys_time and sys_sleep's poll
// functions.
type Timer interface {
	// Elapsed returns nanoseconds since the timer was created.
	Elapsed() uint64
}

// InterruptController tracks which peripheral interrupt sources are
// currently asserted.
type InterruptController interface {
	Enable(source trap.IRQSource)
	Pending() []trap.IRQSource
}

// HWRNG is a hardware random-number source. Rand returns a full-width
// random value; RRand returns a value bounded to [0, bound); Entropy
// reports the estimated bits of entropy currently available, which may be
// zero if the source is (simulated to be) exhausted.
type HWRNG interface {
	Rand() (uint64, error)
	RRand(bound uint64) (uint64, error)
	Entropy() int
}
