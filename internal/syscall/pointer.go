package syscall

import (
	"math"

	"github.com/relayd/aegis/internal/config"
	"github.com/relayd/aegis/internal/proc"
)

// ValidateUserPointer checks that [va, va+length) lies entirely within the
// process's user address space, without wrapping the address space. It does
// not require the range to already be mapped: mapping is the page table's
// concern (UserTable.Alloc), not the ABI's. CopyFromUser and CopyToUser
// reject a range that passes this check but touches an unmapped page with
// BadAddress.
func ValidateUserPointer(p *proc.Process, va, length uint64) (uintptr, Errno) {
	base := uint64(p.Vmap.BaseAddress())

	if va < base {
		return 0, BadAddress
	}

	if length > math.MaxUint64-va {
		return 0, BadAddress
	}

	if va+length-base > uint64(config.UserMaxVMSize) {
		return 0, BadAddress
	}

	return uintptr(va), Ok
}
