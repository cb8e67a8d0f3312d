package syscall

import (
	"github.com/relayd/aegis/internal/config"
	"github.com/relayd/aegis/internal/mem/bin"
	"github.com/relayd/aegis/internal/proc"
)

// CopyFromUser validates and reads length bytes starting at the user
// virtual address va, walking page by page through the process's table.
// It fails with BadAddress if any page in the range is unmapped, the same
// outcome real hardware would raise as a data abort.
func CopyFromUser(p *proc.Process, alloc *bin.Allocator, va, length uint64) ([]byte, Errno) {
	if _, errno := ValidateUserPointer(p, va, length); errno != Ok {
		return nil, errno
	}

	out := make([]byte, 0, length)
	addr := uintptr(va)
	remaining := length

	for remaining > 0 {
		pte, err := p.Vmap.Translate(addr)
		if err != nil {
			return nil, BadAddress
		}

		pageOff := addr % config.PageSize
		n := uint64(config.PageSize - pageOff)

		if n > remaining {
			n = remaining
		}

		page := alloc.Bytes(pte.Addr(), config.PageSize)
		out = append(out, page[pageOff:pageOff+uintptr(n)]...)

		addr += uintptr(n)
		remaining -= n
	}

	return out, Ok
}

// CopyToUser writes data into the user address space starting at va,
// walking page by page. It fails with BadAddress if any destination page is
// unmapped.
func CopyToUser(p *proc.Process, alloc *bin.Allocator, va uint64, data []byte) Errno {
	if _, errno := ValidateUserPointer(p, va, uint64(len(data))); errno != Ok {
		return errno
	}

	addr := uintptr(va)
	src := data

	for len(src) > 0 {
		pte, err := p.Vmap.Translate(addr)
		if err != nil {
			return BadAddress
		}

		pageOff := addr % config.PageSize
		n := config.PageSize - pageOff

		if n > uintptr(len(src)) {
			n = uintptr(len(src))
		}

		page := alloc.Bytes(pte.Addr(), config.PageSize)
		copy(page[pageOff:pageOff+n], src[:n])

		addr += n
		src = src[n:]
	}

	return Ok
}
