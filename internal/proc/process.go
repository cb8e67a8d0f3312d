package proc

import "github.com/relayd/aegis/internal/mem/vmm"

// ID identifies a process for the lifetime of the kernel. IDs are assigned
// sequentially by the scheduler and never reused.
type ID uint64

// Process is everything the kernel tracks about one user program: its saved
// register context, its address space, its open file descriptors, and its
// scheduling state.
type Process struct {
	ID      ID
	Context *TrapFrame
	Vmap    *vmm.UserTable
	State   State

	fds fdTable
}

// New creates a process with a fresh trap frame pointed at the entry point
// of vmap's address space, and the conventional three console descriptors
// preopened.
func New(id ID, vmap *vmm.UserTable) *Process {
	p := &Process{
		ID:      id,
		Context: &TrapFrame{},
		Vmap:    vmap,
		State:   State{Status: Ready},
		fds:     newFdTable(),
	}

	p.Context.ELR = uint64(vmap.BaseAddress())
	p.Context.TPIDR = uint64(id)

	return p
}

// OpenFd installs a new file-descriptor table entry and returns its number.
func (p *Process) OpenFd(entry FdEntry) int {
	return p.fds.Open(entry)
}

// Fd returns the open file-descriptor entry numbered fd.
func (p *Process) Fd(fd int) (*FdEntry, bool) {
	return p.fds.Get(fd)
}

// CloseFd closes descriptor fd and returns the entry that was there, so the
// caller (the syscall layer) can release any resources, such as a socket
// handle, that the entry held.
func (p *Process) CloseFd(fd int) (*FdEntry, bool) {
	return p.fds.Close(fd)
}

// OpenFds returns every descriptor currently open, used when a process
// exits to release every resource it held rather than leaking it.
func (p *Process) OpenFds() []int {
	return p.fds.All()
}
