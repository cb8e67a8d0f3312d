package syscall

import (
	stdnet "net"

	"github.com/relayd/aegis/internal/config"
	"github.com/relayd/aegis/internal/device/net"
	"github.com/relayd/aegis/internal/fs"
	"github.com/relayd/aegis/internal/mem/vmm"
	"github.com/relayd/aegis/internal/proc"
)

// Handle dispatches syscall number num -- decoded from the trapping SVC
// instruction's immediate operand, not a register -- to its handler, which
// mutates tf with the result and error code per the ABI (x0: result, x7:
// Errno).
func Handle(num uint64, tf *proc.TrapFrame, p *proc.Process, deps *Deps) {
	switch num {
	case Sleep:
		sysSleep(tf, deps)
	case Time:
		sysTime(tf, deps)
	case Exit:
		sysExit(tf, p, deps)
	case WriteByte:
		sysWriteByte(tf, deps)
	case GetPID:
		sysGetPID(tf, p)
	case WriteStr:
		sysWriteStr(tf, p, deps)
	case Sbrk:
		sysSbrk(tf, p, deps)
	case Rand:
		sysRand(tf, deps)
	case RRand:
		sysRRand(tf, deps)
	case Entropy:
		sysEntropy(tf, deps)
	case Open:
		sysOpen(tf, p, deps)
	case Read:
		sysRead(tf, p, deps)
	case SockCreate:
		sysSockCreate(tf, p, deps)
	case SockStatus:
		sysSockStatus(tf, p, deps)
	case SockConnect:
		sysSockConnect(tf, p, deps)
	case SockListen:
		sysSockListen(tf, p, deps)
	case SockSend:
		sysSockSend(tf, p, deps)
	case SockRecv:
		sysSockRecv(tf, p, deps)
	default:
		tf.SetResult(0, uint64(InvalidArgument))
	}
}

func sysSleep(tf *proc.TrapFrame, deps *Deps) {
	durationNS := tf.Arg(0)
	start := deps.Timer.Elapsed()
	end := start + durationNS

	poll := func(pr *proc.Process) bool {
		if deps.Timer.Elapsed() < end {
			return false
		}

		pr.Context.SetResult(deps.Timer.Elapsed()-start, uint64(Ok))

		return true
	}

	deps.Scheduler.ScheduleOut(deps.LockOwner, tf, proc.State{Status: proc.Waiting, Poll: poll})
}

func sysTime(tf *proc.TrapFrame, deps *Deps) {
	tf.SetResult(deps.Timer.Elapsed(), uint64(Ok))
}

// sysExit releases every resource the process held -- open sockets, then its
// mapped pages -- before removing it from the run queue. Releasing sockets
// before killing the process is what closes the original kernel's
// exit-without-releasing-sockets leak: a process that dies mid-connection
// must not strand its endpoints in the socket set forever.
func sysExit(tf *proc.TrapFrame, p *proc.Process, deps *Deps) {
	for _, fd := range p.OpenFds() {
		releaseFd(p, fd, deps)
	}

	p.Vmap.Release(deps.Alloc)

	deps.Scheduler.Kill(deps.LockOwner, tf)
}

func releaseFd(p *proc.Process, fd int, deps *Deps) {
	entry, ok := p.CloseFd(fd)
	if !ok {
		return
	}

	if entry.Kind == proc.FdSocket {
		deps.Net.Release(entry.Socket)
	}
}

// sysWriteByte ascii-validates a single byte and writes it to the console.
// It takes no file descriptor: the console is the only destination this
// call can ever target.
func sysWriteByte(tf *proc.TrapFrame, deps *Deps) {
	b := byte(tf.Arg(0))
	if b > 0x7f {
		tf.SetResult(0, uint64(IoErrorInvalidInput))
		return
	}

	if _, err := deps.Console.Write([]byte{b}); err != nil {
		tf.SetResult(0, uint64(IoError))
		return
	}

	tf.SetResult(0, uint64(Ok))
}

// sysWriteStr validates the user buffer (va, len), copies it out, and
// writes it to the console in one call. Like sysWriteByte, it is fd-less.
func sysWriteStr(tf *proc.TrapFrame, p *proc.Process, deps *Deps) {
	va := tf.Arg(0)
	length := tf.Arg(1)

	data, errno := CopyFromUser(p, deps.Alloc, va, length)
	if errno != Ok {
		tf.SetResult(0, uint64(errno))
		return
	}

	n, err := deps.Console.Write(data)
	if err != nil {
		tf.SetResult(0, uint64(IoError))
		return
	}

	tf.SetResult(uint64(n), uint64(Ok))
}

func sysGetPID(tf *proc.TrapFrame, p *proc.Process) {
	tf.SetResult(uint64(p.ID), uint64(Ok))
}

// sysSbrk grows the process's heap by delta bytes, one page at a time,
// starting just past its current break. It fails with NoVmSpace if growth
// would exceed the fixed user address space, and with NoMemory if the
// physical allocator is exhausted partway through -- in which case any
// pages already granted for this call are kept, matching the original's
// page-at-a-time accounting: a partial grant is still forward progress, not
// rolled back.
func sysSbrk(tf *proc.TrapFrame, p *proc.Process, deps *Deps) {
	delta := tf.Arg(0)

	current := uint64(p.Vmap.BaseAddress()) + uint64(p.Vmap.PageCount())*config.PageSize
	brk := current

	pages := (delta + config.PageSize - 1) / config.PageSize

	for i := uint64(0); i < pages; i++ {
		if brk-uint64(p.Vmap.BaseAddress())+config.PageSize > uint64(config.UserMaxVMSize) {
			tf.SetResult(current, uint64(NoVmSpace))
			return
		}

		if _, err := p.Vmap.Alloc(deps.Alloc, uintptr(brk), vmm.PermReadWrite); err != nil {
			tf.SetResult(current, uint64(NoMemory))
			return
		}

		brk += config.PageSize
	}

	tf.SetResult(current, uint64(Ok))
}

// sysRand blocks on the hardware entropy source; a budget-exhausted source
// is reported as IoErrorTimedOut, the closest taxonomy member to "entropy
// never arrived".
func sysRand(tf *proc.TrapFrame, deps *Deps) {
	v, err := deps.RNG.Rand()
	if err != nil {
		tf.SetResult(0, uint64(IoErrorTimedOut))
		return
	}

	tf.SetResult(v, uint64(Ok))
}

func sysRRand(tf *proc.TrapFrame, deps *Deps) {
	bound := tf.Arg(0)

	v, err := deps.RNG.RRand(bound)
	if err != nil {
		tf.SetResult(0, uint64(IoErrorTimedOut))
		return
	}

	tf.SetResult(v, uint64(Ok))
}

func sysEntropy(tf *proc.TrapFrame, deps *Deps) {
	tf.SetResult(uint64(deps.RNG.Entropy()), uint64(Ok))
}

func sysOpen(tf *proc.TrapFrame, p *proc.Process, deps *Deps) {
	va := tf.Arg(0)
	length := tf.Arg(1)

	pathBytes, errno := CopyFromUser(p, deps.Alloc, va, length)
	if errno != Ok {
		tf.SetResult(0, uint64(errno))
		return
	}

	entry, err := deps.FS.Open(string(pathBytes))
	if err != nil {
		tf.SetResult(0, uint64(NoEntry))
		return
	}

	fd := openFsEntry(p, entry)
	tf.SetResult(uint64(fd), uint64(Ok))
}

// openFsEntry installs an opened file-system entry into the process's
// descriptor table, projecting it into the kind of FdEntry proc knows about
// so proc need not import fs.
func openFsEntry(p *proc.Process, entry fs.Entry) int {
	if dir, ok := entry.(fs.Directory); ok {
		children, _ := dir.Entries()

		out := make([]proc.DirEntry, len(children))
		for i, c := range children {
			out[i] = proc.DirEntry{Name: c.Name, IsDir: c.IsDir}
		}

		return p.OpenFd(proc.FdEntry{Kind: proc.FdDir, Entries: out})
	}

	if file, ok := entry.(fs.File); ok {
		return p.OpenFd(proc.FdEntry{Kind: proc.FdFile, Reader: file})
	}

	return p.OpenFd(proc.FdEntry{Kind: proc.FdFile})
}

func sysRead(tf *proc.TrapFrame, p *proc.Process, deps *Deps) {
	fd := int(tf.Arg(0))
	va := tf.Arg(1)
	length := tf.Arg(2)

	entry, ok := p.Fd(fd)
	if !ok {
		tf.SetResult(0, uint64(InvalidArgument))
		return
	}

	switch entry.Kind {
	case proc.FdFile:
		buf := make([]byte, length)

		n, _ := entry.Reader.Read(buf)
		if errno := CopyToUser(p, deps.Alloc, va, buf[:n]); errno != Ok {
			tf.SetResult(0, uint64(errno))
			return
		}

		tf.SetResult(uint64(n), uint64(Ok))
	case proc.FdDir:
		if entry.DirIndex >= len(entry.Entries) {
			tf.SetResult(0, uint64(Ok))
			return
		}

		name := entry.Entries[entry.DirIndex].Name
		entry.DirIndex++

		if errno := CopyToUser(p, deps.Alloc, va, []byte(name)); errno != Ok {
			tf.SetResult(0, uint64(errno))
			return
		}

		tf.SetResult(uint64(len(name)), uint64(Ok))
	case proc.FdConsole:
		buf := make([]byte, length)

		poll := func(pr *proc.Process) bool {
			n, err := deps.Console.Read(buf)
			if err != nil || n == 0 {
				return false
			}

			if errno := CopyToUser(pr, deps.Alloc, va, buf[:n]); errno != Ok {
				pr.Context.SetResult(0, uint64(errno))
				return true
			}

			pr.Context.SetResult(uint64(n), uint64(Ok))

			return true
		}

		deps.Scheduler.ScheduleOut(deps.LockOwner, tf, proc.State{Status: proc.Waiting, Poll: poll})
	default:
		tf.SetResult(0, uint64(InvalidArgument))
	}
}

func sysSockCreate(tf *proc.TrapFrame, p *proc.Process, deps *Deps) {
	transport := "tcp"
	if tf.Arg(0) == 1 {
		transport = "udp"
	}

	handle, err := deps.Net.AddSocket(transport)
	if err != nil {
		tf.SetResult(0, uint64(InvalidArgument))
		return
	}

	fd := p.OpenFd(proc.FdEntry{Kind: proc.FdSocket, Socket: handle})
	tf.SetResult(uint64(fd), uint64(Ok))
}

// withSocketFd resolves the socket named by descriptor tf.Arg(0) and runs fn
// against it, reporting InvalidSocket if the descriptor does not name an
// open socket.
func withSocketFd(tf *proc.TrapFrame, p *proc.Process, deps *Deps, fn func(*net.Socket)) {
	entry, ok := p.Fd(int(tf.Arg(0)))
	if !ok || entry.Kind != proc.FdSocket {
		tf.SetResult(0, uint64(InvalidSocket))
		return
	}

	err := deps.Net.WithSocket(entry.Socket, func(s *net.Socket) error {
		fn(s)
		return nil
	})
	if err != nil {
		tf.SetResult(0, uint64(InvalidSocket))
	}
}

func sysSockStatus(tf *proc.TrapFrame, p *proc.Process, deps *Deps) {
	withSocketFd(tf, p, deps, func(s *net.Socket) {
		readable, writable := s.Status()

		status := uint64(0)
		if readable {
			status |= 1
		}

		if writable {
			status |= 2
		}

		tf.SetResult(status, uint64(Ok))
	})
}

func sysSockConnect(tf *proc.TrapFrame, p *proc.Process, deps *Deps) {
	addr := decodeIPv4(tf.Arg(1))
	port := uint16(tf.Arg(2))

	withSocketFd(tf, p, deps, func(s *net.Socket) {
		if err := s.Connect(addr, port); err != nil {
			tf.SetResult(0, uint64(IoError))
			return
		}

		tf.SetResult(0, uint64(Ok))
	})
}

func sysSockListen(tf *proc.TrapFrame, p *proc.Process, deps *Deps) {
	backlog := int(tf.Arg(1))

	withSocketFd(tf, p, deps, func(s *net.Socket) {
		if port, err := deps.Net.GetEphemeralPort(); err == nil {
			_ = s.Bind(port)
		}

		if err := s.Listen(backlog); err != nil {
			tf.SetResult(0, uint64(IoError))
			return
		}

		tf.SetResult(0, uint64(Ok))
	})
}

func sysSockSend(tf *proc.TrapFrame, p *proc.Process, deps *Deps) {
	va := tf.Arg(1)
	length := tf.Arg(2)

	data, errno := CopyFromUser(p, deps.Alloc, va, length)
	if errno != Ok {
		tf.SetResult(0, uint64(errno))
		return
	}

	withSocketFd(tf, p, deps, func(s *net.Socket) {
		n, err := s.Send(data)
		if err != nil {
			tf.SetResult(0, uint64(IoError))
			return
		}

		tf.SetResult(uint64(n), uint64(Ok))
	})
}

func sysSockRecv(tf *proc.TrapFrame, p *proc.Process, deps *Deps) {
	va := tf.Arg(1)
	length := tf.Arg(2)

	withSocketFd(tf, p, deps, func(s *net.Socket) {
		buf := make([]byte, length)

		n, err := s.Recv(buf)
		if err != nil {
			tf.SetResult(0, uint64(IoError))
			return
		}

		if errno := CopyToUser(p, deps.Alloc, va, buf[:n]); errno != Ok {
			tf.SetResult(0, uint64(errno))
			return
		}

		tf.SetResult(uint64(n), uint64(Ok))
	})
}

func decodeIPv4(packed uint64) stdnet.IP {
	return stdnet.IPv4(byte(packed>>24), byte(packed>>16), byte(packed>>8), byte(packed))
}
