package syscall

import (
	stdnet "net"
	"testing"

	"github.com/relayd/aegis/internal/config"
	"github.com/relayd/aegis/internal/device/console"
	"github.com/relayd/aegis/internal/device/net"
	"github.com/relayd/aegis/internal/device/rng"
	"github.com/relayd/aegis/internal/device/timer"
	"github.com/relayd/aegis/internal/fs"
	"github.com/relayd/aegis/internal/mem/bin"
	"github.com/relayd/aegis/internal/mem/vmm"
	"github.com/relayd/aegis/internal/proc"
	"github.com/relayd/aegis/internal/sched"
)

func newNetTestDeps(t *testing.T) (*Deps, *proc.Process) {
	t.Helper()

	alloc := bin.New(0x20000000, 64*config.PageSize)
	vmap := vmm.NewUserTable()
	p := proc.New(1, vmap)

	global := sched.NewGlobal()
	global.Ready()
	global.Add(1, p)

	stack, err := net.New(stdnet.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}, stdnet.IPv4(10, 0, 0, 1), 24)
	if err != nil {
		t.Fatalf("net.New: %s", err)
	}

	return &Deps{
		Alloc:     alloc,
		Scheduler: global,
		FS:        fs.NewMemFS(),
		Net:       stack,
		RNG:       rng.New(1 << 20),
		Timer:     timer.NewFake(),
		Console:   console.NewFake(),
		LockOwner: 1,
	}, p
}

func TestSockCreateAssignsDescriptor(t *testing.T) {
	deps, p := newNetTestDeps(t)
	tf := p.Context
	tf.X[0] = 1 // udp

	Handle(SockCreate, tf, p, deps)

	if Errno(tf.X[7]) != Ok {
		t.Fatalf("expected Ok, got %s", Errno(tf.X[7]))
	}

	fd, ok := p.Fd(int(tf.X[0]))
	if !ok || fd.Kind != proc.FdSocket {
		t.Fatalf("expected a socket descriptor, got %+v (ok=%t)", fd, ok)
	}
}

func TestSockStatusOnUnknownDescriptorIsInvalidSocket(t *testing.T) {
	deps, p := newNetTestDeps(t)
	tf := p.Context
	tf.X[0] = 42 // never opened

	Handle(SockStatus, tf, p, deps)

	if Errno(tf.X[7]) != InvalidSocket {
		t.Fatalf("expected InvalidSocket, got %s", Errno(tf.X[7]))
	}
}

func TestExitReleasesSockets(t *testing.T) {
	deps, p := newNetTestDeps(t)
	tf := p.Context
	tf.X[0] = 1 // udp

	Handle(SockCreate, tf, p, deps)
	fd := int(tf.X[0])

	Handle(Exit, tf, p, deps)

	if _, ok := p.Fd(fd); ok {
		t.Fatalf("expected socket descriptor closed on exit")
	}
}
