package syscall

import (
	"testing"

	"github.com/relayd/aegis/internal/config"
	"github.com/relayd/aegis/internal/device/console"
	"github.com/relayd/aegis/internal/device/rng"
	"github.com/relayd/aegis/internal/device/timer"
	"github.com/relayd/aegis/internal/fs"
	"github.com/relayd/aegis/internal/mem/bin"
	"github.com/relayd/aegis/internal/mem/vmm"
	"github.com/relayd/aegis/internal/proc"
	"github.com/relayd/aegis/internal/sched"
)

func newTestDeps() (*Deps, *proc.Process) {
	alloc := bin.New(0x10000000, 300*config.PageSize)
	vmap := vmm.NewUserTable()
	p := proc.New(1, vmap)

	global := sched.NewGlobal()
	global.Ready()
	global.Add(1, p)

	fakeCons := console.NewFake()
	fakeTimer := timer.NewFake()

	deps := &Deps{
		Alloc:     alloc,
		Scheduler: global,
		FS:        fs.NewMemFS(),
		RNG:       rng.New(1 << 20),
		Timer:     fakeTimer,
		Console:   fakeCons,
		LockOwner: 1,
	}

	return deps, p
}

func TestSleepBlocksUntilTimerElapses(t *testing.T) {
	deps, p := newTestDeps()
	tf := p.Context
	tf.X[0] = 100 // duration

	Handle(Sleep, tf, p, deps)

	if p.State.Status != proc.Waiting {
		t.Fatalf("expected process Waiting after sleep, got %s", p.State.Status)
	}

	if p.IsReady() {
		t.Fatalf("expected not ready before timer elapses")
	}

	ft, _ := deps.Timer.(*timer.Fake)
	ft.Advance(100)

	if !p.IsReady() {
		t.Fatalf("expected ready once timer elapses")
	}

	if Errno(p.Context.X[7]) != Ok {
		t.Fatalf("expected Ok, got %s", Errno(p.Context.X[7]))
	}
}

func TestGetPID(t *testing.T) {
	deps, p := newTestDeps()
	tf := p.Context

	Handle(GetPID, tf, p, deps)

	if tf.X[0] != uint64(p.ID) {
		t.Fatalf("expected pid %d, got %d", p.ID, tf.X[0])
	}
}

func TestSbrkGrowsHeapPageAtATime(t *testing.T) {
	deps, p := newTestDeps()
	tf := p.Context
	tf.X[0] = config.PageSize * 2

	Handle(Sbrk, tf, p, deps)

	if Errno(tf.X[7]) != Ok {
		t.Fatalf("expected Ok, got %s", Errno(tf.X[7]))
	}

	if p.Vmap.PageCount() != 2 {
		t.Fatalf("expected 2 pages mapped, got %d", p.Vmap.PageCount())
	}
}

func TestSbrkFailsWithNoVmSpaceBeyondUserRegion(t *testing.T) {
	deps, p := newTestDeps()
	tf := p.Context
	tf.X[0] = uint64(config.UserMaxVMSize) + config.PageSize

	Handle(Sbrk, tf, p, deps)

	if Errno(tf.X[7]) != NoVmSpace {
		t.Fatalf("expected NoVmSpace, got %s", Errno(tf.X[7]))
	}
}

func TestWriteByteToConsole(t *testing.T) {
	deps, p := newTestDeps()
	tf := p.Context
	tf.X[0] = 'h'

	Handle(WriteByte, tf, p, deps)

	if Errno(tf.X[7]) != Ok {
		t.Fatalf("expected Ok, got %s", Errno(tf.X[7]))
	}

	fake := deps.Console.(*console.Fake)
	if fake.Out.String() != "h" {
		t.Fatalf("expected %q written to console, got %q", "h", fake.Out.String())
	}
}

func TestWriteByteRejectsNonASCII(t *testing.T) {
	deps, p := newTestDeps()
	tf := p.Context
	tf.X[0] = 0x80

	Handle(WriteByte, tf, p, deps)

	if Errno(tf.X[7]) != IoErrorInvalidInput {
		t.Fatalf("expected IoErrorInvalidInput, got %s", Errno(tf.X[7]))
	}
}

func TestWriteStrToConsole(t *testing.T) {
	deps, p := newTestDeps()
	tf := p.Context

	msg := []byte("hello")
	va := uint64(p.Vmap.BaseAddress())

	if _, err := p.Vmap.Alloc(deps.Alloc, uintptr(va), vmm.PermReadWrite); err != nil {
		t.Fatalf("alloc: %s", err)
	}

	if errno := CopyToUser(p, deps.Alloc, va, msg); errno != Ok {
		t.Fatalf("copy to user: %s", errno)
	}

	tf.X[0] = va
	tf.X[1] = uint64(len(msg))

	Handle(WriteStr, tf, p, deps)

	if Errno(tf.X[7]) != Ok {
		t.Fatalf("expected Ok, got %s", Errno(tf.X[7]))
	}

	fake := deps.Console.(*console.Fake)
	if fake.Out.String() != "hello" {
		t.Fatalf("expected %q written to console, got %q", "hello", fake.Out.String())
	}
}

func TestExitReleasesOpenFds(t *testing.T) {
	deps, p := newTestDeps()
	tf := p.Context

	fd := p.OpenFd(proc.FdEntry{Kind: proc.FdFile})
	tf.X[0] = uint64(config.PageSize)

	Handle(Sbrk, tf, p, deps)

	Handle(Exit, tf, p, deps)

	if _, ok := p.Fd(fd); ok {
		t.Fatalf("expected fd %d closed on exit", fd)
	}

	if p.Vmap.PageCount() != 0 {
		t.Fatalf("expected all pages released on exit, got %d", p.Vmap.PageCount())
	}

	if p.State.Status != proc.Dead {
		t.Fatalf("expected process Dead after exit, got %s", p.State.Status)
	}
}

func TestOpenUnknownPathReportsNoEntry(t *testing.T) {
	deps, p := newTestDeps()
	tf := p.Context

	path := []byte("/missing")
	va := uint64(p.Vmap.BaseAddress())

	if _, err := p.Vmap.Alloc(deps.Alloc, uintptr(va), vmm.PermReadWrite); err != nil {
		t.Fatalf("alloc: %s", err)
	}

	if errno := CopyToUser(p, deps.Alloc, va, path); errno != Ok {
		t.Fatalf("copy to user: %s", errno)
	}

	tf.X[0] = va
	tf.X[1] = uint64(len(path))

	Handle(Open, tf, p, deps)

	if Errno(tf.X[7]) != NoEntry {
		t.Fatalf("expected NoEntry, got %s", Errno(tf.X[7]))
	}
}
