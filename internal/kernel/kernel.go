// Package kernel owns the kernel's global singletons -- the physical
// allocator, scheduler, file system, network stack, entropy source, and
// interrupt registry -- and wires them into a syscall.Deps for the trap
// layer to dispatch against. It plays the role of the original kernel's
// lazily initialized global statics (ALLOCATOR, SCHEDULER, ...), brought up
// explicitly at boot instead of on first touch.
package kernel

import (
	stdnet "net"
	"sync"

	"github.com/relayd/aegis/internal/config"
	"github.com/relayd/aegis/internal/device"
	"github.com/relayd/aegis/internal/device/block"
	"github.com/relayd/aegis/internal/device/irq"
	"github.com/relayd/aegis/internal/device/net"
	"github.com/relayd/aegis/internal/device/rng"
	"github.com/relayd/aegis/internal/device/timer"
	"github.com/relayd/aegis/internal/fs"
	"github.com/relayd/aegis/internal/klock"
	"github.com/relayd/aegis/internal/log"
	"github.com/relayd/aegis/internal/mem/bin"
	"github.com/relayd/aegis/internal/mem/vmm"
	"github.com/relayd/aegis/internal/proc"
	"github.com/relayd/aegis/internal/sched"
	"github.com/relayd/aegis/internal/syscall"
	"github.com/relayd/aegis/internal/trap"
)

// Kernel holds every singleton collaborator a running simulation needs.
type Kernel struct {
	log *log.Logger

	lock *klock.Lock

	alloc     *bin.Allocator
	scheduler *sched.Global
	fsys      fs.FileSystem
	netStack  *net.NetStack
	entropy   device.HWRNG
	clock     device.Timer
	con       device.Console
	block     device.BlockDevice
	identity  *vmm.KernelTable
	irqs      *trap.IRQRegistry
	intc      *irq.Controller

	netOnce sync.Once
}

// Config sizes the kernel's memory arena and network identity. It stands in
// for the boot-time hardware discovery (ATAGs, device tree) a real kernel
// would read.
type Config struct {
	ArenaStart uintptr
	ArenaSize  uintptr

	MAC       stdnet.HardwareAddr
	Address   stdnet.IP
	PrefixLen int
}

// New brings up a Kernel: the physical allocator, scheduler, in-memory file
// system, RNG, clock, console, and interrupt registry are constructed
// eagerly since every simulation needs them; the network stack is brought up
// separately by EnableNetworking, since not every boot configuration has a
// NIC.
func New(cfg Config, console device.Console, logger *log.Logger) *Kernel {
	return &Kernel{
		log:       logger,
		lock:      &klock.Lock{},
		alloc:     bin.New(cfg.ArenaStart, cfg.ArenaSize),
		scheduler: sched.NewGlobal(),
		fsys:      fs.NewMemFS(),
		entropy:   rng.New(4096),
		clock:     timer.New(),
		con:       console,
		block:     block.New(config.BlockSectorSize, config.BlockSectorCount),
		identity:  vmm.NewKernelTable(0, config.RamEnd, config.IOBase, config.IOBaseEnd),
		irqs:      trap.NewIRQRegistry(),
		intc:      irq.New(),
	}
}

// Ready switches the kernel's locks into concurrent mode, once boot-time
// single-threaded setup (loading the init process, wiring devices) is
// complete, matching the original kernel's "MMU enabled" transition.
func (k *Kernel) Ready() {
	k.lock.Ready()
	k.scheduler.Ready()
}

// Alloc returns the kernel's physical allocator.
func (k *Kernel) Alloc() *bin.Allocator { return k.alloc }

// Scheduler returns the kernel's global scheduler.
func (k *Kernel) Scheduler() *sched.Global { return k.scheduler }

// FS returns the kernel's file system.
func (k *Kernel) FS() fs.FileSystem { return k.fsys }

// Console returns the kernel's serial console.
func (k *Kernel) Console() device.Console { return k.con }

// BlockDevice returns the kernel's simulated storage device.
func (k *Kernel) BlockDevice() device.BlockDevice { return k.block }

// Identity returns the kernel's fixed identity map of RAM and device MMIO,
// the range the kernel itself runs under before any user process exists.
func (k *Kernel) Identity() *vmm.KernelTable { return k.identity }

// IRQRegistry returns the kernel's interrupt-handler registry.
func (k *Kernel) IRQRegistry() *trap.IRQRegistry { return k.irqs }

// InterruptController returns the kernel's pending-interrupt tracker.
func (k *Kernel) InterruptController() *irq.Controller { return k.intc }

// EnableNetworking brings up the kernel's Ethernet transport and socket set.
// Calling it more than once is harmless: only the first call takes effect.
func (k *Kernel) EnableNetworking(cfg Config) error {
	var err error

	k.netOnce.Do(func() {
		k.netStack, err = net.New(cfg.MAC, cfg.Address, cfg.PrefixLen)
	})

	return err
}

// NetStack returns the kernel's network stack, or nil if EnableNetworking
// was never called.
func (k *Kernel) NetStack() *net.NetStack { return k.netStack }

// Spawn creates a new process with a fresh address space, assigns it a PID
// under owner's lock token, and enqueues it ready to run.
func (k *Kernel) Spawn(owner uint64) *proc.Process {
	p := proc.New(0, vmm.NewUserTable())
	k.scheduler.Add(owner, p)

	return p
}

// Deps builds a syscall.Deps bound to this kernel's collaborators, for the
// trap dispatcher to hand to syscall.Handle. owner is the lock token this
// kernel context uses for the recursive-permissive locks it may re-enter.
func (k *Kernel) Deps(owner uint64) *syscall.Deps {
	return &syscall.Deps{
		Alloc:     k.alloc,
		Scheduler: k.scheduler,
		FS:        k.fsys,
		Net:       k.netStack,
		RNG:       k.entropy,
		Timer:     k.clock,
		Console:   k.con,
		LockOwner: owner,
	}
}
