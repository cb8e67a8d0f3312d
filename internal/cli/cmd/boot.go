package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/relayd/aegis/internal/cli"
	"github.com/relayd/aegis/internal/device/console"
	"github.com/relayd/aegis/internal/fs"
	"github.com/relayd/aegis/internal/kernel"
	"github.com/relayd/aegis/internal/log"
	"github.com/relayd/aegis/internal/proc"
	"github.com/relayd/aegis/internal/syscall"
	"github.com/relayd/aegis/internal/trap"
)

// bootOwner is the lock token the boot loop runs under. A single goroutine
// drives the scheduler, so one token for the whole run is enough -- a real
// kernel would use the current CPU id.
const bootOwner = 1

// ecSVC64 is the Exception Class a synchronous SVC64 exception carries in
// ESR_EL1's top six bits.
const ecSVC64 = uint32(0x15) << 26

// svcESR builds the ESR_EL1 value a trapped "svc #n" instruction would
// produce: the syscall number lives in the immediate operand, encoded into
// the low 16 bits of the syndrome, not in a register.
func svcESR(num uint64) uint32 {
	return ecSVC64 | (uint32(num) & 0xffff)
}

// Boot runs the scheduler against a small fixture workload: a handful of
// processes, each a fixed script of syscalls, scheduled round-robin until
// every process has exited or the run times out.
func Boot() cli.Command {
	return &boot{timeout: 2 * time.Second}
}

type boot struct {
	debug   bool
	timeout time.Duration
}

func (boot) Description() string {
	return "boot the scheduler against a fixture workload"
}

func (boot) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `boot [-debug]

Spawn a fixed set of processes and run them to completion.`)

	return err
}

func (b *boot) FlagSet() *cli.FlagSet {
	fset := flag.NewFlagSet("boot", flag.ExitOnError)
	fset.BoolVar(&b.debug, "debug", false, "enable debug logging")

	return fset
}

// fixtureScript is a process's fixed sequence of syscalls, dispatched one
// per scheduling turn. Every script ends with sys_exit.
type fixtureScript struct {
	name  string
	calls []uint64
}

var fixtures = []fixtureScript{
	{name: "init", calls: []uint64{syscall.GetPID, syscall.Sleep, syscall.WriteByte, syscall.Exit}},
	{name: "worker", calls: []uint64{syscall.GetPID, syscall.Rand, syscall.WriteByte, syscall.Exit}},
}

func (b *boot) Run(ctx context.Context, args []string, out io.Writer, logger *log.Logger) int {
	if b.debug {
		log.LogLevel.Set(log.Debug)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	con := console.NewFake()
	k := kernel.New(kernel.Config{
		ArenaStart: 0x40000000,
		ArenaSize:  256 * 64 * 1024,
	}, con, logger)
	k.Ready()

	if memfs, ok := k.FS().(*fs.MemFS); ok {
		memfs.Put("/bin/init", []byte("init"))
	}

	procs := make(map[proc.ID]*proc.Process, len(fixtures))
	cursors := make(map[proc.ID]int, len(fixtures))

	for _, f := range fixtures {
		p := k.Spawn(bootOwner)
		procs[p.ID] = p
		cursors[p.ID] = 0

		logger.Info("spawned process", "pid", p.ID, "name", f.name)
	}

	findProcess := func(tpidr uint64) *proc.Process {
		return procs[proc.ID(tpidr)]
	}

	remaining := len(fixtures)
	tf := &proc.TrapFrame{}

	for remaining > 0 {
		select {
		case <-ctx.Done():
			logger.Warn("boot timed out", "remaining", remaining)
			return 2
		default:
		}

		id, ok := k.Scheduler().SwitchTo(bootOwner, tf)
		if !ok {
			logger.Warn("no ready process; run is deadlocked", "remaining", remaining)
			return 2
		}

		f := fixtureFor(procs[id], fixtures)
		cursor := cursors[id]

		if cursor >= len(f.calls) {
			continue
		}

		call := f.calls[cursor]
		cursors[id] = cursor + 1

		if err := k.HandleTrap(bootOwner, trap.Info{Kind: trap.Synchronous}, svcESR(call), tf, findProcess); err != nil {
			logger.Error("trap dispatch failed", "pid", id, "err", err)
			return 1
		}

		switch call {
		case syscall.Exit:
			remaining--
			logger.Info("process exited", "pid", id)
		case syscall.Sleep:
			// sysSleep already scheduled the process out in the Waiting state.
		default:
			k.Scheduler().ScheduleOut(bootOwner, tf, proc.State{Status: proc.Ready})
		}
	}

	fmt.Fprintf(out, "booted and ran %d processes to completion\n", len(fixtures))

	return 0
}

func fixtureFor(p *proc.Process, scripts []fixtureScript) fixtureScript {
	idx := int(p.ID-1) % len(scripts)
	return scripts[idx]
}
