package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/relayd/aegis/internal/cli"
	"github.com/relayd/aegis/internal/device/console"
	"github.com/relayd/aegis/internal/kernel"
	"github.com/relayd/aegis/internal/log"
	"github.com/relayd/aegis/internal/sched"
)

// Inspect boots a kernel with the same fixture workload as Boot, but
// instead of running it, dumps the allocator and scheduler state -- the
// quiescent boot image, for diagnostics.
func Inspect() cli.Command {
	return new(inspect)
}

type inspect struct{}

func (inspect) Description() string {
	return "dump allocator and scheduler state for the fixture workload"
}

func (inspect) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `inspect

Spawn the fixture workload and print allocator/scheduler state.`)

	return err
}

func (*inspect) FlagSet() *cli.FlagSet {
	return flag.NewFlagSet("inspect", flag.ExitOnError)
}

func (*inspect) Run(_ context.Context, _ []string, out io.Writer, logger *log.Logger) int {
	con := console.NewFake()
	k := kernel.New(kernel.Config{
		ArenaStart: 0x40000000,
		ArenaSize:  256 * 64 * 1024,
	}, con, logger)
	k.Ready()

	for range fixtures {
		k.Spawn(bootOwner)
	}

	alloc := k.Alloc()

	fmt.Fprintf(out, "allocator: start=%#x end=%#x fragmentation=%d\n",
		alloc.Start(), alloc.End(), alloc.Fragmentation())

	k.Scheduler().Critical(bootOwner, func(s *sched.Scheduler) {
		fmt.Fprintf(out, "scheduler: %s\n", s.String())
	})

	return 0
}
