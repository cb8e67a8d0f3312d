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
	"github.com/relayd/aegis/internal/monitor"
)

// Shell boots a kernel with the fixture workload, then hands its console
// over to the debug monitor so ps/mem/echo can be typed at it -- the Go
// equivalent of the brk-triggered nested shell the original kernel drops
// into.
func Shell() cli.Command {
	return new(debugShell)
}

type debugShell struct{}

func (debugShell) Description() string {
	return "run the interactive debug shell over the fixture workload"
}

func (debugShell) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `shell

Spawn the fixture workload and drop into the debug console (ps, mem, echo).`)

	return err
}

func (*debugShell) FlagSet() *cli.FlagSet {
	return flag.NewFlagSet("shell", flag.ExitOnError)
}

func (*debugShell) Run(_ context.Context, _ []string, out io.Writer, logger *log.Logger) int {
	con := console.NewFake()
	k := kernel.New(kernel.Config{
		ArenaStart: 0x40000000,
		ArenaSize:  256 * 64 * 1024,
	}, con, logger)
	k.Ready()

	for range fixtures {
		k.Spawn(bootOwner)
	}

	sh := monitor.New(con,
		monitor.WithProcessList(k.Scheduler()),
		monitor.WithMemoryStats(k.Alloc()),
	)

	con.Feed([]byte("ps\nmem\n"))

	if err := sh.Run(out); err != nil && err != io.EOF {
		logger.Error("shell exited", "err", err)
		return 1
	}

	return 0
}
