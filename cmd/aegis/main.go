// Command aegis simulates an AArch64 preemptive kernel core: bin allocator,
// page tables, scheduler, trap dispatch, and syscalls.
package main

import (
	"context"
	"os"

	"github.com/relayd/aegis/internal/cli"
	"github.com/relayd/aegis/internal/cli/cmd"
)

var commands = []cli.Command{
	cmd.Boot(),
	cmd.Inspect(),
	cmd.Shell(),
}

func main() {
	result :=
		cli.New(context.Background()).
			WithLogger(os.Stderr).
			WithCommands(commands).
			WithHelp(cmd.Help(commands)).
			Execute(os.Args[1:])

	os.Exit(result)
}
