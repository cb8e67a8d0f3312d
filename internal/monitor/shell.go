// Package monitor implements the kernel's debug shell: a line-oriented
// command console read from the same serial console user processes share,
// used to inspect and prod a running kernel interactively.
//
// It is ported from the original kernel's shell, which read single bytes
// from a locked console in a tight loop, handled backspace/delete and bell
// on invalid input, then dispatched the assembled line to a small table of
// builtin commands.
package monitor

import (
	"fmt"
	"io"
	"strings"

	"github.com/relayd/aegis/internal/device"
	"github.com/relayd/aegis/internal/mem/bin"
	"github.com/relayd/aegis/internal/sched"
)

const (
	cr    = '\r'
	lf    = '\n'
	bell  = 7
	back  = 8
	del   = 127
	space = ' '
)

// shellOwner is the lock token the shell takes the scheduler lock under;
// klock rejects the zero token.
const shellOwner uint64 = 1

// Command is one builtin the shell dispatches to by name.
type Command func(args []string, out io.Writer)

// Shell is the kernel's interactive debug console: a read-eval-print loop
// over a device.Console, with a fixed table of builtin commands.
type Shell struct {
	console  device.Console
	prefix   string
	commands map[string]Command
}

// Option configures a Shell at construction.
type Option func(*Shell)

// New creates a Shell reading and writing on console. The "echo" builtin is
// always registered; "ps" and "mem" are added by WithProcessList and
// WithMemoryStats, and WithCommand adds any other.
func New(console device.Console, opts ...Option) *Shell {
	sh := &Shell{
		console:  console,
		prefix:   "aegis> ",
		commands: map[string]Command{},
	}

	sh.commands["echo"] = cmdEcho

	for _, opt := range opts {
		opt(sh)
	}

	return sh
}

// WithCommand registers a named builtin, overriding any existing command of
// the same name.
func WithCommand(name string, cmd Command) Option {
	return func(sh *Shell) { sh.commands[name] = cmd }
}

// WithProcessList registers a "ps" builtin listing the scheduler's run
// queue.
func WithProcessList(global *sched.Global) Option {
	return WithCommand("ps", func(_ []string, out io.Writer) {
		global.Critical(shellOwner, func(s *sched.Scheduler) {
			fmt.Fprintln(out, s.String())
		})
	})
}

// WithMemoryStats registers a "mem" builtin reporting the bin allocator's
// arena bounds and fragmentation.
func WithMemoryStats(alloc *bin.Allocator) Option {
	return WithCommand("mem", func(_ []string, out io.Writer) {
		fmt.Fprintf(out, "arena [%#x, %#x) fragmentation=%d bytes\n",
			alloc.Start(), alloc.End(), alloc.Fragmentation())
	})
}

// Run reads and dispatches commands until the console returns an error
// (e.g. EOF on a closed connection), printing a banner first.
func (sh *Shell) Run(out io.Writer) error {
	fmt.Fprintln(out, "\r\nWelcome to the aegis kernel shell.")

	for {
		fmt.Fprint(out, sh.prefix)

		line, err := sh.readLine(out)
		if err != nil {
			return err
		}

		sh.dispatch(line, out)
	}
}

// readLine accumulates bytes from the console into a line, honoring
// backspace/delete (erase the last character, ringing the bell if the line
// is already empty) and CR/LF (end of line). Bytes outside the printable
// ASCII range ring the bell and are otherwise discarded.
func (sh *Shell) readLine(out io.Writer) (string, error) {
	var line []byte

	buf := make([]byte, 1)

	for {
		n, err := sh.console.Read(buf)
		if err != nil {
			return "", err
		}

		if n == 0 {
			continue
		}

		b := buf[0]

		switch {
		case b == del || b == back:
			if len(line) > 0 {
				line = line[:len(line)-1]
				out.Write([]byte{back, space, back}) //nolint:errcheck
			} else {
				out.Write([]byte{bell}) //nolint:errcheck
			}
		case b == cr || b == lf:
			fmt.Fprintln(out)
			return string(line), nil
		case b < space || b > del:
			out.Write([]byte{bell}) //nolint:errcheck
		default:
			line = append(line, b)
			out.Write([]byte{b}) //nolint:errcheck
		}
	}
}

// dispatch parses line into a command name and arguments and runs the
// matching builtin, or reports an unknown command.
func (sh *Shell) dispatch(line string, out io.Writer) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	cmd, ok := sh.commands[fields[0]]
	if !ok {
		fmt.Fprintf(out, "unknown command: %s\n", fields[0])
		return
	}

	cmd(fields, out)
}

func cmdEcho(args []string, out io.Writer) {
	if len(args) > 1 {
		fmt.Fprintln(out, strings.Join(args[1:], " "))
	} else {
		fmt.Fprintln(out)
	}
}
