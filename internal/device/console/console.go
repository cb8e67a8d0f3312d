// Package console adapts the host terminal into the kernel's Console
// collaborator: a plain byte-stream reader and writer.
package console

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// ErrNoTTY is returned if the given input stream is not a terminal, which
// makes raw-mode, non-blocking console I/O impossible.
var ErrNoTTY = errors.New("console: not a TTY")

// TTY is a Console backed by a Unix terminal put into raw mode: input is
// delivered byte-by-byte with no line buffering or echo, matching what a
// real UART would hand the kernel.
type TTY struct {
	in    *os.File
	out   *os.File
	fd    int
	state *term.State
}

// Open puts in into raw mode and returns a TTY reading from in and writing
// to out. Callers must call Restore to return the terminal to its original
// state.
func Open(in, out *os.File) (*TTY, error) {
	fd := int(in.Fd())

	if !term.IsTerminal(fd) {
		return nil, ErrNoTTY
	}

	saved, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoTTY, err)
	}

	tty := &TTY{in: in, out: out, fd: fd, state: saved}

	if err := tty.setTerminalParams(1, 0); err != nil {
		_ = term.Restore(fd, saved)
		return nil, err
	}

	return tty, nil
}

// Read reads whatever bytes the terminal has available into p, blocking
// until at least one byte arrives.
func (t *TTY) Read(p []byte) (int, error) {
	return t.in.Read(p)
}

// Write writes p to the terminal.
func (t *TTY) Write(p []byte) (int, error) {
	return t.out.Write(p)
}

// Restore returns the terminal to the state it was in before Open.
func (t *TTY) Restore() error {
	_ = t.in.SetReadDeadline(time.Now())
	return term.Restore(t.fd, t.state)
}

func (t *TTY) setTerminalParams(vmin, vtime byte) error {
	_ = syscall.SetNonblock(t.fd, false)

	termIO, err := unix.IoctlGetTermios(t.fd, unix.TCGETS)
	if err != nil {
		return err
	}

	termIO.Cc[unix.VMIN] = vmin
	termIO.Cc[unix.VTIME] = vtime

	if err := unix.IoctlSetTermios(t.fd, unix.TCSETS, termIO); err != nil {
		return err
	}

	return nil
}
