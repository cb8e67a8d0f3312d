package proc_test

import (
	"testing"

	"github.com/relayd/aegis/internal/mem/vmm"
	"github.com/relayd/aegis/internal/proc"
)

func TestNewProcessHasConsoleDescriptors(t *testing.T) {
	p := proc.New(1, vmm.NewUserTable())

	for fd := 0; fd < 3; fd++ {
		entry, ok := p.Fd(fd)
		if !ok {
			t.Fatalf("expected descriptor %d to be open", fd)
		}

		if entry.Kind != proc.FdConsole {
			t.Fatalf("expected descriptor %d to be console, got %v", fd, entry.Kind)
		}
	}
}

func TestOpenFdReusesClosedSlot(t *testing.T) {
	p := proc.New(1, vmm.NewUserTable())

	fd := p.OpenFd(proc.FdEntry{Kind: proc.FdSocket, Socket: 7})

	if _, ok := p.CloseFd(fd); !ok {
		t.Fatalf("expected close to succeed")
	}

	fd2 := p.OpenFd(proc.FdEntry{Kind: proc.FdSocket, Socket: 9})

	if fd2 != fd {
		t.Fatalf("expected reused descriptor %d, got %d", fd, fd2)
	}
}

func TestIsReadyResolvesWaitingState(t *testing.T) {
	p := proc.New(1, vmm.NewUserTable())

	fired := false
	p.State = proc.State{
		Status: proc.Waiting,
		Poll: func(pr *proc.Process) bool {
			fired = true
			return true
		},
	}

	if !p.IsReady() {
		t.Fatalf("expected IsReady to resolve true")
	}

	if !fired {
		t.Fatalf("expected poll function to be invoked")
	}

	if p.State.Status != proc.Ready {
		t.Fatalf("expected state to transition to Ready, got %v", p.State.Status)
	}
}

func TestIsReadyStaysWaiting(t *testing.T) {
	p := proc.New(1, vmm.NewUserTable())
	p.State = proc.State{Status: proc.Waiting, Poll: func(*proc.Process) bool { return false }}

	if p.IsReady() {
		t.Fatalf("expected IsReady to remain false")
	}

	if p.State.Status != proc.Waiting {
		t.Fatalf("expected state to remain Waiting")
	}
}

func TestOpenFdsListsAllOpen(t *testing.T) {
	p := proc.New(1, vmm.NewUserTable())
	p.OpenFd(proc.FdEntry{Kind: proc.FdSocket})

	fds := p.OpenFds()
	if len(fds) != 4 {
		t.Fatalf("expected 4 open descriptors (3 console + 1 socket), got %d", len(fds))
	}
}
