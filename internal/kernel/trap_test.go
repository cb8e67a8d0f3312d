package kernel_test

import (
	"testing"

	"github.com/relayd/aegis/internal/kernel"
	"github.com/relayd/aegis/internal/proc"
	"github.com/relayd/aegis/internal/syscall"
	"github.com/relayd/aegis/internal/trap"
)

func TestHandleTrapDispatchesSyscall(t *testing.T) {
	k := newTestKernel()
	k.Ready()

	p := k.Spawn(1)

	esr := uint32(0x15)<<26 | uint32(syscall.GetPID) // EC = SVC64, imm = syscall number

	err := k.HandleTrap(1, trap.Info{Kind: trap.Synchronous}, esr, p.Context, func(tpidr uint64) *proc.Process {
		if tpidr != uint64(p.ID) {
			return nil
		}

		return p
	})
	if err != nil {
		t.Fatalf("HandleTrap: %s", err)
	}

	if p.Context.X[0] != uint64(p.ID) {
		t.Fatalf("expected x0 to carry pid %d, got %d", p.ID, p.Context.X[0])
	}

	if syscall.Errno(p.Context.X[7]) != syscall.Ok {
		t.Fatalf("expected Ok, got %s", syscall.Errno(p.Context.X[7]))
	}
}
