package trap_test

import (
	"errors"
	"testing"

	"github.com/relayd/aegis/internal/proc"
	"github.com/relayd/aegis/internal/trap"
)

func TestDecodeSvc(t *testing.T) {
	esr := uint32(trap_ecSVC64()) << 26

	syn := trap.Decode(esr)
	if syn.Kind != trap.SyndromeSvc {
		t.Fatalf("expected SyndromeSvc, got %v", syn.Kind)
	}
}

func trap_ecSVC64() uint32 { return 0x15 }

func TestDispatchSvcAdvancesELR(t *testing.T) {
	var tf proc.TrapFrame
	tf.ELR = 0x1000

	var gotNum uint64
	err := trap.Dispatch(trap.Info{Kind: trap.Synchronous}, 0x15<<26|7, &tf, trap.Handlers{
		Syscall: func(tf *proc.TrapFrame, num uint64) { gotNum = num },
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if gotNum != 7 {
		t.Fatalf("expected syscall number 7 decoded from the SVC immediate, got %d", gotNum)
	}

	if tf.ELR != 0x1004 {
		t.Fatalf("expected ELR advanced by 4, got %#x", tf.ELR)
	}
}

func TestDispatchDataAbortReturnsFault(t *testing.T) {
	var tf proc.TrapFrame

	// EC = 0x25 (data abort, same EL), DFSC class 1 (translation fault).
	esr := uint32(0x25)<<26 | 0x04

	err := trap.Dispatch(trap.Info{Kind: trap.Synchronous}, esr, &tf, trap.Handlers{})
	if !errors.Is(err, trap.ErrFault) {
		t.Fatalf("expected ErrFault, got %v", err)
	}
}

func TestDispatchIRQInvokesPendingHandlers(t *testing.T) {
	var tf proc.TrapFrame

	var invoked []trap.IRQSource

	err := trap.Dispatch(trap.Info{Kind: trap.IRQ}, 0, &tf, trap.Handlers{
		Pending: func() []trap.IRQSource { return []trap.IRQSource{trap.Timer} },
		IRQ:     func(pending []trap.IRQSource) { invoked = pending },
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if len(invoked) != 1 || invoked[0] != trap.Timer {
		t.Fatalf("expected Timer to be dispatched, got %v", invoked)
	}
}

func TestIRQRegistryInvokesRegisteredHandler(t *testing.T) {
	r := trap.NewIRQRegistry()

	fired := false
	r.Register(1, trap.Timer, func() { fired = true })
	r.Invoke(1, []trap.IRQSource{trap.Timer})

	if !fired {
		t.Fatalf("expected registered handler to fire")
	}
}
