package trap

import (
	"errors"
	"fmt"

	"github.com/relayd/aegis/internal/proc"
)

// ErrFault is returned when a synchronous exception is an unrecoverable
// data or instruction abort: the process that caused it cannot continue.
var ErrFault = errors.New("trap: fault")

// ErrUnhandled is returned for a synchronous exception class this kernel
// does not recognize.
var ErrUnhandled = errors.New("trap: unhandled exception class")

// Handlers are the kernel callbacks a Dispatch invocation may need to call
// into, kept as plain function values rather than an interface so the
// dispatcher has no import-time dependency on the syscall or monitor
// packages that supply them.
type Handlers struct {
	// Syscall handles an SVC exception. num is the syscall number carried
	// in the SVC instruction's immediate operand, not in a register.
	Syscall func(tf *proc.TrapFrame, num uint64)

	// Breakpoint handles a BRK exception, e.g. entering the debug monitor.
	Breakpoint func(tf *proc.TrapFrame)

	// Pending returns the sources with an interrupt currently asserted,
	// called when an IRQ trap is taken.
	Pending func() []IRQSource

	// IRQ dispatches pending interrupt sources to their registered
	// handlers.
	IRQ func(pending []IRQSource)
}

// Dispatch decodes and handles one trap. tf is the trap frame captured at
// the moment of the exception; Dispatch may mutate it (advancing ELR,
// writing syscall results). It returns an error only for conditions the
// kernel cannot service -- an unrecoverable fault, an SError, or an
// unrecognized exception class -- which the caller should treat as fatal to
// the process (or the kernel, for an SError) that raised it.
func Dispatch(info Info, esr uint32, tf *proc.TrapFrame, h Handlers) error {
	switch info.Kind {
	case Synchronous:
		return dispatchSynchronous(esr, tf, h)
	case IRQ:
		if h.Pending != nil && h.IRQ != nil {
			h.IRQ(h.Pending())
		}

		return nil
	case FIQ:
		// FIQs are not used by this kernel; they are acknowledged and
		// otherwise ignored, matching the source kernel's policy of running
		// with FIQ masked except briefly during syscall handling.
		return nil
	case SError:
		return fmt.Errorf("%w: asynchronous system error", ErrFault)
	default:
		return fmt.Errorf("%w: trap kind %v", ErrUnhandled, info.Kind)
	}
}

func dispatchSynchronous(esr uint32, tf *proc.TrapFrame, h Handlers) error {
	syn := Decode(esr)

	switch syn.Kind {
	case SyndromeSvc:
		if h.Syscall != nil {
			h.Syscall(tf, uint64(syn.Imm))
		}

		tf.ELR += 4

		return nil
	case SyndromeBrk:
		if h.Breakpoint != nil {
			h.Breakpoint(tf)
		}

		tf.ELR += 4

		return nil
	case SyndromeDataAbort:
		return fmt.Errorf("%w: data abort: %s at level %d", ErrFault, syn.Fault, syn.Level)
	case SyndromeInstructionAbort:
		return fmt.Errorf("%w: instruction abort: %s at level %d", ErrFault, syn.Fault, syn.Level)
	default:
		return fmt.Errorf("%w: synchronous exception class", ErrUnhandled)
	}
}
