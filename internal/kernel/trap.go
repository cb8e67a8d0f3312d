package kernel

import (
	"github.com/relayd/aegis/internal/proc"
	"github.com/relayd/aegis/internal/syscall"
	"github.com/relayd/aegis/internal/trap"
)

// HandleTrap dispatches one trapped exception against this kernel's
// collaborators: a synchronous SVC is routed to the syscall layer, and a
// pending IRQ to every registered handler. A breakpoint is only logged at
// debug level; it does not enter the debug shell. owner is the lock token the
// current kernel context holds.
func (k *Kernel) HandleTrap(owner uint64, info trap.Info, esr uint32, tf *proc.TrapFrame, findProcess func(uint64) *proc.Process) error {
	deps := k.Deps(owner)

	return trap.Dispatch(info, esr, tf, trap.Handlers{
		Syscall: func(frame *proc.TrapFrame, num uint64) {
			p := findProcess(frame.TPIDR)
			if p == nil {
				return
			}

			syscall.Handle(num, frame, p, deps)
		},
		Breakpoint: func(frame *proc.TrapFrame) {
			k.log.Debug("breakpoint trap", "tpidr", frame.TPIDR)
		},
		Pending: func() []trap.IRQSource {
			return k.intc.Pending()
		},
		IRQ: func(sources []trap.IRQSource) {
			k.irqs.Invoke(owner, sources)
		},
	})
}
