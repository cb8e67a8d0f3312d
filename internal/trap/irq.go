package trap

import "github.com/relayd/aegis/internal/klock"

// IRQSource identifies a peripheral interrupt line.
type IRQSource int

const (
	Timer IRQSource = iota
	UART
	Ethernet
)

func (s IRQSource) String() string {
	switch s {
	case Timer:
		return "Timer"
	case UART:
		return "UART"
	case Ethernet:
		return "Ethernet"
	default:
		return "Unknown"
	}
}

// Handler services one peripheral's interrupt.
type Handler func()

// IRQRegistry maps interrupt sources to handlers, analogous to an interrupt
// descriptor table. It is lock-guarded since it is a kernel-wide singleton
// that any processor context may register a handler with or dispatch
// through.
type IRQRegistry struct {
	lock     klock.Lock
	handlers map[IRQSource]Handler
}

// NewIRQRegistry creates an empty registry.
func NewIRQRegistry() *IRQRegistry {
	return &IRQRegistry{handlers: make(map[IRQSource]Handler)}
}

// Register installs fn as the handler for source, replacing any previous
// handler.
func (r *IRQRegistry) Register(owner uint64, source IRQSource, fn Handler) {
	if !r.lock.TryLock(owner) {
		panic("trap: irq registry lock held by another owner")
	}
	defer r.lock.Unlock(owner)

	r.handlers[source] = fn
}

// Invoke calls the handler registered for every source in pending, in
// order, skipping sources with no registered handler.
func (r *IRQRegistry) Invoke(owner uint64, pending []IRQSource) {
	if !r.lock.TryLock(owner) {
		panic("trap: irq registry lock held by another owner")
	}
	defer r.lock.Unlock(owner)

	for _, source := range pending {
		if fn, ok := r.handlers[source]; ok {
			fn()
		}
	}
}
