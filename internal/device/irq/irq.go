// Package irq implements a software peripheral interrupt controller: a set
// of enabled sources and a pending bitmap, standing in for a real GIC.
package irq

import (
	"sync"

	"github.com/relayd/aegis/internal/trap"
)

// Controller tracks which interrupt sources are enabled and currently
// asserted.
type Controller struct {
	mu      sync.Mutex
	enabled map[trap.IRQSource]bool
	pending map[trap.IRQSource]bool
}

// New creates an empty Controller.
func New() *Controller {
	return &Controller{
		enabled: make(map[trap.IRQSource]bool),
		pending: make(map[trap.IRQSource]bool),
	}
}

// Enable marks source as eligible to raise interrupts.
func (c *Controller) Enable(source trap.IRQSource) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.enabled[source] = true
}

// Assert raises source's interrupt line, if it is enabled. It is called by
// a peripheral (the timer, the console, the network device) when it has
// work for the kernel to service.
func (c *Controller) Assert(source trap.IRQSource) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.enabled[source] {
		c.pending[source] = true
	}
}

// Pending returns every currently asserted source and clears them, as if
// they had been acknowledged by the trap dispatcher that is about to
// service them.
func (c *Controller) Pending() []trap.IRQSource {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []trap.IRQSource

	for source, set := range c.pending {
		if set {
			out = append(out, source)
		}

		delete(c.pending, source)
	}

	return out
}
