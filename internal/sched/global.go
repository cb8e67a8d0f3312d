package sched

import (
	"github.com/relayd/aegis/internal/klock"
	"github.com/relayd/aegis/internal/proc"
)

// Global wraps a Scheduler with a recursive-permissive lock, so it can be
// shared as a kernel singleton: syscall handlers running "on behalf of" a
// process may re-enter it without deadlocking themselves.
type Global struct {
	lock *klock.Lock
	sch  *Scheduler
}

// NewGlobal creates a Global scheduler, initially empty.
func NewGlobal() *Global {
	return &Global{lock: &klock.Lock{}, sch: New()}
}

// Ready switches the underlying lock into concurrent mode, once the
// simulated MMU is enabled.
func (g *Global) Ready() { g.lock.Ready() }

// Critical runs fn with the scheduler locked on behalf of owner, matching
// the original GlobalScheduler::critical closure-based API.
func (g *Global) Critical(owner uint64, fn func(*Scheduler)) {
	if !g.lock.TryLock(owner) {
		panic("sched: lock held by another owner")
	}
	defer g.lock.Unlock(owner)

	fn(g.sch)
}

// Add is Critical wrapping Scheduler.Add.
func (g *Global) Add(owner uint64, p *proc.Process) proc.ID {
	var id proc.ID

	g.Critical(owner, func(s *Scheduler) { id = s.Add(p) })

	return id
}

// SwitchTo is Critical wrapping Scheduler.SwitchTo.
func (g *Global) SwitchTo(owner uint64, tf *proc.TrapFrame) (proc.ID, bool) {
	var (
		id proc.ID
		ok bool
	)

	g.Critical(owner, func(s *Scheduler) { id, ok = s.SwitchTo(tf) })

	return id, ok
}

// ScheduleOut is Critical wrapping Scheduler.ScheduleOut.
func (g *Global) ScheduleOut(owner uint64, tf *proc.TrapFrame, state proc.State) bool {
	var ok bool

	g.Critical(owner, func(s *Scheduler) { ok = s.ScheduleOut(tf, state) })

	return ok
}

// Kill is Critical wrapping Scheduler.Kill.
func (g *Global) Kill(owner uint64, tf *proc.TrapFrame) (proc.ID, bool) {
	var (
		id proc.ID
		ok bool
	)

	g.Critical(owner, func(s *Scheduler) { id, ok = s.Kill(tf) })

	return id, ok
}
