// Package sched implements a FIFO round-robin preemptive scheduler: a deque
// of processes, where the process at the front is the one currently
// running, and switching moves the previous front to the back of the queue.
package sched

import (
	"container/list"
	"fmt"

	"github.com/relayd/aegis/internal/proc"
)

// Scheduler holds the run queue of every live process.
type Scheduler struct {
	queue  *list.List // of *proc.Process
	lastID proc.ID
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{queue: list.New()}
}

// Add assigns the next process ID, stamps the process's trap frame with it
// (so a later trap can be correlated back to the process that raised it),
// and enqueues it at the back of the run queue.
func (s *Scheduler) Add(p *proc.Process) proc.ID {
	s.lastID++
	p.ID = s.lastID
	p.Context.TPIDR = uint64(p.ID)

	s.queue.PushBack(p)

	return p.ID
}

// find locates the list element holding the process with the given TPIDR,
// used to recover a process from the trap frame a trap handler was given.
func (s *Scheduler) find(tpidr uint64) *list.Element {
	for e := s.queue.Front(); e != nil; e = e.Next() {
		if e.Value.(*proc.Process).Context.TPIDR == tpidr { //nolint:forcetypeassert
			return e
		}
	}

	return nil
}

// ScheduleOut saves tf into the process identified by tf.TPIDR, sets its
// state, and moves it to the back of the queue. It reports whether a
// matching process was found.
func (s *Scheduler) ScheduleOut(tf *proc.TrapFrame, state proc.State) bool {
	e := s.find(tf.TPIDR)
	if e == nil {
		return false
	}

	p := e.Value.(*proc.Process) //nolint:forcetypeassert
	*p.Context = *tf
	p.State = state

	s.queue.MoveToBack(e)

	return true
}

// SwitchTo scans the queue from the front for the first ready process, sets
// it Running, copies its context into tf, and moves it to the front of the
// queue. It returns the process's ID, or false if no process is ready.
func (s *Scheduler) SwitchTo(tf *proc.TrapFrame) (proc.ID, bool) {
	for e := s.queue.Front(); e != nil; e = e.Next() {
		p := e.Value.(*proc.Process) //nolint:forcetypeassert

		if p.IsReady() {
			p.State = proc.State{Status: proc.Running}
			*tf = *p.Context
			s.queue.MoveToFront(e)

			return p.ID, true
		}
	}

	return 0, false
}

// Kill marks the process identified by tf.TPIDR Dead, schedules it out, then
// removes it from the queue and returns its ID.
//
// The ID is captured before the process is removed from the queue: the
// original scheduler this was ported from computed the id from the removed
// (and, in that language, already-dropped) value, which is always wrong.
// Returning the id first and discarding the process afterwards is the fix.
func (s *Scheduler) Kill(tf *proc.TrapFrame) (proc.ID, bool) {
	e := s.find(tf.TPIDR)
	if e == nil {
		return 0, false
	}

	p := e.Value.(*proc.Process) //nolint:forcetypeassert
	id := p.ID

	*p.Context = *tf
	p.State = proc.State{Status: proc.Dead}

	s.queue.Remove(e)

	return id, true
}

// Len returns the number of processes currently tracked, live or waiting.
func (s *Scheduler) Len() int {
	return s.queue.Len()
}

// Front returns the process at the front of the queue -- the one that
// would next be switched in if ready -- without changing any state. It is
// intended for diagnostics.
func (s *Scheduler) Front() (*proc.Process, bool) {
	e := s.queue.Front()
	if e == nil {
		return nil, false
	}

	return e.Value.(*proc.Process), true //nolint:forcetypeassert
}

// String renders the run queue for debugging.
func (s *Scheduler) String() string {
	out := "["

	for e := s.queue.Front(); e != nil; e = e.Next() {
		p := e.Value.(*proc.Process) //nolint:forcetypeassert
		out += fmt.Sprintf("{id:%d state:%s} ", p.ID, p.State.Status)
	}

	return out + "]"
}
