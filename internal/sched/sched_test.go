package sched_test

import (
	"testing"

	"github.com/relayd/aegis/internal/mem/vmm"
	"github.com/relayd/aegis/internal/proc"
	"github.com/relayd/aegis/internal/sched"
)

func newProc() *proc.Process {
	return proc.New(0, vmm.NewUserTable())
}

func TestAddAssignsSequentialIDs(t *testing.T) {
	s := sched.New()

	id1 := s.Add(newProc())
	id2 := s.Add(newProc())

	if id1 == id2 {
		t.Fatalf("expected distinct ids")
	}

	if id2 != id1+1 {
		t.Fatalf("expected sequential ids, got %d then %d", id1, id2)
	}
}

func TestSwitchToPicksFirstReady(t *testing.T) {
	s := sched.New()

	p1 := newProc()
	p1.State = proc.State{Status: proc.Waiting, Poll: func(*proc.Process) bool { return false }}
	s.Add(p1)

	p2 := newProc()
	s.Add(p2)

	var tf proc.TrapFrame

	id, ok := s.SwitchTo(&tf)
	if !ok {
		t.Fatalf("expected a ready process")
	}

	if id != p2.ID {
		t.Fatalf("expected p2 (%d) to be switched in, got %d", p2.ID, id)
	}
}

func TestSwitchToNoneReady(t *testing.T) {
	s := sched.New()

	p := newProc()
	p.State = proc.State{Status: proc.Waiting, Poll: func(*proc.Process) bool { return false }}
	s.Add(p)

	var tf proc.TrapFrame

	if _, ok := s.SwitchTo(&tf); ok {
		t.Fatalf("expected no process to be ready")
	}
}

func TestKillReturnsIDBeforeRemoval(t *testing.T) {
	s := sched.New()

	p := newProc()
	id := s.Add(p)

	tf := *p.Context

	killedID, ok := s.Kill(&tf)
	if !ok {
		t.Fatalf("expected kill to find the process")
	}

	if killedID != id {
		t.Fatalf("expected killed id %d, got %d", id, killedID)
	}

	if s.Len() != 0 {
		t.Fatalf("expected queue to be empty after kill, got %d", s.Len())
	}
}

func TestScheduleOutMovesToBack(t *testing.T) {
	s := sched.New()

	p1 := newProc()
	s.Add(p1)
	p2 := newProc()
	s.Add(p2)

	tf := *p1.Context
	if !s.ScheduleOut(&tf, proc.State{Status: proc.Ready}) {
		t.Fatalf("expected schedule-out to find p1")
	}

	front, ok := s.Front()
	if !ok {
		t.Fatalf("expected a front process")
	}

	if front.ID != p2.ID {
		t.Fatalf("expected p2 at front after p1 scheduled out, got %d", front.ID)
	}
}

func TestGlobalCriticalSectionIsRecursive(t *testing.T) {
	g := sched.NewGlobal()
	g.Ready()

	g.Critical(1, func(s *sched.Scheduler) {
		// Re-entrant critical section on behalf of the same owner must not
		// deadlock.
		g.Critical(1, func(inner *sched.Scheduler) {
			inner.Add(newProc())
		})
	})
}
