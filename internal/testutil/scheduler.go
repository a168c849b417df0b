// Package testutil provides deterministic stand-ins for the collaborators
// of the compiler: a tick scheduler implementing the operator runtime
// contract and a deployment provider that records every call.
package testutil

import (
	"sync"

	"github.com/roach88/flowc/internal/operator"
)

// ScheduleRequest records one call to ScheduleSubgraph.
type ScheduleRequest struct {
	Tick     int64
	Subgraph operator.SubgraphID
	Eager    bool
}

// Scheduler is a deterministic single-location scheduler for tests.
//
// Ticks start at 0 and only advance on NextTick. Run activates a subgraph;
// the first Run of a subgraph in a tick is its first run this tick.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex,
// but Run must not be called from within another Run.
type Scheduler struct {
	mu        sync.Mutex
	tick      int64
	current   operator.SubgraphID
	first     bool
	runs      map[operator.SubgraphID]int
	scheduled []ScheduleRequest
}

// NewScheduler creates a scheduler at tick 0.
func NewScheduler() *Scheduler {
	return &Scheduler{runs: map[operator.SubgraphID]int{}}
}

// Run activates subgraph id once and calls fn with the scheduler as the
// operator context.
func (s *Scheduler) Run(id operator.SubgraphID, fn func(ctx operator.Context)) {
	s.mu.Lock()
	s.current = id
	s.first = s.runs[id] == 0
	s.runs[id]++
	s.mu.Unlock()

	fn(s)
}

// NextTick advances to the next tick.
func (s *Scheduler) NextTick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick++
	s.runs = map[operator.SubgraphID]int{}
}

// Scheduled returns every ScheduleSubgraph request so far.
func (s *Scheduler) Scheduled() []ScheduleRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ScheduleRequest(nil), s.scheduled...)
}

// Reset returns the scheduler to tick 0 with no history.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick = 0
	s.current = 0
	s.first = false
	s.runs = map[operator.SubgraphID]int{}
	s.scheduled = nil
}

// IsFirstRunThisTick implements operator.Context.
func (s *Scheduler) IsFirstRunThisTick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.first
}

// CurrentSubgraph implements operator.Context.
func (s *Scheduler) CurrentSubgraph() operator.SubgraphID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// ScheduleSubgraph implements operator.Context.
func (s *Scheduler) ScheduleSubgraph(id operator.SubgraphID, eager bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = append(s.scheduled, ScheduleRequest{Tick: s.tick, Subgraph: id, Eager: eager})
}

// CurrentTick implements operator.Context.
func (s *Scheduler) CurrentTick() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

var _ operator.Context = (*Scheduler)(nil)
