package operator

import "errors"

// SubgraphID identifies a schedulable unit of a location's program.
type SubgraphID int

// Context is what the local runtime exposes to an operator during one
// activation.
type Context interface {
	// IsFirstRunThisTick reports whether the current subgraph runs for the
	// first time in the current tick.
	IsFirstRunThisTick() bool

	// CurrentSubgraph returns the subgraph being run.
	CurrentSubgraph() SubgraphID

	// ScheduleSubgraph asks the scheduler to run id again. A lazy request
	// runs it on a later tick; an eager one within the current tick.
	ScheduleSubgraph(id SubgraphID, eager bool)

	// CurrentTick returns the current tick number.
	CurrentTick() int64
}

// ErrReentrantBorrow is the panic value raised when a state slot is
// borrowed while already held.
var ErrReentrantBorrow = errors.New("operator: state slot borrowed reentrantly")

// StateSlot owns one operator's state in the runtime. The state is held
// exclusively for the duration of one activation.
type StateSlot[T any] struct {
	value T
	held  bool
}

// Borrow returns the state and a release function. Borrowing a held slot
// panics with ErrReentrantBorrow.
func (s *StateSlot[T]) Borrow() (*T, func()) {
	if s.held {
		panic(ErrReentrantBorrow)
	}
	s.held = true
	return &s.value, func() { s.held = false }
}

// Held reports whether the slot is currently borrowed.
func (s *StateSlot[T]) Held() bool {
	return s.held
}
