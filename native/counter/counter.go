package counter

import "errors"

var errNilState = errors.New("counter: state not configured")

// State is the persistence surface backing the allocator.
type State interface {
	CounterGet(namespace string) (uint64, bool, error)
	CounterPut(namespace string, value uint64) error
}

// Allocator hands out monotonically increasing ids per namespace. The first
// allocated id in a namespace is 1.
type Allocator struct {
	state State
}

// NewAllocator constructs an allocator over the supplied state backend.
func NewAllocator(state State) *Allocator {
	return &Allocator{state: state}
}

// Next reserves and returns the next id for the namespace.
func (a *Allocator) Next(namespace string) (uint64, error) {
	if a == nil || a.state == nil {
		return 0, errNilState
	}
	current, _, err := a.state.CounterGet(namespace)
	if err != nil {
		return 0, err
	}
	next := current + 1
	if err := a.state.CounterPut(namespace, next); err != nil {
		return 0, err
	}
	return next, nil
}

// Peek returns the most recently allocated id without reserving a new one.
func (a *Allocator) Peek(namespace string) (uint64, error) {
	if a == nil || a.state == nil {
		return 0, errNilState
	}
	current, _, err := a.state.CounterGet(namespace)
	if err != nil {
		return 0, err
	}
	return current, nil
}
