package client

import "sync"

// --------------------------------------------------------------------------------
// Types

// installOutcome reports how an install landed.
type installOutcome int

const (
	// outcomeApplied means the handler was swapped immediately; the caller is
	// responsible for draining anything buffered into the new handler.
	outcomeApplied installOutcome = iota
	// outcomeDeferred means the install happened from inside the current
	// handler's own invocation; the swap lands the moment that invocation
	// returns, and the caller must not drain.
	outcomeDeferred
)

// slot holds at most one handler and tolerates the handler being replaced
// from inside its own invocation.
//
// The reentrancy discipline is an explicit in-use flag plus a one-slot
// pending replacement: install tries to take the slot directly, and when an
// invocation is in progress it records the replacement instead, to be applied
// the instant the invocation returns. The mutex is never held while the
// handler runs, so a handler calling back into install (or delivering on a
// sibling slot) cannot deadlock.
//
// Invariants: next is only meaningful while an invocation is in progress; it
// is applied to fn exactly once, immediately after that invocation returns,
// and before any subsequent deliver observes the old handler.
type slot[T any] struct {
	mu       sync.Mutex
	fn       func(T)
	invoking bool
	hasNext  bool
	next     func(T)
}

// --------------------------------------------------------------------------------
// Methods

// deliver calls the installed handler with v, or hands v to buffer when no
// handler is installed. buffer runs under the slot lock and must not call
// back into the slot.
//
// A deliver that arrives while the slot's own handler is mid-invocation is
// buffered as well; invoking the handler recursively from inside itself is
// never allowed.
func (s *slot[T]) deliver(v T, buffer func(T)) {
	s.mu.Lock()

	if s.fn == nil || s.invoking {
		buffer(v)
		s.mu.Unlock()

		return
	}

	fn := s.fn
	s.invoking = true
	s.mu.Unlock()

	fn(v)
	s.finish()
}

// install replaces the handler. A nil fn uninstalls it, suspending delivery.
//
// When called with no invocation in progress the replacement takes effect
// immediately and the outcome is outcomeApplied. When called re-entrantly,
// from inside the current handler, the replacement is recorded and applied
// automatically once the in-progress invocation returns; the outcome is
// outcomeDeferred.
func (s *slot[T]) install(fn func(T)) installOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.invoking {
		s.next, s.hasNext = fn, true

		return outcomeDeferred
	}

	s.fn = fn

	return outcomeApplied
}

// drain repeatedly pops a value and invokes the handler with it, stopping
// when either the handler is gone or pop runs dry. pop runs under the slot
// lock and must not call back into the slot.
//
// A handler that replaces itself mid-drain defers per install's contract; the
// swap lands between iterations, so remaining values flow to the new handler
// in their original order, or stay buffered if the new handler is nil.
func (s *slot[T]) drain(pop func() (T, bool)) {
	for {
		s.mu.Lock()

		if s.fn == nil || s.invoking {
			s.mu.Unlock()

			return
		}

		v, ok := pop()
		if !ok {
			s.mu.Unlock()

			return
		}

		fn := s.fn
		s.invoking = true
		s.mu.Unlock()

		fn(v)
		s.finish()
	}
}

// finish marks the active invocation as done and lands a deferred
// replacement, if one was recorded.
func (s *slot[T]) finish() {
	s.mu.Lock()

	s.invoking = false
	if s.hasNext {
		s.fn, s.next, s.hasNext = s.next, nil, false
	}

	s.mu.Unlock()
}
