package client

// latch remembers at most one pending error between occurrences: the first
// unhandled error wins, and later errors are dropped until it is consumed.
//
// This is a deliberate bounded-memory tradeoff, not a defect: errors are a
// "last known problem" signal, unlike messages, which buffer without bound.
// Callers that need every error must install a handler before the second one
// arrives. Synchronization is the owning slot's concern.
type latch struct {
	err error
	set bool
}

// record stores err only when the latch is empty; otherwise it is a no-op.
func (l *latch) record(err error) {
	if !l.set {
		l.err, l.set = err, true
	}
}

// take removes and returns the stored error, reporting false when empty.
func (l *latch) take() (error, bool) {
	if !l.set {
		return nil, false
	}

	err := l.err
	l.err, l.set = nil, false

	return err, true
}
