package client

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------------
// Tests

// TestLatchFirstErrorWins pins the documented policy: the latch never holds
// more than one value, and a second error while one is pending is dropped,
// not queued.
func TestLatchFirstErrorWins(t *testing.T) {
	t.Parallel()

	var l latch

	e1 := errors.New("first")
	e2 := errors.New("second")

	l.record(e1)
	l.record(e2)

	err, ok := l.take()
	require.True(t, ok)
	assert.Same(t, e1, err)

	_, ok = l.take()
	assert.False(t, ok, "second error must have been dropped")
}

// TestLatchRecordAfterTake verifies the latch accepts a new error once the
// previous one has been consumed.
func TestLatchRecordAfterTake(t *testing.T) {
	t.Parallel()

	var l latch

	e1 := errors.New("first")
	e2 := errors.New("second")

	l.record(e1)

	_, ok := l.take()
	require.True(t, ok)

	l.record(e2)

	err, ok := l.take()
	require.True(t, ok)
	assert.Same(t, e2, err)
}

// TestLatchTakeEmpty verifies taking from an empty latch reports false.
func TestLatchTakeEmpty(t *testing.T) {
	t.Parallel()

	var l latch

	err, ok := l.take()
	assert.False(t, ok)
	assert.NoError(t, err)
}
