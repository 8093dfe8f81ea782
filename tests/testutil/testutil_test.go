package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTestUUID(t *testing.T) {
	assert.Equal(t, NewTestUUID("a"), NewTestUUID("a"))
	assert.NotEqual(t, NewTestUUID("a"), NewTestUUID("b"))
	assert.Equal(t, SpeciesID("acer-rubrum"), NewTestUUID("species/acer-rubrum"))
}

func TestContextWithTimeout(t *testing.T) {
	ctx := ContextWithTimeout(t, time.Minute)
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, time.Second)
}

func TestRecordingHandler(t *testing.T) {
	h := NewRecordingHandler()
	assert.Empty(t, h.EventTypes())

	unit, hold := uuid.New(), uuid.New()
	require.NoError(t, h.Handle(context.Background(), NewTestEvent("UnitTagged", unit)))
	require.NoError(t, h.Handle(context.Background(), NewTestEvent("StockAllocated", hold)))
	require.NoError(t, h.Handle(context.Background(), NewTestEvent("UnitStatusChanged", unit)))

	assert.Equal(t, []string{"UnitTagged", "StockAllocated", "UnitStatusChanged"}, h.Types())
	assert.Len(t, h.ForAggregate(unit), 2)

	h.SetError(assert.AnError)
	assert.ErrorIs(t, h.Handle(context.Background(), NewTestEvent("X", unit)), assert.AnError)

	h.Reset()
	assert.Empty(t, h.Handled())
	assert.NoError(t, h.Handle(context.Background(), NewTestEvent("X", unit)))
}

func TestWaitForCondition(t *testing.T) {
	calls := 0
	ok := WaitForCondition(t, func() bool {
		calls++
		return calls >= 3
	}, time.Second, time.Millisecond)
	assert.True(t, ok)

	assert.False(t, WaitForCondition(t, func() bool { return false }, 5*time.Millisecond, time.Millisecond))
}
