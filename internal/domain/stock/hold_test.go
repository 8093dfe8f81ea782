package stock

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHold(t *testing.T) {
	g := testGroup("2in")

	h, err := NewHold(g, 4, "DEAL-9", "sam", 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, HoldActive, h.Status)
	assert.Equal(t, 4, h.Remaining())
	require.NotNil(t, h.ExpiresAt)
	assert.Equal(t, h.CreatedAt.Add(2*time.Hour), *h.ExpiresAt)

	manual, err := NewHold(g, 1, "DEAL-9", "sam", 0)
	require.NoError(t, err)
	assert.Nil(t, manual.ExpiresAt)
	assert.False(t, manual.IsExpired(time.Now().Add(1000*time.Hour)))

	_, err = NewHold(g, 0, "DEAL-9", "sam", 0)
	assert.Error(t, err)
	_, err = NewHold(g, 1, " ", "sam", 0)
	assert.Error(t, err)
	_, err = NewHold(GroupKey{}, 1, "DEAL-9", "sam", 0)
	assert.Error(t, err)
}

func TestHold_BindUnit(t *testing.T) {
	h, err := NewHold(testGroup("2in"), 2, "DEAL-1", "sam", time.Hour)
	require.NoError(t, err)
	now := time.Now()

	require.NoError(t, h.BindUnit(uuid.New(), now))
	assert.Equal(t, HoldActive, h.Status)
	assert.Equal(t, 1, h.Remaining())

	require.NoError(t, h.BindUnit(uuid.New(), now))
	assert.Equal(t, HoldFulfilled, h.Status)
	assert.Equal(t, 0, h.Remaining())
	assert.NotNil(t, h.ReleasedAt)

	assert.Error(t, h.BindUnit(uuid.New(), now))
}

func TestHold_BindUnitAfterExpiry(t *testing.T) {
	h, err := NewHold(testGroup("2in"), 2, "DEAL-1", "sam", time.Minute)
	require.NoError(t, err)
	assert.Error(t, h.BindUnit(uuid.New(), time.Now().Add(time.Hour)))
}

func TestHold_Release(t *testing.T) {
	h, err := NewHold(testGroup("2in"), 2, "DEAL-1", "sam", 0)
	require.NoError(t, err)

	require.NoError(t, h.Release("", time.Now()))
	assert.Equal(t, HoldReleased, h.Status)
	assert.Equal(t, "released", h.ReleaseReason)
	assert.Equal(t, 2, h.Version)
	assert.Error(t, h.Release("again", time.Now()))
}

func TestHold_Expire(t *testing.T) {
	h, err := NewHold(testGroup("2in"), 2, "DEAL-1", "sam", time.Minute)
	require.NoError(t, err)

	assert.Error(t, h.Expire(time.Now()))
	later := time.Now().Add(2 * time.Minute)
	require.NoError(t, h.Expire(later))
	assert.Equal(t, HoldExpired, h.Status)
	assert.False(t, h.Counts(later))
}

func TestHeldQuantity(t *testing.T) {
	g := testGroup("2in")
	now := time.Now()
	a, _ := NewHold(g, 3, "D-1", "x", time.Hour)
	b, _ := NewHold(g, 2, "D-2", "x", 0)
	require.NoError(t, b.BindUnit(uuid.New(), now))
	c, _ := NewHold(g, 5, "D-3", "x", time.Hour)
	require.NoError(t, c.Release("deal lost", now))

	assert.Equal(t, 4, HeldQuantity([]Hold{*a, *b, *c}, now))
	assert.Equal(t, 1, HeldQuantity([]Hold{*a, *b, *c}, now.Add(2*time.Hour)))
}
