package stock

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupKey_RoundTrip(t *testing.T) {
	k := GroupKey{SpeciesID: uuid.New(), SizeLabel: "2in", ZoneID: uuid.New(), Grade: "B"}
	parsed, err := ParseGroupKey(k.String())
	require.NoError(t, err)
	assert.Equal(t, k, parsed)

	ungraded := GroupKey{SpeciesID: uuid.New(), SizeLabel: "15gal", ZoneID: uuid.New()}
	parsed, err = ParseGroupKey(ungraded.String())
	require.NoError(t, err)
	assert.Equal(t, ungraded, parsed)
}

func TestParseGroupKey_Rejects(t *testing.T) {
	for _, raw := range []string{
		"",
		"a/b/c",
		"not-a-uuid/2in/" + uuid.NewString() + "/",
		uuid.NewString() + "//" + uuid.NewString() + "/",
	} {
		_, err := ParseGroupKey(raw)
		assert.Error(t, err, raw)
	}
}

func TestGroupKey_Less(t *testing.T) {
	species := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	zone := uuid.MustParse("00000000-0000-0000-0000-0000000000aa")
	a := GroupKey{SpeciesID: species, SizeLabel: "1in", ZoneID: zone}
	b := GroupKey{SpeciesID: species, SizeLabel: "2in", ZoneID: zone}
	c := GroupKey{SpeciesID: species, SizeLabel: "2in", ZoneID: zone, Grade: "A"}

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.False(t, c.Less(a))
	assert.False(t, a.Less(a))
}
