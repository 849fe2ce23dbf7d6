package genre

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		name    string
		genres  []string
		encoded string
	}{
		{"single", []string{"MOVIES"}, "MOVIES"},
		{"several", []string{"MOVIES", "DRAMA"}, "MOVIES,DRAMA"},
		{"comma inside", []string{"Home, Garden", "News"}, `Home", Garden,News`},
		{"quote inside", []string{`The "Best"`}, `The ""Best""`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.encoded, Encode(tt.genres...))
			assert.Equal(t, tt.genres, Decode(tt.encoded))
		})
	}
}

func TestDecode_TrimsAndDropsEmpty(t *testing.T) {
	assert.Equal(t, []string{"COMEDY", "NEWS"}, Decode(" COMEDY , ,NEWS,"))
	assert.Equal(t, []string{"COMEDY"}, Decode("  COMEDY "))
	assert.Nil(t, Decode(""))
	assert.Nil(t, Decode("   "))
}

func TestIsCanonical(t *testing.T) {
	for _, g := range Vocabulary {
		assert.True(t, IsCanonical(g), g)
	}
	assert.False(t, IsCanonical("movies"))
	assert.False(t, IsCanonical(""))

	assert.True(t, AllCanonical("MOVIES,DRAMA"))
	assert.True(t, AllCanonical(""))
	assert.False(t, AllCanonical("MOVIES,Cooking"))
}

func TestMapper_Canonicalize(t *testing.T) {
	m := DefaultMapper()

	assert.Equal(t, Movies, m.Lookup("feature film"))
	assert.Equal(t, "", m.Lookup("Unknown Genre"))

	// Results follow vocabulary order and are deduplicated.
	assert.Equal(t, "SPORTS,NEWS", m.Canonicalize("Weather,football,News,Soccer"))
	assert.Equal(t, "", m.Canonicalize("Mystery Genre"))
	assert.Equal(t, "", m.Canonicalize(""))
}

func TestNewMapper(t *testing.T) {
	m, err := NewMapper(strings.NewReader("TRAVEL:\n  - Road Trips\n"))
	require.NoError(t, err)
	assert.Equal(t, Travel, m.Lookup("ROAD TRIPS"))

	_, err = NewMapper(strings.NewReader("ROAD_TRIPS:\n  - Road Trips\n"))
	assert.Error(t, err)

	empty, err := NewMapper(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "", empty.Canonicalize("News"))
}
