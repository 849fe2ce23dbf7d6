package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Channel(t *testing.T) {
	columns := []string{"_id", "package_name", "display_number", "browsable", "logo", "app_link_color", "unknown_column"}
	rows := [][]any{
		{int64(1), "com.example", "10", int64(1), []byte{0x89, 'P'}, nil, "ignored"},
		{int64(2), []byte("com.other"), nil, int64(0), nil, int64(7), nil},
	}

	channels, err := Decode[Channel](columns, rows)
	require.NoError(t, err)
	require.Len(t, channels, 2)

	assert.Equal(t, int64(1), channels[0].ID)
	assert.Equal(t, "com.example", channels[0].PackageName)
	require.NotNil(t, channels[0].DisplayNumber)
	assert.Equal(t, "10", *channels[0].DisplayNumber)
	assert.True(t, channels[0].Browsable)
	assert.Equal(t, []byte{0x89, 'P'}, channels[0].Logo)
	assert.Nil(t, channels[0].AppLinkColor)

	assert.Equal(t, "com.other", channels[1].PackageName)
	assert.Nil(t, channels[1].DisplayNumber)
	assert.False(t, channels[1].Browsable)
	require.NotNil(t, channels[1].AppLinkColor)
	assert.Equal(t, int64(7), *channels[1].AppLinkColor)
}

func TestDecode_EmbeddedColumns(t *testing.T) {
	columns := []string{"_id", "type", "channel_id", "browsable", "watch_next_type"}
	rows := [][]any{{int64(4), int64(2), int64(9), int64(1), int64(3)}}

	previews, err := Decode[PreviewProgram](columns, rows)
	require.NoError(t, err)
	require.Len(t, previews, 1)
	assert.Equal(t, int64(4), previews[0].ID)
	assert.Equal(t, int64(2), previews[0].Type)
	assert.True(t, previews[0].Browsable)
	require.NotNil(t, previews[0].ChannelID)
	assert.Equal(t, int64(9), *previews[0].ChannelID)

	next, err := Decode[WatchNextProgram](columns, rows)
	require.NoError(t, err)
	require.NotNil(t, next[0].WatchNextType)
	assert.Equal(t, int64(3), *next[0].WatchNextType)
}

func TestDecode_BadInteger(t *testing.T) {
	_, err := Decode[Program]([]string{"start_time_utc_millis"}, [][]any{{"soon"}})
	assert.Error(t, err)
}

func TestValues_Conversions(t *testing.T) {
	v := Values{
		"int":    42,
		"float":  float64(3),
		"str":    "17",
		"bad":    "x1",
		"null":   nil,
		"bool":   true,
		"frac":   1.5,
		"binary": []byte("7"),
	}

	n, ok := v.Int64("int")
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)

	n, ok = v.Int64("str")
	assert.True(t, ok)
	assert.Equal(t, int64(17), n)

	n, ok = v.Int64("binary")
	assert.True(t, ok)
	assert.Equal(t, int64(7), n)

	_, ok = v.Int64("bad")
	assert.False(t, ok)
	_, ok = v.Int64("frac")
	assert.False(t, ok)
	_, ok = v.Int64("null")
	assert.False(t, ok)
	_, ok = v.Int64("missing")
	assert.False(t, ok)

	s, ok := v.String("float")
	assert.True(t, ok)
	assert.Equal(t, "3", s)
	s, _ = v.String("bool")
	assert.Equal(t, "1", s)
	_, ok = v.String("null")
	assert.False(t, ok)
	assert.True(t, v.Has("null"))
}

func TestAsInt64_Range(t *testing.T) {
	tests := []struct {
		name   string
		val    any
		want   int64
		wantOK bool
	}{
		{"max uint64 within range", uint64(math.MaxInt64), math.MaxInt64, true},
		{"uint64 overflow", uint64(math.MaxInt64) + 1, 0, false},
		{"max uint64", uint64(math.MaxUint64), 0, false},
		{"negative float", float64(-12), -12, true},
		{"float overflow", 1e19, 0, false},
		{"float underflow", -1e19, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AsInt64(tt.val)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValues_KeysSortedAndClone(t *testing.T) {
	v := Values{"b": 1, "a": 2, "c": nil}
	assert.Equal(t, []string{"a", "b", "c"}, v.Keys())

	c := v.Clone()
	c.Delete("a")
	c.SetNull("d")
	assert.True(t, v.Has("a"))
	assert.False(t, v.Has("d"))
	assert.True(t, c.Has("d"))
}

func TestTableKinds(t *testing.T) {
	for _, table := range Tables {
		got, err := TableForKind(table.Kind())
		require.NoError(t, err)
		assert.Equal(t, table, got)
	}
	_, err := TableForKind("deleted_channel")
	assert.Error(t, err)
	assert.False(t, WatchedPrograms.Owned())
	assert.True(t, Channels.Owned())
}
