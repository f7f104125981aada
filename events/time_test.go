package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	want := time.Date(2024, time.May, 1, 12, 30, 0, 0, time.UTC)

	for _, s := range []string{
		"2024-05-01T12:30:00Z",
		"2024-05-01T12:30:00",
		"2024-05-01T12:30",
		"2024-05-01 12:30:00",
		" 2024-05-01 12:30 ",
	} {
		got, err := ParseTime(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), s)
	}

	day, err := ParseTime("2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, 0, day.Hour())

	offset, err := ParseTime("2024-05-01T14:30:00+02:00")
	require.NoError(t, err)
	assert.True(t, want.Equal(offset))

	_, err = ParseTime("yesterday")
	assert.Error(t, err)

	_, err = Event{Time: "05/01/2024"}.At()
	assert.Error(t, err)
}
