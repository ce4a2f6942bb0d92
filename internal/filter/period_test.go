package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayAndMonth(t *testing.T) {
	loc, err := time.LoadLocation("America/Campo_Grande")
	require.NoError(t, err)

	// 02:00 UTC ainda é o dia anterior em Campo Grande (UTC-4)
	now := time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC)
	start, end := Day(now, loc)
	assert.Equal(t, time.Date(2024, 2, 29, 4, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))

	mStart, mEnd := Month(now, loc)
	assert.Equal(t, time.Date(2024, 2, 1, 4, 0, 0, 0, time.UTC), mStart)
	assert.Equal(t, time.Date(2024, 3, 1, 4, 0, 0, 0, time.UTC), mEnd)
}

func TestLastMonths(t *testing.T) {
	now := time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC)
	months := LastMonths(now, time.UTC, 3)

	require.Len(t, months, 3)
	assert.Equal(t, "12/2023", months[0].Label)
	assert.Equal(t, "Dezembro 2023", months[0].Name)
	assert.Equal(t, "02/2024", months[2].Label)
	assert.Equal(t, months[1].End, months[2].Start)
}
