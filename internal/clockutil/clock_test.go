package clockutil

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evn/attendance_backendl/internal/models"
)

func toronto(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Toronto")
	require.NoError(t, err)
	return loc
}

func mustShift(t *testing.T, start, end string) models.DayShift {
	t.Helper()
	s, err := models.ParseLocalTime(start)
	require.NoError(t, err)
	e, err := models.ParseLocalTime(end)
	require.NoError(t, err)
	return models.DayShift{Start: s, End: e}
}

func TestWindowAppliesMarginBothSides(t *testing.T) {
	loc := toronto(t)
	day := time.Date(2025, 3, 3, 12, 0, 0, 0, loc)
	c := NewFixed(loc, day)

	start, end := c.Window(day, mustShift(t, "09:00", "17:00"), 30)
	assert.Equal(t, time.Date(2025, 3, 3, 8, 30, 0, 0, loc), start)
	assert.Equal(t, time.Date(2025, 3, 3, 17, 30, 0, 0, loc), end)
}

func TestWindowOvernightShiftEndsNextDay(t *testing.T) {
	loc := toronto(t)
	day := time.Date(2025, 3, 3, 23, 0, 0, 0, loc)
	c := NewFixed(loc, day)

	start, end := c.Window(day, models.DayShift{
		Start: models.LocalTime(22 * 60),
		End:   models.LocalTime(6 * 60),
	}, 30)
	assert.Equal(t, time.Date(2025, 3, 3, 21, 30, 0, 0, loc), start)
	assert.Equal(t, time.Date(2025, 3, 4, 6, 30, 0, 0, loc), end)
	assert.True(t, end.After(start))
}

func TestContainsIsHalfOpen(t *testing.T) {
	loc := toronto(t)
	start := time.Date(2025, 3, 3, 8, 30, 0, 0, loc)
	end := time.Date(2025, 3, 3, 17, 30, 0, 0, loc)

	assert.True(t, Contains(start, start, end))
	assert.True(t, Contains(end.Add(-time.Second), start, end))
	assert.False(t, Contains(end, start, end))
	assert.False(t, Contains(start.Add(-time.Second), start, end))
}

// Property: for random day shifts and margins, an instant is inside the
// built window iff it is within [start-margin, end+margin) by raw minute
// arithmetic.
func TestWindowContainmentProperty(t *testing.T) {
	loc := toronto(t)
	rng := rand.New(rand.NewSource(42))
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, loc)
	c := NewFixed(loc, day)

	for i := 0; i < 500; i++ {
		startMin := rng.Intn(20 * 60)
		endMin := startMin + 1 + rng.Intn(23*60-startMin)
		margin := rng.Intn(60)
		shift := models.DayShift{
			Start: models.LocalTime(startMin),
			End:   models.LocalTime(endMin),
		}

		ws, we := c.Window(day, shift, margin)
		probe := day.Add(time.Duration(rng.Intn(24*60)) * time.Minute)

		wantStart := day.Add(time.Duration(startMin-margin) * time.Minute)
		wantEnd := day.Add(time.Duration(endMin+margin) * time.Minute)
		want := !probe.Before(wantStart) && probe.Before(wantEnd)

		assert.Equal(t, wantStart, ws)
		assert.Equal(t, wantEnd, we)
		assert.Equal(t, want, Contains(probe, ws, we),
			"shift %s-%s margin %d probe %s", shift.Start, shift.End, margin, probe)
	}
}

func TestDateOfUsesOrganizationTimezone(t *testing.T) {
	loc := toronto(t)
	c := New(loc)

	// 02:30 UTC on the 4th is still the 3rd in Toronto.
	utc := time.Date(2025, 3, 4, 2, 30, 0, 0, time.UTC)
	assert.Equal(t, "2025-03-03", c.DateOf(utc))
}
