package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evn/attendance_backendl/internal/models"
)

type fakeStore struct {
	weekly map[string]models.WeeklySchedule
	global *models.GlobalSchedule
}

func newFakeStore() *fakeStore {
	return &fakeStore{weekly: map[string]models.WeeklySchedule{}}
}

func (f *fakeStore) Weekly(ctx context.Context, staffID string) (models.WeeklySchedule, error) {
	return f.weekly[staffID], nil
}

func (f *fakeStore) SaveWeekly(ctx context.Context, staffID string, ws models.WeeklySchedule) error {
	f.weekly[staffID] = ws
	return nil
}

func (f *fakeStore) AllWeekly(ctx context.Context) (map[string]models.WeeklySchedule, error) {
	return f.weekly, nil
}

func (f *fakeStore) Global(ctx context.Context) (*models.GlobalSchedule, error) {
	return f.global, nil
}

func (f *fakeStore) SaveGlobal(ctx context.Context, g *models.GlobalSchedule) error {
	f.global = g
	return nil
}

func lt(t *testing.T, s string) models.LocalTime {
	t.Helper()
	v, err := models.ParseLocalTime(s)
	require.NoError(t, err)
	return v
}

func shift(t *testing.T, start, end string) *models.DayShift {
	t.Helper()
	s, err := models.NewDayShift(lt(t, start), lt(t, end))
	require.NoError(t, err)
	return s
}

func TestResolveDayOffHasNoFallback(t *testing.T) {
	store := newFakeStore()
	store.global = &models.GlobalSchedule{Start: lt(t, "08:00"), End: lt(t, "18:00"), MarginMinutes: 30, AlertMinutes: 10}
	store.weekly["s1"] = models.WeeklySchedule{
		time.Monday: shift(t, "09:00", "17:00"),
	}
	r := NewResolver(store)

	monday := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC) // a Monday
	win, err := r.Resolve(context.Background(), "s1", monday)
	require.NoError(t, err)
	require.NotNil(t, win)
	assert.Equal(t, "09:00", win.Start.String())
	assert.Equal(t, "17:00", win.End.String())
	assert.Equal(t, 30, win.MarginMinutes)
	assert.Equal(t, 10, win.AlertMinutes)

	tuesday := monday.AddDate(0, 0, 1)
	win, err = r.Resolve(context.Background(), "s1", tuesday)
	require.NoError(t, err)
	assert.Nil(t, win, "day off must not fall back to the global schedule")
}

func TestSetWeeklyRejectsWindowOutsideGlobal(t *testing.T) {
	store := newFakeStore()
	store.global = &models.GlobalSchedule{Start: lt(t, "09:00"), End: lt(t, "17:00")}
	r := NewResolver(store)

	err := r.SetWeekly(context.Background(), "s1", models.WeeklySchedule{
		time.Monday: shift(t, "08:00", "16:00"),
	})
	var oge *OutsideGlobalError
	require.ErrorAs(t, err, &oge)
	assert.Equal(t, time.Monday, oge.Day)
	assert.Empty(t, store.weekly["s1"], "nothing applied on rejection")
}

func TestUpdateGlobalRejectedWhenStrandingStaffWindow(t *testing.T) {
	store := newFakeStore()
	store.global = &models.GlobalSchedule{Start: lt(t, "08:00"), End: lt(t, "18:00")}
	store.weekly["s1"] = models.WeeklySchedule{time.Friday: shift(t, "08:30", "16:30")}
	r := NewResolver(store)

	err := r.UpdateGlobal(context.Background(), &models.GlobalSchedule{
		Start: lt(t, "09:00"), End: lt(t, "18:00"), MarginMinutes: 30, AlertMinutes: 10,
	})
	var oge *OutsideGlobalError
	require.ErrorAs(t, err, &oge)
	assert.Equal(t, "s1", oge.StaffID)
	assert.Equal(t, "08:00", store.global.Start.String(), "update must not be applied")
}

func TestInsideGlobalOvernightSegments(t *testing.T) {
	g := func(s, e string) (models.LocalTime, models.LocalTime) {
		return lt(t, s), lt(t, e)
	}
	gs, ge := g("22:00", "06:00")

	// Late segment.
	assert.True(t, insideGlobal(gs, ge, lt(t, "22:30"), lt(t, "23:30")))
	// Early segment.
	assert.True(t, insideGlobal(gs, ge, lt(t, "01:00"), lt(t, "05:00")))
	// Crosses midnight itself: not allowed.
	assert.False(t, insideGlobal(gs, ge, lt(t, "23:00"), lt(t, "01:00")))
	// Outside both segments.
	assert.False(t, insideGlobal(gs, ge, lt(t, "12:00"), lt(t, "13:00")))
}
