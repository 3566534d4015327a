package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evn/attendance_backendl/internal/clockutil"
	"github.com/evn/attendance_backendl/internal/models"
	"github.com/evn/attendance_backendl/internal/qr"
	"github.com/evn/attendance_backendl/internal/untime"
)

type fakeStore struct {
	records map[string]*models.AttendanceRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]*models.AttendanceRecord{}}
}

func key(staffID, date string) string { return staffID + "|" + date }

type fakeTx struct {
	store *fakeStore
	key   string
}

func (t *fakeTx) Record() (*models.AttendanceRecord, error) {
	r, ok := t.store.records[t.key]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (t *fakeTx) Save(rec *models.AttendanceRecord) error {
	cp := *rec
	t.store.records[t.key] = &cp
	return nil
}

func (f *fakeStore) RunLocked(ctx context.Context, staffID, date string, fn func(tx Tx) error) error {
	return fn(&fakeTx{store: f, key: key(staffID, date)})
}

func (f *fakeStore) OpenOn(ctx context.Context, date string) ([]models.AttendanceRecord, error) {
	var out []models.AttendanceRecord
	for _, r := range f.records {
		if r.Date == date && r.Open() {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) ByDate(ctx context.Context, date string) ([]models.AttendanceRecord, error) {
	var out []models.AttendanceRecord
	for _, r := range f.records {
		if r.Date == date {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) ByStaff(ctx context.Context, staffID, fromDate, toDate string) ([]models.AttendanceRecord, error) {
	var out []models.AttendanceRecord
	for _, r := range f.records {
		if r.StaffID == staffID && r.Date >= fromDate && r.Date <= toDate {
			out = append(out, *r)
		}
	}
	return out, nil
}

type fakeAuth struct {
	decision untime.Decision
	err      error
}

func (f *fakeAuth) Evaluate(ctx context.Context, staffID string) (untime.Decision, error) {
	return f.decision, f.err
}

type fakeRedeemer struct{ valid string }

func (f *fakeRedeemer) Redeem(ctx context.Context, code string) (*models.QRSession, error) {
	if code != f.valid {
		return nil, qr.ErrSessionInvalid
	}
	return &models.QRSession{Code: code, Active: true}, nil
}

type fakeResolver struct {
	windows map[string]*models.ShiftWindow
}

func (f *fakeResolver) Resolve(ctx context.Context, staffID string, date time.Time) (*models.ShiftWindow, error) {
	return f.windows[staffID], nil
}

type fixture struct {
	store    *fakeStore
	auth     *fakeAuth
	codes    *fakeRedeemer
	resolver *fakeResolver
	loc      *time.Location
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	loc, err := time.LoadLocation("America/Toronto")
	require.NoError(t, err)
	return &fixture{
		store:    newFakeStore(),
		auth:     &fakeAuth{decision: untime.Decision{Allowed: true}},
		codes:    &fakeRedeemer{valid: "code-1"},
		resolver: &fakeResolver{windows: map[string]*models.ShiftWindow{}},
		loc:      loc,
	}
}

func (fx *fixture) ledgerAt(t *testing.T, hhmm string) *Ledger {
	t.Helper()
	at, err := time.ParseInLocation("2006-01-02 15:04", "2025-03-03 "+hhmm, fx.loc)
	require.NoError(t, err)
	return NewLedger(fx.store, fx.auth, fx.codes, fx.resolver, clockutil.NewFixed(fx.loc, at))
}

func (fx *fixture) nineToFive(staffID string) {
	fx.resolver.windows[staffID] = &models.ShiftWindow{
		Start:         models.LocalTime(9 * 60),
		End:           models.LocalTime(17 * 60),
		MarginMinutes: 30,
		AlertMinutes:  10,
	}
}

func TestMarkRejectsBadCode(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.ledgerAt(t, "09:00").Mark(context.Background(), "s1", "wrong", MarkIn)
	assert.ErrorIs(t, err, qr.ErrSessionInvalid)
	assert.Empty(t, fx.store.records)
}

func TestMarkBlockedByPolicyNeverWrites(t *testing.T) {
	fx := newFixture(t)
	fx.auth.decision = untime.Decision{Reason: models.ReasonOutsideWindow}

	_, err := fx.ledgerAt(t, "08:00").Mark(context.Background(), "s1", "code-1", MarkIn)
	var blocked *untime.BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, models.ReasonOutsideWindow, blocked.Reason)
	assert.Empty(t, fx.store.records)
}

func TestClockInSnapsToShiftStartWithinGrace(t *testing.T) {
	fx := newFixture(t)
	fx.nineToFive("s1")

	rec, err := fx.ledgerAt(t, "09:03").Mark(context.Background(), "s1", "code-1", MarkIn)
	require.NoError(t, err)
	require.NotNil(t, rec.TimeIn)
	assert.Equal(t, "09:00", rec.TimeIn.Format("15:04"))
	assert.Equal(t, "2025-03-03", rec.Date)
}

func TestClockInPastGraceRecordsActualTime(t *testing.T) {
	fx := newFixture(t)
	fx.nineToFive("s1")

	rec, err := fx.ledgerAt(t, "09:07").Mark(context.Background(), "s1", "code-1", MarkIn)
	require.NoError(t, err)
	assert.Equal(t, "09:07", rec.TimeIn.Format("15:04"))
}

func TestDoubleClockIn(t *testing.T) {
	fx := newFixture(t)
	fx.nineToFive("s1")
	ctx := context.Background()

	_, err := fx.ledgerAt(t, "09:00").Mark(ctx, "s1", "code-1", MarkIn)
	require.NoError(t, err)
	_, err = fx.ledgerAt(t, "09:10").Mark(ctx, "s1", "code-1", MarkIn)
	assert.ErrorIs(t, err, ErrAlreadyIn)
}

func TestClockOutGuards(t *testing.T) {
	fx := newFixture(t)
	fx.nineToFive("s1")
	ctx := context.Background()

	_, err := fx.ledgerAt(t, "16:00").Mark(ctx, "s1", "code-1", MarkOut)
	assert.ErrorIs(t, err, ErrNoOpenSession)

	_, err = fx.ledgerAt(t, "09:00").Mark(ctx, "s1", "code-1", MarkIn)
	require.NoError(t, err)

	rec, err := fx.ledgerAt(t, "16:57").Mark(ctx, "s1", "code-1", MarkOut)
	require.NoError(t, err)
	assert.Equal(t, "17:00", rec.TimeOut.Format("15:04"), "early leave inside grace snaps to shift end")

	_, err = fx.ledgerAt(t, "17:10").Mark(ctx, "s1", "code-1", MarkOut)
	assert.ErrorIs(t, err, ErrAlreadyOut)
}

func TestOvertimeOrdering(t *testing.T) {
	fx := newFixture(t)
	fx.nineToFive("s1")
	ctx := context.Background()

	_, err := fx.ledgerAt(t, "09:00").Mark(ctx, "s1", "code-1", MarkIn)
	require.NoError(t, err)

	_, err = fx.ledgerAt(t, "16:00").Mark(ctx, "s1", "code-1", MarkOvertimeIn)
	assert.ErrorIs(t, err, ErrNoOpenSession, "overtime cannot start before the regular shift is closed")

	_, err = fx.ledgerAt(t, "17:00").Mark(ctx, "s1", "code-1", MarkOut)
	require.NoError(t, err)

	rec, err := fx.ledgerAt(t, "17:30").Mark(ctx, "s1", "code-1", MarkOvertimeIn)
	require.NoError(t, err)
	assert.Equal(t, "17:30", rec.OvertimeIn.Format("15:04"))

	_, err = fx.ledgerAt(t, "17:40").Mark(ctx, "s1", "code-1", MarkOvertimeIn)
	assert.ErrorIs(t, err, ErrAlreadyIn)

	rec, err = fx.ledgerAt(t, "19:00").Mark(ctx, "s1", "code-1", MarkOvertimeOut)
	require.NoError(t, err)
	assert.Equal(t, "19:00", rec.OvertimeOut.Format("15:04"))

	_, err = fx.ledgerAt(t, "19:05").Mark(ctx, "s1", "code-1", MarkOvertimeOut)
	assert.ErrorIs(t, err, ErrAlreadyOut)
}

func TestForceCloseOpenToday(t *testing.T) {
	fx := newFixture(t)
	fx.nineToFive("s1")
	fx.nineToFive("s2")
	ctx := context.Background()

	_, err := fx.ledgerAt(t, "09:00").Mark(ctx, "s1", "code-1", MarkIn)
	require.NoError(t, err)
	_, err = fx.ledgerAt(t, "09:00").Mark(ctx, "s2", "code-1", MarkIn)
	require.NoError(t, err)
	_, err = fx.ledgerAt(t, "17:00").Mark(ctx, "s2", "code-1", MarkOut)
	require.NoError(t, err)

	closed, err := fx.ledgerAt(t, "17:35").ForceCloseOpenToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, closed)

	rec := fx.store.records[key("s1", "2025-03-03")]
	require.NotNil(t, rec.TimeOut)
	assert.Equal(t, "17:00", rec.TimeOut.Format("15:04"), "forced close stamps the nominal shift end")
	assert.True(t, rec.IsForcedOut)

	rec = fx.store.records[key("s2", "2025-03-03")]
	assert.False(t, rec.IsForcedOut, "already closed rows stay untouched")
}

func TestForceCloseIsIdempotent(t *testing.T) {
	fx := newFixture(t)
	fx.nineToFive("s1")
	ctx := context.Background()

	_, err := fx.ledgerAt(t, "09:00").Mark(ctx, "s1", "code-1", MarkIn)
	require.NoError(t, err)

	_, err = fx.ledgerAt(t, "17:35").ForceCloseOpenToday(ctx)
	require.NoError(t, err)
	closed, err := fx.ledgerAt(t, "17:36").ForceCloseOpenToday(ctx)
	require.NoError(t, err)
	assert.Empty(t, closed)
}

func TestUpdateTimesStampsEditor(t *testing.T) {
	fx := newFixture(t)
	fx.nineToFive("s1")
	ctx := context.Background()

	_, err := fx.ledgerAt(t, "09:00").Mark(ctx, "s1", "code-1", MarkIn)
	require.NoError(t, err)

	in := time.Date(2025, 3, 3, 8, 30, 0, 0, fx.loc)
	out := time.Date(2025, 3, 3, 16, 30, 0, 0, fx.loc)
	rec, err := fx.ledgerAt(t, "18:00").UpdateTimes(ctx, "s1", "2025-03-03", &in, &out, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "admin-1", rec.UpdatedBy)
	require.NotNil(t, rec.UpdatedAt)
	assert.Equal(t, "08:30", rec.TimeIn.Format("15:04"))

	_, err = fx.ledgerAt(t, "18:00").UpdateTimes(ctx, "s1", "2025-03-04", &in, &out, "admin-1")
	assert.ErrorIs(t, err, ErrNoOpenSession)
}

func TestUpdateTimesRejectsInvertedPair(t *testing.T) {
	fx := newFixture(t)
	fx.nineToFive("s1")
	ctx := context.Background()

	_, err := fx.ledgerAt(t, "09:00").Mark(ctx, "s1", "code-1", MarkIn)
	require.NoError(t, err)

	in := time.Date(2025, 3, 3, 16, 0, 0, 0, fx.loc)
	out := time.Date(2025, 3, 3, 9, 0, 0, 0, fx.loc)
	_, err = fx.ledgerAt(t, "18:00").UpdateTimes(ctx, "s1", "2025-03-03", &in, &out, "admin-1")
	assert.ErrorIs(t, err, ErrInvalidTimes)

	_, err = fx.ledgerAt(t, "18:00").UpdateTimes(ctx, "s1", "2025-03-03", &in, &in, "admin-1")
	assert.ErrorIs(t, err, ErrInvalidTimes, "equal timestamps are not a valid session")

	rec := fx.store.records[key("s1", "2025-03-03")]
	assert.Equal(t, "09:00", rec.TimeIn.Format("15:04"), "rejected edit leaves the row untouched")
	assert.Nil(t, rec.TimeOut)
	assert.Empty(t, rec.UpdatedBy)
}
