package leave

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evn/attendance_backendl/internal/clockutil"
	"github.com/evn/attendance_backendl/internal/models"
)

type fakeStore struct {
	requests    map[string]*models.LeaveRequest
	balance     int
	entitlement int
}

func newFakeStore(balance, entitlement int) *fakeStore {
	return &fakeStore{
		requests:    map[string]*models.LeaveRequest{},
		balance:     balance,
		entitlement: entitlement,
	}
}

func (f *fakeStore) Insert(ctx context.Context, req *models.LeaveRequest) error {
	cp := *req
	f.requests[req.ID] = &cp
	return nil
}

func (f *fakeStore) List(ctx context.Context) ([]models.LeaveRequest, error) {
	var out []models.LeaveRequest
	for _, r := range f.requests {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeStore) ApprovedOn(ctx context.Context, staffID, date string) (bool, error) {
	for _, r := range f.requests {
		if r.StaffID == staffID && r.Status == models.LeaveApproved && r.Covers(date) {
			return true, nil
		}
	}
	return false, nil
}

type fakeTx struct {
	store *fakeStore
	id    string
}

func (t *fakeTx) Request() (*models.LeaveRequest, error) {
	r, ok := t.store.requests[t.id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (t *fakeTx) SetStatus(status models.LeaveStatus) error {
	t.store.requests[t.id].Status = status
	return nil
}

func (t *fakeTx) Balance() (int, int, error) {
	return t.store.balance, t.store.entitlement, nil
}

func (t *fakeTx) SetBalance(balance int) error {
	t.store.balance = balance
	return nil
}

func (t *fakeTx) Delete() error {
	delete(t.store.requests, t.id)
	return nil
}

func (f *fakeStore) RunLocked(ctx context.Context, requestID string, fn func(tx Tx) error) error {
	return fn(&fakeTx{store: f, id: requestID})
}

func newRegistry(t *testing.T, store *fakeStore, today string) *Registry {
	t.Helper()
	loc, err := time.LoadLocation("America/Toronto")
	require.NoError(t, err)
	day, err := time.ParseInLocation("2006-01-02", today, loc)
	require.NoError(t, err)
	return NewRegistry(store, clockutil.NewFixed(loc, day.Add(9*time.Hour)))
}

func TestApproveDeductsInclusiveDays(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(10, 15)
	reg := newRegistry(t, store, "2025-03-01")

	req, err := reg.Request(ctx, "s1", "2025-03-10", "2025-03-12", "trip")
	require.NoError(t, err)

	require.NoError(t, reg.Approve(ctx, req.ID))
	assert.Equal(t, 7, store.balance, "3 inclusive days deducted")
	assert.Equal(t, models.LeaveApproved, store.requests[req.ID].Status)

	on, err := reg.OnLeave(ctx, "s1", "2025-03-11")
	require.NoError(t, err)
	assert.True(t, on)
	on, err = reg.OnLeave(ctx, "s1", "2025-03-13")
	require.NoError(t, err)
	assert.False(t, on)
}

func TestApproveRejectsWhenBalanceExceeded(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(2, 15)
	reg := newRegistry(t, store, "2025-03-01")

	req, err := reg.Request(ctx, "s1", "2025-03-10", "2025-03-14", "trip")
	require.NoError(t, err)

	err = reg.Approve(ctx, req.ID)
	assert.ErrorIs(t, err, ErrBalanceExceeded)
	assert.Equal(t, 2, store.balance, "no partial deduction")
	assert.Equal(t, models.LeavePending, store.requests[req.ID].Status)
}

func TestApproveTwiceFails(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(10, 15)
	reg := newRegistry(t, store, "2025-03-01")

	req, err := reg.Request(ctx, "s1", "2025-03-10", "2025-03-10", "")
	require.NoError(t, err)
	require.NoError(t, reg.Approve(ctx, req.ID))

	err = reg.Approve(ctx, req.ID)
	assert.ErrorIs(t, err, ErrNotPending)
	assert.Equal(t, 9, store.balance, "no double deduction")
}

func TestDeleteBeforeStartRestoresBalance(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(10, 10)
	reg := newRegistry(t, store, "2025-03-01")

	req, err := reg.Request(ctx, "s1", "2025-03-10", "2025-03-11", "")
	require.NoError(t, err)
	require.NoError(t, reg.Approve(ctx, req.ID))
	assert.Equal(t, 8, store.balance)

	require.NoError(t, reg.Delete(ctx, req.ID))
	assert.Equal(t, 10, store.balance)
	assert.NotContains(t, store.requests, req.ID)
}

func TestDeleteAfterStartKeepsDeduction(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(10, 10)
	reg := newRegistry(t, store, "2025-03-01")

	req, err := reg.Request(ctx, "s1", "2025-03-10", "2025-03-11", "")
	require.NoError(t, err)
	require.NoError(t, reg.Approve(ctx, req.ID))

	late := newRegistry(t, store, "2025-03-10")
	require.NoError(t, late.Delete(ctx, req.ID))
	assert.Equal(t, 8, store.balance, "started leave keeps its deduction")
}

func TestRestoreIsCappedAtEntitlement(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(10, 10)
	reg := newRegistry(t, store, "2025-03-01")

	req, err := reg.Request(ctx, "s1", "2025-03-10", "2025-03-11", "")
	require.NoError(t, err)
	require.NoError(t, reg.Approve(ctx, req.ID))

	// Balance drifted upward out of band; restore must not exceed entitlement.
	store.balance = 9
	require.NoError(t, reg.Delete(ctx, req.ID))
	assert.Equal(t, 10, store.balance)
}
