package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evn/attendance_backendl/internal/auth"
	"github.com/evn/attendance_backendl/internal/models"
	"github.com/evn/attendance_backendl/internal/untime"
)

type fakeDirectory struct {
	staff map[string]*models.Staff
}

func (f *fakeDirectory) ByUsername(ctx context.Context, username string) (*models.Staff, error) {
	return f.staff[username], nil
}

type fakeSessions struct {
	loggedIn []string
	revoked  []string
}

func (f *fakeSessions) MarkLoggedIn(ctx context.Context, staffID string) error {
	f.loggedIn = append(f.loggedIn, staffID)
	return nil
}

func (f *fakeSessions) Revoke(ctx context.Context, staffIDs ...string) error {
	f.revoked = append(f.revoked, staffIDs...)
	return nil
}

type fakePolicy struct {
	decision untime.Decision
	err      error
	calls    int
}

func (f *fakePolicy) Evaluate(ctx context.Context, staffID string) (untime.Decision, error) {
	f.calls++
	return f.decision, f.err
}

type authFixture struct {
	directory *fakeDirectory
	sessions  *fakeSessions
	policy    *fakePolicy
	handler   *AuthHandler
}

func newAuthFixture() *authFixture {
	fx := &authFixture{
		directory: &fakeDirectory{staff: map[string]*models.Staff{}},
		sessions:  &fakeSessions{},
		policy:    &fakePolicy{decision: untime.Decision{Allowed: true}},
	}
	fx.handler = NewAuthHandler(fx.directory, auth.NewJWTService("test-secret"), fx.sessions, fx.policy)
	return fx
}

func (fx *authFixture) login(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	fx.handler.Login(rec, req)
	return rec
}

func TestLoginUnknownStaff(t *testing.T) {
	fx := newAuthFixture()
	rec := fx.login(t, `{"username":"ghost"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, fx.sessions.loggedIn)
}

func TestLoginIssuesTokenAndEvaluatesPolicy(t *testing.T) {
	fx := newAuthFixture()
	fx.directory.staff["alice"] = &models.Staff{ID: "s1", Username: "alice", Role: "staff"}

	rec := fx.login(t, `{"username":"alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, 1, fx.policy.calls)
	assert.Equal(t, []string{"s1"}, fx.sessions.loggedIn)
}

func TestLoginOffScheduleStillLogsIn(t *testing.T) {
	fx := newAuthFixture()
	fx.directory.staff["alice"] = &models.Staff{ID: "s1", Username: "alice", Role: "staff"}
	fx.policy.decision = untime.Decision{Reason: models.ReasonOutsideWindow}

	// A blocking decision opens an exception as a side effect of Evaluate but
	// does not refuse the login; the client sees the exception state.
	rec := fx.login(t, `{"username":"alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fx.policy.calls)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	decision, ok := body["decision"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, decision["Allowed"])
}

func TestLoginBlockedAccount(t *testing.T) {
	fx := newAuthFixture()
	fx.directory.staff["alice"] = &models.Staff{ID: "s1", Username: "alice", IsBlocked: true}

	rec := fx.login(t, `{"username":"alice"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, fx.policy.calls)
	assert.Empty(t, fx.sessions.loggedIn)
}

func TestLoginBlockedByEngine(t *testing.T) {
	fx := newAuthFixture()
	fx.directory.staff["alice"] = &models.Staff{ID: "s1", Username: "alice"}
	fx.policy.err = untime.ErrStaffBlocked

	rec := fx.login(t, `{"username":"alice"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, fx.sessions.loggedIn)
}
