package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/draftmill-inc/draftmill-client/pkg/models"
	"github.com/draftmill-inc/draftmill-client/pkg/session"
)

// mockAPI is a configurable mock for testing the auth manager.
type mockAPI struct {
	loginResp    *models.AuthResponse
	registerResp *models.AuthResponse
	refreshResp  *models.AuthResponse
	currentUser  *models.User
	loginErr     error
	registerErr  error
	logoutErr    error
	currentErr   error
	refreshErr   error

	// Capture inputs for verification
	capturedEmail        string
	capturedPassword     string
	capturedName         string
	capturedRefreshToken string
	logoutCalls          int
	currentUserCalls     int
	refreshCalls         int
}

func (m *mockAPI) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	m.capturedEmail = email
	m.capturedPassword = password
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return m.loginResp, nil
}

func (m *mockAPI) Register(ctx context.Context, name, email, password string) (*models.AuthResponse, error) {
	m.capturedName = name
	m.capturedEmail = email
	m.capturedPassword = password
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	return m.registerResp, nil
}

func (m *mockAPI) Logout(ctx context.Context) error {
	m.logoutCalls++
	return m.logoutErr
}

func (m *mockAPI) CurrentUser(ctx context.Context) (*models.User, error) {
	m.currentUserCalls++
	if m.currentErr != nil {
		return nil, m.currentErr
	}
	return m.currentUser, nil
}

func (m *mockAPI) RefreshSession(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	m.refreshCalls++
	m.capturedRefreshToken = refreshToken
	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	return m.refreshResp, nil
}

func newTestStore(t *testing.T) *session.Store {
	t.Helper()
	store, err := session.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func testUser() *models.User {
	return &models.User{ID: uuid.New(), Email: "ada@example.com", Name: "Ada"}
}

func authResponse(user *models.User) *models.AuthResponse {
	return &models.AuthResponse{AccessToken: "access", RefreshToken: "refresh", User: *user}
}

func TestManager_StartsLoading(t *testing.T) {
	m := NewManager(&mockAPI{}, newTestStore(t), zap.NewNop())
	if !m.Current().IsLoading {
		t.Error("state should start as loading")
	}
}

func TestManager_Initialize_NoToken(t *testing.T) {
	api := &mockAPI{}
	m := NewManager(api, newTestStore(t), zap.NewNop())

	m.Initialize(context.Background())

	state := m.Current()
	if state.IsLoading || state.IsAuthenticated || state.User != nil {
		t.Errorf("expected resolved unauthenticated state, got %+v", state)
	}
	if api.currentUserCalls != 0 {
		t.Error("no backend call should happen without a stored token")
	}
}

func TestManager_Initialize_ValidSession(t *testing.T) {
	user := testUser()
	store := newTestStore(t)
	if err := store.SetTokens("access", "refresh"); err != nil {
		t.Fatal(err)
	}
	api := &mockAPI{currentUser: user}
	m := NewManager(api, store, zap.NewNop())

	m.Initialize(context.Background())

	state := m.Current()
	if !state.IsAuthenticated || state.IsLoading {
		t.Errorf("expected authenticated resolved state, got %+v", state)
	}
	if state.User == nil || state.User.ID != user.ID {
		t.Error("backend-confirmed user should be in state")
	}
	if snap, ok := store.LoadSnapshot(); !ok || !snap.IsAuthenticated {
		t.Error("confirmed session should persist a snapshot")
	}
}

func TestManager_Initialize_SnapshotRehydratedBeforeConfirmation(t *testing.T) {
	user := testUser()
	store := newTestStore(t)
	if err := store.SetTokens("access", "refresh"); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveSnapshot(session.Snapshot{User: user, IsAuthenticated: true}); err != nil {
		t.Fatal(err)
	}
	m := NewManager(&mockAPI{currentUser: user}, store, zap.NewNop())

	var observed []State
	m.Subscribe(func(s State) { observed = append(observed, s) })

	m.Initialize(context.Background())

	if len(observed) < 2 {
		t.Fatalf("expected optimistic then confirmed state, got %d changes", len(observed))
	}
	first := observed[0]
	if !first.IsAuthenticated || !first.IsLoading {
		t.Errorf("first state should be optimistic and still loading, got %+v", first)
	}
	last := observed[len(observed)-1]
	if !last.IsAuthenticated || last.IsLoading {
		t.Errorf("final state should be confirmed and resolved, got %+v", last)
	}
}

func TestManager_Initialize_InvalidTokenClearsSession(t *testing.T) {
	store := newTestStore(t)
	if err := store.SetTokens("stale", "stale"); err != nil {
		t.Fatal(err)
	}
	api := &mockAPI{currentErr: errors.New("401")}
	m := NewManager(api, store, zap.NewNop())

	m.Initialize(context.Background())

	state := m.Current()
	if state.IsAuthenticated || state.IsLoading {
		t.Errorf("expected cleared state, got %+v", state)
	}
	if store.AccessToken() != "" {
		t.Error("stale tokens should be cleared")
	}
}

func TestManager_Initialize_RunsOnce(t *testing.T) {
	store := newTestStore(t)
	if err := store.SetTokens("access", "refresh"); err != nil {
		t.Fatal(err)
	}
	api := &mockAPI{currentUser: testUser()}
	m := NewManager(api, store, zap.NewNop())

	m.Initialize(context.Background())
	m.Initialize(context.Background())

	if api.currentUserCalls != 1 {
		t.Errorf("expected one session check, got %d", api.currentUserCalls)
	}
}

func expiredToken(t *testing.T) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(-time.Hour).Unix()}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-key"))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func TestManager_Initialize_ExpiredTokenRefreshes(t *testing.T) {
	user := testUser()
	store := newTestStore(t)
	if err := store.SetTokens(expiredToken(t), "old-refresh"); err != nil {
		t.Fatal(err)
	}
	api := &mockAPI{
		refreshResp: &models.AuthResponse{AccessToken: "new-access", RefreshToken: "new-refresh", User: *user},
		currentUser: user,
	}
	m := NewManager(api, store, zap.NewNop())

	m.Initialize(context.Background())

	if api.refreshCalls != 1 || api.capturedRefreshToken != "old-refresh" {
		t.Errorf("expected one refresh with the stored token, got %d calls with %q",
			api.refreshCalls, api.capturedRefreshToken)
	}
	if store.AccessToken() != "new-access" || store.RefreshToken() != "new-refresh" {
		t.Error("refreshed token pair should be persisted")
	}
	if !m.Current().IsAuthenticated {
		t.Errorf("expected authenticated state after refresh, got %+v", m.Current())
	}
}

func TestManager_Initialize_RefreshFailureClearsSession(t *testing.T) {
	store := newTestStore(t)
	if err := store.SetTokens(expiredToken(t), "old-refresh"); err != nil {
		t.Fatal(err)
	}
	api := &mockAPI{refreshErr: errors.New("refresh token revoked")}
	m := NewManager(api, store, zap.NewNop())

	m.Initialize(context.Background())

	if api.currentUserCalls != 0 {
		t.Error("session check should not run after a failed refresh")
	}
	if store.AccessToken() != "" {
		t.Error("failed refresh should clear stored tokens")
	}
	if state := m.Current(); state.IsAuthenticated || state.IsLoading {
		t.Errorf("expected cleared state, got %+v", state)
	}
}

func TestManager_RefreshKeepsStoredTokenWhenNotRotated(t *testing.T) {
	user := testUser()
	store := newTestStore(t)
	if err := store.SetTokens(expiredToken(t), "stable-refresh"); err != nil {
		t.Fatal(err)
	}
	api := &mockAPI{
		refreshResp: &models.AuthResponse{AccessToken: "new-access", User: *user},
		currentUser: user,
	}
	m := NewManager(api, store, zap.NewNop())

	m.Initialize(context.Background())

	if store.RefreshToken() != "stable-refresh" {
		t.Errorf("non-rotating backend should keep the stored refresh token, got %q", store.RefreshToken())
	}
}

func TestManager_CheckAuth_NoToken(t *testing.T) {
	api := &mockAPI{}
	m := NewManager(api, newTestStore(t), zap.NewNop())

	if err := m.CheckAuth(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if api.currentUserCalls != 0 || api.refreshCalls != 0 {
		t.Error("no backend call should happen without a stored token")
	}
	if state := m.Current(); state.IsAuthenticated || state.IsLoading {
		t.Errorf("expected resolved unauthenticated state, got %+v", state)
	}
}

func TestManager_CheckAuth_RevalidatesSession(t *testing.T) {
	user := testUser()
	store := newTestStore(t)
	if err := store.SetTokens("access", "refresh"); err != nil {
		t.Fatal(err)
	}
	api := &mockAPI{currentUser: user}
	m := NewManager(api, store, zap.NewNop())
	m.Initialize(context.Background())

	// The backend starts rejecting the session after startup.
	api.currentErr = errors.New("401")
	if err := m.CheckAuth(context.Background()); err == nil {
		t.Fatal("expected error from a rejected session check")
	}

	if api.currentUserCalls != 2 {
		t.Errorf("expected a second session check, got %d", api.currentUserCalls)
	}
	if api.refreshCalls != 0 {
		t.Error("opaque token should not trigger a refresh attempt")
	}
	if store.AccessToken() != "" {
		t.Error("rejected session should be cleared")
	}
	if state := m.Current(); state.IsAuthenticated {
		t.Errorf("expected cleared state, got %+v", state)
	}
}

func TestManager_Login_Success(t *testing.T) {
	user := testUser()
	store := newTestStore(t)
	api := &mockAPI{loginResp: authResponse(user)}
	m := NewManager(api, store, zap.NewNop())

	if err := m.Login(context.Background(), "ada@example.com", "secret"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if api.capturedEmail != "ada@example.com" || api.capturedPassword != "secret" {
		t.Error("credentials not forwarded")
	}
	if store.AccessToken() != "access" || store.RefreshToken() != "refresh" {
		t.Error("token pair not persisted")
	}
	state := m.Current()
	if !state.IsAuthenticated || state.User == nil || state.User.ID != user.ID {
		t.Errorf("expected authenticated state, got %+v", state)
	}
}

func TestManager_Login_FailureLeavesStateUntouched(t *testing.T) {
	store := newTestStore(t)
	api := &mockAPI{loginErr: errors.New("bad credentials")}
	m := NewManager(api, store, zap.NewNop())
	m.Initialize(context.Background())
	before := m.Current()

	if err := m.Login(context.Background(), "ada@example.com", "wrong"); err == nil {
		t.Fatal("expected error")
	}

	if m.Current() != before {
		t.Error("failed login must not change state")
	}
	if store.AccessToken() != "" {
		t.Error("failed login must not persist tokens")
	}
}

func TestManager_Register_Success(t *testing.T) {
	user := testUser()
	api := &mockAPI{registerResp: authResponse(user)}
	m := NewManager(api, newTestStore(t), zap.NewNop())

	if err := m.Register(context.Background(), "Ada", "ada@example.com", "secret"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if api.capturedName != "Ada" {
		t.Error("name not forwarded")
	}
	if !m.Current().IsAuthenticated {
		t.Error("registration should authenticate immediately")
	}
}

func TestManager_Logout_ClearsLocalStateEvenOnRemoteFailure(t *testing.T) {
	user := testUser()
	store := newTestStore(t)
	api := &mockAPI{loginResp: authResponse(user), logoutErr: errors.New("backend down")}
	m := NewManager(api, store, zap.NewNop())
	if err := m.Login(context.Background(), "ada@example.com", "secret"); err != nil {
		t.Fatal(err)
	}

	m.Logout(context.Background())

	state := m.Current()
	if state.IsAuthenticated || state.User != nil {
		t.Errorf("logout must clear state unconditionally, got %+v", state)
	}
	if store.AccessToken() != "" {
		t.Error("logout must clear stored tokens")
	}
	if api.logoutCalls != 1 {
		t.Error("remote logout should still be attempted")
	}
}

func TestManager_OnAuthRejected(t *testing.T) {
	user := testUser()
	store := newTestStore(t)
	api := &mockAPI{loginResp: authResponse(user)}
	m := NewManager(api, store, zap.NewNop())
	if err := m.Login(context.Background(), "ada@example.com", "secret"); err != nil {
		t.Fatal(err)
	}

	var notified []State
	m.Subscribe(func(s State) { notified = append(notified, s) })

	m.OnAuthRejected()

	if store.AccessToken() != "" {
		t.Error("auth rejection must clear stored tokens")
	}
	state := m.Current()
	if state.IsAuthenticated || state.User != nil {
		t.Errorf("auth rejection must reset state, got %+v", state)
	}
	if len(notified) == 0 {
		t.Error("subscribers should observe the reset")
	}
}

func TestManager_Subscribe_Unsubscribe(t *testing.T) {
	m := NewManager(&mockAPI{}, newTestStore(t), zap.NewNop())

	calls := 0
	unsub := m.Subscribe(func(State) { calls++ })
	m.OnAuthRejected()
	if calls != 1 {
		t.Fatalf("expected 1 notification, got %d", calls)
	}

	unsub()
	m.OnAuthRejected()
	if calls != 1 {
		t.Errorf("unsubscribed observer still notified, calls=%d", calls)
	}
}
