package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/draftmill-inc/draftmill-client/pkg/models"
	"github.com/draftmill-inc/draftmill-client/pkg/session"
)

// API is the backend surface the auth manager drives. Both backend kinds
// implement it.
type API interface {
	Login(ctx context.Context, email, password string) (*models.AuthResponse, error)
	Register(ctx context.Context, name, email, password string) (*models.AuthResponse, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*models.User, error)
	RefreshSession(ctx context.Context, refreshToken string) (*models.AuthResponse, error)
}

// State is the observable authentication state.
type State struct {
	User            *models.User
	IsAuthenticated bool
	IsLoading       bool
}

// Manager owns the process-wide authentication state. Components read it
// through Current or Subscribe; only the manager mutates it.
type Manager struct {
	mu          sync.Mutex
	state       State
	subscribers map[int]func(State)
	nextSubID   int
	initialized bool

	api    API
	store  *session.Store
	logger *zap.Logger
}

// NewManager creates an auth manager. State starts as loading until
// Initialize resolves it.
func NewManager(api API, store *session.Store, logger *zap.Logger) *Manager {
	return &Manager{
		state:       State{IsLoading: true},
		subscribers: make(map[int]func(State)),
		api:         api,
		store:       store,
		logger:      logger,
	}
}

// Current returns a copy of the current state.
func (m *Manager) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers fn for state-change notifications and returns an
// unsubscribe function. fn is called synchronously on each change.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

// setState replaces the state and notifies subscribers outside the lock.
func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	subs := make([]func(State), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}

// Initialize restores the session at process start: rehydrates the persisted
// snapshot, then confirms it against the backend. It resolves IsLoading
// exactly once, either with a user or with nil. It runs once per process;
// later re-verification goes through CheckAuth.
func (m *Manager) Initialize(ctx context.Context) {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return
	}
	m.initialized = true
	m.mu.Unlock()

	if m.store.AccessToken() == "" {
		m.setState(State{User: nil, IsAuthenticated: false, IsLoading: false})
		return
	}

	// The snapshot gives an optimistic user while the backend check runs.
	if snap, ok := m.store.LoadSnapshot(); ok && snap.IsAuthenticated {
		m.setState(State{User: snap.User, IsAuthenticated: true, IsLoading: true})
	}

	m.resolveSession(ctx)
}

// CheckAuth re-verifies the session against the backend on demand: an
// expired access token is refreshed first, then the user is fetched and
// state plus snapshot updated. With no stored token it settles to
// unauthenticated without a backend call.
func (m *Manager) CheckAuth(ctx context.Context) error {
	if m.store.AccessToken() == "" {
		m.setState(State{User: nil, IsAuthenticated: false, IsLoading: false})
		return nil
	}
	return m.resolveSession(ctx)
}

// resolveSession confirms the stored session, refreshing first when the
// access token has expired. Any failure clears the session locally.
func (m *Manager) resolveSession(ctx context.Context) error {
	if m.store.TokenExpired(time.Now()) {
		if err := m.refreshSession(ctx); err != nil {
			m.logger.Warn("session refresh failed, clearing session", zap.Error(err))
			m.clearSession()
			return err
		}
	}

	user, err := m.api.CurrentUser(ctx)
	if err != nil {
		m.logger.Warn("session check failed, clearing session", zap.Error(err))
		m.clearSession()
		return err
	}

	m.persistSnapshot(user)
	m.setState(State{User: user, IsAuthenticated: true, IsLoading: false})
	return nil
}

// refreshSession exchanges the stored refresh token for a new token pair.
// Backends that do not rotate refresh tokens answer with an empty one; the
// stored token is kept in that case.
func (m *Manager) refreshSession(ctx context.Context) error {
	refreshToken := m.store.RefreshToken()
	if refreshToken == "" {
		return fmt.Errorf("access token expired and no refresh token is stored")
	}

	resp, err := m.api.RefreshSession(ctx, refreshToken)
	if err != nil {
		return fmt.Errorf("failed to refresh session: %w", err)
	}
	if resp.RefreshToken == "" {
		resp.RefreshToken = refreshToken
	}
	if err := m.store.SetTokens(resp.AccessToken, resp.RefreshToken); err != nil {
		return fmt.Errorf("failed to persist refreshed session: %w", err)
	}

	m.logger.Debug("session refreshed")
	return nil
}

// clearSession drops the stored tokens and settles state to unauthenticated.
func (m *Manager) clearSession() {
	if err := m.store.ClearTokens(); err != nil {
		m.logger.Warn("failed to clear session store", zap.Error(err))
	}
	m.setState(State{User: nil, IsAuthenticated: false, IsLoading: false})
}

// Login exchanges credentials for a session. On failure the prior state is
// left untouched and the error is returned to the caller.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	resp, err := m.api.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := m.store.SetTokens(resp.AccessToken, resp.RefreshToken); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	m.persistSnapshot(&resp.User)
	m.setState(State{User: &resp.User, IsAuthenticated: true, IsLoading: false})

	m.logger.Info("logged in", zap.String("user_id", resp.User.ID.String()))
	return nil
}

// Register creates an account plus session. Inputs are trusted to be
// pre-validated at the form layer (password confirmation included).
func (m *Manager) Register(ctx context.Context, name, email, password string) error {
	resp, err := m.api.Register(ctx, name, email, password)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	if err := m.store.SetTokens(resp.AccessToken, resp.RefreshToken); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	m.persistSnapshot(&resp.User)
	m.setState(State{User: &resp.User, IsAuthenticated: true, IsLoading: false})

	m.logger.Info("registered", zap.String("user_id", resp.User.ID.String()))
	return nil
}

// Logout clears the session. Local state clears unconditionally even if the
// remote call fails - the client must never look logged in after logout.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.api.Logout(ctx); err != nil {
		m.logger.Warn("remote logout failed", zap.Error(err))
	}
	m.clearSession()
}

// OnAuthRejected handles an authentication-rejection response observed
// anywhere in the client: the session is cleared and state forced to
// unauthenticated, which routes the UI back to the login entry point.
func (m *Manager) OnAuthRejected() {
	m.clearSession()
}

func (m *Manager) persistSnapshot(user *models.User) {
	if err := m.store.SaveSnapshot(session.Snapshot{User: user, IsAuthenticated: true}); err != nil {
		m.logger.Warn("failed to persist auth snapshot", zap.Error(err))
	}
}
