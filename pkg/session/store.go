package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/draftmill-inc/draftmill-client/pkg/models"
)

// Storage keys. Access and refresh tokens live under distinct keys; the auth
// snapshot is persisted separately for fast rehydration at startup.
const (
	accessTokenKey  = "access_token"
	refreshTokenKey = "refresh_token"
	snapshotKey     = "auth_snapshot"
)

// Snapshot is the persisted authentication state. It deliberately omits
// isLoading, which is always recomputed at startup.
type Snapshot struct {
	User            *models.User `json:"user"`
	IsAuthenticated bool         `json:"is_authenticated"`
}

// Store is a file-backed key-value store for session state, scoped to the
// profile directory. It survives restarts the way browser local storage
// survives reloads.
type Store struct {
	mu   sync.Mutex
	path string
	data map[string]json.RawMessage
}

// NewStore opens (or creates) the session store under dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session dir: %w", err)
	}

	s := &Store{
		path: filepath.Join(dir, "session.json"),
		data: make(map[string]json.RawMessage),
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	// A corrupt session file degrades to an empty session rather than
	// blocking startup.
	if err := json.Unmarshal(raw, &s.data); err != nil {
		s.data = make(map[string]json.RawMessage)
	}
	return s, nil
}

// flush writes the store atomically (temp file + rename).
func (s *Store) flush() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

func (s *Store) getString(key string) string {
	raw, ok := s.data[key]
	if !ok {
		return ""
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v
}

func (s *Store) setString(key, value string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.data[key] = raw
	return s.flush()
}

// AccessToken returns the stored access token, or empty if none.
func (s *Store) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getString(accessTokenKey)
}

// RefreshToken returns the stored refresh token, or empty if none.
func (s *Store) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getString(refreshTokenKey)
}

// SetTokens stores the token pair.
func (s *Store) SetTokens(accessToken, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if raw, err := json.Marshal(accessToken); err == nil {
		s.data[accessTokenKey] = raw
	}
	if raw, err := json.Marshal(refreshToken); err == nil {
		s.data[refreshTokenKey] = raw
	}
	return s.flush()
}

// ClearTokens removes both tokens and the auth snapshot. Called on logout
// and whenever a request is rejected as unauthenticated.
func (s *Store) ClearTokens() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, accessTokenKey)
	delete(s.data, refreshTokenKey)
	delete(s.data, snapshotKey)
	return s.flush()
}

// SaveSnapshot persists the auth snapshot for fast rehydration.
func (s *Store) SaveSnapshot(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal auth snapshot: %w", err)
	}
	s.data[snapshotKey] = raw
	return s.flush()
}

// LoadSnapshot returns the persisted auth snapshot and whether one exists.
func (s *Store) LoadSnapshot() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.data[snapshotKey]
	if !ok {
		return Snapshot{}, false
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, false
	}
	return snap, true
}

// TokenExpired reports whether the stored access token carries an exp claim
// in the past. The token is not signature-verified here - that is the
// backend's job - this only decides whether a refresh is worth attempting.
// Tokens without an exp claim, or unparseable tokens, report false so the
// backend stays the authority.
func (s *Store) TokenExpired(now time.Time) bool {
	token := s.AccessToken()
	if token == "" {
		return false
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
