package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/muwahhidun/durus/internal/domain"
)

// Manager owns the persisted token pair and serves as the API client's
// token source. It never validates token signatures; only the server can.
// It inspects the unverified "type" claim to catch swapped tokens before
// they hit the wire.
type Manager struct {
	mu     sync.Mutex
	store  domain.Store
	auth   domain.AuthRepository
	logger *slog.Logger
	tokens domain.TokenPair
	loaded bool
}

func NewManager(store domain.Store, auth domain.AuthRepository, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:  store,
		auth:   auth,
		logger: logger,
	}
}

// IsLoggedIn reports whether a persisted token pair exists.
func (m *Manager) IsLoggedIn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadLocked()
	return m.tokens.AccessToken != "" && m.tokens.RefreshToken != ""
}

// AccessToken returns the current access token, or "" when logged out.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadLocked()
	return m.tokens.AccessToken
}

func (m *Manager) loadLocked() {
	if m.loaded {
		return
	}
	m.loaded = true
	if pair, ok := m.store.GetTokens(); ok {
		m.tokens = pair
	}
}

// Login exchanges credentials for a token pair and persists it. The login
// field accepts a username or an email address.
func (m *Manager) Login(ctx context.Context, loginOrEmail, password string) error {
	pair, err := m.auth.Login(ctx, loginOrEmail, password)
	if err != nil {
		return err
	}
	return m.adopt(pair)
}

// Register creates an account and logs in with the returned pair.
func (m *Manager) Register(ctx context.Context, email, password string) error {
	pair, err := m.auth.Register(ctx, email, password)
	if err != nil {
		return err
	}
	return m.adopt(pair)
}

// adopt validates and persists a fresh token pair.
func (m *Manager) adopt(pair domain.TokenPair) error {
	if err := checkTokenType(pair.AccessToken, "access"); err != nil {
		return err
	}
	if err := checkTokenType(pair.RefreshToken, "refresh"); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = pair
	m.loaded = true
	if err := m.store.SaveTokens(pair); err != nil {
		m.logger.Warn("failed to persist tokens", "error", err)
	}
	return nil
}

// RefreshAccess exchanges the refresh token for a new access token and
// persists the updated pair. Called by the API client after a 401; a
// failure here means the session is dead.
func (m *Manager) RefreshAccess(ctx context.Context) (string, error) {
	m.mu.Lock()
	m.loadLocked()
	refresh := m.tokens.RefreshToken
	m.mu.Unlock()

	if refresh == "" {
		return "", domain.ErrNotLoggedIn
	}

	access, err := m.auth.Refresh(ctx, refresh)
	if err != nil {
		return "", err
	}
	if err := checkTokenType(access, "access"); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.tokens.AccessToken = access
	if serr := m.store.SaveTokens(m.tokens); serr != nil {
		m.logger.Warn("failed to persist refreshed token", "error", serr)
	}
	m.mu.Unlock()

	m.logger.Debug("access token refreshed")
	return access, nil
}

// Logout drops the persisted tokens. Cached content stays; the catalog is
// public and downloads live on disk.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = domain.TokenPair{}
	m.loaded = true
	m.store.ClearTokens()
	m.logger.Info("logged out")
}

// checkTokenType parses a JWT without verifying its signature and checks
// the "type" claim. The server issues access and refresh tokens from the
// same signer; mixing them up only surfaces as confusing 401s later, so
// catch it at adoption time.
func checkTokenType(token, want string) error {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("%w: malformed token: %v", domain.ErrAuthFailed, err)
	}

	typ, _ := claims["type"].(string)
	if typ != want {
		return fmt.Errorf("%w: expected %s token, got %q", domain.ErrAuthFailed, want, typ)
	}
	return nil
}
