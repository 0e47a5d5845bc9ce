package session_test

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/muwahhidun/durus/internal/domain"
	"github.com/muwahhidun/durus/internal/session"
	"github.com/muwahhidun/durus/internal/store"
)

func mintToken(t *testing.T, typ string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "1",
		"type": typ,
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

// fakeAuth returns canned token pairs and counts refreshes.
type fakeAuth struct {
	pair        domain.TokenPair
	refreshed   int
	refreshWith string
	loginErr    error
	refreshErr  error
}

func (f *fakeAuth) Login(_ context.Context, _, _ string) (domain.TokenPair, error) {
	if f.loginErr != nil {
		return domain.TokenPair{}, f.loginErr
	}
	return f.pair, nil
}

func (f *fakeAuth) Register(_ context.Context, _, _ string) (domain.TokenPair, error) {
	return f.pair, nil
}

func (f *fakeAuth) Refresh(_ context.Context, refreshToken string) (string, error) {
	f.refreshed++
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	f.refreshWith = refreshToken
	return f.pair.AccessToken, nil
}

func newSession(t *testing.T, auth *fakeAuth) (*session.Manager, *store.CacheStore) {
	t.Helper()
	cache, err := store.NewCacheStore("", "")
	require.NoError(t, err)
	return session.NewManager(cache, auth, nil), cache
}

func TestLoginPersistsTokens(t *testing.T) {
	r := require.New(t)

	auth := &fakeAuth{pair: domain.TokenPair{
		AccessToken:  mintToken(t, "access"),
		RefreshToken: mintToken(t, "refresh"),
	}}
	sess, cache := newSession(t, auth)

	r.False(sess.IsLoggedIn())
	r.NoError(sess.Login(context.Background(), "student", "secret"))
	r.True(sess.IsLoggedIn())
	r.Equal(auth.pair.AccessToken, sess.AccessToken())

	persisted, ok := cache.GetTokens()
	r.True(ok)
	r.Equal(auth.pair, persisted)
}

func TestLoginRejectsSwappedTokenTypes(t *testing.T) {
	r := require.New(t)

	// A refresh token in the access slot must not be adopted.
	auth := &fakeAuth{pair: domain.TokenPair{
		AccessToken:  mintToken(t, "refresh"),
		RefreshToken: mintToken(t, "refresh"),
	}}
	sess, cache := newSession(t, auth)

	err := sess.Login(context.Background(), "student", "secret")
	r.ErrorIs(err, domain.ErrAuthFailed)
	r.False(sess.IsLoggedIn())
	_, ok := cache.GetTokens()
	r.False(ok)
}

func TestLoginRejectsMalformedToken(t *testing.T) {
	r := require.New(t)

	auth := &fakeAuth{pair: domain.TokenPair{
		AccessToken:  "not-a-jwt",
		RefreshToken: mintToken(t, "refresh"),
	}}
	sess, _ := newSession(t, auth)

	err := sess.Login(context.Background(), "student", "secret")
	r.ErrorIs(err, domain.ErrAuthFailed)
}

func TestRefreshAccessUpdatesPair(t *testing.T) {
	r := require.New(t)

	oldAccess := mintToken(t, "access")
	refresh := mintToken(t, "refresh")
	auth := &fakeAuth{pair: domain.TokenPair{AccessToken: oldAccess, RefreshToken: refresh}}
	sess, cache := newSession(t, auth)
	r.NoError(sess.Login(context.Background(), "student", "secret"))

	newAccess := mintToken(t, "access")
	auth.pair.AccessToken = newAccess

	got, err := sess.RefreshAccess(context.Background())
	r.NoError(err)
	r.Equal(newAccess, got)
	r.Equal(refresh, auth.refreshWith)
	r.Equal(1, auth.refreshed)

	persisted, ok := cache.GetTokens()
	r.True(ok)
	r.Equal(newAccess, persisted.AccessToken)
	r.Equal(refresh, persisted.RefreshToken)
}

func TestRefreshWithoutSession(t *testing.T) {
	r := require.New(t)

	sess, _ := newSession(t, &fakeAuth{})
	_, err := sess.RefreshAccess(context.Background())
	r.ErrorIs(err, domain.ErrNotLoggedIn)
}

func TestLogoutClearsTokens(t *testing.T) {
	r := require.New(t)

	auth := &fakeAuth{pair: domain.TokenPair{
		AccessToken:  mintToken(t, "access"),
		RefreshToken: mintToken(t, "refresh"),
	}}
	sess, cache := newSession(t, auth)
	r.NoError(sess.Login(context.Background(), "student", "secret"))

	sess.Logout()
	r.False(sess.IsLoggedIn())
	r.Empty(sess.AccessToken())
	_, ok := cache.GetTokens()
	r.False(ok)
}

func TestSessionLoadsPersistedTokens(t *testing.T) {
	r := require.New(t)

	cache, err := store.NewCacheStore("", "")
	r.NoError(err)
	pair := domain.TokenPair{
		AccessToken:  mintToken(t, "access"),
		RefreshToken: mintToken(t, "refresh"),
	}
	r.NoError(cache.SaveTokens(pair))

	sess := session.NewManager(cache, &fakeAuth{}, nil)
	r.True(sess.IsLoggedIn())
	r.Equal(pair.AccessToken, sess.AccessToken())
}
