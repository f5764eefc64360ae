package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/abrahampo1/savecloud/internal/kvstore"
)

const testTokenJSON = `{
	"access_token": "a1",
	"token_type": "Bearer",
	"refresh_token": "r1",
	"expires_in": 3600
}`

const testUserInfoJSON = `{
	"email": "player@example.com",
	"name": "Player One",
	"picture": "https://example.com/p.png"
}`

func testCredStore(t *testing.T) *CredentialStore {
	t.Helper()

	kv, err := kvstore.Open(context.Background(), filepath.Join(t.TempDir(), "state.db"), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	return NewCredentialStore(kv, slog.Default())
}

// newMockProvider serves token and userinfo endpoints. tokenHandler may be
// nil to return the canonical token response.
func newMockProvider(t *testing.T, tokenHandler http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	handler := tokenHandler
	if handler == nil {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(testTokenJSON))
		}
	}

	mux.HandleFunc("POST /token", handler)
	mux.HandleFunc("GET /userinfo", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(testUserInfoJSON))
	})
	mux.HandleFunc("POST /revoke", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func testSession(t *testing.T, creds *CredentialStore, provider *httptest.Server, port int) *Session {
	t.Helper()

	return New(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		AuthURL:      provider.URL + "/auth",
		TokenURL:     provider.URL + "/token",
		UserInfoURL:  provider.URL + "/userinfo",
		RevokeURL:    provider.URL + "/revoke",
		CallbackPort: port,
	}, creds, provider.Client(), slog.Default())
}

// approveAuth simulates the user approving the consent screen: it parses
// the authorization URL and hits the local callback with a code.
func approveAuth(t *testing.T) func(string) error {
	t.Helper()

	return func(authURL string) error {
		u, err := url.Parse(authURL)
		require.NoError(t, err)

		q := u.Query()
		redirect := q.Get("redirect_uri")
		state := q.Get("state")

		go func() {
			cb := fmt.Sprintf("%s?state=%s&code=test-code", redirect, state)

			resp, cbErr := http.Get(cb)
			if cbErr == nil {
				resp.Body.Close()
			}
		}()

		return nil
	}
}

// denyAuth simulates the provider redirecting back with an error parameter.
func denyAuth(t *testing.T) func(string) error {
	t.Helper()

	return func(authURL string) error {
		u, err := url.Parse(authURL)
		require.NoError(t, err)

		q := u.Query()

		go func() {
			cb := fmt.Sprintf("%s?state=%s&error=access_denied", q.Get("redirect_uri"), q.Get("state"))

			resp, cbErr := http.Get(cb)
			if cbErr == nil {
				resp.Body.Close()
			}
		}()

		return nil
	}
}

func TestLoginHappyPath(t *testing.T) {
	creds := testCredStore(t)
	provider := newMockProvider(t, nil)
	s := testSession(t, creds, provider, 19876)

	info, err := s.Login(context.Background(), approveAuth(t))
	require.NoError(t, err)
	assert.Equal(t, "player@example.com", info.Email)
	assert.Equal(t, "Player One", info.DisplayName)

	// Tokens and profile both persisted.
	tok, found, err := creds.LoadTokens(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "a1", tok.AccessToken)
	assert.Equal(t, "r1", tok.RefreshToken)

	status, err := s.ConnectionStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, "player@example.com", status.User.Email)
}

func TestLoginDenied(t *testing.T) {
	creds := testCredStore(t)
	provider := newMockProvider(t, nil)
	s := testSession(t, creds, provider, 19877)

	_, err := s.Login(context.Background(), denyAuth(t))
	require.ErrorIs(t, err, ErrAuthorizationDenied)

	// Local state unchanged.
	_, found, err := creds.LoadTokens(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNotConfigured(t *testing.T) {
	creds := testCredStore(t)
	s := New(Config{}, creds, nil, slog.Default())

	assert.False(t, s.Configured())

	_, err := s.Login(context.Background(), func(string) error { return nil })
	require.ErrorIs(t, err, ErrNotConfigured)

	_, err = s.Token()
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestDisconnectIdempotent(t *testing.T) {
	creds := testCredStore(t)
	provider := newMockProvider(t, nil)
	s := testSession(t, creds, provider, 19878)
	ctx := context.Background()

	// Never connected: no error.
	require.NoError(t, s.Disconnect(ctx))

	// Connect, then disconnect twice.
	_, err := s.Login(ctx, approveAuth(t))
	require.NoError(t, err)

	require.NoError(t, s.Disconnect(ctx))
	require.NoError(t, s.Disconnect(ctx))

	_, found, err := creds.LoadTokens(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = creds.LoadUserInfo(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	status, err := s.ConnectionStatus(ctx)
	require.NoError(t, err)
	assert.False(t, status.Connected)
}

func TestDisconnectClearsStateWhenRevokeFails(t *testing.T) {
	creds := testCredStore(t)
	provider := newMockProvider(t, nil)
	s := testSession(t, creds, provider, 19879)
	ctx := context.Background()

	_, err := s.Login(ctx, approveAuth(t))
	require.NoError(t, err)

	// Point revocation at a dead endpoint.
	s.revokeURL = "http://127.0.0.1:1/revoke"

	require.NoError(t, s.Disconnect(ctx))

	_, found, err := creds.LoadTokens(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRotationMergeKeepsRefreshToken(t *testing.T) {
	creds := testCredStore(t)
	ctx := context.Background()

	require.NoError(t, creds.SaveTokens(ctx, &oauth2.Token{
		AccessToken:  "A1",
		RefreshToken: "R1",
	}))

	// A rotation event carrying only a new access token.
	rotated := &oauth2.Token{
		AccessToken: "A2",
		Expiry:      time.Now().Add(time.Hour),
	}

	src := &rotatingSource{
		src:    oauth2.StaticTokenSource(rotated),
		creds:  creds,
		logger: slog.Default(),
		last:   &oauth2.Token{AccessToken: "A1", RefreshToken: "R1"},
	}

	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "A2", tok.AccessToken)
	assert.Equal(t, "R1", tok.RefreshToken, "refresh token must never be silently lost")

	persisted, found, err := creds.LoadTokens(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "A2", persisted.AccessToken)
	assert.Equal(t, "R1", persisted.RefreshToken)
}

func TestRotationNewRefreshTokenWins(t *testing.T) {
	prev := &oauth2.Token{AccessToken: "A1", RefreshToken: "R1"}
	next := &oauth2.Token{AccessToken: "A2", RefreshToken: "R2"}

	merged := mergeRotation(prev, next)
	assert.Equal(t, "R2", merged.RefreshToken)
}

func TestSeedInstallsSource(t *testing.T) {
	creds := testCredStore(t)
	provider := newMockProvider(t, nil)
	s := testSession(t, creds, provider, 19880)
	ctx := context.Background()

	require.NoError(t, creds.SaveTokens(ctx, &oauth2.Token{
		AccessToken:  "seeded",
		RefreshToken: "r-seeded",
		Expiry:       time.Now().Add(time.Hour),
	}))

	require.NoError(t, s.Seed(ctx))

	got, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "seeded", got)
}

func TestTokenWithoutSeedIsNotConnected(t *testing.T) {
	creds := testCredStore(t)
	provider := newMockProvider(t, nil)
	s := testSession(t, creds, provider, 19881)

	_, err := s.Token()
	require.ErrorIs(t, err, ErrNotConnected)
}
