// Package auth owns the provider client handle for the process lifetime:
// interactive authorization, token persistence, rotation, and disconnect.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Default endpoints and scopes for the storage provider's OAuth surface.
const (
	defaultAuthURL     = "https://accounts.google.com/o/oauth2/auth"
	defaultTokenURL    = "https://oauth2.googleapis.com/token"
	defaultUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	defaultRevokeURL   = "https://oauth2.googleapis.com/revoke"
)

var defaultScopes = []string{
	"https://www.googleapis.com/auth/drive.file",
	"openid",
	"email",
	"profile",
}

// defaultCallbackPort is the fixed local port the authorization redirect
// hits. The listener is bound only for the duration of the login flow.
const defaultCallbackPort = 9876

// revokeTimeout bounds the best-effort revoke call on disconnect so a hung
// provider cannot block a user-visible disconnect action.
const revokeTimeout = 10 * time.Second

// shutdownTimeout is how long to wait for the callback server to drain.
const shutdownTimeout = 5 * time.Second

// stateTokenBytes is the number of random bytes for the OAuth2 state parameter.
const stateTokenBytes = 16

// Config supplies provider client credentials and endpoint overrides.
// Empty ClientID or ClientSecret leaves the feature unconfigured.
type Config struct {
	ClientID     string
	ClientSecret string

	// Endpoint overrides, used by tests and self-hosted providers.
	// Zero values select the provider defaults above.
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	RevokeURL    string
	CallbackPort int
	Scopes       []string
}

// Status reports local connection state. It does not probe the network, so
// it can report connected even after a remote revocation — operations that
// touch the network handle that case as an auth failure.
type Status struct {
	Connected bool
	User      *UserInfo
}

// Session owns exactly one provider-client handle and guarantees it always
// carries the freshest known tokens. The zero Session is not usable; use New.
type Session struct {
	oauth       *oauth2.Config
	creds       *CredentialStore
	userInfoURL string
	revokeURL   string
	port        int
	httpClient  *http.Client
	logger      *slog.Logger

	mu     sync.Mutex
	source oauth2.TokenSource
}

// New builds a Session. When client credentials are absent the session is
// returned unconfigured (logged, not fatal) — the cloud backup feature is
// simply disabled and every operation fails fast with ErrNotConfigured.
func New(cfg Config, creds *CredentialStore, httpClient *http.Client, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	s := &Session{
		creds:      creds,
		httpClient: httpClient,
		logger:     logger,
	}

	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		logger.Info("cloud backup disabled: no provider client credentials configured")
		return s
	}

	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = defaultAuthURL
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}

	s.userInfoURL = cfg.UserInfoURL
	if s.userInfoURL == "" {
		s.userInfoURL = defaultUserInfoURL
	}

	s.revokeURL = cfg.RevokeURL
	if s.revokeURL == "" {
		s.revokeURL = defaultRevokeURL
	}

	s.port = cfg.CallbackPort
	if s.port == 0 {
		s.port = defaultCallbackPort
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}

	s.oauth = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  authURL,
			TokenURL: tokenURL,
		},
	}

	return s
}

// Configured reports whether provider client credentials were supplied.
func (s *Session) Configured() bool {
	return s.oauth != nil
}

// Seed loads persisted tokens, if any, and installs the rotation-persisting
// token source. Called once at startup; a missing token record is the normal
// not-yet-connected state.
func (s *Session) Seed(ctx context.Context) error {
	if !s.Configured() {
		return nil
	}

	tok, found, err := s.creds.LoadTokens(ctx)
	if err != nil {
		return err
	}

	if !found {
		s.logger.Debug("no persisted tokens, session starts unauthenticated")
		return nil
	}

	s.installSource(ctx, tok)
	s.logger.Info("seeded session from persisted tokens",
		slog.Time("expiry", tok.Expiry),
		slog.Bool("expired", !tok.Expiry.IsZero() && tok.Expiry.Before(time.Now())),
	)

	return nil
}

// installSource (re)builds the token source around tok, wrapped so every
// rotation the oauth2 transport performs is merged into the persisted
// record. Installed both at startup and after interactive login, so the
// rotation listener is never silently missing.
func (s *Session) installSource(ctx context.Context, tok *oauth2.Token) {
	inner := s.oauth.TokenSource(ctx, tok)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.source = &rotatingSource{
		src:    inner,
		creds:  s.creds,
		logger: s.logger,
		last:   tok,
	}
}

// Token returns a fresh bearer access token, refreshing if needed.
// Satisfies the transport client's TokenSource interface.
func (s *Session) Token() (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}

	s.mu.Lock()
	src := s.source
	s.mu.Unlock()

	if src == nil {
		return "", ErrNotConnected
	}

	tok, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("auth: obtaining token: %w", err)
	}

	return tok.AccessToken, nil
}

// Login performs the interactive authorization-code flow:
//  1. Binds the fixed-port localhost callback listener
//  2. Opens the browser to the authorization URL (offline access, forced
//     consent so a refresh token is always issued)
//  3. Receives the redirect with a code or an error parameter
//  4. Exchanges the code, persists tokens, installs the rotation listener
//  5. Fetches, persists, and returns the user profile
//
// The callback listener is torn down exactly once on every exit path.
// openURL launches the authorization surface; on failure the URL is logged
// so the user can open it manually.
func (s *Session) Login(ctx context.Context, openURL func(string) error) (*UserInfo, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}

	s.logger.Info("starting interactive authorization", slog.Int("port", s.port))

	resultCh := make(chan callbackResult, 1)
	mux := http.NewServeMux()

	srv, err := s.startCallbackServer(ctx, mux, resultCh)
	if err != nil {
		return nil, err
	}

	defer s.shutdownCallbackServer(srv)

	cfg := *s.oauth
	cfg.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d/callback", s.port)

	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("auth: generating state token: %w", err)
	}

	registerCallbackHandler(mux, state, resultCh)

	authURL := cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)

	s.launchAuthSurface(authURL, openURL)

	code, err := waitForCallback(ctx, resultCh)
	if err != nil {
		return nil, err
	}

	return s.exchangeAndPersist(ctx, &cfg, code)
}

// startCallbackServer binds the fixed callback port and starts serving.
func (s *Session) startCallbackServer(
	ctx context.Context, mux *http.ServeMux, resultCh chan<- callbackResult,
) (*http.Server, error) {
	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return nil, fmt.Errorf("auth: binding callback listener on port %d: %w", s.port, err)
	}

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			resultCh <- callbackResult{err: fmt.Errorf("auth: callback server error: %w", serveErr)}
		}
	}()

	return srv, nil
}

// shutdownCallbackServer tears the callback server down. Best-effort — the
// flow already has its result, so shutdown failures are only logged.
func (s *Session) shutdownCallbackServer(srv *http.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("callback server shutdown error", slog.String("error", err.Error()))
	}
}

// launchAuthSurface opens the interactive authorization surface.
func (s *Session) launchAuthSurface(authURL string, openURL func(string) error) {
	s.logger.Info("opening browser for authorization")

	if openErr := openURL(authURL); openErr != nil {
		s.logger.Warn("failed to open browser, open the URL manually",
			slog.String("url", authURL),
			slog.String("error", openErr.Error()),
		)
	}
}

// exchangeAndPersist exchanges the code for tokens, persists them, installs
// the rotation listener, then fetches and persists the user profile.
func (s *Session) exchangeAndPersist(ctx context.Context, cfg *oauth2.Config, code string) (*UserInfo, error) {
	exchangeCtx := context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)

	tok, err := cfg.Exchange(exchangeCtx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: token exchange failed: %w", err)
	}

	if err := s.creds.SaveTokens(ctx, tok); err != nil {
		return nil, err
	}

	s.installSource(context.WithValue(context.Background(), oauth2.HTTPClient, s.httpClient), tok)

	info, err := s.fetchUserInfo(ctx, tok.AccessToken)
	if err != nil {
		return nil, err
	}

	if err := s.creds.SaveUserInfo(ctx, *info); err != nil {
		return nil, err
	}

	s.logger.Info("login successful",
		slog.String("email", info.Email),
		slog.Time("expiry", tok.Expiry),
	)

	return info, nil
}

// fetchUserInfo queries the provider's userinfo endpoint.
func (s *Session) fetchUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("auth: creating userinfo request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: fetching user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: userinfo endpoint returned HTTP %d", resp.StatusCode)
	}

	var parsed struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("auth: decoding user info: %w", err)
	}

	return &UserInfo{
		Email:       parsed.Email,
		DisplayName: parsed.Name,
		PhotoURL:    parsed.Picture,
	}, nil
}

// Disconnect revokes the server-side grant best-effort (a network failure
// never prevents clearing local state), drops the in-memory token source,
// and deletes persisted tokens and user info. Disconnecting when never
// connected is a no-op.
func (s *Session) Disconnect(ctx context.Context) error {
	s.revokeGrant(ctx)

	s.mu.Lock()
	s.source = nil
	s.mu.Unlock()

	if err := s.creds.ClearAll(ctx); err != nil {
		return err
	}

	s.logger.Info("disconnected, local credentials cleared")

	return nil
}

// revokeGrant posts the refresh token (or access token) to the revocation
// endpoint with a bounded timeout. Failures are logged and ignored.
func (s *Session) revokeGrant(ctx context.Context) {
	if !s.Configured() {
		return
	}

	tok, found, err := s.creds.LoadTokens(ctx)
	if err != nil || !found {
		return
	}

	revokeToken := tok.RefreshToken
	if revokeToken == "" {
		revokeToken = tok.AccessToken
	}

	revokeCtx, cancel := context.WithTimeout(ctx, revokeTimeout)
	defer cancel()

	form := url.Values{"token": {revokeToken}}

	req, err := http.NewRequestWithContext(revokeCtx, http.MethodPost, s.revokeURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		s.logger.Warn("building revoke request failed", slog.String("error", err.Error()))
		return
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("revoking grant failed, clearing local state anyway",
			slog.String("error", err.Error()))
		return
	}

	resp.Body.Close()

	s.logger.Debug("revoked server-side grant", slog.Int("status", resp.StatusCode))
}

// ConnectionStatus reports whether the session is connected locally:
// connected iff both tokens and a user profile are persisted.
func (s *Session) ConnectionStatus(ctx context.Context) (Status, error) {
	if !s.Configured() {
		return Status{}, nil
	}

	_, haveTokens, err := s.creds.LoadTokens(ctx)
	if err != nil {
		return Status{}, err
	}

	info, haveInfo, err := s.creds.LoadUserInfo(ctx)
	if err != nil {
		return Status{}, err
	}

	if !haveTokens || !haveInfo {
		return Status{}, nil
	}

	return Status{Connected: true, User: info}, nil
}

// callbackResult carries the authorization code or error from the callback.
type callbackResult struct {
	code string
	err  error
}

// registerCallbackHandler adds the redirect route to the mux.
func registerCallbackHandler(mux *http.ServeMux, state string, resultCh chan<- callbackResult) {
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		handleAuthCallback(w, r, state, resultCh)
	})
}

// handleAuthCallback validates state, extracts the code or error parameter,
// and reports the result. An error parameter terminates the flow with
// ErrAuthorizationDenied.
func handleAuthCallback(w http.ResponseWriter, r *http.Request, state string, resultCh chan<- callbackResult) {
	if r.URL.Query().Get("state") != state {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		resultCh <- callbackResult{err: fmt.Errorf("auth: OAuth2 state mismatch (possible CSRF)")}

		return
	}

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		http.Error(w, "Authorization failed: "+errParam, http.StatusBadRequest)
		resultCh <- callbackResult{err: fmt.Errorf("%w: %s", ErrAuthorizationDenied, errParam)}

		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		resultCh <- callbackResult{err: fmt.Errorf("auth: callback missing authorization code")}

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><h1>Authentication successful</h1>"+
		"<p>You can close this window and return to the application.</p></body></html>")
	resultCh <- callbackResult{code: code}
}

// waitForCallback blocks until the redirect fires or the context is canceled.
func waitForCallback(ctx context.Context, resultCh <-chan callbackResult) (string, error) {
	select {
	case result := <-resultCh:
		if result.err != nil {
			return "", result.err
		}

		return result.code, nil
	case <-ctx.Done():
		return "", fmt.Errorf("auth: interactive authorization canceled: %w", ctx.Err())
	}
}

// generateState produces a cryptographically random hex string for the
// OAuth2 state parameter.
func generateState() (string, error) {
	b := make([]byte, stateTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
