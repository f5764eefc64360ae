package auth

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/abrahampo1/savecloud/internal/kvstore"
)

// Store keys for persisted auth state.
const (
	keyTokens   = "auth.tokens"
	keyUserInfo = "auth.user"
)

// UserInfo is the authenticated user's profile, fetched once after
// authorization and read-only afterward. It answers "connected as whom" —
// it is never an authorization artifact itself.
type UserInfo struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl,omitempty"`
}

// CredentialStore persists OAuth tokens and the authenticated user profile.
// It is the only component that mutates persisted credentials.
type CredentialStore struct {
	kv     *kvstore.Store
	logger *slog.Logger
}

// NewCredentialStore wraps the given key-value store.
func NewCredentialStore(kv *kvstore.Store, logger *slog.Logger) *CredentialStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &CredentialStore{kv: kv, logger: logger}
}

// LoadTokens returns the persisted tokens, or found=false when absent.
// Missing or undecodable records read as absent, never as an error.
func (c *CredentialStore) LoadTokens(ctx context.Context) (*oauth2.Token, bool, error) {
	var tok oauth2.Token

	found, err := c.kv.GetJSON(ctx, keyTokens, &tok)
	if err != nil || !found {
		return nil, false, err
	}

	return &tok, true, nil
}

// SaveTokens persists the tokens, replacing any prior record.
func (c *CredentialStore) SaveTokens(ctx context.Context, tok *oauth2.Token) error {
	if err := c.kv.PutJSON(ctx, keyTokens, tok); err != nil {
		return fmt.Errorf("auth: saving tokens: %w", err)
	}

	return nil
}

// LoadUserInfo returns the persisted user profile, or found=false when absent.
func (c *CredentialStore) LoadUserInfo(ctx context.Context) (*UserInfo, bool, error) {
	var info UserInfo

	found, err := c.kv.GetJSON(ctx, keyUserInfo, &info)
	if err != nil || !found {
		return nil, false, err
	}

	return &info, true, nil
}

// SaveUserInfo persists the user profile.
func (c *CredentialStore) SaveUserInfo(ctx context.Context, info UserInfo) error {
	if err := c.kv.PutJSON(ctx, keyUserInfo, info); err != nil {
		return fmt.Errorf("auth: saving user info: %w", err)
	}

	return nil
}

// ClearAll removes tokens and user info. Each delete is independent and
// idempotent — clearing an already-clear store succeeds.
func (c *CredentialStore) ClearAll(ctx context.Context) error {
	if err := c.kv.Delete(ctx, keyTokens); err != nil {
		return fmt.Errorf("auth: clearing tokens: %w", err)
	}

	if err := c.kv.Delete(ctx, keyUserInfo); err != nil {
		return fmt.Errorf("auth: clearing user info: %w", err)
	}

	return nil
}
