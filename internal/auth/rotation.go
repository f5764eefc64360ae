package auth

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"
)

// rotatingSource wraps an oauth2.TokenSource and merges every rotation the
// underlying source performs into the persisted record. The merge rule: a
// new value wins when present, else the previously persisted value is kept.
// This specifically protects the refresh token, which rotation responses
// frequently omit.
//
// Persistence happens after the refresh has completed, so it never blocks
// the in-flight network call; a persistence failure is logged, not raised —
// the in-memory token is still fresh.
type rotatingSource struct {
	src    oauth2.TokenSource
	creds  *CredentialStore
	logger *slog.Logger

	mu   sync.Mutex
	last *oauth2.Token
}

func (r *rotatingSource) Token() (*oauth2.Token, error) {
	tok, err := r.src.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	prev := r.last
	rotated := prev == nil || tok.AccessToken != prev.AccessToken
	if rotated {
		tok = mergeRotation(prev, tok)
		r.last = tok
	}
	r.mu.Unlock()

	if rotated {
		r.persist(tok)
	}

	return tok, nil
}

// mergeRotation applies the rotation merge rule to a refreshed token.
func mergeRotation(prev, next *oauth2.Token) *oauth2.Token {
	if prev == nil || next.RefreshToken != "" {
		return next
	}

	merged := *next
	merged.RefreshToken = prev.RefreshToken

	return &merged
}

func (r *rotatingSource) persist(tok *oauth2.Token) {
	if err := r.creds.SaveTokens(context.Background(), tok); err != nil {
		r.logger.Warn("failed to persist rotated token",
			slog.String("error", err.Error()),
		)

		return
	}

	r.logger.Info("persisted rotated token", slog.Time("expiry", tok.Expiry))
}
