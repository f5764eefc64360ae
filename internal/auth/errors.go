package auth

import "errors"

// ErrNotConfigured is returned by every public operation when no client
// credentials were supplied at configuration time. The cloud backup feature
// is optional — callers distinguish "not set up" from network failures.
var ErrNotConfigured = errors.New("auth: cloud backup provider not configured")

// ErrAuthorizationDenied is returned when the user cancelled the interactive
// authorization or the provider redirected back with an error parameter.
// Local state is left unchanged.
var ErrAuthorizationDenied = errors.New("auth: authorization denied")

// ErrNotConnected is returned when an operation needs a live session but no
// tokens are persisted locally.
var ErrNotConnected = errors.New("auth: not connected — run login first")
