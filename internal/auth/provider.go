// Package auth supplies the credentials the API client attaches to requests
// and knows how to renew them.
package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/archive-studio/internal/config"
)

var authLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	authLogger = l
}

var (
	ErrRefreshFailed       = errors.New(config.ErrRefreshFailed)
	ErrNoRefreshCredential = errors.New(config.ErrNoRefreshCredential)
)

// Credentials is implemented by every sign-in method.
type Credentials interface {
	// Authorize sets the credential on req.
	Authorize(req *http.Request)

	// Expiring reports whether the credential should be renewed before it is used.
	Expiring() bool

	// Refresh obtains a new credential. Callers serialize concurrent refreshes.
	Refresh(ctx context.Context) error
}
