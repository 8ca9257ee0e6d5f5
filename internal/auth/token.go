package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/debemdeboas/archive-studio/internal/config"
)

// TokenCredentials is a bearer access token paired with a refresh token.
type TokenCredentials struct {
	refreshURL string
	httpClient *http.Client
	skew       time.Duration
	now        func() time.Time

	mu           sync.RWMutex
	accessToken  string
	refreshToken string

	// OnRotate is called with the new pair after every successful refresh.
	OnRotate func(access, refresh string)
}

func NewTokenCredentials(baseURL, accessToken, refreshToken string, skew time.Duration, httpClient *http.Client) *TokenCredentials {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &TokenCredentials{
		refreshURL:   strings.TrimSuffix(baseURL, "/") + "/auth/refresh",
		httpClient:   httpClient,
		skew:         skew,
		now:          time.Now,
		accessToken:  accessToken,
		refreshToken: refreshToken,
	}
}

func (c *TokenCredentials) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

func (c *TokenCredentials) Authorize(req *http.Request) {
	if token := c.AccessToken(); token != "" {
		req.Header.Set(config.HAuthorization, config.BearerPrefix+token)
	}
}

// Expiring inspects the exp claim of the access token without verifying the
// signature; only the server can do that. Opaque tokens never expire here.
func (c *TokenCredentials) Expiring() bool {
	token := c.AccessToken()
	if token == "" {
		return c.hasRefreshToken()
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !c.now().Add(c.skew).Before(claims.ExpiresAt.Time)
}

func (c *TokenCredentials) hasRefreshToken() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshToken != ""
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

func (c *TokenCredentials) Refresh(ctx context.Context) error {
	c.mu.RLock()
	refreshToken := c.refreshToken
	c.mu.RUnlock()

	if refreshToken == "" {
		return ErrNoRefreshCredential
	}

	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.refreshURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set(config.HCType, config.CTypeJSON)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		authLogger.Warn().Int("status", res.StatusCode).Msg("Refresh token rejected")
		return fmt.Errorf("%w: status %d", ErrRefreshFailed, res.StatusCode)
	}

	var out refreshResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	if out.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", ErrRefreshFailed)
	}

	c.mu.Lock()
	c.accessToken = out.AccessToken
	if out.RefreshToken != "" {
		c.refreshToken = out.RefreshToken
	}
	access, refresh := c.accessToken, c.refreshToken
	c.mu.Unlock()

	authLogger.Debug().Msg("Access token refreshed")

	if c.OnRotate != nil {
		c.OnRotate(access, refresh)
	}
	return nil
}
