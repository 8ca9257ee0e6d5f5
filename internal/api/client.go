// Package api is the client for the blog platform REST API.
//
// Every call carries the configured credentials. A credential that is about
// to expire is renewed before the request; a 401 triggers one renewal and a
// single retry. Concurrent callers share one renewal.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/debemdeboas/archive-studio/internal/auth"
	"github.com/debemdeboas/archive-studio/internal/config"
)

var apiLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	apiLogger = l
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      auth.Credentials
	userAgent  string

	refreshGroup singleflight.Group
	// generation counts successful refreshes.
	generation atomic.Uint64

	// OnSignInRequired is called when the credentials could not be renewed.
	OnSignInRequired func()
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithCredentials(creds auth.Credentials) Option {
	return func(c *Client) { c.creds = creds }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{},
		userAgent:  "archive-studio",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope is the platform's response wrapper.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *Error          `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s %s: %w", method, path, err)
		}
	}

	if c.creds != nil && c.creds.Expiring() {
		if err := c.refresh(ctx, c.generation.Load()); err != nil {
			return err
		}
	}

	generation := c.generation.Load()
	res, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}

	if res.StatusCode == http.StatusUnauthorized && c.creds != nil {
		drain(res)
		apiLogger.Debug().Str("method", method).Str("path", path).Msg("Unauthorized, refreshing credentials")

		if err := c.refresh(ctx, generation); err != nil {
			return err
		}

		res, err = c.send(ctx, method, path, body)
		if err != nil {
			return err
		}
		if res.StatusCode == http.StatusUnauthorized {
			drain(res)
			c.signInRequired()
			return ErrSignInRequired
		}
	}
	defer res.Body.Close()

	return decode(res, out)
}

func (c *Client) send(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}

	requestID := uuid.New().String()
	req.Header.Set(config.HAccept, config.CTypeJSON)
	req.Header.Set(config.HUserAgent, c.userAgent)
	req.Header.Set(config.HRequestID, requestID)
	if body != nil {
		req.Header.Set(config.HCType, config.CTypeJSON)
	}
	if c.creds != nil {
		c.creds.Authorize(req)
	}

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		apiLogger.Error().Err(err).Str("method", method).Str("path", path).Str("request_id", requestID).Msg("Request failed")
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	apiLogger.Debug().
		Str("method", method).
		Str("path", path).
		Str("request_id", requestID).
		Int("status", res.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Request completed")

	return res, nil
}

// refreshTimeout bounds a shared refresh, which outlives the caller that
// started it.
const refreshTimeout = 30 * time.Second

// refresh renews the credentials once for all concurrent callers. A caller
// whose request was sent before a refresh that has since finished reuses it.
// A caller that goes away stops waiting without failing the others.
func (c *Client) refresh(ctx context.Context, seen uint64) error {
	if c.generation.Load() != seen {
		return nil
	}
	ch := c.refreshGroup.DoChan("refresh", func() (any, error) {
		if c.generation.Load() != seen {
			return nil, nil
		}
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		if err := c.creds.Refresh(rctx); err != nil {
			apiLogger.Warn().Err(err).Msg("Credential refresh failed")
			c.signInRequired()
			return nil, err
		}
		c.generation.Add(1)
		return nil, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return fmt.Errorf("%w: %v", ErrSignInRequired, res.Err)
		}
		return nil
	}
}

func (c *Client) signInRequired() {
	if c.OnSignInRequired != nil {
		c.OnSignInRequired()
	}
}

func decode(res *http.Response, out any) error {
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return newError(res.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err == nil && env.Success != nil {
		if env.Error != nil && !*env.Success {
			env.Error.Status = res.StatusCode
			return env.Error
		}
		if len(env.Data) == 0 {
			return nil
		}
		data = env.Data
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func drain(res *http.Response) {
	io.Copy(io.Discard, res.Body)
	res.Body.Close()
}

// IsSignInRequired reports whether err means the user must sign in again.
func IsSignInRequired(err error) bool {
	return errors.Is(err, ErrSignInRequired)
}
