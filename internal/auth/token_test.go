package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	s, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return s
}

func TestTokenCredentialsExpiring(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name    string
		access  string
		refresh string
		want    bool
	}{
		{"Valid token", signedToken(t, now.Add(time.Hour)), "r", false},
		{"Inside skew window", signedToken(t, now.Add(10*time.Second)), "r", true},
		{"Expired token", signedToken(t, now.Add(-time.Minute)), "r", true},
		{"Opaque token", "not-a-jwt", "r", false},
		{"No token but refresh available", "", "r", true},
		{"No token and no refresh", "", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewTokenCredentials("http://unused", tc.access, tc.refresh, 30*time.Second, nil)
			c.now = func() time.Time { return now }

			if got := c.Expiring(); got != tc.want {
				t.Errorf("Expiring() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTokenCredentialsAuthorize(t *testing.T) {
	c := NewTokenCredentials("http://unused", "abc", "", time.Second, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	c.Authorize(req)

	if got := req.Header.Get("Authorization"); got != "Bearer abc" {
		t.Errorf("Expected bearer header, got %q", got)
	}
}

func TestTokenCredentialsRefresh(t *testing.T) {
	t.Run("Rotates both tokens", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/auth/refresh" || r.Method != http.MethodPost {
				t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
			}
			var body refreshRequest
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("Failed to decode body: %v", err)
			}
			if body.RefreshToken != "old-refresh" {
				t.Errorf("Expected old refresh token, got %q", body.RefreshToken)
			}
			json.NewEncoder(w).Encode(refreshResponse{AccessToken: "new-access", RefreshToken: "new-refresh"})
		}))
		defer server.Close()

		var rotated [2]string
		c := NewTokenCredentials(server.URL, "old-access", "old-refresh", time.Second, server.Client())
		c.OnRotate = func(access, refresh string) { rotated = [2]string{access, refresh} }

		if err := c.Refresh(context.Background()); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if c.AccessToken() != "new-access" {
			t.Errorf("Expected new access token, got %q", c.AccessToken())
		}
		if rotated != [2]string{"new-access", "new-refresh"} {
			t.Errorf("Expected rotation callback, got %v", rotated)
		}
	})

	t.Run("Rejected refresh token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		c := NewTokenCredentials(server.URL, "old", "bad", time.Second, server.Client())
		err := c.Refresh(context.Background())
		if !errors.Is(err, ErrRefreshFailed) {
			t.Fatalf("Expected ErrRefreshFailed, got %v", err)
		}
		if c.AccessToken() != "old" {
			t.Errorf("Expected access token to be kept, got %q", c.AccessToken())
		}
	})

	t.Run("No refresh token", func(t *testing.T) {
		c := NewTokenCredentials("http://unused", "old", "", time.Second, nil)
		if err := c.Refresh(context.Background()); !errors.Is(err, ErrNoRefreshCredential) {
			t.Errorf("Expected ErrNoRefreshCredential, got %v", err)
		}
	})
}
