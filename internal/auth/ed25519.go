package auth

import (
	"context"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/debemdeboas/archive-studio/internal/config"
)

// Ed25519Credentials signs the server challenge with a private key. The
// base64 signature is the credential and is sent as-is in the Authorization
// header; it stays valid until the server rotates its challenge.
type Ed25519Credentials struct {
	baseURL    string
	httpClient *http.Client
	privateKey ed25519.PrivateKey

	mu        sync.RWMutex
	signature string
}

func NewEd25519Credentials(baseURL string, privateKey ed25519.PrivateKey, httpClient *http.Client) *Ed25519Credentials {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Ed25519Credentials{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		privateKey: privateKey,
	}
}

// LoadEd25519PrivateKey reads a PKCS8 PEM encoded Ed25519 private key.
func LoadEd25519PrivateKey(filename string) (ed25519.PrivateKey, error) {
	privKeyBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseEd25519PrivateKey(privKeyBytes)
}

func ParseEd25519PrivateKey(pemBytes []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}
	privKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	edPriv, ok := privKey.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("not an Ed25519 private key")
	}
	return edPriv, nil
}

func (c *Ed25519Credentials) Authorize(req *http.Request) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.signature != "" {
		req.Header.Set(config.HAuthorization, c.signature)
	}
}

func (c *Ed25519Credentials) Expiring() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.signature == ""
}

type challengeResponse struct {
	Challenge string `json:"challenge"`
}

// Refresh asks for a fresh challenge, signs it and has the server verify it.
func (c *Ed25519Credentials) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/challenge", nil)
	if err != nil {
		return err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: challenge status %d", ErrRefreshFailed, res.StatusCode)
	}

	var ch challengeResponse
	if err := json.NewDecoder(res.Body).Decode(&ch); err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	challenge, err := base64.StdEncoding.DecodeString(ch.Challenge)
	if err != nil {
		return fmt.Errorf("%w: invalid challenge encoding", ErrRefreshFailed)
	}

	signature := base64.StdEncoding.EncodeToString(ed25519.Sign(c.privateKey, challenge))

	verify, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/verify", nil)
	if err != nil {
		return err
	}
	verify.Header.Set(config.HAuthorization, signature)

	vres, err := c.httpClient.Do(verify)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	defer vres.Body.Close()

	if vres.StatusCode != http.StatusOK {
		authLogger.Warn().Int("status", vres.StatusCode).Msg("Signature verification failed")
		return fmt.Errorf("%w: verify status %d", ErrRefreshFailed, vres.StatusCode)
	}

	c.mu.Lock()
	c.signature = signature
	c.mu.Unlock()

	return nil
}
