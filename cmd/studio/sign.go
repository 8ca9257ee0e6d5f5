package main

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/debemdeboas/archive-studio/internal/auth"
)

// runLogin renews the credentials and lists the sites they grant access to.
func runLogin(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if a.creds.Expiring() {
		if err := a.creds.Refresh(ctx); err != nil {
			return fmt.Errorf("signing in: %w", err)
		}
	}

	sites, err := a.client.ListSites(ctx)
	if err != nil {
		return err
	}
	a.printf("%s\n", successStyle.Render(fmt.Sprintf("Signed in to %s (%d sites)", a.client.BaseURL(), len(sites))))
	return nil
}

// runSign answers sign-in challenges by hand, one base64 challenge per line.
func runSign(_ context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	keyPath := fs.String("key", a.cfg.Auth.Ed25519KeyPath, "PEM encoded ed25519 private key")
	if err := fs.Parse(args); err != nil {
		return err
	}

	key, err := auth.LoadEd25519PrivateKey(*keyPath)
	if err != nil {
		return fmt.Errorf("loading private key: %w", err)
	}

	a.printf("Enter challenges one by one. Type 'quit' to exit.\n")
	for {
		a.printf("%s", promptStyle.Render("Enter challenge (base64): "))

		line, err := a.in.ReadString('\n')
		challenge := strings.TrimSpace(line)
		if challenge == "quit" {
			return nil
		}
		if challenge != "" {
			if sig, err := signChallenge(key, challenge); err != nil {
				a.printf("%s\n", outputStyle.Render("Error: "+err.Error()))
			} else {
				a.printf("%s\n", outputStyle.Render("Signature: "+sig))
			}
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
	}
}

func signChallenge(key ed25519.PrivateKey, challengeB64 string) (string, error) {
	challenge, err := base64.StdEncoding.DecodeString(challengeB64)
	if err != nil {
		return "", errors.New("invalid base64")
	}
	return base64.StdEncoding.EncodeToString(ed25519.Sign(key, challenge)), nil
}
