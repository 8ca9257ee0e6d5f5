package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/archive-studio/internal/api"
	"github.com/debemdeboas/archive-studio/internal/auth"
	"github.com/debemdeboas/archive-studio/internal/config"
	"github.com/debemdeboas/archive-studio/internal/db"
	"github.com/debemdeboas/archive-studio/internal/draft"
	"github.com/debemdeboas/archive-studio/internal/logger"
	"github.com/debemdeboas/archive-studio/internal/model"
	"github.com/debemdeboas/archive-studio/internal/navguard"
	"github.com/debemdeboas/archive-studio/internal/preview"
	"github.com/debemdeboas/archive-studio/internal/render"
	"github.com/debemdeboas/archive-studio/internal/repository"
	"github.com/debemdeboas/archive-studio/internal/sse"
	s3storage "github.com/debemdeboas/archive-studio/internal/storage/s3"
	"github.com/debemdeboas/archive-studio/internal/upload"
)

var errNoSite = errors.New("no site selected, run `studio use <site>` or pass -site")

type app struct {
	cfg   *config.Config
	log   zerolog.Logger
	creds auth.Credentials

	client *api.Client
	state  db.DB
	prefs  repository.Preferences

	out io.Writer
	in  *bufio.Reader
}

func newApp(configPath string) (*app, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	l := logger.New(cfg.Logging.Level, cfg.Logging.JSON)
	setLoggers(l)

	a := &app{
		cfg: cfg,
		log: l,
		out: os.Stdout,
		in:  bufio.NewReader(os.Stdin),
	}

	state := db.NewSQLite(cfg.State.Path)
	if err := state.InitDB(); err != nil {
		return nil, fmt.Errorf("opening local state %s: %w", cfg.State.Path, err)
	}
	a.state = state
	a.prefs = repository.NewDBPreferences(state)

	httpClient := &http.Client{Timeout: cfg.API.Timeout}
	a.creds, err = newCredentials(cfg, a.prefs, httpClient, l)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.client = api.New(cfg.API.BaseURL,
		api.WithHTTPClient(httpClient),
		api.WithCredentials(a.creds),
		api.WithUserAgent(cfg.API.UserAgent),
	)
	a.client.OnSignInRequired = func() {
		fmt.Fprintln(os.Stderr, warnStyle.Render("Your session expired. Run `studio login` after updating your credentials."))
	}

	return a, nil
}

func setLoggers(l zerolog.Logger) {
	config.SetLogger(l.With().Str("component", "config").Logger())
	auth.SetLogger(l.With().Str("component", "auth").Logger())
	api.SetLogger(l.With().Str("component", "api").Logger())
	upload.SetLogger(l.With().Str("component", "upload").Logger())
	draft.SetLogger(l.With().Str("component", "draft").Logger())
	navguard.SetLogger(l.With().Str("component", "navguard").Logger())
	db.SetLogger(l.With().Str("component", "db").Logger())
	repository.SetLogger(l.With().Str("component", "repository").Logger())
	render.SetLogger(l.With().Str("component", "render").Logger())
	sse.SetLogger(l.With().Str("component", "sse").Logger())
	preview.SetLogger(l.With().Str("component", "preview").Logger())
	s3storage.SetLogger(l.With().Str("component", "s3").Logger())
}

func newCredentials(cfg *config.Config, prefs repository.Preferences, httpClient *http.Client, l zerolog.Logger) (auth.Credentials, error) {
	switch cfg.Auth.Type {
	case "ed25519":
		key, err := auth.LoadEd25519PrivateKey(cfg.Auth.Ed25519KeyPath)
		if err != nil {
			return nil, fmt.Errorf("loading ed25519 key: %w", err)
		}
		return auth.NewEd25519Credentials(cfg.API.BaseURL, key, httpClient), nil
	case "token", "":
		return tokenCredentials(cfg, prefs, httpClient, l), nil
	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Auth.Type)
	}
}

// tokenCredentials starts from the last rotated pair when it descends from the
// configured refresh token, and stores every new pair.
func tokenCredentials(cfg *config.Config, prefs repository.Preferences, httpClient *http.Client, l zerolog.Logger) *auth.TokenCredentials {
	seed := cfg.Auth.RefreshToken
	access, refresh := cfg.Auth.Token, cfg.Auth.RefreshToken
	if stored, err := prefs.Tokens(); err == nil && stored.Seed == seed && stored.Refresh != "" {
		access, refresh = stored.Access, stored.Refresh
	}

	creds := auth.NewTokenCredentials(cfg.API.BaseURL, access, refresh, cfg.Auth.RefreshSkew, httpClient)
	creds.OnRotate = func(access, refresh string) {
		if err := prefs.SetTokens(repository.Tokens{Seed: seed, Access: access, Refresh: refresh}); err != nil {
			l.Warn().Err(err).Msg("Could not store rotated tokens")
		}
	}
	return creds
}

// site picks the flag value, then the last selected site.
func (a *app) site(flagValue string) (model.SiteID, error) {
	if flagValue != "" {
		return model.SiteID(flagValue), nil
	}
	site, err := a.prefs.LastSite()
	if errors.Is(err, repository.ErrNotFound) || (err == nil && site == "") {
		return "", errNoSite
	}
	return site, err
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) Close() {
	if a.state != nil {
		a.state.Close()
		a.state = nil
	}
}
