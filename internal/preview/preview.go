// Package preview serves the post being edited as a local web page that
// reloads itself whenever the draft changes.
package preview

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/archive-studio/internal/config"
	"github.com/debemdeboas/archive-studio/internal/render"
	"github.com/debemdeboas/archive-studio/internal/routes"
	"github.com/debemdeboas/archive-studio/internal/sse"
)

var previewLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	previewLogger = l
}

//go:embed templates/preview.html
var templates embed.FS

var pageTemplate = template.Must(template.ParseFS(templates, "templates/preview.html"))

const reloadMessage = "reload"

type Server struct {
	renderer *render.Renderer
	hub      *sse.Hub
	topic    string
	fallback string

	mu     sync.RWMutex
	source []byte
	hash   string
}

// New serves one draft. topic identifies it to the event stream and fallback
// is the title used when the source has no front matter title.
func New(renderer *render.Renderer, topic, fallback string) *Server {
	return &Server{
		renderer: renderer,
		hub:      sse.NewHub(),
		topic:    topic,
		fallback: fallback,
	}
}

// Update replaces the previewed source and reloads open pages when it changed.
func (s *Server) Update(md []byte) {
	rendered := s.renderer.Render(md)

	s.mu.Lock()
	changed := rendered.Hash != s.hash
	s.source = md
	s.hash = rendered.Hash
	s.mu.Unlock()

	if changed {
		previewLogger.Debug().Str("hash", rendered.Hash).Msg("Preview updated")
		s.hub.Broadcast(s.topic, reloadMessage)
	}
}

func (s *Server) current() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+routes.Root+"{$}", s.servePage)
	mux.HandleFunc("GET "+routes.Source, s.serveSource)
	mux.HandleFunc("GET "+routes.SyntaxCSS, s.serveSyntaxCSS)
	mux.HandleFunc("GET "+routes.Events, s.hub.Handler)
	mux.HandleFunc("GET "+routes.Health, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return secureHeaders(mux)
}

type pageData struct {
	Title    string
	Slug     string
	Cover    string
	Language string
	Body     template.HTML
	Topic    string

	EventsPath    string
	SourcePath    string
	SyntaxCSSPath string
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request) {
	rendered := s.renderer.Render(s.current())

	data := pageData{
		Title:         rendered.Title(s.fallback),
		Language:      "en",
		Body:          template.HTML(rendered.HTML),
		Topic:         s.topic,
		EventsPath:    routes.Events,
		SourcePath:    routes.Source,
		SyntaxCSSPath: routes.SyntaxCSS,
	}
	if info := rendered.Info; info != nil {
		data.Slug = info.Slug
		data.Cover = info.Cover
		if info.TitleData != nil && info.Language != "" {
			data.Language = info.Language
		}
	}

	w.Header().Set(config.HCType, config.CTypeHTML)
	w.Header().Set(config.HETag, rendered.Hash)
	if err := pageTemplate.Execute(w, data); err != nil {
		previewLogger.Error().Err(err).Msg("Error rendering preview page")
	}
}

func (s *Server) serveSource(w http.ResponseWriter, r *http.Request) {
	out, err := render.HighlightSource(string(s.current()), s.renderer.SyntaxTheme())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set(config.HCType, config.CTypeHTML)
	w.Write([]byte(`<link rel="stylesheet" href="` + routes.SyntaxCSS + `">` + out))
}

func (s *Server) serveSyntaxCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(config.HCType, "text/css; charset=utf-8")
	w.Write([]byte(render.SyntaxCSS(s.renderer.SyntaxTheme())))
}

func secureHeaders(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		h.ServeHTTP(w, r)
	})
}

// ListenAndServe serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		previewLogger.Info().Str("addr", "http://"+addr).Msg("Preview server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
