// Package api provides HTTP handlers and the main API server logic for the
// Emily API.
//
// It exposes RESTful endpoints for the setup wizard, platform connections,
// and content management. The API integrates with the wizard, connections,
// genai, and store modules.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/getemily/emily-api/internal/auth"
	"github.com/getemily/emily-api/internal/connections"
	"github.com/getemily/emily-api/internal/genai"
	"github.com/getemily/emily-api/internal/store"
	"github.com/getemily/emily-api/internal/wizard"
)

// Default server timeouts.
const (
	DefaultAddr            = ":8080"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Opts holds configuration options for API server construction.
type Opts struct {
	// Addr is the listen address.
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server wires the wizard engine, connection service, and content endpoints
// onto an HTTP mux.
type Server struct {
	addr      string
	st        store.Store
	manager   *wizard.Manager
	submitter *wizard.Submitter
	conns     *connections.Service
	generator *genai.Generator
	verifier  *auth.Verifier
	httpSrv   *http.Server
}

// NewServer creates an API server over the given services. The generator may
// be nil when no OpenAI key is configured; the content-generation endpoint
// then reports unavailable.
func NewServer(st store.Store, manager *wizard.Manager, submitter *wizard.Submitter, conns *connections.Service, generator *genai.Generator, verifier *auth.Verifier, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("Creating API Server", "addr", cfg.Addr, "genai", generator != nil)
	return &Server{
		addr:      cfg.Addr,
		st:        st,
		manager:   manager,
		submitter: submitter,
		conns:     conns,
		generator: generator,
		verifier:  verifier,
	}
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthHandler)

	// The OAuth gateway posts completions without a bearer token; the
	// callback is gated by its origin allow-list instead.
	mux.HandleFunc("/connections/oauth/callback", s.oauthCallbackHandler)

	protected := func(h http.HandlerFunc) http.HandlerFunc {
		return s.verifier.Middleware(h)
	}

	mux.HandleFunc("/wizard/", protected(s.wizardHandler))
	mux.HandleFunc("/connections", protected(s.listConnectionsHandler))
	mux.HandleFunc("/connections/", protected(s.connectionsHandler))
	mux.HandleFunc("/campaigns", protected(s.campaignsHandler))
	mux.HandleFunc("/posts", protected(s.postsHandler))
	mux.HandleFunc("/templates", protected(s.templatesHandler))
	mux.HandleFunc("/image-preferences", protected(s.imagePreferencesHandler))
	mux.HandleFunc("/content/generate", protected(s.generateContentHandler))
	mux.HandleFunc("/trial", protected(s.trialHandler))

	return mux
}

// Run starts the HTTP server and blocks until the context is canceled or the
// listener fails.
func (s *Server) Run(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: API server listening", "addr", s.addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Server.Run: shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
