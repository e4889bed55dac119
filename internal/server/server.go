// Package server is the development web server: it serves the temp and
// source trees, injects a live-reload client into pages and pushes reload
// and stylesheet updates over a websocket.
package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/conneroisu/assetsmith/internal/config"
	"github.com/conneroisu/assetsmith/internal/logging"
	"github.com/conneroisu/assetsmith/internal/validation"
)

// SocketPath is the live-reload websocket endpoint.
const SocketPath = "/__livereload"

//go:embed livereload.js
var liveReloadScript []byte

// DevServer serves the development trees with live reload.
type DevServer struct {
	config config.ServerConfig
	roots  []string
	hub    *Hub
	logger logging.Logger

	serverMutex  sync.RWMutex // Protects httpServer and listener
	httpServer   *http.Server
	listener     net.Listener
	shutdownOnce sync.Once
}

// New creates a server for roots, searched in order.
func New(cfg config.ServerConfig, roots []string, logger logging.Logger) *DevServer {
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.WithComponent("server")
	return &DevServer{
		config: cfg,
		roots:  roots,
		hub:    NewHub(logger),
		logger: logger,
	}
}

// Handler returns the HTTP handler, for use without Start.
func (s *DevServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(SocketPath, s.hub)
	mux.HandleFunc(ScriptPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(liveReloadScript)
	})
	mux.Handle("/", Static{Roots: s.roots})
	return s.addMiddleware(mux)
}

func (s *DevServer) addMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		handler.ServeHTTP(w, r)
		// Log requests
		s.logger.Debug(r.Context(), "Request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// Start listens on the configured address and serves in the background.
func (s *DevServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Addr(), err)
	}

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.serverMutex.Lock()
	s.httpServer = server
	s.listener = ln
	s.serverMutex.Unlock()

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(ctx, err, "Server error")
		}
	}()

	url := s.URL()
	s.logger.Info(ctx, "Serving files", "local", url, "roots", s.roots)

	// Open browser if configured
	if s.config.Open {
		go s.openBrowser(ctx, url)
	}
	return nil
}

// Addr returns the address the server listens on, or "" before Start.
func (s *DevServer) Addr() string {
	s.serverMutex.RLock()
	defer s.serverMutex.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// URL returns the base URL of the running server.
func (s *DevServer) URL() string {
	return "http://" + s.Addr()
}

// Clients returns the number of connected live-reload clients.
func (s *DevServer) Clients() int {
	return s.hub.Count()
}

// Reload tells every browser to reload the page.
func (s *DevServer) Reload() {
	s.logger.Info(context.Background(), "Reloading browsers", "clients", s.Clients())
	s.hub.Broadcast(Message{Type: "reload"})
}

// InjectCSS tells browsers to refresh the given stylesheets in place.
func (s *DevServer) InjectCSS(paths []string) {
	if len(paths) == 0 {
		return
	}
	s.logger.Info(context.Background(), "Injecting CSS", "files", len(paths), "clients", s.Clients())
	s.hub.Broadcast(Message{Type: "css", Paths: paths})
}

// Shutdown gracefully shuts down the server and cleans up resources
func (s *DevServer) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server...")
		s.hub.Close()

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()
		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})
	return shutdownErr
}

func (s *DevServer) openBrowser(ctx context.Context, url string) {
	if err := validation.ValidateURL(url); err != nil {
		s.logger.Warn(ctx, err, "Refusing to open browser")
		return
	}

	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform")
	}

	if err != nil {
		s.logger.Warn(ctx, err, "Failed to open browser")
	}
}
