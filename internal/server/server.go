package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eljam3239/flutter-epson/internal/bridge"
	"github.com/eljam3239/flutter-epson/internal/logging"
)

// DefaultPath is the websocket endpoint used when Config.Path is empty.
const DefaultPath = "/rpc"

// Config holds the server configuration
type Config struct {
	Host     string
	Port     int
	Path     string // websocket endpoint
	CertPath string // optional; enables TLS together with KeyPath
	KeyPath  string

	// CertPEM and KeyPEM enable TLS from in-memory data and take
	// precedence over CertPath and KeyPath.
	CertPEM []byte
	KeyPEM  []byte
}

// Server carries bridge commands over websocket connections.
type Server struct {
	config     *Config
	dispatcher *bridge.Dispatcher
	tlsConfig  *tls.Config
	upgrader   websocket.Upgrader
	httpServer *http.Server

	mu          sync.Mutex
	listener    net.Listener
	activeConns map[string]*rpcConn
	wg          sync.WaitGroup
}

// New creates a new Server instance
func New(config *Config, dispatcher *bridge.Dispatcher) (*Server, error) {
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if config.Path == "" {
		config.Path = DefaultPath
	}

	var tlsConfig *tls.Config
	var err error
	switch {
	case len(config.CertPEM) > 0 || len(config.KeyPEM) > 0:
		tlsConfig, err = NewTLSConfigFromMemory(config.CertPEM, config.KeyPEM)
	case config.CertPath != "" || config.KeyPath != "":
		tlsConfig, err = NewTLSConfig(config.CertPath, config.KeyPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create TLS config: %w", err)
	}

	s := &Server{
		config:      config,
		dispatcher:  dispatcher,
		tlsConfig:   tlsConfig,
		activeConns: make(map[string]*rpcConn),
		upgrader: websocket.Upgrader{
			// Callers are local applications, not browsers.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the HTTP routes: the websocket endpoint and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.config.Path, s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Listen binds the listening socket. Start calls it when needed.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}

	addr := net.JoinHostPort(s.config.Host, fmt.Sprintf("%d", s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
	}
	s.listener = listener
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start starts the server and blocks until a shutdown signal or error.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Serve(ctx)
}

// Serve accepts connections until ctx is done, then shuts down.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	logging.Info("Starting printer bridge server",
		zap.String("addr", s.Addr().String()),
		zap.String("path", s.config.Path),
		zap.Any("tls_info", GetTLSInfo(s.tlsConfig)),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown signal received, stopping server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	// Hijacked websocket connections are not closed by http.Server.
	err := s.httpServer.Shutdown(ctx)

	s.mu.Lock()
	for addr, c := range s.activeConns {
		logging.Info("Closing active connection", zap.String("remote_addr", addr))
		c.close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	logging.Sync()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// GetActiveConnections returns the number of active connections
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

func (s *Server) track(c *rpcConn) {
	s.mu.Lock()
	s.activeConns[c.remoteAddr] = c
	s.mu.Unlock()
}

func (s *Server) untrack(c *rpcConn) {
	s.mu.Lock()
	delete(s.activeConns, c.remoteAddr)
	s.mu.Unlock()
}
