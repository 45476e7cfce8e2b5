package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Path is the WebSocket endpoint pages connect to
	Path       = "/gpsio"
	healthPath = "/healthz"

	writeTimeout    = 10 * time.Second
	shutdownTimeout = 5 * time.Second
	// replies carry whole GPX documents
	maxMessageSize = 64 * 1024 * 1024
)

// ServerConfig holds configuration for the page-facing server
type ServerConfig struct {
	Addr string
	// AllowedOrigins lists page origins allowed to connect; "*" allows any
	AllowedOrigins []string
	Version        string
	Logger         *zap.Logger
}

// Server exposes a Bridge to pages over WebSocket
type Server struct {
	bridge   *Bridge
	cfg      ServerConfig
	logger   *zap.Logger
	upgrader websocket.Upgrader

	// base context for forwarded requests, cancelled on shutdown
	ctx context.Context
	// forwarded requests still running
	inflight sync.WaitGroup
	mu       sync.Mutex
	closing  bool
}

// NewServer creates a Server for b
func NewServer(b *Bridge, cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		bridge: b,
		cfg:    cfg,
		logger: logger,
		ctx:    context.Background(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler returns the HTTP handler serving the bridge endpoints
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(Path, s.handleWS)
	mux.HandleFunc(healthPath, s.handleHealth)
	return mux
}

// ListenAndServe listens on cfg.Addr and serves until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.ctx = ctx
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Bridge server listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("Bridge server shutting down")
		err := srv.Shutdown(shutdownCtx)
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()
		// cancelled requests resolve promptly; their replies are dropped
		s.inflight.Wait()
		if err != nil {
			return fmt.Errorf("bridge server shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// not a browser; local tools may connect
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	s.logger.Warn("Rejected connection from origin", zap.String("origin", origin))
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"version": s.cfg.Version,
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		s.logger.Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}
	s.serveConn(conn, r.Header.Get("Origin"))
}

// serveConn reads page messages until the page goes away. Each message is
// handled on its own goroutine so a slow export does not hold up a ping;
// replies find their caller by id.
func (s *Server) serveConn(conn *websocket.Conn, origin string) {
	logger := s.logger.With(
		zap.String("conn", uuid.NewString()),
		zap.String("origin", origin))
	logger.Debug("Page connected")

	conn.SetReadLimit(maxMessageSize)

	// hijacked connections are not closed by http.Server.Shutdown
	stop := context.AfterFunc(s.ctx, func() { conn.Close() })
	defer stop()

	var writeMu sync.Mutex
	write := func(reply *Reply) {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(reply); err != nil {
			logger.Debug("Failed to deliver reply", zap.Error(err))
		}
	}

	defer func() {
		writeMu.Lock()
		conn.Close()
		writeMu.Unlock()
		logger.Debug("Page disconnected")
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("Page connection closed", zap.Error(err))
			}
			return
		}

		// requests outlive the page connection; an export in progress
		// must not be cut short because a tab closed
		s.mu.Lock()
		if s.closing {
			s.mu.Unlock()
			return
		}
		s.inflight.Add(1)
		s.mu.Unlock()
		go func(data []byte) {
			defer s.inflight.Done()
			reply, ok := s.bridge.Handle(s.ctx, data)
			if !ok {
				return
			}
			write(reply)
		}(data)
	}
}
