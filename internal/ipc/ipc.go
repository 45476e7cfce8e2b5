package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrDaemonUnavailable is returned when no daemon is listening on the socket
var ErrDaemonUnavailable = errors.New("daemon is not running")

// Handler answers one IPC request
type Handler func(ctx context.Context, req *Request) *Response

// Client talks to the daemon over its unix socket
type Client struct {
	SocketPath string
	// DialTimeout bounds connecting only; requests may run as long as the host does
	DialTimeout time.Duration
}

// NewClient creates a Client for socketPath
func NewClient(socketPath string) *Client {
	return &Client{SocketPath: socketPath, DialTimeout: 2 * time.Second}
}

// Available reports whether a daemon accepts connections on the socket
func (c *Client) Available() bool {
	if runtime.GOOS == "windows" {
		return false
	}
	conn, err := net.DialTimeout("unix", c.SocketPath, c.DialTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Do connects to the daemon, sends a request, and returns the response.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if runtime.GOOS == "windows" {
		return nil, fmt.Errorf("%w: IPC not implemented for Windows", ErrDaemonUnavailable)
	}
	dialer := net.Dialer{Timeout: c.DialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
	}
	defer conn.Close()

	// unblock the decode below if the caller gives up
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// Call sends command with args and decodes the response data into out.
// An error status from the daemon is returned as an error.
func (c *Client) Call(ctx context.Context, command string, args, out interface{}) error {
	req, err := NewRequest(command, args)
	if err != nil {
		return fmt.Errorf("failed to encode %s args: %w", command, err)
	}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("daemon %s failed: %s", command, resp.Message)
	}
	if out != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", command, err)
		}
	}
	return nil
}

// Server accepts IPC connections and dispatches them to a Handler
type Server struct {
	SocketPath string
	Handler    Handler
	Logger     *zap.Logger
}

// ListenAndServe starts the IPC server and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if runtime.GOOS == "windows" {
		return errors.New("IPC server not implemented for Windows yet")
	}
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Remove any stale socket
	os.Remove(s.SocketPath)
	ln, err := net.Listen("unix", s.SocketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}
	defer os.Remove(s.SocketPath)
	os.Chmod(s.SocketPath, 0600)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	logger.Info("IPC server listening", zap.String("socket", s.SocketPath))

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Debug("IPC accept failed", zap.Error(err))
			continue // Accept next connection
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConn(ctx, conn, logger)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn, logger *zap.Logger) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	var req Request
	if err := dec.Decode(&req); err != nil {
		enc.Encode(ErrorResponse("invalid request: " + err.Error()))
		return
	}
	logger.Debug("IPC request", zap.String("command", req.Command))

	resp := s.Handler(ctx, &req)
	if resp == nil {
		resp = ErrorResponse("no response")
	}
	if err := enc.Encode(resp); err != nil {
		logger.Debug("Failed to write IPC response", zap.Error(err))
	}
}
