// Package relay forwards one request per native host connection and turns
// whatever comes back into exactly one Response.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/berrythewa/gpsio-bridge/internal/nativemsg"
	"github.com/berrythewa/gpsio-bridge/internal/types"

	"go.uber.org/zap"
)

// Synthetic error messages
const (
	MsgUnexpectedDisconnect = types.MsgUnexpectedDisconnect
	MsgMalformedReply       = "Malformed reply from native host"
	MsgMissingStatus        = "Reply missing status"
)

// PreferenceLoader supplies the options merged into outgoing requests
type PreferenceLoader interface {
	Load() (types.Preferences, error)
}

// Relay opens a native host connection per request. It holds no
// per-request state, so one Relay serves any number of concurrent callers.
type Relay struct {
	connector nativemsg.Connector
	prefs     PreferenceLoader
	logger    *zap.Logger
	timeout   time.Duration
}

// Option configures a Relay
type Option func(*Relay)

// WithTimeout bounds each request. Zero, the default, waits for the host forever.
func WithTimeout(d time.Duration) Option {
	return func(r *Relay) { r.timeout = d }
}

// New creates a Relay. prefs may be nil, in which case nothing is merged.
func New(connector nativemsg.Connector, prefs PreferenceLoader, logger *zap.Logger, opts ...Option) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Relay{
		connector: connector,
		prefs:     prefs,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Relay attaches the stored preferences under "options", sends req to the
// native host and waits for it to disconnect.
// The returned Response always carries a status.
func (r *Relay) Relay(ctx context.Context, req types.Request) types.Response {
	return r.relay(ctx, req, true)
}

// Ping sends req without merging preferences; used for host liveness checks
func (r *Relay) Ping(ctx context.Context, req types.Request) types.Response {
	return r.relay(ctx, req, false)
}

// Forward implements bridge.Forwarder
func (r *Relay) Forward(ctx context.Context, req types.Request) (types.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.Relay(ctx, req), nil
}

func (r *Relay) relay(ctx context.Context, req types.Request, merge bool) types.Response {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	logger := r.logger.With(zap.String("cmd", req.Cmd()), zap.Any("id", req.ID()))
	logger.Debug("Relaying request")

	port, err := r.connector.Connect(ctx)
	if err != nil {
		// the browser reports a host that cannot start as an immediate disconnect
		logger.Warn("Failed to connect to native host", zap.Error(err))
		return types.NewErrorResponse(MsgUnexpectedDisconnect)
	}
	defer port.Close()

	// Start draining before sending so a host that replies early is never blocked
	done := make(chan []byte, 1)
	go func() {
		done <- r.accumulate(port, logger)
	}()

	out := req
	if merge && r.prefs != nil {
		prefs, err := r.prefs.Load()
		if err != nil {
			logger.Warn("Failed to load preferences, sending defaults", zap.Error(err))
		}
		out = req.WithOptions(prefs)
	}

	if err := port.Send(out); err != nil {
		logger.Warn("Failed to send request to native host", zap.Error(err))
		port.Close()
	}

	var buffer []byte
	select {
	case buffer = <-done:
	case <-ctx.Done():
		logger.Warn("Request abandoned", zap.Error(ctx.Err()))
		port.Close()
		buffer = <-done
	}

	return r.resolve(buffer, logger)
}

// accumulate appends every inbound frame until the host disconnects
func (r *Relay) accumulate(port nativemsg.Port, logger *zap.Logger) []byte {
	var buf bytes.Buffer
	for {
		msg, err := port.Recv()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debug("Native channel closed with error", zap.Error(err))
			}
			return buf.Bytes()
		}
		logger.Debug("Received chunk", zap.Int("bytes", len(msg)))
		buf.Write(chunkText(msg))
	}
}

// chunkText returns the text a frame contributes to the reply. Hosts split
// large replies into JSON string fragments; anything else is taken as is.
func chunkText(msg []byte) []byte {
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		return []byte(s)
	}
	return msg
}

func (r *Relay) resolve(buffer []byte, logger *zap.Logger) types.Response {
	if len(bytes.TrimSpace(buffer)) == 0 {
		logger.Info("Native host disconnected without a reply")
		return types.NewErrorResponse(MsgUnexpectedDisconnect)
	}

	var resp types.Response
	if err := json.Unmarshal(buffer, &resp); err != nil {
		logger.Error("Malformed reply from native host",
			zap.Error(err),
			zap.Int("bytes", len(buffer)))
		return types.NewErrorResponse(fmt.Sprintf("%s: %v", MsgMalformedReply, err))
	}
	if resp == nil {
		return types.NewErrorResponse(MsgMissingStatus)
	}
	if !resp.HasStatus() {
		logger.Warn("Reply has no status field")
		resp["status"] = types.StatusError
		if resp.Message() == "" {
			resp["message"] = MsgMissingStatus
		}
	}

	logger.Debug("Request resolved", zap.String("status", resp.Status()))
	return resp
}
