// Package bridge relays page-originated requests to the native relay and
// returns exactly one reply per recognized message.
package bridge

import (
	"context"
	"fmt"

	"github.com/berrythewa/gpsio-bridge/internal/types"

	"go.uber.org/zap"
)

// ReloadNotice is shown to the user when the bridge lost its link to the
// relay and cannot recover on its own
const ReloadNotice = "The GPSIO extension was updated or restarted. Please reload this page to continue."

// Forwarder delivers a request to the native relay
type Forwarder interface {
	Forward(ctx context.Context, req types.Request) (types.Response, error)
}

// ForwarderFunc adapts a function to the Forwarder interface
type ForwarderFunc func(ctx context.Context, req types.Request) (types.Response, error)

// Forward calls f(ctx, req)
func (f ForwarderFunc) Forward(ctx context.Context, req types.Request) (types.Response, error) {
	return f(ctx, req)
}

// Bridge answers page messages
type Bridge struct {
	forwarder Forwarder
	logger    *zap.Logger
}

// New creates a Bridge forwarding to f
func New(f Forwarder, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{forwarder: f, logger: logger}
}

// Handle processes one raw page message. It returns false for messages that
// are not addressed to the bridge; those get no reply.
func (b *Bridge) Handle(ctx context.Context, raw []byte) (*Reply, bool) {
	msg, req, err := parsePageMessage(raw)
	if err != nil {
		b.logger.Debug("Ignoring unparsable page message", zap.Error(err))
		return nil, false
	}
	if !msg.Recognized() {
		return nil, false
	}

	logger := b.logger.With(zap.String("cmd", msg.Cmd), zap.ByteString("id", msg.ID))

	if msg.Cmd == types.CmdPingExtension {
		logger.Debug("Answering extension ping locally")
		return newReply(msg.ID, types.NewOKResponse(types.CmdPingExtension)), true
	}

	resp, err := b.forward(ctx, req)
	if err != nil {
		logger.Warn("Forwarding failed, asking page to reload", zap.Error(err))
		reply := newReply(msg.ID, types.NewErrorResponse(ReloadNotice))
		reply.Notice = ReloadNotice
		return reply, true
	}
	if resp == nil || !resp.HasStatus() {
		logger.Warn("Forwarder returned no usable response")
		resp = types.NewErrorResponse(types.MsgUnexpectedDisconnect)
	}

	logger.Debug("Relayed page request", zap.String("status", resp.Status()))
	return newReply(msg.ID, resp), true
}

func (b *Bridge) forward(ctx context.Context, req types.Request) (resp types.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("forwarder panicked: %v", r)
		}
	}()
	if b.forwarder == nil {
		return nil, fmt.Errorf("no forwarder configured")
	}
	return b.forwarder.Forward(ctx, req)
}
