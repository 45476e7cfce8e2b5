package daemon

import (
	"context"
	"encoding/json"

	"github.com/berrythewa/gpsio-bridge/internal/ipc"
	"github.com/berrythewa/gpsio-bridge/internal/relay"
	"github.com/berrythewa/gpsio-bridge/internal/storage"
	"github.com/berrythewa/gpsio-bridge/internal/types"

	"go.uber.org/zap"
)

// Store is the storage the daemon serves to the CLI
type Store interface {
	storage.PreferenceStore
	storage.SessionStore
}

// Handler answers CLI requests on behalf of the popup
type Handler struct {
	relay  *relay.Relay
	store  Store
	logger *zap.Logger
}

// NewHandler creates a Handler
func NewHandler(r *relay.Relay, store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{relay: r, store: store, logger: logger}
}

// Handle processes one incoming IPC request from the CLI.
func (h *Handler) Handle(ctx context.Context, req *ipc.Request) *ipc.Response {
	switch req.Command {
	case ipc.CmdPing:
		return ipc.OKResponse(nil)

	case ipc.CmdRelay:
		var args ipc.RelayArgs
		if err := decodeArgs(req, &args); err != nil {
			return ipc.ErrorResponse(err.Error())
		}
		msg := types.Request(args.Request)
		if msg == nil {
			msg = types.Request{}
		}
		var resp types.Response
		if args.Ping {
			resp = h.relay.Ping(ctx, msg)
		} else {
			resp = h.relay.Relay(ctx, msg)
		}
		return ipc.OKResponse(resp)

	case ipc.CmdPrefsLoad:
		prefs, err := h.store.Load()
		if err != nil {
			return ipc.ErrorResponse(err.Error())
		}
		return ipc.OKResponse(prefs)

	case ipc.CmdPrefsSave:
		var patch types.PreferencesPatch
		if err := decodeArgs(req, &patch); err != nil {
			return ipc.ErrorResponse(err.Error())
		}
		if err := h.store.Save(patch); err != nil {
			return ipc.ErrorResponse(err.Error())
		}
		return ipc.OKResponse(nil)

	case ipc.CmdPrefsReset:
		prefs, err := h.store.Reset()
		if err != nil {
			return ipc.ErrorResponse(err.Error())
		}
		return ipc.OKResponse(prefs)

	case ipc.CmdSessionGet:
		shown, err := h.store.UpdatePopupShown()
		if err != nil {
			return ipc.ErrorResponse(err.Error())
		}
		return ipc.OKResponse(ipc.SessionArgs{UpdatePopupShown: shown})

	case ipc.CmdSessionSet:
		var args ipc.SessionArgs
		if err := decodeArgs(req, &args); err != nil {
			return ipc.ErrorResponse(err.Error())
		}
		if err := h.store.SetUpdatePopupShown(args.UpdatePopupShown); err != nil {
			return ipc.ErrorResponse(err.Error())
		}
		return ipc.OKResponse(nil)

	default:
		h.logger.Debug("Unknown IPC command", zap.String("command", req.Command))
		return ipc.ErrorResponse("unknown command: " + req.Command)
	}
}

func decodeArgs(req *ipc.Request, v interface{}) error {
	if len(req.Args) == 0 {
		return nil
	}
	return json.Unmarshal(req.Args, v)
}
