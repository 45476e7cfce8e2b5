package popup

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/berrythewa/gpsio-bridge/internal/ipc"
	"github.com/berrythewa/gpsio-bridge/internal/relay"
	"github.com/berrythewa/gpsio-bridge/internal/storage"
	"github.com/berrythewa/gpsio-bridge/internal/types"
)

// Backend is everything the status/settings UI needs from the background
type Backend interface {
	// Relay forwards a request to the native host with preferences merged in
	Relay(ctx context.Context, req types.Request) (types.Response, error)
	// Ping forwards a request without merging preferences
	Ping(ctx context.Context, req types.Request) (types.Response, error)
	LoadPreferences(ctx context.Context) (types.Preferences, error)
	SavePreferences(ctx context.Context, patch types.PreferencesPatch) error
	ResetPreferences(ctx context.Context) (types.Preferences, error)
	UpdatePopupShown(ctx context.Context) (bool, error)
	SetUpdatePopupShown(ctx context.Context, shown bool) error
}

// Store is the storage a LocalBackend works against
type Store interface {
	storage.PreferenceStore
	storage.SessionStore
}

// LocalBackend serves the UI in-process when no daemon is running
type LocalBackend struct {
	store Store
	relay *relay.Relay
}

// NewLocalBackend creates a backend over an open store and relay
func NewLocalBackend(store Store, r *relay.Relay) *LocalBackend {
	return &LocalBackend{store: store, relay: r}
}

func (b *LocalBackend) Relay(ctx context.Context, req types.Request) (types.Response, error) {
	return b.relay.Relay(ctx, req), nil
}

func (b *LocalBackend) Ping(ctx context.Context, req types.Request) (types.Response, error) {
	return b.relay.Ping(ctx, req), nil
}

func (b *LocalBackend) LoadPreferences(ctx context.Context) (types.Preferences, error) {
	return b.store.Load()
}

func (b *LocalBackend) SavePreferences(ctx context.Context, patch types.PreferencesPatch) error {
	return b.store.Save(patch)
}

func (b *LocalBackend) ResetPreferences(ctx context.Context) (types.Preferences, error) {
	return b.store.Reset()
}

func (b *LocalBackend) UpdatePopupShown(ctx context.Context) (bool, error) {
	return b.store.UpdatePopupShown()
}

func (b *LocalBackend) SetUpdatePopupShown(ctx context.Context, shown bool) error {
	return b.store.SetUpdatePopupShown(shown)
}

// IPCBackend forwards UI operations to a running daemon
type IPCBackend struct {
	client *ipc.Client
}

// NewIPCBackend creates a backend talking to the daemon through client
func NewIPCBackend(client *ipc.Client) *IPCBackend {
	return &IPCBackend{client: client}
}

func (b *IPCBackend) Relay(ctx context.Context, req types.Request) (types.Response, error) {
	return b.relay(ctx, req, false)
}

func (b *IPCBackend) Ping(ctx context.Context, req types.Request) (types.Response, error) {
	return b.relay(ctx, req, true)
}

func (b *IPCBackend) relay(ctx context.Context, req types.Request, ping bool) (types.Response, error) {
	var raw json.RawMessage
	if err := b.client.Call(ctx, ipc.CmdRelay, ipc.RelayArgs{Request: req, Ping: ping}, &raw); err != nil {
		return nil, err
	}
	var resp types.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode relay response: %w", err)
	}
	return resp, nil
}

func (b *IPCBackend) LoadPreferences(ctx context.Context) (types.Preferences, error) {
	var prefs types.Preferences
	err := b.client.Call(ctx, ipc.CmdPrefsLoad, nil, &prefs)
	return prefs, err
}

func (b *IPCBackend) SavePreferences(ctx context.Context, patch types.PreferencesPatch) error {
	return b.client.Call(ctx, ipc.CmdPrefsSave, patch, nil)
}

func (b *IPCBackend) ResetPreferences(ctx context.Context) (types.Preferences, error) {
	var prefs types.Preferences
	err := b.client.Call(ctx, ipc.CmdPrefsReset, nil, &prefs)
	return prefs, err
}

func (b *IPCBackend) UpdatePopupShown(ctx context.Context) (bool, error) {
	var args ipc.SessionArgs
	err := b.client.Call(ctx, ipc.CmdSessionGet, nil, &args)
	return args.UpdatePopupShown, err
}

func (b *IPCBackend) SetUpdatePopupShown(ctx context.Context, shown bool) error {
	return b.client.Call(ctx, ipc.CmdSessionSet, ipc.SessionArgs{UpdatePopupShown: shown}, nil)
}
