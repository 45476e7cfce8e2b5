package daemon

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/berrythewa/gpsio-bridge/internal/ipc"
	"github.com/berrythewa/gpsio-bridge/internal/nativemsg/nativemsgtest"
	"github.com/berrythewa/gpsio-bridge/internal/relay"
	"github.com/berrythewa/gpsio-bridge/internal/storage"
	"github.com/berrythewa/gpsio-bridge/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandler(t *testing.T) (*Handler, *nativemsgtest.Host) {
	t.Helper()
	store, err := storage.Open(storage.Config{Path: filepath.Join(t.TempDir(), "gpsio.db")})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	host := nativemsgtest.NewHost(func(req map[string]interface{}) [][]byte {
		return nativemsgtest.Reply(map[string]interface{}{"cmd": req["cmd"], "status": "ok", "version": 1})
	})
	return NewHandler(relay.New(host, store, nil), store, nil), host
}

func call(t *testing.T, h *Handler, command string, args interface{}) *ipc.Response {
	t.Helper()
	req, err := ipc.NewRequest(command, args)
	require.NoError(t, err)
	return h.Handle(context.Background(), req)
}

func TestHandlerPreferences(t *testing.T) {
	h, _ := setupHandler(t)

	resp := call(t, h, ipc.CmdPrefsLoad, nil)
	require.Equal(t, "ok", resp.Status)
	var prefs types.Preferences
	require.NoError(t, json.Unmarshal(resp.Data, &prefs))
	assert.Equal(t, types.DefaultPreferences(), prefs)

	sizeSel := "1MB"
	resp = call(t, h, ipc.CmdPrefsSave, types.PreferencesPatch{SizeSel: &sizeSel})
	require.Equal(t, "ok", resp.Status, resp.Message)

	resp = call(t, h, ipc.CmdPrefsLoad, nil)
	require.NoError(t, json.Unmarshal(resp.Data, &prefs))
	assert.Equal(t, "1MB", prefs.SizeSel)
	assert.Equal(t, "72", prefs.TimeSel)

	resp = call(t, h, ipc.CmdPrefsReset, nil)
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, &prefs))
	assert.Equal(t, types.DefaultPreferences(), prefs)
}

func TestHandlerSession(t *testing.T) {
	h, _ := setupHandler(t)

	var session ipc.SessionArgs
	resp := call(t, h, ipc.CmdSessionGet, nil)
	require.NoError(t, json.Unmarshal(resp.Data, &session))
	assert.False(t, session.UpdatePopupShown)

	resp = call(t, h, ipc.CmdSessionSet, ipc.SessionArgs{UpdatePopupShown: true})
	require.Equal(t, "ok", resp.Status)

	resp = call(t, h, ipc.CmdSessionGet, nil)
	require.NoError(t, json.Unmarshal(resp.Data, &session))
	assert.True(t, session.UpdatePopupShown)
}

func TestHandlerRelay(t *testing.T) {
	h, host := setupHandler(t)

	resp := call(t, h, ipc.CmdRelay, ipc.RelayArgs{Request: map[string]interface{}{"cmd": "export", "id": 3}})
	require.Equal(t, "ok", resp.Status)
	var out types.Response
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	assert.True(t, out.OK())

	resp = call(t, h, ipc.CmdRelay, ipc.RelayArgs{Request: map[string]interface{}{"cmd": "ping-host"}, Ping: true})
	require.Equal(t, "ok", resp.Status)

	reqs := host.Requests()
	require.Len(t, reqs, 2)
	assert.Contains(t, reqs[0], "options")
	assert.NotContains(t, reqs[1], "options")
}

func TestHandlerErrors(t *testing.T) {
	h, _ := setupHandler(t)

	resp := h.Handle(context.Background(), &ipc.Request{Command: "history"})
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Message, "unknown command")

	resp = h.Handle(context.Background(), &ipc.Request{Command: ipc.CmdPrefsSave, Args: json.RawMessage(`{"size":"yes"}`)})
	assert.Equal(t, "error", resp.Status)

	resp = h.Handle(context.Background(), &ipc.Request{Command: ipc.CmdPing})
	assert.Equal(t, "ok", resp.Status)
}
