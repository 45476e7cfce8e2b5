package popup

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/berrythewa/gpsio-bridge/internal/nativemsg/nativemsgtest"
	"github.com/berrythewa/gpsio-bridge/internal/relay"
	"github.com/berrythewa/gpsio-bridge/internal/storage"
	"github.com/berrythewa/gpsio-bridge/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBackend(t *testing.T, handler nativemsgtest.HandlerFunc) (*LocalBackend, *nativemsgtest.Host, *storage.BoltStore) {
	t.Helper()
	store, err := storage.Open(storage.Config{Path: filepath.Join(t.TempDir(), "gpsio.db")})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	host := nativemsgtest.NewHost(handler)
	return NewLocalBackend(store, relay.New(host, store, nil)), host, store
}

func hostAt(version interface{}) nativemsgtest.HandlerFunc {
	return func(req map[string]interface{}) [][]byte {
		return nativemsgtest.Reply(map[string]interface{}{
			"cmd":     req["cmd"],
			"status":  "ok",
			"version": version,
		})
	}
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		ext, host string
		want      int
	}{
		{"1.1.0", "1.0", 1},
		{"1.0", "1.0", 0},
		{"1.0.0", "1.0", 0},
		{"1.0", "1.1.0", -1},
		{"1.10.0", "1.9.0", 1},
		{"2.0", "1.99", 1},
	}
	for _, tt := range tests {
		t.Run(tt.ext+"_vs_"+tt.host, func(t *testing.T) {
			got, err := CompareVersions(tt.ext, tt.host)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("empty", func(t *testing.T) {
		_, err := CompareVersions("1.1.0", "")
		assert.ErrorIs(t, err, ErrNoVersion)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := CompareVersions("1.1.0", "not-a-version")
		assert.Error(t, err)
	})
}

func TestStatusUpdateAvailableNoticeOncePerSession(t *testing.T) {
	backend, _, store := setupBackend(t, hostAt(1))
	status := NewStatus(backend, "1.1.0", nil)
	assert.Equal(t, StateChecking, status.State())

	first := status.Check(context.Background())
	assert.Equal(t, StateUpdateAvailable, first.State)
	assert.Equal(t, "1.0", first.HostVersion)
	require.NotNil(t, first.Notice)
	assert.Equal(t, "1.0", first.Notice.CurrentVersion)
	assert.Equal(t, "1.1.0", first.Notice.NewestVersion)
	assert.Contains(t, first.Notice.Details, "Remove numbers from assignment names")
	assert.Contains(t, first.Notice.String(), "Current host version: 1.0 --> Newest host version: 1.1.0")

	for i := 0; i < 3; i++ {
		again := status.Check(context.Background())
		assert.Equal(t, StateUpdateAvailable, again.State)
		assert.Nil(t, again.Notice)
	}
	assert.Equal(t, StateUpdateAvailable, status.State())

	// a new session shows it again
	require.NoError(t, store.ResetSession())
	assert.NotNil(t, status.Check(context.Background()).Notice)
}

func TestStatusGood(t *testing.T) {
	for _, version := range []interface{}{"1.1.0", "1.2", nil, "bogus"} {
		backend, _, _ := setupBackend(t, hostAt(version))
		result := NewStatus(backend, "1.1.0", nil).Check(context.Background())
		assert.Equal(t, StateGood, result.State, "host version %v", version)
		assert.Nil(t, result.Notice)
	}
}

func TestStatusBad(t *testing.T) {
	t.Run("disconnect", func(t *testing.T) {
		backend, _, _ := setupBackend(t, func(req map[string]interface{}) [][]byte { return nil })
		status := NewStatus(backend, "1.1.0", nil)
		result := status.Check(context.Background())
		assert.Equal(t, StateBad, result.State)
		assert.Equal(t, "Unexpected disconnect", result.Message)
		assert.Equal(t, StateBad, status.State())
	})

	t.Run("host error", func(t *testing.T) {
		backend, _, _ := setupBackend(t, func(req map[string]interface{}) [][]byte {
			return nativemsgtest.Reply(map[string]interface{}{"status": "error", "message": "no gps"})
		})
		result := NewStatus(backend, "1.1.0", nil).Check(context.Background())
		assert.Equal(t, StateBad, result.State)
		assert.Equal(t, "no gps", result.Message)
	})

	t.Run("backend error", func(t *testing.T) {
		result := NewStatus(failingBackend{}, "1.1.0", nil).Check(context.Background())
		assert.Equal(t, StateBad, result.State)
		assert.Equal(t, "daemon gone", result.Message)
	})
}

func TestStatusPingRequest(t *testing.T) {
	backend, host, _ := setupBackend(t, hostAt("1.1.0"))
	status := NewStatus(backend, "1.1.0", nil)
	status.Check(context.Background())
	status.Check(context.Background())

	reqs := host.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "ping-host", reqs[0]["cmd"])
	assert.Equal(t, "gpsio", reqs[0]["type"])
	assert.NotContains(t, reqs[0], "options")
	assert.Equal(t, reqs[0]["id"], reqs[1]["id"])
	assert.Equal(t, 2, host.Connects())
}

func TestOptions(t *testing.T) {
	ctx := context.Background()
	backend, _, store := setupBackend(t, nil)
	form := NewOptions(backend)

	prefs, err := form.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultPreferences(), prefs)

	t.Run("set persists", func(t *testing.T) {
		prefs, err := form.Set(ctx, types.KeyTimeSel, "24")
		require.NoError(t, err)
		assert.Equal(t, "24", prefs.TimeSel)

		prefs, err = form.Set(ctx, types.KeyRemoveNumbers, "false")
		require.NoError(t, err)
		assert.False(t, prefs.RemoveNumbers)

		stored, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, "24", stored.TimeSel)
		assert.False(t, stored.RemoveNumbers)
		assert.Equal(t, form.Values(), stored)
	})

	t.Run("set rejects bad input", func(t *testing.T) {
		_, err := form.Set(ctx, "colour", "red")
		assert.Error(t, err)
		_, err = form.Set(ctx, types.KeySize, "maybe")
		assert.Error(t, err)
		_, err = form.Set(ctx, types.KeyMethod, "newest")
		assert.Error(t, err)
		assert.Equal(t, "24", form.Values().TimeSel)
	})

	t.Run("reset", func(t *testing.T) {
		prefs, err := form.Reset(ctx)
		require.NoError(t, err)
		assert.Equal(t, types.DefaultPreferences(), prefs)

		stored, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, types.DefaultPreferences(), stored)
	})
}

func TestOptionsMergedIntoRelay(t *testing.T) {
	ctx := context.Background()
	backend, host, _ := setupBackend(t, hostAt("1.1.0"))
	_, err := NewOptions(backend).Set(ctx, types.KeyMethod, types.MethodRecent)
	require.NoError(t, err)

	resp, err := backend.Relay(ctx, types.Request{"cmd": "import", "type": "gpsio", "id": 1})
	require.NoError(t, err)
	assert.True(t, resp.OK())

	reqs := host.Requests()
	require.Len(t, reqs, 1)
	options, ok := reqs[0]["options"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "recent", options["method"])
}

type failingBackend struct{ Backend }

func (failingBackend) Ping(ctx context.Context, req types.Request) (types.Response, error) {
	return nil, errors.New("daemon gone")
}
