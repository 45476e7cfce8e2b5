package cmd

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/pterm/pterm"

	"github.com/berrythewa/gpsio-bridge/internal/daemon"
	"github.com/berrythewa/gpsio-bridge/internal/nativemsg"
	"github.com/berrythewa/gpsio-bridge/internal/nativemsg/nativemsgtest"
	"github.com/berrythewa/gpsio-bridge/internal/popup"
	"github.com/berrythewa/gpsio-bridge/internal/storage"
	"github.com/berrythewa/gpsio-bridge/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("GPSIO_CONFIG", "")
	t.Setenv("GPSIO_CONFIG_DIR", filepath.Join(dir, "config"))
	t.Setenv("GPSIO_DATA_DIR", filepath.Join(dir, "data"))
	// no daemon: commands fall back to the local store
	t.Setenv("GPSIO_SOCKET", filepath.Join(dir, "none.sock"))
	t.Setenv("GPSIO_LOG_LEVEL", "error")
	return dir
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	cfg = nil
	zapLogger = nil
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func TestOptionsCommands(t *testing.T) {
	dir := setupEnv(t)
	dbPath := filepath.Join(dir, "data", "gpsio.db")

	require.NoError(t, run(t, "options", "set", "method", "recent"))
	require.NoError(t, run(t, "options", "set", "removeNumbers", "false"))
	require.NoError(t, run(t, "options", "show"))
	assert.Error(t, run(t, "options", "set", "colour", "red"))

	store, err := storage.Open(storage.Config{Path: dbPath})
	require.NoError(t, err)
	prefs, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "recent", prefs.Method)
	assert.False(t, prefs.RemoveNumbers)
	require.NoError(t, store.Close())

	require.NoError(t, run(t, "options", "reset"))

	store, err = storage.Open(storage.Config{Path: dbPath})
	require.NoError(t, err)
	defer store.Close()
	prefs, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, types.DefaultPreferences(), prefs)
}

func TestInstallCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("writes to the registry on windows")
	}
	dir := setupEnv(t)

	require.NoError(t, run(t, "install", "--host-path", "/opt/gpsio/gpsio-host", "--browser", "firefox"))

	m, path, err := nativemsg.LookupManifestIn("com.caltopo.gpsio", dir, runtime.GOOS)
	require.NoError(t, err)
	want, err := nativemsg.ManifestPath(nativemsg.BrowserFirefox, "com.caltopo.gpsio", dir, runtime.GOOS)
	require.NoError(t, err)
	assert.Equal(t, want, path)
	assert.Equal(t, "/opt/gpsio/gpsio-host", m.Path)
	assert.Contains(t, m.AllowedExtensions, "gpsio@caltopo.com")

	assert.Error(t, run(t, "uninstall", "--browser", "opera"))
}

func TestStatusCommandHostMissing(t *testing.T) {
	setupEnv(t)
	t.Setenv("GPSIO_HOST_PATH", filepath.Join(t.TempDir(), "missing-host"))

	err := run(t, "status")
	assert.ErrorIs(t, err, errHostUnavailable)
}

func TestStatusSpinnerNeedsTerminal(t *testing.T) {
	saved := stdoutIsTerminal
	savedRaw := pterm.RawOutput
	t.Cleanup(func() {
		stdoutIsTerminal = saved
		pterm.RawOutput = savedRaw
	})

	stdoutIsTerminal = func() bool { return false }
	assert.False(t, useSpinner())

	stdoutIsTerminal = func() bool { return true }
	pterm.RawOutput = true
	assert.False(t, useSpinner())

	setupEnv(t)
	stdoutIsTerminal = func() bool { return false }
	t.Setenv("GPSIO_HOST_PATH", filepath.Join(t.TempDir(), "missing-host"))
	assert.ErrorIs(t, run(t, "status"), errHostUnavailable)
}

func TestLocalBackendSessionPerProcess(t *testing.T) {
	setupEnv(t)
	require.NoError(t, run(t, "config", "path"))

	host := nativemsgtest.NewHost(func(req map[string]interface{}) [][]byte {
		return nativemsgtest.Reply(map[string]interface{}{"status": "ok", "version": 1})
	})
	check := func() popup.Result {
		backend, closeBackend, err := openLocalBackend(host)
		require.NoError(t, err)
		defer closeBackend()
		return popup.NewStatus(backend, "1.1.0", nil).Check(context.Background())
	}

	// each daemon-less process is a new session
	for i := 1; i <= 3; i++ {
		result := check()
		assert.Equal(t, popup.StateUpdateAvailable, result.State, "run %d", i)
		assert.NotNil(t, result.Notice, "run %d", i)
	}

	// a live daemon owns the session flag
	require.NoError(t, daemon.WritePID(cfg.SystemPaths.PIDFile, os.Getpid()))
	result := check()
	assert.Equal(t, popup.StateUpdateAvailable, result.State)
	assert.Nil(t, result.Notice)
}

func TestConfigCommands(t *testing.T) {
	dir := setupEnv(t)
	require.NoError(t, run(t, "config", "path"))
	assert.FileExists(t, filepath.Join(dir, "config", "config.yaml"))
	require.NoError(t, run(t, "config", "show"))
	require.NoError(t, run(t, "version"))
}
