package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/berrythewa/gpsio-bridge/internal/config"
	"github.com/berrythewa/gpsio-bridge/internal/daemon"
	"github.com/berrythewa/gpsio-bridge/internal/ipc"
	"github.com/berrythewa/gpsio-bridge/internal/nativemsg"
	"github.com/berrythewa/gpsio-bridge/internal/popup"
	"github.com/berrythewa/gpsio-bridge/internal/relay"
	"github.com/berrythewa/gpsio-bridge/internal/storage"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// openBackend talks to the running daemon if there is one, and otherwise
// opens the store and launches the host from this process
func openBackend() (popup.Backend, func(), error) {
	logger := GetZapLogger()

	if config.IPCSupported() {
		client := ipc.NewClient(cfg.IPC.Socket)
		if client.Available() {
			logger.Debug("Using daemon", zap.String("socket", cfg.IPC.Socket))
			return popup.NewIPCBackend(client), func() {}, nil
		}
	}

	return openLocalBackend(daemon.NewExecConnector(cfg, logger.Named("host")))
}

// openLocalBackend opens the store in this process. Without a live daemon
// the process is its own session, so the session flag starts cleared.
func openLocalBackend(connector nativemsg.Connector) (popup.Backend, func(), error) {
	logger := GetZapLogger()

	dbPath := cfg.Storage.DBPath
	if dbPath == "" {
		dbPath = cfg.SystemPaths.DBFile
	}
	if err := cfg.SystemPaths.EnsureDirs(); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directories: %w", err)
	}
	store, err := storage.Open(storage.Config{
		Path:    dbPath,
		Logger:  logger.Named("storage"),
		Timeout: time.Second,
	})
	if err != nil {
		if errors.Is(err, bbolt.ErrTimeout) {
			return nil, nil, fmt.Errorf("preference store is locked; is the daemon running without IPC? %w", err)
		}
		return nil, nil, err
	}
	logger.Debug("Using local store", zap.String("db", dbPath))

	if _, running := daemon.Status(cfg.SystemPaths.PIDFile); !running {
		if err := store.ResetSession(); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("failed to reset session: %w", err)
		}
	}

	r := relay.New(connector, store, logger.Named("relay"), relay.WithTimeout(cfg.Relay.RequestTimeout))
	return popup.NewLocalBackend(store, r), func() { store.Close() }, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
