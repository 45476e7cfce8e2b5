package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/berrythewa/gpsio-bridge/internal/bridge"
	"github.com/berrythewa/gpsio-bridge/internal/config"
	"github.com/berrythewa/gpsio-bridge/internal/ipc"
	"github.com/berrythewa/gpsio-bridge/internal/nativemsg"
	"github.com/berrythewa/gpsio-bridge/internal/relay"
	"github.com/berrythewa/gpsio-bridge/internal/storage"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Daemon is the long-lived background: it owns the preference store and
// serves pages over the content bridge and the CLI over IPC.
type Daemon struct {
	cfg       *config.Config
	logger    *zap.Logger
	connector nativemsg.Connector
	listener  net.Listener
	version   string
}

// Option configures a Daemon
type Option func(*Daemon)

// WithConnector replaces the exec connector built from the host config
func WithConnector(c nativemsg.Connector) Option {
	return func(d *Daemon) { d.connector = c }
}

// WithBridgeListener serves the content bridge on ln instead of bridge.listen
func WithBridgeListener(ln net.Listener) Option {
	return func(d *Daemon) { d.listener = ln }
}

// WithVersion sets the build version reported by the health endpoint
func WithVersion(v string) Option {
	return func(d *Daemon) { d.version = v }
}

// New creates a daemon from cfg
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) *Daemon {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Daemon{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run serves until ctx is cancelled. In-flight native requests are
// cancelled on the way out and resolve as disconnects.
func (d *Daemon) Run(ctx context.Context) error {
	paths := d.cfg.SystemPaths
	if err := paths.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create data directories: %w", err)
	}

	if pid, running := Status(paths.PIDFile); running && pid != os.Getpid() {
		return fmt.Errorf("daemon already running with PID %d", pid)
	}
	if err := WritePID(paths.PIDFile, os.Getpid()); err != nil {
		return err
	}
	defer RemovePID(paths.PIDFile)

	dbPath := d.cfg.Storage.DBPath
	if dbPath == "" {
		dbPath = paths.DBFile
	}
	store, err := storage.Open(storage.Config{Path: dbPath, Logger: d.logger.Named("storage")})
	if err != nil {
		return err
	}
	defer store.Close()

	// the update notice is shown once per daemon run
	if err := store.ResetSession(); err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}

	connector := d.connector
	if connector == nil {
		connector = NewExecConnector(d.cfg, d.logger.Named("host"))
	}
	r := relay.New(connector, store, d.logger.Named("relay"), relay.WithTimeout(d.cfg.Relay.RequestTimeout))
	b := bridge.New(r, d.logger.Named("bridge"))
	server := bridge.NewServer(b, bridge.ServerConfig{
		Addr:           d.cfg.Bridge.Listen,
		AllowedOrigins: d.cfg.Bridge.AllowedOrigins,
		Version:        d.version,
		Logger:         d.logger.Named("server"),
	})

	d.logger.Info("Daemon starting",
		zap.Int("pid", os.Getpid()),
		zap.String("listen", d.cfg.Bridge.Listen),
		zap.String("db", dbPath),
		zap.String("host", d.cfg.Host.Name))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if d.listener != nil {
			return server.Serve(ctx, d.listener)
		}
		return server.ListenAndServe(ctx)
	})

	if config.IPCSupported() {
		ipcServer := &ipc.Server{
			SocketPath: d.cfg.IPC.Socket,
			Handler:    NewHandler(r, store, d.logger.Named("ipc")).Handle,
			Logger:     d.logger.Named("ipc"),
		}
		g.Go(func() error {
			return ipcServer.ListenAndServe(ctx)
		})
	} else {
		d.logger.Warn("IPC is not supported on this platform; the CLI will use the store directly when the daemon is stopped")
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	d.logger.Info("Daemon stopped")
	return err
}

// NewExecConnector builds the connector that launches the configured host
func NewExecConnector(cfg *config.Config, logger *zap.Logger) *nativemsg.ExecConnector {
	var origin string
	if len(cfg.Install.AllowedOrigins) > 0 {
		origin = cfg.Install.AllowedOrigins[0]
	}
	return &nativemsg.ExecConnector{
		HostName: cfg.Host.Name,
		Path:     cfg.Host.Path,
		Origin:   origin,
		Args:     cfg.Host.Args,
		Logger:   logger,
	}
}
