package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/berrythewa/gpsio-bridge/internal/daemon"
)

// newDaemonCmd creates the daemon command
func newDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the GPSIO bridge daemon",
		Long: `Manage the daemon that relays page requests to the GPSIO native host.

The daemon:
  • Serves pages on the content bridge websocket
  • Owns the preference store and the per-session update notice flag
  • Answers the status and options commands over a local socket`,
	}

	// Add subcommands
	cmd.AddCommand(newDaemonStartCmd())
	cmd.AddCommand(newDaemonStopCmd())
	cmd.AddCommand(newDaemonStatusCmd())
	cmd.AddCommand(newDaemonRestartCmd())

	return cmd
}

func newDaemonStartCmd() *cobra.Command {
	var detach bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the GPSIO bridge daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetZapLogger()
			if detach {
				return startDetached(logger)
			}

			logger.Info("Starting GPSIO bridge daemon in foreground",
				zap.Bool("detached", os.Getenv(daemon.EnvDetached) == "1"))
			return daemon.New(cfg, logger, daemon.WithVersion(version)).Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVarP(&detach, "detach", "d", false, "run in background")
	return cmd
}

func startDetached(logger *zap.Logger) error {
	if pid, running := daemon.Status(cfg.SystemPaths.PIDFile); running {
		return fmt.Errorf("daemon already running with PID %d", pid)
	}
	// the child always runs in the foreground with this run's config
	args := []string{"daemon", "start"}
	if cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}
	if logLevel != "" {
		args = append(args, "--log-level", logLevel)
	}
	logFile := filepath.Join(cfg.SystemPaths.LogDir, "daemon.log")
	pid, err := daemon.Detach(args, logFile, logger)
	if err != nil {
		return err
	}
	pterm.Success.Printf("GPSIO bridge daemon started (PID %d)\n", pid)
	pterm.Info.Printf("Logs: %s\n", logFile)
	return nil
}

func newDaemonStopCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the GPSIO bridge daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := daemon.Stop(cfg.SystemPaths.PIDFile, timeout)
			if errors.Is(err, daemon.ErrNotRunning) {
				pterm.Info.Println("Daemon is not running")
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to stop daemon: %w", err)
			}
			GetZapLogger().Info("Daemon stopped", zap.Int("pid", pid))
			pterm.Success.Printf("Daemon stopped (PID %d)\n", pid)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "how long to wait for the daemon to exit")
	return cmd
}

func newDaemonStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, running := daemon.Status(cfg.SystemPaths.PIDFile)

			if useJSON {
				return printJSON(map[string]interface{}{
					"running": running,
					"pid":     pid,
					"listen":  cfg.Bridge.Listen,
					"socket":  cfg.IPC.Socket,
				})
			}
			if !running {
				pterm.Warning.Println("Daemon is not running")
				return nil
			}
			pterm.Success.Printf("Daemon is running with PID %d\n", pid)
			pterm.Info.Printf("Bridge: ws://%s/gpsio\n", cfg.Bridge.Listen)
			pterm.Info.Printf("Socket: %s\n", cfg.IPC.Socket)
			return nil
		},
	}
}

func newDaemonRestartCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the GPSIO bridge daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetZapLogger()
			logger.Info("Restarting GPSIO bridge daemon")

			if _, err := daemon.Stop(cfg.SystemPaths.PIDFile, timeout); err != nil && !errors.Is(err, daemon.ErrNotRunning) {
				return fmt.Errorf("failed to stop daemon: %w", err)
			}
			return startDetached(logger)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "how long to wait for the daemon to exit")
	return cmd
}
