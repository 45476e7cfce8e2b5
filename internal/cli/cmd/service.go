package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/berrythewa/gpsio-bridge/internal/install"
)

// newServiceCmd manages starting the daemon at login
func newServiceCmd() *cobra.Command {
	var noEnable bool

	cmd := &cobra.Command{
		Use:   "service [install|uninstall]",
		Short: "Start the GPSIO bridge daemon at login",
		Long: `Register the daemon as a per-user login service:
  • Linux: a systemd user unit
  • macOS: a launchd agent
  • Windows: an entry under the Run registry key

Examples:
  # Start the daemon at every login
  gpsio service install

  # Remove the login service
  gpsio service uninstall`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"install", "uninstall"},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetZapLogger().Named("service")
			opts := install.ServiceOptions{
				LogDir:   cfg.SystemPaths.LogDir,
				NoEnable: noEnable,
				Logger:   logger,
			}
			if cfgFile != "" {
				opts.Args = []string{"daemon", "start", "--config", cfgFile}
			}

			var (
				result *install.ServiceResult
				err    error
			)
			switch args[0] {
			case "install":
				logger.Info("Installing login service")
				result, err = install.InstallService(opts)
			default:
				logger.Info("Removing login service")
				result, err = install.UninstallService(opts)
			}
			if err != nil {
				logger.Error("Service operation failed", zap.Error(err))
				return fmt.Errorf("service %s failed: %w", args[0], err)
			}

			if useJSON {
				return printJSON(result)
			}
			if args[0] == "install" {
				pterm.Success.Printf("Login service installed: %s\n", result.Path)
				if !result.Enabled {
					pterm.Info.Println("Service written but not enabled")
				}
			} else {
				pterm.Success.Printf("Login service removed: %s\n", result.Path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noEnable, "no-enable", false, "only write the service definition")
	return cmd
}
