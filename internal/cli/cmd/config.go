package cmd

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/berrythewa/gpsio-bridge/internal/config"
)

// newConfigCmd creates the config command
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage GPSIO bridge configuration",
		Long: `Manage GPSIO bridge configuration:
  • Show the effective configuration
  • Print where configuration and data live
  • Reset configuration to defaults`,
	}

	// Add subcommands
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigResetCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long:  `Show the configuration after environment overrides are applied.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if useJSON {
				return printJSON(cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Print(string(data))
			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration and data paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := cfg.SystemPaths
			if useJSON {
				return printJSON(paths)
			}
			tableData := pterm.TableData{
				{"Item", "Path"},
				{"Config file", paths.ActiveConfig},
				{"Data directory", paths.DataDir},
				{"Database", cfg.Storage.DBPath},
				{"Socket", cfg.IPC.Socket},
				{"PID file", paths.PIDFile},
				{"Logs", paths.LogDir},
			}
			_ = pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()
			return nil
		},
	}
}

func newConfigResetCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset configuration to defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := cfg.SystemPaths.ActiveConfig
			if !force {
				pterm.DefaultInteractiveConfirm.DefaultText = fmt.Sprintf("Overwrite %s with defaults?", configPath)
				ok, _ := pterm.DefaultInteractiveConfirm.Show()
				if !ok {
					pterm.Info.Println("Reset cancelled")
					return nil
				}
			}

			if err := os.Remove(configPath); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove config: %w", err)
			}
			if err := config.DefaultConfig().Save(configPath); err != nil {
				return err
			}
			GetZapLogger().Info("Configuration reset", zap.String("config_path", configPath))
			pterm.Success.Printf("Configuration reset: %s\n", configPath)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "do not ask for confirmation")
	return cmd
}
