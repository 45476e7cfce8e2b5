package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/berrythewa/gpsio-bridge/internal/install"
	"github.com/berrythewa/gpsio-bridge/internal/nativemsg"
)

func newInstallCmd() *cobra.Command {
	var (
		hostPath string
		browsers []string
	)

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Register the native host with the browsers",
		Long: `Write the native messaging host manifest for Chrome, Chromium,
Firefox and Edge so the browser extension can launch the GPSIO host.
On Windows the manifests are referenced from the registry.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if hostPath == "" {
				hostPath = cfg.Host.Path
			}
			if hostPath == "" {
				return fmt.Errorf("no host path: pass --host-path or set host.path in %s", cfg.SystemPaths.ActiveConfig)
			}
			abs, err := filepath.Abs(hostPath)
			if err != nil {
				return err
			}

			opts, err := installOptions(browsers)
			if err != nil {
				return err
			}
			opts.HostPath = abs

			results, err := install.Install(opts)
			renderInstall(results, "Registered")
			if err != nil {
				return fmt.Errorf("install failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&hostPath, "host-path", "", "path of the native host executable (default host.path)")
	cmd.Flags().StringSliceVar(&browsers, "browser", nil, "browsers to register with: chrome, chromium, firefox, edge (default all)")
	return cmd
}

func newUninstallCmd() *cobra.Command {
	var browsers []string

	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the native host registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := installOptions(browsers)
			if err != nil {
				return err
			}
			results, err := install.Uninstall(opts)
			renderInstall(results, "Removed")
			if err != nil {
				return fmt.Errorf("uninstall failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&browsers, "browser", nil, "browsers to unregister from (default all)")
	return cmd
}

func installOptions(names []string) (install.Options, error) {
	var browsers []nativemsg.Browser
	for _, name := range names {
		b := nativemsg.Browser(name)
		if _, err := nativemsg.ManifestDir(b, "", "linux"); err != nil {
			return install.Options{}, err
		}
		browsers = append(browsers, b)
	}
	return install.Options{
		HostName:          cfg.Host.Name,
		AllowedOrigins:    cfg.Install.AllowedOrigins,
		AllowedExtensions: cfg.Install.AllowedExtensions,
		Browsers:          browsers,
		ManifestDir:       filepath.Join(cfg.SystemPaths.DataDir, "manifests"),
		Logger:            GetZapLogger().Named("install"),
	}, nil
}

func renderInstall(results []install.Result, verb string) {
	if useJSON {
		printJSON(results)
		return
	}
	if len(results) == 0 {
		return
	}
	tableData := pterm.TableData{{"Browser", "Manifest", "Registry"}}
	for _, r := range results {
		tableData = append(tableData, []string{string(r.Browser), r.Manifest, r.RegistryKey})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()
	pterm.Success.Printf("%s %d browser registration(s)\n", verb, len(results))
}
