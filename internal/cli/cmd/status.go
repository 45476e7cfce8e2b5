package cmd

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/berrythewa/gpsio-bridge/internal/popup"
)

var errHostUnavailable = errors.New("GPSIO host is not available")

var stdoutIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// useSpinner reports whether an animated spinner can be drawn
func useSpinner() bool {
	return pterm.Output && !pterm.RawOutput && stdoutIsTerminal()
}

func newStatusCmd() *cobra.Command {
	var (
		watch    bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check whether the GPSIO host is reachable and current",
		Long: `Ping the GPSIO native host and compare its version with the
extension version. When the host is older, an update notice is shown once
per session.

Use --watch to check again at a fixed interval.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, closeBackend, err := openBackend()
			if err != nil {
				return err
			}
			defer closeBackend()

			status := popup.NewStatus(backend, cfg.ExtensionVersion, GetZapLogger().Named("status"))
			ctx := cmd.Context()

			if !watch {
				if result := runCheck(ctx, status); result.State == popup.StateBad {
					return errHostUnavailable
				}
				return nil
			}

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				runCheck(ctx, status)
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep checking")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "time between checks with --watch")
	return cmd
}

func runCheck(ctx context.Context, status *popup.Status) popup.Result {
	if useJSON {
		result := status.Check(ctx)
		printJSON(result)
		return result
	}

	if !useSpinner() {
		result := status.Check(ctx)
		renderResult(result)
		return result
	}

	spinner, _ := pterm.DefaultSpinner.Start("Checking the GPSIO host...")
	result := status.Check(ctx)
	if spinner != nil {
		spinner.Stop()
	}
	renderResult(result)
	return result
}

func renderResult(result popup.Result) {
	switch result.State {
	case popup.StateGood:
		if result.HostVersion != "" {
			pterm.Success.Printf("GPSIO host is ready (version %s)\n", result.HostVersion)
		} else {
			pterm.Success.Println("GPSIO host is ready")
		}
	case popup.StateUpdateAvailable:
		pterm.Warning.Printf("GPSIO host %s is older than %s\n", result.HostVersion, result.ExtensionVersion)
		if result.Notice != nil {
			pterm.Println()
			pterm.DefaultBox.WithTitle("Update available").Println(result.Notice.String())
		}
	default:
		pterm.Error.Println("Cannot reach the GPSIO host")
		if result.Message != "" {
			pterm.Info.Printf("Reason: %s\n", result.Message)
		}
		pterm.Info.Println("Make sure the host is installed (gpsio install) and try again")
	}
}
