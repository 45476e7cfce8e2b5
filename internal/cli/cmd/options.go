package cmd

import (
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/berrythewa/gpsio-bridge/internal/popup"
	"github.com/berrythewa/gpsio-bridge/internal/types"
)

func newOptionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Show and change the import/export filter options",
		Long: `The filter options are attached to every request sent to the host:
  • method: "time" (points from the last timeSel hours) or "recent" (the recentSel most recent tracks)
  • size, sizeSel: skip tracks larger than sizeSel
  • removeNumbers: strip numbers from exported assignment names`,
	}

	cmd.AddCommand(newOptionsShowCmd())
	cmd.AddCommand(newOptionsSetCmd())
	cmd.AddCommand(newOptionsResetCmd())
	return cmd
}

func newOptionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current options",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOptions(func(form *popup.Options) (types.Preferences, error) {
				return form.Load(cmd.Context())
			})
		},
	}
}

func newOptionsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <option> <value>",
		Short: "Change one option",
		Example: `  gpsio options set method recent
  gpsio options set removeNumbers false`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOptions(func(form *popup.Options) (types.Preferences, error) {
				if _, err := form.Load(cmd.Context()); err != nil {
					return types.Preferences{}, err
				}
				return form.Set(cmd.Context(), args[0], args[1])
			})
		},
	}
}

func newOptionsResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the default options",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOptions(func(form *popup.Options) (types.Preferences, error) {
				return form.Reset(cmd.Context())
			})
		},
	}
}

func withOptions(fn func(*popup.Options) (types.Preferences, error)) error {
	backend, closeBackend, err := openBackend()
	if err != nil {
		return err
	}
	defer closeBackend()

	prefs, err := fn(popup.NewOptions(backend))
	if err != nil {
		return err
	}
	if useJSON {
		return printJSON(prefs)
	}
	renderPreferences(prefs)
	return nil
}

func renderPreferences(prefs types.Preferences) {
	tableData := pterm.TableData{
		{"Option", "Value"},
		{types.KeyMethod, prefs.Method},
		{types.KeyTimeSel, prefs.TimeSel},
		{types.KeyRecentSel, prefs.RecentSel},
		{types.KeySize, strconv.FormatBool(prefs.Size)},
		{types.KeySizeSel, prefs.SizeSel},
		{types.KeyRemoveNumbers, strconv.FormatBool(prefs.RemoveNumbers)},
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()
	if prefs != types.DefaultPreferences() {
		pterm.Println()
		pterm.Info.Println("Run 'gpsio options reset' to restore the defaults")
	}
}
