package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/berrythewa/gpsio-bridge/internal/types"
)

func newSendCmd() *cobra.Command {
	var noOptions bool

	cmd := &cobra.Command{
		Use:   "send <json|->",
		Short: "Send a raw request to the native host",
		Long: `Send one JSON request to the native host and print its reply.
The stored options are attached unless --no-options is given.
Use - to read the request from stdin.`,
		Example: `  gpsio send '{"cmd":"ping-host","type":"gpsio","id":1}' --no-options
  gpsio send - < export.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data := []byte(args[0])
			if args[0] == "-" {
				var err error
				if data, err = io.ReadAll(os.Stdin); err != nil {
					return fmt.Errorf("failed to read request: %w", err)
				}
			}

			dec := json.NewDecoder(bytes.NewReader(data))
			dec.UseNumber()
			var req types.Request
			if err := dec.Decode(&req); err != nil {
				return fmt.Errorf("request must be a JSON object: %w", err)
			}

			backend, closeBackend, err := openBackend()
			if err != nil {
				return err
			}
			defer closeBackend()

			GetZapLogger().Debug("Sending request", zap.String("cmd", req.Cmd()), zap.Bool("options", !noOptions))
			var resp types.Response
			if noOptions {
				resp, err = backend.Ping(cmd.Context(), req)
			} else {
				resp, err = backend.Relay(cmd.Context(), req)
			}
			if err != nil {
				return err
			}
			if err := printJSON(resp); err != nil {
				return err
			}
			if !resp.OK() {
				return fmt.Errorf("host replied with status %q", resp.Status())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noOptions, "no-options", false, "do not attach the stored options")
	return cmd
}
