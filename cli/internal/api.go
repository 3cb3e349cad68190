package cli

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devilmonastery/hrconsole/internal/client"
	"github.com/devilmonastery/hrconsole/internal/pkg/metrics"
)

func newAPICommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Call the tenant API with the stored session",
	}
	cmd.AddCommand(newAPIGetCommand())
	return cmd
}

func newAPIGetCommand() *cobra.Command {
	var includeStatus bool

	cmd := &cobra.Command{
		Use:   "get PATH",
		Short: "GET a path on the current tenant's host",
		Long: `GET a path on the current tenant's host, refreshing the access token
first when it is about to expire and once more if the server answers 401.

Examples:
  hrconsole api get /api/employees/
  hrconsole --context prod api get /api/payroll/runs/42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cctx := getCliContext(cmd)
			ctx, cancel := commandContext(cmd, cctx.Context.API.RequestTimeout)
			defer cancel()

			path := args[0]
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}

			api := client.NewAPIClient(ctx, cctx.Refresher, cctx.Tokens, metrics.NewAPIMetricsTransport(nil))
			resp, err := api.Get(ctx, path)
			if err != nil {
				return describeRefreshError(err)
			}
			defer resp.Body.Close()

			cctx.Logger.Debug("API call complete",
				"path", path,
				"status", resp.StatusCode)

			out := cmd.OutOrStdout()
			if includeStatus {
				fmt.Fprintln(out, resp.Status)
			}
			if _, err := io.Copy(out, resp.Body); err != nil {
				return fmt.Errorf("failed to read response: %w", err)
			}

			if resp.StatusCode >= http.StatusBadRequest {
				return fmt.Errorf("request failed: %s", resp.Status)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&includeStatus, "include", "i", false, "Print the response status line")
	return cmd
}
