package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/devilmonastery/hrconsole/internal/auth"
	"github.com/devilmonastery/hrconsole/internal/client"
	"github.com/devilmonastery/hrconsole/internal/storage"
	"github.com/devilmonastery/hrconsole/internal/tenant"
)

// formatDuration formats a duration in a human-friendly way (e.g., "2 days, 3 hours and 45 minutes")
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if len(parts) == 0 && seconds > 0 {
		parts = append(parts, plural(seconds, "second"))
	}

	switch len(parts) {
	case 0:
		return "0 seconds"
	case 1:
		return parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func newAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Session commands",
		Long:  `Manage the stored session for the current context`,
	}

	cmd.AddCommand(newAuthImportCommand())
	cmd.AddCommand(newAuthRefreshCommand())
	cmd.AddCommand(newAuthStatusCommand())
	cmd.AddCommand(newAuthWaitCommand())
	cmd.AddCommand(newAuthTokenCommand())
	cmd.AddCommand(newAuthLogoutCommand())

	return cmd
}

func newAuthImportCommand() *cobra.Command {
	var (
		accessToken  string
		refreshToken string
		tenantFlag   string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Store a token pair obtained from the login page",
		Long: `Store an access/refresh token pair for the current context.

Tokens not given as flags are read from the terminal without echo,
or from stdin when it is not a terminal.

Examples:
  # Prompt for both tokens
  hrconsole auth import --tenant acme

  # Store only a refresh token, then exchange it
  hrconsole auth import --refresh-token "$REFRESH" && hrconsole auth refresh`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cctx := getCliContext(cmd)
			in := bufio.NewReader(cmd.InOrStdin())

			var err error
			if refreshToken == "" && !cmd.Flags().Changed("access-token") {
				refreshToken, err = readSecret(cmd, in, "Refresh token: ")
				if err != nil {
					return err
				}
			}
			if accessToken == "" && !cmd.Flags().Changed("refresh-token") {
				accessToken, err = readSecret(cmd, in, "Access token (optional): ")
				if err != nil {
					return err
				}
			}
			if refreshToken == "" && accessToken == "" {
				return errors.New("no tokens provided")
			}

			t := tenantFlag
			if t == "" {
				t = cctx.Context.Tenant
			}

			values := map[string]string{}
			if accessToken != "" {
				values[storage.KeyAccessToken] = accessToken
			}
			if refreshToken != "" {
				values[storage.KeyRefreshToken] = refreshToken
			}
			if t != "" {
				if t, err = tenant.Normalize(t); err != nil {
					return err
				}
				values[storage.KeyTenant] = t
			}

			if err := cctx.Store.SetMany(cmd.Context(), values); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Stored session for context %q\n", cctx.ContextName)
			if accessToken == "" {
				fmt.Fprintln(out, "  No access token stored; run 'hrconsole auth refresh' to obtain one")
			}
			if t == "" {
				fmt.Fprintln(out, "  No tenant set; use --tenant or 'hrconsole config set-tenant'")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accessToken, "access-token", "", "Access token")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "Refresh token")
	cmd.Flags().StringVar(&tenantFlag, "tenant", "", "Tenant identifier (default: the context's tenant)")

	return cmd
}

func newAuthRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the stored refresh token for new credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cctx := getCliContext(cmd)
			ctx := cmd.Context()

			refreshToken, err := cctx.Tokens.GetRefreshToken(ctx)
			if err != nil {
				return err
			}
			if refreshToken == "" {
				return fmt.Errorf("no refresh token stored for context %q; run 'hrconsole auth import' first", cctx.ContextName)
			}
			t, err := cctx.Tokens.GetTenant(ctx)
			if err != nil {
				return err
			}

			creds, err := cctx.Refresher.Refresh(ctx, refreshToken, t)
			if err != nil {
				return describeRefreshError(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "✓ Refreshed session credentials")
			if creds.RefreshToken != "" {
				fmt.Fprintln(out, "  Refresh token rotated")
			}
			if creds.ExpiresIn > 0 {
				fmt.Fprintf(out, "  Valid for %s\n", formatDuration(time.Duration(creds.ExpiresIn)*time.Second))
			}
			return nil
		},
	}
}

// describeRefreshError turns refresh failures into actionable CLI errors
func describeRefreshError(err error) error {
	switch {
	case errors.Is(err, client.ErrTenantRequired):
		return fmt.Errorf("%w: set one with 'hrconsole config set-tenant'", err)
	case errors.Is(err, client.ErrMalformedResponse):
		return fmt.Errorf("server returned an unusable token response: %w", err)
	case errors.Is(err, client.ErrRefreshFailed):
		return fmt.Errorf("refresh rejected: %w (run 'hrconsole auth import' with a new token pair)", err)
	default:
		return err
	}
}

func newAuthStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cctx := getCliContext(cmd)
			out := cmd.OutOrStdout()

			st, err := cctx.Tokens.Status(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Context: %s\n", cctx.ContextName)
			if st.Tenant != "" {
				fmt.Fprintf(out, "Tenant: %s\n", st.Tenant)
			} else {
				fmt.Fprintln(out, "Tenant: (none)")
			}

			if !st.HasAccessToken && !st.HasRefreshToken {
				fmt.Fprintln(out, "Not logged in")
				return nil
			}

			if st.Ready {
				fmt.Fprintln(out, "Session: ready")
			} else {
				fmt.Fprintln(out, "Session: pending")
			}
			fmt.Fprintf(out, "Refresh token: %s\n", yesNo(st.HasRefreshToken))

			if st.ExpiryKnown {
				fmt.Fprintf(out, "Token expires: %s\n", st.ExpiresAt.Local().Format("2006-01-02 15:04:05 MST"))
				now := time.Now()
				if st.Expired(now) {
					fmt.Fprintf(out, "⚠  Token expired %s ago - run 'hrconsole auth refresh'\n", formatDuration(now.Sub(st.ExpiresAt)))
				} else {
					fmt.Fprintf(out, "✓  Valid for %s\n", formatDuration(st.ExpiresAt.Sub(now)))
				}
			}
			return nil
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func newAuthWaitCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Block until an access token and tenant are both stored",
		Long: `Poll the stored session until it holds an access token and a tenant.
Useful in scripts that run while another process completes the login.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cctx := getCliContext(cmd)

			opts := append(cctx.Context.Readiness.GateOptions(), auth.WithLogger(cctx.Logger))
			if cmd.Flags().Changed("timeout") {
				opts = append(opts, auth.WithTimeout(timeout))
			}
			gate := auth.NewGate(cctx.Tokens, opts...)

			start := time.Now()
			if err := gate.Wait(cmd.Context()); err != nil {
				if errors.Is(err, auth.ErrReadinessTimeout) {
					return fmt.Errorf("session not ready after %s", formatDuration(time.Since(start)))
				}
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "✓ Session ready")
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up after this long (0 waits forever; default from context)")
	return cmd
}

func newAuthTokenCommand() *cobra.Command {
	var refreshIfNeeded bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Display the current access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cctx := getCliContext(cmd)
			ctx := cmd.Context()

			if refreshIfNeeded {
				source := client.NewTokenSource(ctx, cctx.Refresher, cctx.Tokens, client.DefaultRefreshWindow)
				tok, err := source.TokenContext(ctx)
				if err != nil {
					return describeRefreshError(err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), tok.AccessToken)
				return nil
			}

			token, err := cctx.Tokens.GetAccessToken(ctx)
			if err != nil {
				return err
			}
			if token == "" {
				return errors.New("not logged in")
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().BoolVar(&refreshIfNeeded, "refresh", false, "Refresh first if the token is about to expire")
	return cmd
}

func newAuthLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials for the current context",
		RunE: func(cmd *cobra.Command, args []string) error {
			cctx := getCliContext(cmd)
			if err := cctx.Store.Remove(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Successfully logged out")
			return nil
		},
	}
}

// readSecret reads one line, without echo when stdin is a terminal
func readSecret(cmd *cobra.Command, in *bufio.Reader, prompt string) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// commandContext is used by commands that need a deadline of their own
func commandContext(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), timeout)
}
