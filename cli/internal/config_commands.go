package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/devilmonastery/hrconsole/internal/tenant"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration and contexts",
		Long:  `Manage CLI configuration including API contexts, similar to kubectl contexts.`,
	}

	cmd.AddCommand(newCurrentContextCommand())
	cmd.AddCommand(newUseContextCommand())
	cmd.AddCommand(newListContextsCommand())
	cmd.AddCommand(newAddContextCommand())
	cmd.AddCommand(newDeleteContextCommand())
	cmd.AddCommand(newSetTenantCommand())
	cmd.AddCommand(newConfigShowCommand())

	return cmd
}

// current-context command
func newCurrentContextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "current-context",
		Short: "Display the current context",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), config.CurrentContext)
			return nil
		},
	}
}

// use-context command
func newUseContextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "use-context CONTEXT_NAME",
		Short: "Switch to a different context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contextName := args[0]

			config, err := LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := config.SetCurrentContext(contextName); err != nil {
				return err
			}

			if err := SaveConfig(config); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Switched to context %q\n", contextName)
			return nil
		},
	}
}

// list-contexts command
func newListContextsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list-contexts",
		Aliases: []string{"get-contexts"},
		Short:   "List all available contexts",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(config.Contexts) == 0 {
				fmt.Fprintln(out, "No contexts configured")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "CURRENT\tNAME\tAPI\tTENANT")

			for _, name := range config.ContextNames() {
				ctx := config.Contexts[name]
				current := " "
				if name == config.CurrentContext {
					current = "*"
				}
				t := ctx.Tenant
				if t == "" {
					t = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", current, name, describeAPI(ctx), t)
			}
			return w.Flush()
		},
	}
}

// describeAPI renders the tenant-independent part of a context's API address
func describeAPI(ctx *Context) string {
	addr := ctx.API.Scheme + "://" + ctx.API.Host
	if ctx.API.Port != 0 {
		addr = fmt.Sprintf("%s:%d", addr, ctx.API.Port)
	}
	return addr
}

// add-context command
func newAddContextCommand() *cobra.Command {
	var (
		scheme          string
		host            string
		port            int
		tokenPath       string
		tenantName      string
		allowNullTenant bool
	)

	cmd := &cobra.Command{
		Use:   "add-context CONTEXT_NAME",
		Short: "Add or update a context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contextName := args[0]
			if err := validateContextName(contextName); err != nil {
				return err
			}

			config, err := LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx := NewContext()
			ctx.API.Scheme = scheme
			ctx.API.Host = host
			ctx.API.Port = port
			ctx.API.AllowNullTenant = allowNullTenant
			if tokenPath != "" {
				ctx.API.TokenPath = tokenPath
			}
			if tenantName != "" {
				if ctx.Tenant, err = tenant.Normalize(tenantName); err != nil {
					return err
				}
			}
			if err := ctx.Validate(); err != nil {
				return err
			}

			config.AddContext(contextName, ctx)

			// If this is the first context, make it current
			if len(config.Contexts) == 1 {
				config.CurrentContext = contextName
			}

			if err := SaveConfig(config); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Context %q added/updated\n", contextName)
			return nil
		},
	}

	cmd.Flags().StringVar(&scheme, "scheme", "https", "API scheme (http or https)")
	cmd.Flags().StringVar(&host, "host", "", "API host; tenants are addressed as subdomains of it")
	cmd.Flags().IntVar(&port, "port", 0, "API port (0 for the scheme default)")
	cmd.Flags().StringVar(&tokenPath, "token-path", "", "Token refresh path (default /api/token/pair)")
	cmd.Flags().StringVar(&tenantName, "tenant", "", "Default tenant for this context")
	cmd.Flags().BoolVar(&allowNullTenant, "allow-null-tenant", false, "Address the bare host when no tenant is set")
	cmd.MarkFlagRequired("host")

	return cmd
}

// delete-context command
func newDeleteContextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-context CONTEXT_NAME",
		Short: "Delete a context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contextName := args[0]

			config, err := LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := config.DeleteContext(contextName); err != nil {
				return err
			}

			if err := SaveConfig(config); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			// Credentials for a deleted context are orphaned
			if path, err := credentialsPath(contextName); err == nil {
				if err := NewFileStore(path).Remove(); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Context %q deleted\n", contextName)
			return nil
		},
	}
}

// set-tenant command
func newSetTenantCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-tenant TENANT",
		Short: "Set the default tenant of the current context",
		Long: `Set the default tenant of the current context.
Pass an empty string to clear it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			name := config.CurrentContext
			if contextFlag != "" {
				name = contextFlag
			}
			ctx, err := config.GetContext(name)
			if err != nil {
				return err
			}

			t := ""
			if args[0] != "" {
				if t, err = tenant.Normalize(args[0]); err != nil {
					return err
				}
			}
			ctx.Tenant = t

			if err := SaveConfig(config); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if t == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared tenant for context %q\n", name)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Tenant for context %q set to %q\n", name, t)
			}
			return nil
		},
	}
}

// show command - shows current context
func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current context configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, err := config.GetCurrentContext()
			if err != nil {
				return fmt.Errorf("failed to get current context: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Current context: %s\n", config.CurrentContext)
			fmt.Fprintf(out, "  API: %s\n", describeAPI(ctx))
			fmt.Fprintf(out, "  Token Path: %s\n", ctx.API.TokenPath)
			if ctx.Tenant != "" {
				if u, err := ctx.API.Endpoint().TokenURL(ctx.Tenant); err == nil {
					fmt.Fprintf(out, "  Token URL: %s\n", u)
				}
			}
			fmt.Fprintf(out, "  Tenant: %s\n", ctx.Tenant)
			fmt.Fprintf(out, "  Allow Null Tenant: %t\n", ctx.API.AllowNullTenant)
			fmt.Fprintf(out, "  Request Timeout: %s\n", ctx.API.RequestTimeout)
			fmt.Fprintf(out, "  Readiness Poll Interval: %s\n", ctx.Readiness.PollInterval)
			fmt.Fprintf(out, "  Readiness Timeout: %s\n", ctx.Readiness.Timeout)

			configPath, _ := GetConfigPath()
			fmt.Fprintf(out, "  Config File: %s\n", configPath)

			return nil
		},
	}
}
