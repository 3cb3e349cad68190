package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/devilmonastery/hrconsole/internal/auth"
	"github.com/devilmonastery/hrconsole/internal/client"
	"github.com/devilmonastery/hrconsole/internal/pkg/logger"
	"github.com/devilmonastery/hrconsole/internal/pkg/metrics"
	"github.com/devilmonastery/hrconsole/internal/tenant"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const cliContextKey contextKey = "cliContext"

// CliContext holds shared CLI context
type CliContext struct {
	Config      *Config
	ContextName string
	Context     *Context
	Store       *FileStore
	Tokens      *auth.TokenStore
	Refresher   *client.RefreshClient
	Logger      *slog.Logger
}

// Global flags
var (
	logLevel      string
	logFile       string
	logToStderr   bool
	alsoLogStderr bool
	logFormat     string
	contextFlag   string
)

// NewRootCommand creates the root cobra command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hrconsole",
		Short:         "CLI for HR console sessions",
		Long:          `A command line interface for managing tenant sessions against the HR/payroll API.`,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors (main.go handles it)
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogging(); err != nil {
				return fmt.Errorf("failed to setup logging: %w", err)
			}

			ctx := &CliContext{
				Logger: logger.WithCommand(slog.Default().With("component", "cli"), cmd.CommandPath()),
			}
			ctx.Logger.Debug("CLI started")

			// Config commands manage the config file themselves
			if isConfigCommand(cmd) {
				return nil
			}

			if err := ctx.load(contextFlag); err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey, ctx))
			return nil
		},
	}

	rootCmd.AddCommand(newAuthCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newAPICommand())

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn",
		"Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"Log file path (if specified, logs to file instead of stderr)")
	rootCmd.PersistentFlags().BoolVar(&logToStderr, "logtostderr", false,
		"Log to stderr (default behavior unless --log-file specified)")
	rootCmd.PersistentFlags().BoolVar(&alsoLogStderr, "alsologtostderr", false,
		"Log to both file and stderr (file defaults to "+logger.GetDefaultLogFile("cli")+")")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"Log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&contextFlag, "context", "",
		"Context to use instead of the current context")

	return rootCmd
}

// load reads the config and wires the session core for the selected context
func (c *CliContext) load(override string) error {
	config, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	name := config.CurrentContext
	if override != "" {
		name = override
	}
	cctx, err := config.GetContext(name)
	if err != nil {
		return err
	}
	if err := cctx.Validate(); err != nil {
		return fmt.Errorf("invalid context %q: %w", name, err)
	}

	path, err := credentialsPath(name)
	if err != nil {
		return err
	}

	c.Config = config
	c.ContextName = name
	c.Context = cctx
	c.Store = NewFileStore(path)

	// Tenant stored with the credentials wins over the context default
	resolver := tenant.Chain{tenant.StoreResolver{Store: c.Store}, tenant.Static(cctx.Tenant)}
	c.Tokens = auth.NewTokenStore(c.Store, resolver)

	httpClient := &http.Client{
		Timeout:   cctx.API.RequestTimeout,
		Transport: metrics.NewAPIMetricsTransport(nil),
	}
	c.Refresher = client.NewRefreshClient(cctx.API.Endpoint(), c.Store, httpClient)
	return nil
}

func isConfigCommand(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "config" {
			return true
		}
	}
	return false
}

// setupLogging configures the global logger based on CLI flags
func setupLogging() error {
	logFile = resolveLogFile(logFile, alsoLogStderr)

	// Default to stderr logging unless file is specified
	if logFile == "" {
		logToStderr = true
	}

	cfg := logger.Config{
		Level:         logger.ParseLevel(logLevel),
		LogFile:       logFile,
		LogToStderr:   logToStderr,
		AlsoLogStderr: alsoLogStderr,
		Format:        logFormat,
	}

	globalLogger, err := logger.SetupLogger(cfg)
	if err != nil {
		return err
	}

	slog.SetDefault(globalLogger)
	return nil
}

// resolveLogFile picks the standard CLI log file when both destinations
// are requested but no file was named
func resolveLogFile(file string, alsoStderr bool) string {
	if file == "" && alsoStderr {
		return logger.GetDefaultLogFile("cli")
	}
	return file
}

// getCliContext extracts the CLI context from the command context
func getCliContext(cmd *cobra.Command) *CliContext {
	return cmd.Context().Value(cliContextKey).(*CliContext)
}
