package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/devilmonastery/hrconsole/internal/pkg/idgen"
	"github.com/devilmonastery/hrconsole/internal/pkg/logger"
	"github.com/devilmonastery/hrconsole/internal/storage/postgres"
	"github.com/devilmonastery/hrconsole/internal/storage/postgres/migrations"
	"github.com/devilmonastery/hrconsole/web/internal/config"
	"github.com/devilmonastery/hrconsole/web/internal/handlers"
	"github.com/devilmonastery/hrconsole/web/internal/session"
)

// setupWebLogging configures the global logger for the web service
func setupWebLogging(logLevel, logFormat string) error {
	cfg := logger.Config{
		Level:       logger.ParseLevel(logLevel),
		LogToStderr: true, // Web service always logs to stderr
		Format:      logFormat,
	}

	globalLogger, err := logger.SetupLogger(cfg)
	if err != nil {
		return err
	}

	slog.SetDefault(globalLogger)
	return nil
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging (must be done before any logging calls)
	if err = setupWebLogging(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to setup logging: %v\n", err)
		os.Exit(1)
	}

	log := slog.Default().With("component", "web")
	if err := run(cfg, log); err != nil {
		log.Error("web service failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.WebServerConfig, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	secret, err := sessionSecret(cfg.Session.Secret, log)
	if err != nil {
		return err
	}

	opts := session.Options{MaxAge: cfg.Session.MaxAge, Secure: cfg.Session.Secure}
	var sessions *session.Manager

	switch cfg.Session.Backend {
	case config.BackendPostgres:
		if err := idgen.Initialize(cfg.Session.Database.NodeID); err != nil {
			return fmt.Errorf("failed to initialize ID generator: %w", err)
		}

		conn, err := postgres.NewConnection(cfg.Session.Database.URL)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := conn.RunMigrations(migrations.FS); err != nil {
			return fmt.Errorf("failed to run PostgreSQL migrations: %w", err)
		}
		log.Info("session database ready")

		rows := postgres.NewSessions(conn.DB)
		sessions = session.NewPostgresManager(secret, opts, rows)
		go purgeIdleSessions(ctx, rows, cfg.Session.Database, log)
	default:
		sessions = session.NewManager(secret, opts)
	}

	h := handlers.New(sessions, cfg.Auth, cfg.Session.MaxWait, nil, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Routes(cfg.Server.BaseDomain, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting hrconsole web service",
			slog.String("address", addr),
			slog.String("session_backend", cfg.Session.Backend))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Session.MaxWait+5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// sessionSecret decodes the configured secret, falling back to a random one
// (sessions then do not survive a restart)
func sessionSecret(encoded string, log *slog.Logger) ([]byte, error) {
	if encoded != "" {
		secret, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode session secret: %w", err)
		}
		if len(secret) != 32 && len(secret) != 64 {
			return nil, fmt.Errorf("session secret must decode to 32 or 64 bytes, got %d", len(secret))
		}
		return secret, nil
	}

	log.Warn("no session secret configured, generating random one (sessions won't persist)")
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate session secret: %w", err)
	}
	return secret, nil
}

// purgeIdleSessions removes server-side sessions nobody has written to for
// longer than the idle timeout
func purgeIdleSessions(ctx context.Context, rows *postgres.Sessions, cfg config.DatabaseConfig, log *slog.Logger) {
	if cfg.PurgeInterval <= 0 || cfg.IdleTimeout <= 0 {
		return
	}

	ticker := time.NewTicker(cfg.PurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := rows.PurgeIdle(ctx, cfg.IdleTimeout)
			if err != nil {
				log.Warn("failed to purge idle sessions", slog.Any("error", err))
				continue
			}
			if n > 0 {
				log.Info("purged idle sessions", slog.Int64("rows", n))
			}
		}
	}
}
