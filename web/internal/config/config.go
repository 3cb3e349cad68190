package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	appconfig "github.com/devilmonastery/hrconsole/internal/config"
)

// WebServerConfig represents the web session service configuration
type WebServerConfig struct {
	Server  HTTPServer           `yaml:"server"`
	Auth    appconfig.AuthConfig `yaml:"auth"`
	Session SessionConfig        `yaml:"session"`
	Logging LoggingConfig        `yaml:"logging"`
}

// HTTPServer holds HTTP server configuration
type HTTPServer struct {
	Host string `yaml:"host" default:"localhost"`
	Port int    `yaml:"port" default:"8080"`

	// BaseDomain is the domain tenant hosts live under, e.g. "hr.example.com"
	// makes acme.hr.example.com resolve to tenant "acme"
	BaseDomain string `yaml:"base_domain"`
}

// SessionConfig holds session configuration
type SessionConfig struct {
	Secret  string        `yaml:"secret"` // base64-encoded, 32 or 64 bytes
	Backend string        `yaml:"backend" default:"cookie"`
	MaxAge  time.Duration `yaml:"max_age" default:"168h"`
	Secure  bool          `yaml:"secure"`

	// MaxWait caps the ?wait= long-poll on /session/ready
	MaxWait time.Duration `yaml:"max_wait" default:"25s"`

	Database DatabaseConfig `yaml:"database"`
}

// DatabaseConfig holds the postgres backend settings
type DatabaseConfig struct {
	URL           string        `yaml:"url"`
	NodeID        int64         `yaml:"node_id" default:"1"` // snowflake node for session IDs
	IdleTimeout   time.Duration `yaml:"idle_timeout" default:"168h"`
	PurgeInterval time.Duration `yaml:"purge_interval" default:"1h"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" default:"info"`  // Log level: debug, info, warn, error
	Format string `yaml:"format" default:"json"` // Log format: json, text
}

const (
	BackendCookie   = "cookie"
	BackendPostgres = "postgres"
)

// DefaultConfigPaths defines the default locations to search for web configuration files
var DefaultConfigPaths = []string{
	"./config.yaml",
	"./config.yml",
	"./configs/web.yaml",
	"./configs/web.yml",
	"/etc/hrconsole/web.yaml",
	"/etc/hrconsole/web.yml",
}

// Default returns the configuration used when no file is found
func Default() *WebServerConfig {
	return &WebServerConfig{
		Server: HTTPServer{
			Host: "localhost",
			Port: 8080,
		},
		Auth: appconfig.DefaultAuthConfig(),
		Session: SessionConfig{
			Backend: BackendCookie,
			MaxAge:  7 * 24 * time.Hour,
			MaxWait: 25 * time.Second,
			Database: DatabaseConfig{
				NodeID:        1,
				IdleTimeout:   7 * 24 * time.Hour,
				PurgeInterval: time.Hour,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads the web configuration from the specified file or default locations
func Load(configPath string) (*WebServerConfig, error) {
	config := Default()

	if _, err := appconfig.LoadYAML(configPath, DefaultConfigPaths, config); err != nil {
		return nil, err
	}

	// Environment variables take precedence
	if host := os.Getenv("HRCONSOLE_API_HOST"); host != "" {
		config.Auth.API.Host = host
	}
	if port := os.Getenv("HRCONSOLE_API_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid HRCONSOLE_API_PORT %q: %w", port, err)
		}
		config.Auth.API.Port = p
	}
	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		config.Session.Secret = secret
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Session.Database.URL = dbURL
	}

	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validate performs basic validation on the web configuration
func validate(config *WebServerConfig) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if err := config.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	switch config.Session.Backend {
	case BackendCookie:
	case BackendPostgres:
		if config.Session.Database.URL == "" {
			return fmt.Errorf("session.database.url is required for the postgres backend")
		}
		if config.Session.Database.NodeID < 0 || config.Session.Database.NodeID > 1023 {
			return fmt.Errorf("session.database.node_id must be between 0 and 1023")
		}
	default:
		return fmt.Errorf("session.backend must be %q or %q, got %q",
			BackendCookie, BackendPostgres, config.Session.Backend)
	}

	if config.Session.MaxWait < 0 {
		return fmt.Errorf("session.max_wait cannot be negative")
	}
	return nil
}
