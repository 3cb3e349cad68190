package config

import (
	"fmt"
	"time"

	"github.com/devilmonastery/hrconsole/internal/auth"
	"github.com/devilmonastery/hrconsole/internal/client"
)

// APIConfig describes how to reach the tenant-scoped API server
type APIConfig struct {
	Scheme          string `yaml:"scheme" default:"http"`
	Host            string `yaml:"host" default:"localhost"`
	Port            int    `yaml:"port" default:"8000"`
	TokenPath       string `yaml:"token_path" default:"/api/token/pair"`
	AllowNullTenant bool   `yaml:"allow_null_tenant"` // send tenant-less calls to the bare host instead of failing

	// RequestTimeout bounds each call to the API server; 0 leaves it to the caller
	RequestTimeout time.Duration `yaml:"request_timeout" default:"15s"`
}

// ReadinessConfig bounds the readiness gate
type ReadinessConfig struct {
	PollInterval time.Duration `yaml:"poll_interval" default:"100ms"`
	Timeout      time.Duration `yaml:"timeout" default:"30s"` // 0 waits until torn down
}

// AuthConfig is shared by the CLI and the web session service
type AuthConfig struct {
	API       APIConfig       `yaml:"api"`
	Readiness ReadinessConfig `yaml:"readiness"`
}

// DefaultAuthConfig returns the settings used for local development
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		API: APIConfig{
			Scheme:         "http",
			Host:           "localhost",
			Port:           8000,
			TokenPath:      client.DefaultTokenPath,
			RequestTimeout: 15 * time.Second,
		},
		Readiness: ReadinessConfig{
			PollInterval: auth.DefaultPollInterval,
			Timeout:      30 * time.Second,
		},
	}
}

// Endpoint converts the API settings into a client endpoint
func (a APIConfig) Endpoint() client.Endpoint {
	return client.Endpoint{
		Scheme:          a.Scheme,
		Host:            a.Host,
		Port:            a.Port,
		TokenPath:       a.TokenPath,
		AllowNullTenant: a.AllowNullTenant,
	}
}

// GateOptions converts the readiness settings into gate options
func (r ReadinessConfig) GateOptions() []auth.GateOption {
	return []auth.GateOption{
		auth.WithInterval(r.PollInterval),
		auth.WithTimeout(r.Timeout),
	}
}

// Validate performs basic validation on the auth configuration
func (a AuthConfig) Validate() error {
	if a.API.Host == "" {
		return fmt.Errorf("api.host is required")
	}
	if a.API.Scheme != "http" && a.API.Scheme != "https" {
		return fmt.Errorf("api.scheme must be http or https, got %q", a.API.Scheme)
	}
	if a.API.Port < 0 || a.API.Port > 65535 {
		return fmt.Errorf("api.port must be between 0 and 65535")
	}
	if a.API.RequestTimeout < 0 {
		return fmt.Errorf("api.request_timeout cannot be negative")
	}
	if a.Readiness.PollInterval <= 0 {
		return fmt.Errorf("readiness.poll_interval must be positive")
	}
	if a.Readiness.Timeout < 0 {
		return fmt.Errorf("readiness.timeout cannot be negative")
	}
	return nil
}
