package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v2"
)

// expandEnvVars expands environment variables in the format ${VAR} or $VAR
func expandEnvVars(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}

// LoadYAML fills out from configPath, or from the first existing file in
// searchPaths when configPath is empty. out keeps its prior values (the
// defaults) for anything the file does not set. Returns the file used, or ""
// when no file was found.
func LoadYAML(configPath string, searchPaths []string, out interface{}) (string, error) {
	if configPath == "" {
		configPath = FindConfigFile(searchPaths)
	}

	if configPath == "" || !fileExists(configPath) {
		slog.Info("no config file found, using defaults")
		return "", nil
	}

	slog.Info("loading config", slog.String("path", configPath))
	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to read config file: %w", err)
	}

	data = expandEnvVars(data)

	if err := yaml.Unmarshal(data, out); err != nil {
		return "", fmt.Errorf("failed to parse config file: %w", err)
	}
	return configPath, nil
}

// FindConfigFile returns the first existing path, or ""
func FindConfigFile(paths []string) string {
	for _, path := range paths {
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
