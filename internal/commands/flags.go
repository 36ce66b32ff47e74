// Package commands holds the fieldmapd subcommands.
package commands

import (
	"os"

	"fieldops-map-backend/config"
)

// Flags are the global flags shared by every command.
type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string

	// Config is loaded in the Before hook and available to all commands.
	Config *config.Config
}

// DefaultConfigPath is CONFIG_PATH or the local development file.
func DefaultConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "./config/config.yaml"
}
