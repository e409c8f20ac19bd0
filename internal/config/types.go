// Package config loads fedsql configuration: the set of data sources to
// register and where to serve metrics.
package config

import "github.com/datastack-labs/fedsql/pkg/handler"

// Config is the top-level configuration.
type Config struct {
	// Sources lists the data sources registered at startup.
	Sources []SourceConfig `koanf:"sources"`

	// MetricsAddr, when set, serves the Prometheus scrape endpoint.
	MetricsAddr string `koanf:"metrics_addr"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
}

// SourceConfig describes one backend data source.
type SourceConfig struct {
	Name   string `koanf:"name"`
	Engine string `koanf:"engine"`

	// File-based engines.
	Path string `koanf:"path"`

	// Server-based engines.
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Options carries engine-specific settings.
	Options map[string]string `koanf:"options"`
}

// HandlerConfig converts the source entry into a connector config.
func (s SourceConfig) HandlerConfig() handler.Config {
	return handler.Config{
		Type:     s.Engine,
		Path:     s.Path,
		Host:     s.Host,
		Port:     s.Port,
		Database: s.Database,
		Username: s.User,
		Password: s.Password,
		Options:  s.Options,
	}
}
