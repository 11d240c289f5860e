// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...Option) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the ingestion HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// MetricsAddr configures the metrics listen address. When empty it is
	// derived from Addr as ingestion port + 1.
	MetricsAddr string `koanf:"metrics_addr"`

	// FlushInterval is the period between drain/export cycles.
	FlushInterval time.Duration `koanf:"flush_interval"`

	// ShutdownGrace bounds the final flush when the process stops.
	ShutdownGrace time.Duration `koanf:"shutdown_grace"`

	// BufferCapacity is the initial capacity of the event buffer.
	BufferCapacity int `koanf:"buffer_capacity"`

	// DatabaseURL enables the relational sink. Empty disables it.
	DatabaseURL string `koanf:"database_url"`

	// ParquetDir is where columnar batch files are written. Empty disables
	// the columnar sink.
	ParquetDir string `koanf:"parquet_dir"`

	// ParquetBucket optionally mirrors batch files into a GCS bucket,
	// e.g. "my-bucket/telemetry".
	ParquetBucket string `koanf:"parquet_bucket"`

	// MaxBodyBytes caps the size of one ingestion request body.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		Addr:           ":8080",
		FlushInterval:  10 * time.Second,
		ShutdownGrace:  15 * time.Second,
		BufferCapacity: 1024,
		ParquetDir:     "data/parquet",
		MaxBodyBytes:   1024,
	}
}

// ResolveMetricsAddr returns the metrics listen address, deriving it from
// the ingestion address when not set explicitly.
func (c *Config) ResolveMetricsAddr() (string, error) {
	if c.MetricsAddr != "" {
		return c.MetricsAddr, nil
	}

	host, portStr, err := net.SplitHostPort(c.Addr)
	if err != nil {
		return "", fmt.Errorf("%w: cannot derive metrics address from %q: %w", ErrInvalidConfig, c.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", fmt.Errorf("%w: cannot derive metrics address from %q: %w", ErrInvalidConfig, c.Addr, err)
	}

	return net.JoinHostPort(host, strconv.Itoa(port+1)), nil
}
