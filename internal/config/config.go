// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the heliograph YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/heliograph/pkg/vedirect"
	"gopkg.in/yaml.v3"
)

// Config is the complete configuration file
type Config struct {
	Connection ConnectionConfig `yaml:"connection"`
	Decoder    DecoderConfig    `yaml:"decoder"`
	Log        LogConfig        `yaml:"log"`
	Server     ServerConfig     `yaml:"server"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Stream     StreamConfig     `yaml:"stream"`
	Redis      RedisConfig      `yaml:"redis"`
	Publish    PublishConfig    `yaml:"publish"`
}

// ConnectionConfig selects the byte source
type ConnectionConfig struct {
	Port        string `yaml:"port"`
	Baud        int    `yaml:"baud"`
	URL         string `yaml:"url"`
	Username    string `yaml:"username"`
	NoSSLVerify bool   `yaml:"no_ssl_verify"`
}

// DecoderConfig tunes the frame decoder and staleness check
type DecoderConfig struct {
	MaxLineLength      int           `yaml:"max_line_length"`
	NominalInterval    time.Duration `yaml:"nominal_interval"`
	StalenessMultiple  int           `yaml:"staleness_multiple"`
	StalenessThreshold time.Duration `yaml:"staleness_threshold"`
}

// LogConfig configures the logger
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig is the HTTP listener shared by metrics, health and stream
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// MetricsConfig configures the Prometheus exporter
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// StreamConfig configures the WebSocket reading stream
type StreamConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Path     string `yaml:"path"`
	Encoding string `yaml:"encoding"` // cbor or json
}

// RedisConfig configures the Redis pub/sub sink
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Channel  string `yaml:"channel"`
}

// PublishConfig lists the reading keys to publish. An empty list publishes
// every key of that kind.
type PublishConfig struct {
	Sensors       []string `yaml:"sensors"`
	TextSensors   []string `yaml:"text_sensors"`
	BinarySensors []string `yaml:"binary_sensors"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Connection: ConnectionConfig{
			Baud: 19200,
		},
		Decoder: DecoderConfig{
			MaxLineLength:     vedirect.MaxLineLength,
			NominalInterval:   vedirect.NominalInterval,
			StalenessMultiple: vedirect.DefaultStalenessMultiple,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Listen: ":9105",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "heliograph",
		},
		Stream: StreamConfig{
			Enabled:  true,
			Path:     "/ws",
			Encoding: "cbor",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			Channel:  "heliograph:readings",
		},
	}
}

// Load reads a YAML file over the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Connection.Baud <= 0 {
		errs = append(errs, fmt.Errorf("connection.baud must be positive, got %d", c.Connection.Baud))
	}
	if c.Connection.Port != "" && c.Connection.URL != "" {
		errs = append(errs, errors.New("connection.port and connection.url are mutually exclusive"))
	}

	if c.Decoder.MaxLineLength != 0 && c.Decoder.MaxLineLength <= 8 {
		errs = append(errs, fmt.Errorf("decoder.max_line_length must exceed 8, got %d", c.Decoder.MaxLineLength))
	}
	if c.Decoder.NominalInterval < 0 || c.Decoder.StalenessThreshold < 0 {
		errs = append(errs, errors.New("decoder durations must not be negative"))
	}
	if c.Decoder.StalenessMultiple < 0 {
		errs = append(errs, fmt.Errorf("decoder.staleness_multiple must not be negative, got %d", c.Decoder.StalenessMultiple))
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	switch c.Stream.Encoding {
	case "cbor", "json":
	default:
		errs = append(errs, fmt.Errorf("stream.encoding must be cbor or json, got %q", c.Stream.Encoding))
	}
	if c.Stream.Enabled && (c.Stream.Path == "" || c.Stream.Path[0] != '/') {
		errs = append(errs, fmt.Errorf("stream.path must start with /, got %q", c.Stream.Path))
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required when redis is enabled"))
		}
		if c.Redis.Channel == "" {
			errs = append(errs, errors.New("redis.channel is required when redis is enabled"))
		}
	}

	return errors.Join(errs...)
}
