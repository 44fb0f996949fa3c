package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML shape of a connection configuration.
// Durations are Go duration strings ("30s", "1m").
type fileConfig struct {
	Host      string `yaml:"host"`
	Path      string `yaml:"path"`
	Port      int    `yaml:"port"`
	Transport struct {
		Kind           string `yaml:"kind"` // "tcp" or "tls"
		ConnectTimeout string `yaml:"connect_timeout"`
		Retry          int    `yaml:"retry"`
		RetryTimeout   string `yaml:"retry_timeout"`
		TLS            struct {
			CAFile             string `yaml:"ca_file"`
			ServerName         string `yaml:"server_name"`
			InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
		} `yaml:"tls"`
	} `yaml:"transport"`
	Handshake struct {
		Compress       bool     `yaml:"compress"`
		Subprotocols   []string `yaml:"subprotocols"`
		KeepAlive      string   `yaml:"keepalive"`
		ClosingTimeout string   `yaml:"closing_timeout"`
	} `yaml:"handshake"`
	Headers []Header `yaml:"headers"`
}

// Load reads a YAML configuration file, validates it and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration bytes, validates them and applies defaults.
func Parse(data []byte) (*Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := Config{
		Host:         fc.Host,
		Path:         fc.Path,
		Port:         fc.Port,
		ExtraHeaders: fc.Headers,
	}

	switch fc.Transport.Kind {
	case "", "tls":
		cfg.Transport.Kind = TransportTLS
	case "tcp":
		cfg.Transport.Kind = TransportTCP
	default:
		return nil, fmt.Errorf("unknown transport kind %q", fc.Transport.Kind)
	}

	var err error
	if cfg.Transport.ConnectTimeout, err = parseDuration(fc.Transport.ConnectTimeout); err != nil {
		return nil, fmt.Errorf("connect_timeout: %w", err)
	}
	if cfg.Transport.RetryTimeout, err = parseDuration(fc.Transport.RetryTimeout); err != nil {
		return nil, fmt.Errorf("retry_timeout: %w", err)
	}
	if cfg.Handshake.KeepAlive, err = parseDuration(fc.Handshake.KeepAlive); err != nil {
		return nil, fmt.Errorf("keepalive: %w", err)
	}
	if cfg.Handshake.ClosingTimeout, err = parseDuration(fc.Handshake.ClosingTimeout); err != nil {
		return nil, fmt.Errorf("closing_timeout: %w", err)
	}

	cfg.Transport.Retry = fc.Transport.Retry
	cfg.Transport.TLS.CAFile = fc.Transport.TLS.CAFile
	cfg.Transport.TLS.ServerName = fc.Transport.TLS.ServerName
	cfg.Transport.TLS.InsecureSkipVerify = fc.Transport.TLS.InsecureSkipVerify
	cfg.Handshake.Compress = fc.Handshake.Compress
	cfg.Handshake.Subprotocols = fc.Handshake.Subprotocols

	return New(cfg)
}

// parseDuration parses a duration string, treating empty as zero
// (so the default applies).
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
