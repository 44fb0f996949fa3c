package config

import (
	"errors"
	"testing"
	"time"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"missing host", Config{Path: "/ws"}, ErrMissingHost},
		{"blank host", Config{Host: "  ", Path: "/ws"}, ErrMissingHost},
		{"missing path", Config{Host: "example.com"}, ErrMissingPath},
		{"port too large", Config{Host: "example.com", Path: "/ws", Port: 70000}, ErrInvalidPort},
		{"negative port", Config{Host: "example.com", Path: "/ws", Port: -1}, ErrInvalidPort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewDefaults(t *testing.T) {
	t.Run("tls port", func(t *testing.T) {
		cfg, err := New(Config{Host: "example.com", Path: "/ws"})
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Port != DefaultTLSPort {
			t.Errorf("port = %d, want %d", cfg.Port, DefaultTLSPort)
		}
	})

	t.Run("tcp port", func(t *testing.T) {
		cfg, err := New(Config{
			Host:      "example.com",
			Path:      "/ws",
			Transport: TransportOptions{Kind: TransportTCP},
		})
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Port != DefaultTCPPort {
			t.Errorf("port = %d, want %d", cfg.Port, DefaultTCPPort)
		}
	})

	t.Run("durations", func(t *testing.T) {
		cfg, err := New(Config{Host: "example.com", Path: "/ws"})
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Transport.ConnectTimeout != DefaultConnectTimeout {
			t.Errorf("connect timeout = %v", cfg.Transport.ConnectTimeout)
		}
		if cfg.Handshake.KeepAlive != DefaultKeepAlive {
			t.Errorf("keepalive = %v", cfg.Handshake.KeepAlive)
		}
		if cfg.Handshake.ClosingTimeout != DefaultClosingTimeout {
			t.Errorf("closing timeout = %v", cfg.Handshake.ClosingTimeout)
		}
	})

	t.Run("negative keepalive preserved", func(t *testing.T) {
		cfg, err := New(Config{
			Host:      "example.com",
			Path:      "/ws",
			Handshake: HandshakeOptions{KeepAlive: -1},
		})
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Handshake.KeepAlive >= 0 {
			t.Errorf("keepalive = %v, want negative (disabled)", cfg.Handshake.KeepAlive)
		}
	})

	t.Run("negative retry clamped", func(t *testing.T) {
		cfg, err := New(Config{
			Host:      "example.com",
			Path:      "/ws",
			Transport: TransportOptions{Retry: -3},
		})
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Transport.Retry != 0 {
			t.Errorf("retry = %d, want 0 (single attempt)", cfg.Transport.Retry)
		}
	})

	t.Run("path prefix", func(t *testing.T) {
		cfg, err := New(Config{Host: "example.com", Path: "ws"})
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Path != "/ws" {
			t.Errorf("path = %q, want /ws", cfg.Path)
		}
	})
}

func TestURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			"tls default port",
			Config{Host: "example.com", Path: "/ws"},
			"wss://example.com:443/ws",
		},
		{
			"tcp explicit port",
			Config{Host: "localhost", Path: "/stream", Port: 8080,
				Transport: TransportOptions{Kind: TransportTCP}},
			"ws://localhost:8080/stream",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := New(tt.cfg)
			if err != nil {
				t.Fatal(err)
			}
			if got := cfg.URL(); got != tt.want {
				t.Errorf("URL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	t.Run("full config", func(t *testing.T) {
		data := []byte(`
host: gateway.example.com
path: /v2/stream
port: 9443
transport:
  kind: tls
  connect_timeout: 10s
  retry: 2
  retry_timeout: 1s
  tls:
    server_name: gateway.internal
handshake:
  compress: true
  subprotocols: [feed.v2, feed.v1]
  keepalive: 15s
  closing_timeout: 3s
headers:
  - name: Authorization
    value: Bearer token
`)
		cfg, err := Parse(data)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Host != "gateway.example.com" || cfg.Port != 9443 {
			t.Errorf("endpoint = %s:%d", cfg.Host, cfg.Port)
		}
		if cfg.Transport.Kind != TransportTLS {
			t.Errorf("kind = %s", cfg.Transport.Kind)
		}
		if cfg.Transport.ConnectTimeout != 10*time.Second {
			t.Errorf("connect timeout = %v", cfg.Transport.ConnectTimeout)
		}
		if cfg.Transport.Retry != 2 || cfg.Transport.RetryTimeout != time.Second {
			t.Errorf("retry = %d/%v", cfg.Transport.Retry, cfg.Transport.RetryTimeout)
		}
		if cfg.Transport.TLS.ServerName != "gateway.internal" {
			t.Errorf("server name = %q", cfg.Transport.TLS.ServerName)
		}
		if !cfg.Handshake.Compress || len(cfg.Handshake.Subprotocols) != 2 {
			t.Errorf("handshake = %+v", cfg.Handshake)
		}
		if cfg.Handshake.KeepAlive != 15*time.Second {
			t.Errorf("keepalive = %v", cfg.Handshake.KeepAlive)
		}
		if len(cfg.ExtraHeaders) != 1 || cfg.ExtraHeaders[0].Name != "Authorization" {
			t.Errorf("headers = %+v", cfg.ExtraHeaders)
		}
	})

	t.Run("minimal config gets defaults", func(t *testing.T) {
		cfg, err := Parse([]byte("host: example.com\npath: /ws\n"))
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Port != DefaultTLSPort {
			t.Errorf("port = %d", cfg.Port)
		}
		if cfg.Transport.ConnectTimeout != DefaultConnectTimeout {
			t.Errorf("connect timeout = %v", cfg.Transport.ConnectTimeout)
		}
	})

	t.Run("unknown transport kind", func(t *testing.T) {
		_, err := Parse([]byte("host: example.com\npath: /ws\ntransport:\n  kind: carrier-pigeon\n"))
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("bad duration", func(t *testing.T) {
		_, err := Parse([]byte("host: example.com\npath: /ws\nhandshake:\n  keepalive: soon\n"))
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("missing host", func(t *testing.T) {
		_, err := Parse([]byte("path: /ws\n"))
		if !errors.Is(err, ErrMissingHost) {
			t.Errorf("error = %v, want ErrMissingHost", err)
		}
	})
}

func TestLoad(t *testing.T) {
	_, err := Load("testdata/does-not-exist.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
