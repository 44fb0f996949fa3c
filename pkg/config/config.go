package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Configuration errors. These fail construction before any actor or
// transport resource is created.
var (
	ErrMissingHost = errors.New("host is required")
	ErrMissingPath = errors.New("path is required")
	ErrInvalidPort = errors.New("port out of range")
)

// Default option values.
const (
	// DefaultTLSPort is the default port for TLS transports.
	DefaultTLSPort = 443

	// DefaultTCPPort is the default port for plaintext transports.
	DefaultTCPPort = 80

	// DefaultConnectTimeout is the default transport connect timeout.
	DefaultConnectTimeout = 30 * time.Second

	// DefaultKeepAlive is the default keepalive ping interval.
	DefaultKeepAlive = 30 * time.Second

	// DefaultClosingTimeout is the default wait for a close acknowledgment.
	DefaultClosingTimeout = 5 * time.Second
)

// TransportKind selects the underlying transport.
type TransportKind uint8

const (
	// TransportTLS dials a TLS connection (default).
	TransportTLS TransportKind = iota

	// TransportTCP dials a plaintext TCP connection.
	TransportTCP
)

// String returns the transport kind name.
func (k TransportKind) String() string {
	switch k {
	case TransportTLS:
		return "TLS"
	case TransportTCP:
		return "TCP"
	default:
		return "UNKNOWN"
	}
}

// TLSOptions controls certificate trust for TLS transports.
// Pure data; assembled into a tls.Config by the transport engine.
type TLSOptions struct {
	// CAFile is a path to a PEM bundle of trusted CA certificates.
	// Empty means the system pool.
	CAFile string

	// CAPEM is an inline PEM bundle of trusted CA certificates.
	// Takes precedence over CAFile when set.
	CAPEM []byte

	// ServerName overrides the hostname used for certificate
	// verification. Empty means Host.
	ServerName string

	// InsecureSkipVerify disables certificate verification.
	// Testing only.
	InsecureSkipVerify bool
}

// TransportOptions controls the underlying transport connection.
type TransportOptions struct {
	// Kind selects TCP or TLS. Default TLS.
	Kind TransportKind

	// ConnectTimeout bounds a single connection attempt.
	ConnectTimeout time.Duration

	// Retry is the number of additional dial attempts within one open.
	// Zero or negative means a single attempt. Retry policy lives at
	// this layer; the actor above never retries an individual open.
	Retry int

	// RetryTimeout is the delay between dial attempts.
	RetryTimeout time.Duration

	// TLS holds certificate trust settings for TLS transports.
	TLS TLSOptions
}

// HandshakeOptions controls protocol-level upgrade behavior.
type HandshakeOptions struct {
	// Compress enables permessage-deflate negotiation.
	Compress bool

	// Subprotocols are offered during the upgrade; the negotiated
	// subprotocol is reported to the handler's InitStream.
	Subprotocols []string

	// KeepAlive is the interval between liveness pings. Zero means
	// DefaultKeepAlive; a negative value disables keepalive pings.
	KeepAlive time.Duration

	// ClosingTimeout bounds the wait for a close acknowledgment during
	// graceful shutdown.
	ClosingTimeout time.Duration
}

// Header is one handshake header pair. Headers are sent in order.
type Header struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Config describes one logical connection. Static fields are read-only
// after New and safely shared by reference.
type Config struct {
	// Host is the remote endpoint host. Required.
	Host string

	// Path is the upgrade request path. Required.
	Path string

	// Port is the remote endpoint port. Default 443 for TLS, 80 for TCP.
	Port int

	// Transport controls the underlying transport connection.
	Transport TransportOptions

	// Handshake controls protocol-level upgrade behavior.
	Handshake HandshakeOptions

	// ExtraHeaders are sent during the handshake, in order.
	ExtraHeaders []Header

	// HandlerInitArgs is an opaque value forwarded to the handler's
	// InitStream, e.g. a channel the handler reports back on.
	HandlerInitArgs any
}

// New validates cfg, fills unset options with defaults and returns the
// finalized configuration. It fails fast on missing required fields,
// before any resource is created.
func New(cfg Config) (*Config, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return ErrMissingHost
	}
	if strings.TrimSpace(c.Path) == "" {
		return ErrMissingPath
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}
	return nil
}

// applyDefaults fills zero-valued options with documented defaults.
func (c *Config) applyDefaults() {
	if c.Port == 0 {
		if c.Transport.Kind == TransportTCP {
			c.Port = DefaultTCPPort
		} else {
			c.Port = DefaultTLSPort
		}
	}
	if c.Transport.ConnectTimeout == 0 {
		c.Transport.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Transport.Retry < 0 {
		c.Transport.Retry = 0
	}
	if c.Handshake.KeepAlive == 0 {
		c.Handshake.KeepAlive = DefaultKeepAlive
	}
	if c.Handshake.ClosingTimeout == 0 {
		c.Handshake.ClosingTimeout = DefaultClosingTimeout
	}
	if !strings.HasPrefix(c.Path, "/") {
		c.Path = "/" + c.Path
	}
}

// URL returns the upgrade request URL for this configuration.
func (c *Config) URL() string {
	scheme := "wss"
	if c.Transport.Kind == TransportTCP {
		scheme = "ws"
	}
	return fmt.Sprintf("%s://%s:%d%s", scheme, c.Host, c.Port, c.Path)
}

// Address returns the host:port dial address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
