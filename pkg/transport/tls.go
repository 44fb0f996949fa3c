package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/wsact/wsact-go/pkg/config"
)

// NewClientTLSConfig assembles a tls.Config from the connection
// configuration's trust settings. Pure data assembly; verification
// itself is crypto/tls's job.
func NewClientTLSConfig(cfg *config.Config) (*tls.Config, error) {
	opts := cfg.Transport.TLS

	tlsConf := &tls.Config{
		MinVersion: tls.VersionTLS12,

		// Hostname used for certificate verification and SNI.
		ServerName: opts.ServerName,

		// Testing only.
		InsecureSkipVerify: opts.InsecureSkipVerify,
	}
	if tlsConf.ServerName == "" {
		tlsConf.ServerName = cfg.Host
	}

	pool, err := trustPool(opts)
	if err != nil {
		return nil, err
	}
	tlsConf.RootCAs = pool

	return tlsConf, nil
}

// trustPool builds the CA pool from inline PEM or a bundle file.
// Returns nil (system pool) when neither is configured.
func trustPool(opts config.TLSOptions) (*x509.CertPool, error) {
	pem := opts.CAPEM
	if pem == nil && opts.CAFile != "" {
		data, err := os.ReadFile(opts.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA bundle: %w", err)
		}
		pem = data
	}
	if pem == nil {
		return nil, nil
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("CA bundle contains no valid certificates")
	}
	return pool, nil
}
