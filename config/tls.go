package config

// config/tls.go — the TLS-context factory. Consumes the key/cert options
// and returns a crypto/tls configuration the protocol servers wrap around
// the listener.

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

func newTLSConfig(o Options) (*tls.Config, error) {
	if o.TLSCertFile == "" {
		return nil, errors.New("a certificate file is required when TLS is enabled")
	}
	if o.TLSKeyPassword != "" {
		return nil, errors.New("password-protected key files are not supported; decrypt the key first")
	}

	keyFile := o.TLSKeyFile
	if keyFile == "" {
		// Combined PEM: certificate and key in one file.
		keyFile = o.TLSCertFile
	}
	cert, err := tls.LoadX509KeyPair(o.TLSCertFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("loading key pair: %w", err)
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   o.TLSMinVersion,
	}
	if cfg.MinVersion == 0 {
		cfg.MinVersion = tls.VersionTLS12
	}

	switch o.TLSCertReqs {
	case "", "none":
		cfg.ClientAuth = tls.NoClientCert
	case "optional":
		cfg.ClientAuth = tls.VerifyClientCertIfGiven
	case "required":
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	default:
		return nil, fmt.Errorf("unknown client certificate mode %q", o.TLSCertReqs)
	}

	if o.TLSCACerts != "" {
		pem, err := os.ReadFile(o.TLSCACerts)
		if err != nil {
			return nil, fmt.Errorf("reading CA certificates: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", o.TLSCACerts)
		}
		cfg.ClientCAs = pool
	}

	if len(o.TLSCiphers) > 0 {
		ids, err := cipherIDs(o.TLSCiphers)
		if err != nil {
			return nil, err
		}
		cfg.CipherSuites = ids
	}
	return cfg, nil
}

func cipherIDs(names []string) ([]uint16, error) {
	byName := map[string]uint16{}
	for _, suite := range tls.CipherSuites() {
		byName[suite.Name] = suite.ID
	}
	for _, suite := range tls.InsecureCipherSuites() {
		byName[suite.Name] = suite.ID
	}

	ids := make([]uint16, 0, len(names))
	for _, name := range names {
		id, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown cipher suite %q", name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
