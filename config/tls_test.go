package config

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestKeyPair generates a throwaway self-signed certificate and returns
// the cert and key file paths.
func writeTestKeyPair(t *testing.T) (certFile, keyFile string) {
	t.Helper()
	dir := t.TempDir()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		IsCA:         true,
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	certFile = filepath.Join(dir, "cert.pem")
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	require.NoError(t, os.WriteFile(certFile, certPEM, 0o600))

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	keyFile = filepath.Join(dir, "key.pem")
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0o600))
	return certFile, keyFile
}

func TestNewTLSConfig(t *testing.T) {
	certFile, keyFile := writeTestKeyPair(t)

	cfg, err := newTLSConfig(Options{TLSCertFile: certFile, TLSKeyFile: keyFile})
	require.NoError(t, err)
	assert.Len(t, cfg.Certificates, 1)
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	assert.Equal(t, tls.NoClientCert, cfg.ClientAuth)
}

func TestNewTLSConfigCombinedPEM(t *testing.T) {
	certFile, keyFile := writeTestKeyPair(t)

	// Concatenate cert and key into a single file; the key file is omitted.
	certPEM, err := os.ReadFile(certFile)
	require.NoError(t, err)
	keyPEM, err := os.ReadFile(keyFile)
	require.NoError(t, err)
	combined := filepath.Join(t.TempDir(), "combined.pem")
	require.NoError(t, os.WriteFile(combined, append(certPEM, keyPEM...), 0o600))

	cfg, err := newTLSConfig(Options{TLSCertFile: combined})
	require.NoError(t, err)
	assert.Len(t, cfg.Certificates, 1)
}

func TestNewTLSConfigRequiresCertificate(t *testing.T) {
	_, err := newTLSConfig(Options{TLSKeyFile: "key.pem"})
	assert.Error(t, err)
}

func TestNewTLSConfigRejectsKeyPassword(t *testing.T) {
	certFile, keyFile := writeTestKeyPair(t)
	_, err := newTLSConfig(Options{
		TLSCertFile:    certFile,
		TLSKeyFile:     keyFile,
		TLSKeyPassword: "secret",
	})
	assert.Error(t, err)
}

func TestNewTLSConfigClientAuthModes(t *testing.T) {
	certFile, keyFile := writeTestKeyPair(t)

	cfg, err := newTLSConfig(Options{TLSCertFile: certFile, TLSKeyFile: keyFile, TLSCertReqs: "optional"})
	require.NoError(t, err)
	assert.Equal(t, tls.VerifyClientCertIfGiven, cfg.ClientAuth)

	cfg, err = newTLSConfig(Options{TLSCertFile: certFile, TLSKeyFile: keyFile, TLSCertReqs: "required"})
	require.NoError(t, err)
	assert.Equal(t, tls.RequireAndVerifyClientCert, cfg.ClientAuth)

	_, err = newTLSConfig(Options{TLSCertFile: certFile, TLSKeyFile: keyFile, TLSCertReqs: "sometimes"})
	assert.Error(t, err)
}

func TestNewTLSConfigClientCAs(t *testing.T) {
	certFile, keyFile := writeTestKeyPair(t)

	cfg, err := newTLSConfig(Options{
		TLSCertFile: certFile,
		TLSKeyFile:  keyFile,
		TLSCertReqs: "required",
		TLSCACerts:  certFile,
	})
	require.NoError(t, err)
	assert.NotNil(t, cfg.ClientCAs)
}

func TestCipherIDs(t *testing.T) {
	ids, err := cipherIDs([]string{"TLS_AES_128_GCM_SHA256"})
	require.NoError(t, err)
	assert.Equal(t, []uint16{tls.TLS_AES_128_GCM_SHA256}, ids)

	_, err = cipherIDs([]string{"TLS_MADE_UP_SUITE"})
	assert.Error(t, err)
}
