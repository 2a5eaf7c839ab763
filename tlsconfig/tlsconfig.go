// Package tlsconfig builds the crypto/tls.Config used on both the zipper
// and sfn sides of every QUIC connection: a fixed ALPN of "yomo-v2", optional
// mutual authentication, and a self-signed fallback certificate for local
// development. It adapts utils.GenerateSelfSignedCert's RSA self-signed cert
// (utils/utils.go) and generalizes the original tls.rs's TlsConfig struct
// (ca_cert/cert/key/mutual fields, dev-cert warning) from rustls to
// crypto/tls.
package tlsconfig

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"log"
	"math/big"
	"os"
	"time"
)

// ALPNProtocol is the single ALPN value every yomo QUIC connection presents.
const ALPNProtocol = "yomo-v2"

// Config mirrors the wire-format TlsConfig section of a YAML config file:
// paths to PEM-encoded material, plus whether to require client certs and
// whether to skip server-certificate verification on the client side.
type Config struct {
	CACert   string `yaml:"ca_cert"`
	Cert     string `yaml:"cert"`
	Key      string `yaml:"key"`
	Mutual   bool   `yaml:"mutual"`
	Insecure bool   `yaml:"insecure"`
}

// Server builds a server-side tls.Config. When Cert/Key are unset it falls
// back to a generated self-signed certificate, logging a warning exactly as
// the original implementation does for local development.
func Server(c Config) (*tls.Config, error) {
	cert, err := loadOrGenerateCert(c.Cert, c.Key)
	if err != nil {
		return nil, fmt.Errorf("tlsconfig: load server cert: %w", err)
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{ALPNProtocol},
		MinVersion:   tls.VersionTLS13,
	}

	if c.Mutual {
		pool, err := loadCAPool(c.CACert)
		if err != nil {
			return nil, fmt.Errorf("tlsconfig: mutual TLS requires a CA cert: %w", err)
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return cfg, nil
}

// Client builds a client-side tls.Config for dialing a zipper. If mutual is
// required on the connection, Cert/Key must be set.
func Client(c Config) (*tls.Config, error) {
	cfg := &tls.Config{
		NextProtos:         []string{ALPNProtocol},
		InsecureSkipVerify: c.Insecure,
		MinVersion:         tls.VersionTLS13,
	}

	if c.CACert != "" {
		pool, err := loadCAPool(c.CACert)
		if err != nil {
			return nil, fmt.Errorf("tlsconfig: load CA cert: %w", err)
		}
		cfg.RootCAs = pool
	}

	if c.Mutual {
		if c.Cert == "" || c.Key == "" {
			return nil, fmt.Errorf("tlsconfig: client cert and key are required for mutual TLS")
		}
		cert, err := tls.LoadX509KeyPair(c.Cert, c.Key)
		if err != nil {
			return nil, fmt.Errorf("tlsconfig: load client cert: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}

func loadOrGenerateCert(certPath, keyPath string) (tls.Certificate, error) {
	if certPath != "" && keyPath != "" {
		return tls.LoadX509KeyPair(certPath, keyPath)
	}
	log.Printf("tlsconfig: no cert/key configured, using a generated self-signed certificate; do not use this in production")
	return generateSelfSignedCert()
}

func loadCAPool(path string) (*x509.CertPool, error) {
	if path == "" {
		return nil, fmt.Errorf("no CA cert path configured")
	}
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pemBytes) {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}
	return pool, nil
}

// generateSelfSignedCert produces an ephemeral RSA self-signed certificate
// valid for one year, the same shape utils.GenerateSelfSignedCert produces.
func generateSelfSignedCert() (tls.Certificate, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return tls.Certificate{}, err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{"yomo dev"},
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return tls.Certificate{}, err
	}

	certPEM := pemEncode("CERTIFICATE", derBytes)
	keyPEM := pemEncode("RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(priv))
	return tls.X509KeyPair(certPEM, keyPEM)
}

func pemEncode(typ string, data []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: typ, Bytes: data})
}
