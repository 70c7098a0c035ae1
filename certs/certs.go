// Package certs provides the self-signed TLS material for local HTTPS.
package certs

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

const (
	KeyFile  = "localhost.key"
	CertFile = "localhost.crt"

	// Validity is how long a generated certificate is valid.
	Validity = 365 * 24 * time.Hour
)

// Material is a PEM encoded key pair.
type Material struct {
	Key  []byte
	Cert []byte
}

// TLSConfig returns a server configuration using the key pair.
func (material Material) TLSConfig() (*tls.Config, error) {
	pair, err := tls.X509KeyPair(material.Cert, material.Key)
	if err != nil {
		return nil, fmt.Errorf("load key pair: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{pair},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// Paths returns the key and certificate locations inside dir.
func Paths(dir string) (key, cert string) {
	return filepath.Join(dir, KeyFile), filepath.Join(dir, CertFile)
}

// Load reads an existing key pair from dir.
// It returns an error wrapping fs.ErrNotExist when either file is missing.
func Load(dir string) (Material, error) {
	keyPath, certPath := Paths(dir)

	key, err := os.ReadFile(keyPath)
	if err != nil {
		return Material{}, err
	}
	cert, err := os.ReadFile(certPath)
	if err != nil {
		return Material{}, err
	}

	material := Material{Key: key, Cert: cert}
	if err := material.Validate(); err != nil {
		return Material{}, fmt.Errorf("%s: %w", dir, err)
	}
	return material, nil
}

// Ensure loads the key pair from dir, generating and saving a new one
// when it does not exist yet. It reports whether a pair was generated.
func Ensure(dir string) (Material, bool, error) {
	material, err := Load(dir)
	if err == nil {
		return material, false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return Material{}, false, err
	}

	material, err = Generate(time.Now())
	if err != nil {
		return Material{}, false, err
	}
	if err := Save(dir, material); err != nil {
		return Material{}, false, err
	}
	return material, true, nil
}

// Save writes the key pair into dir. The key is readable only by the owner.
func Save(dir string, material Material) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	keyPath, certPath := Paths(dir)
	if err := os.WriteFile(keyPath, material.Key, 0o600); err != nil {
		return fmt.Errorf("write key: %w", err)
	}
	if err := os.WriteFile(certPath, material.Cert, 0o644); err != nil {
		return fmt.Errorf("write certificate: %w", err)
	}
	return nil
}

// Generate creates a self-signed certificate for localhost and 127.0.0.1
// valid from now.
func Generate(now time.Time) (Material, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return Material{}, fmt.Errorf("generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return Material{}, fmt.Errorf("generate serial: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:         "localhost",
			Organization:       []string{"hotserver"},
			OrganizationalUnit: []string{"development"},
		},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(Validity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return Material{}, fmt.Errorf("create certificate: %w", err)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return Material{}, fmt.Errorf("marshal key: %w", err)
	}

	return Material{
		Key:  pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}),
		Cert: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
	}, nil
}

// Validate checks that the material holds a parseable certificate and a
// matching key.
func (material Material) Validate() error {
	block, _ := pem.Decode(material.Cert)
	if block == nil || block.Type != "CERTIFICATE" {
		return errors.New("certificate is not PEM encoded")
	}
	if _, err := x509.ParseCertificate(block.Bytes); err != nil {
		return fmt.Errorf("parse certificate: %w", err)
	}
	if _, err := tls.X509KeyPair(material.Cert, material.Key); err != nil {
		return fmt.Errorf("key pair: %w", err)
	}
	return nil
}
