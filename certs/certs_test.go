package certs_test

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"io"
	"io/fs"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loov/hotserver/certs"
)

func TestGenerate(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	material, err := certs.Generate(now)
	require.NoError(t, err)
	require.NoError(t, material.Validate())

	block, _ := pem.Decode(material.Cert)
	require.NotNil(t, block)
	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cert.Subject.CommonName)
	assert.Equal(t, []string{"localhost"}, cert.DNSNames)
	assert.True(t, cert.IPAddresses[0].Equal(net.IPv4(127, 0, 0, 1)))
	assert.True(t, cert.NotAfter.After(now.Add(364*24*time.Hour)))
	assert.NoError(t, cert.VerifyHostname("localhost"))
	assert.NoError(t, cert.VerifyHostname("127.0.0.1"))
}

func TestEnsure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".one-server-4-all-certs")

	first, generated, err := certs.Ensure(dir)
	require.NoError(t, err)
	assert.True(t, generated)

	keyPath, certPath := certs.Paths(dir)
	assert.FileExists(t, keyPath)
	assert.FileExists(t, certPath)
	if runtime.GOOS != "windows" {
		info, err := os.Stat(keyPath)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	second, generated, err := certs.Ensure(dir)
	require.NoError(t, err)
	assert.False(t, generated)
	assert.Equal(t, first, second)
}

func TestLoadMissing(t *testing.T) {
	_, err := certs.Load(t.TempDir())
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, certs.Save(dir, certs.Material{Key: []byte("key"), Cert: []byte("cert")}))

	_, err := certs.Load(dir)
	require.Error(t, err)
	assert.False(t, errors.Is(err, fs.ErrNotExist))

	_, _, err = certs.Ensure(dir)
	assert.Error(t, err)
}

func TestTLSConfigServes(t *testing.T) {
	material, err := certs.Generate(time.Now())
	require.NoError(t, err)
	config, err := material.TLSConfig()
	require.NoError(t, err)

	server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "secure")
	}))
	server.TLS = config
	server.StartTLS()
	defer server.Close()

	pool := x509.NewCertPool()
	require.True(t, pool.AppendCertsFromPEM(material.Cert))
	client := &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: pool}}}

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "secure", string(body))
}
