package applepass

import (
	"archive/zip"
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"walletbridge/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestCertPair writes a self-signed certificate and key pair and
// returns their paths.
func writeTestCertPair(t *testing.T) (string, string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "Pass Signing Test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")

	require.NoError(t, os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0600))
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}), 0600))
	return certPath, keyPath
}

func newTestSigner(t *testing.T) *Signer {
	t.Helper()

	certPath, keyPath := writeTestCertPair(t)
	signer, err := NewSigner(models.ApplePassConfig{CertPath: certPath, KeyPath: keyPath})
	require.NoError(t, err)
	return signer
}

func readArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	entries := make(map[string][]byte)
	for _, file := range reader.File {
		rc, err := file.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		entries[file.Name] = content
	}
	return entries
}

func TestSignAndZip(t *testing.T) {
	signer := newTestSigner(t)

	files := map[string][]byte{
		"pass.json": []byte(`{"formatVersion":1}`),
		"icon.png":  []byte("fake-png-bytes"),
	}

	archive, err := signer.SignAndZip(files)
	require.NoError(t, err)

	entries := readArchive(t, archive)
	assert.Contains(t, entries, "pass.json")
	assert.Contains(t, entries, "icon.png")
	assert.Contains(t, entries, "manifest.json")
	assert.Contains(t, entries, "signature")
	assert.NotEmpty(t, entries["signature"])

	var manifest map[string]string
	require.NoError(t, json.Unmarshal(entries["manifest.json"], &manifest))

	passSum := sha1.Sum(files["pass.json"])
	iconSum := sha1.Sum(files["icon.png"])
	assert.Equal(t, hex.EncodeToString(passSum[:]), manifest["pass.json"])
	assert.Equal(t, hex.EncodeToString(iconSum[:]), manifest["icon.png"])

	// The manifest covers only the payload files, never itself or the
	// signature.
	assert.NotContains(t, manifest, "manifest.json")
	assert.NotContains(t, manifest, "signature")
}

func TestNewSigner_NoMaterial(t *testing.T) {
	_, err := NewSigner(models.ApplePassConfig{})
	assert.Error(t, err)
}

func TestNewSigner_MissingCertFile(t *testing.T) {
	_, err := NewSigner(models.ApplePassConfig{
		CertPath: "/nonexistent/cert.pem",
		KeyPath:  "/nonexistent/key.pem",
	})
	assert.Error(t, err)
}

func TestNewSigner_GarbageCert(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certPath, []byte("not a cert"), 0600))
	require.NoError(t, os.WriteFile(keyPath, []byte("not a key"), 0600))

	_, err := NewSigner(models.ApplePassConfig{CertPath: certPath, KeyPath: keyPath})
	assert.Error(t, err)
}
