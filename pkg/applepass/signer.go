package applepass

import (
	"archive/zip"
	"bytes"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"
	"sort"

	apperrors "walletbridge/internal/errors"
	"walletbridge/internal/models"

	"github.com/unidoc/pkcs7"
	"golang.org/x/crypto/pkcs12"
)

// Signer holds the certificate material for bundle signing. The
// certificate and key come from either a PEM pair or a single .p12
// container; the WWDR intermediate is optional but required by real
// devices.
type Signer struct {
	cert     *x509.Certificate
	key      *rsa.PrivateKey
	wwdrCert *x509.Certificate
}

// NewSigner loads signing material from the configured paths. PEM pair
// takes precedence when both forms are configured.
func NewSigner(cfg models.ApplePassConfig) (*Signer, error) {
	signer := &Signer{}

	var err error
	if cfg.CertPath != "" && cfg.KeyPath != "" {
		signer.cert, signer.key, err = loadPEMPair(cfg.CertPath, cfg.KeyPath, cfg.Passphrase)
	} else if cfg.P12Path != "" {
		signer.cert, signer.key, err = loadP12(cfg.P12Path, cfg.Passphrase)
	} else {
		return nil, apperrors.NewConfigError("applePass.certPath", "no signing certificate configured").
			WithStep(apperrors.StepSigningConfig)
	}
	if err != nil {
		return nil, err
	}

	if cfg.WWDRPath != "" {
		signer.wwdrCert, err = loadCertificate(cfg.WWDRPath)
		if err != nil {
			return nil, err
		}
	}

	return signer, nil
}

// SignAndZip writes the manifest, signs it and packs everything into a
// .pkpass archive. The signature covers the manifest, which in turn
// hashes every file, so any post-signing modification is detectable.
func (s *Signer) SignAndZip(files map[string][]byte) ([]byte, error) {
	manifest, err := buildManifest(files)
	if err != nil {
		return nil, err
	}

	signature, err := s.sign(manifest)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	entries := make(map[string][]byte, len(files)+2)
	for name, content := range files {
		entries[name] = content
	}
	entries["manifest.json"] = manifest
	entries["signature"] = signature

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f, err := w.Create(name)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternalError, "failed to create archive entry").
				WithStep(apperrors.StepBundleBuild).
				WithContext("entry", name)
		}
		if _, err := f.Write(entries[name]); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternalError, "failed to write archive entry").
				WithStep(apperrors.StepBundleBuild).
				WithContext("entry", name)
		}
	}

	if err := w.Close(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternalError, "failed to finalize archive").
			WithStep(apperrors.StepBundleBuild)
	}
	return buf.Bytes(), nil
}

// buildManifest produces the manifest.json mapping each bundle file to
// its SHA-1 digest. The pass format mandates SHA-1 here.
func buildManifest(files map[string][]byte) ([]byte, error) {
	digests := make(map[string]string, len(files))
	for name, content := range files {
		sum := sha1.Sum(content)
		digests[name] = hex.EncodeToString(sum[:])
	}

	manifest, err := json.MarshalIndent(digests, "", "  ")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternalError, "failed to marshal manifest").
			WithStep(apperrors.StepBundleBuild)
	}
	return manifest, nil
}

// sign produces a detached CMS signature over the manifest.
func (s *Signer) sign(manifest []byte) ([]byte, error) {
	signedData, err := pkcs7.NewSignedData(manifest)
	if err != nil {
		return nil, apperrors.NewSigningError("failed to initialize signed data", err)
	}

	if err := signedData.AddSigner(s.cert, s.key, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, apperrors.NewSigningError("failed to add signer", err)
	}
	if s.wwdrCert != nil {
		signedData.AddCertificate(s.wwdrCert)
	}
	signedData.Detach()

	signature, err := signedData.Finish()
	if err != nil {
		return nil, apperrors.NewSigningError("failed to finalize signature", err)
	}
	return signature, nil
}

func loadPEMPair(certPath, keyPath, passphrase string) (*x509.Certificate, *rsa.PrivateKey, error) {
	cert, err := loadCertificate(certPath)
	if err != nil {
		return nil, nil, err
	}

	keyBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrCodeMissingConfig, "failed to read signing key").
			WithStep(apperrors.StepSigningConfig)
	}

	block, _ := pem.Decode(keyBytes)
	if block == nil {
		return nil, nil, apperrors.New(apperrors.ErrCodeInvalidConfig, "no PEM block in signing key").
			WithStep(apperrors.StepSigningConfig)
	}

	der := block.Bytes
	if x509.IsEncryptedPEMBlock(block) {
		der, err = x509.DecryptPEMBlock(block, []byte(passphrase))
		if err != nil {
			return nil, nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidConfig, "failed to decrypt signing key").
				WithStep(apperrors.StepSigningConfig)
		}
	}

	key, err := parsePrivateKey(der)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidConfig, "failed to parse signing key").
			WithStep(apperrors.StepSigningConfig)
	}
	return cert, key, nil
}

func loadP12(p12Path, passphrase string) (*x509.Certificate, *rsa.PrivateKey, error) {
	p12Bytes, err := os.ReadFile(p12Path)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrCodeMissingConfig, "failed to read p12 container").
			WithStep(apperrors.StepSigningConfig)
	}

	key, cert, err := pkcs12.Decode(p12Bytes, passphrase)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidConfig, "failed to decode p12 container").
			WithStep(apperrors.StepSigningConfig)
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, nil, apperrors.New(apperrors.ErrCodeInvalidConfig,
			fmt.Sprintf("p12 key is %T, expected RSA", key)).
			WithStep(apperrors.StepSigningConfig)
	}
	return cert, rsaKey, nil
}

func loadCertificate(path string) (*x509.Certificate, error) {
	certBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeMissingConfig, "failed to read certificate").
			WithStep(apperrors.StepSigningConfig).
			WithContext("path", path)
	}

	block, _ := pem.Decode(certBytes)
	if block == nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidConfig, "no PEM block in certificate").
			WithStep(apperrors.StepSigningConfig).
			WithContext("path", path)
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidConfig, "failed to parse certificate").
			WithStep(apperrors.StepSigningConfig).
			WithContext("path", path)
	}
	return cert, nil
}

func parsePrivateKey(der []byte) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	rsaKey, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key is %T, expected RSA", parsed)
	}
	return rsaKey, nil
}
