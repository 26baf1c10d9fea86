package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "walletbridge/internal/errors"

	"github.com/sirupsen/logrus"
)

// ArtifactStore persists signed pass bundles on disk and hands out the
// public URL they will be served from.
type ArtifactStore struct {
	dir           string
	publicBaseURL string
	logger        *logrus.Logger
}

func NewArtifactStore(dir, publicBaseURL string, logger *logrus.Logger) (*ArtifactStore, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if dir == "" {
		return nil, apperrors.NewConfigError("artifacts.dir", "artifact directory is required")
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	return &ArtifactStore{
		dir:           dir,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
		logger:        logger,
	}, nil
}

// Store writes the bundle under its serial number and returns the public
// URL. Serial numbers are validated against path traversal before any
// filesystem access.
func (s *ArtifactStore) Store(serialNumber string, data []byte) (string, error) {
	if err := validateSerial(serialNumber); err != nil {
		return "", err
	}

	fileName := serialNumber + ".pkpass"
	path := filepath.Join(s.dir, fileName)

	if err := os.WriteFile(path, data, 0640); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternalError, "failed to write pass bundle").
			WithStep(apperrors.StepStorage).
			WithContext("path", path)
	}

	s.logger.WithFields(logrus.Fields{
		"serialNumber": serialNumber,
		"bytes":        len(data),
	}).Debug("Stored pass bundle")

	return s.publicBaseURL + "/" + fileName, nil
}

// Load reads a stored bundle back, or returns (nil, nil) when no bundle
// exists for the serial.
func (s *ArtifactStore) Load(serialNumber string) ([]byte, error) {
	if err := validateSerial(serialNumber); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, serialNumber+".pkpass"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternalError, "failed to read pass bundle").
			WithStep(apperrors.StepStorage)
	}
	return data, nil
}

func validateSerial(serialNumber string) error {
	if serialNumber == "" {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "serial number is empty")
	}
	if strings.ContainsAny(serialNumber, "/\\") || strings.Contains(serialNumber, "..") {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "serial number contains path separators").
			WithContext("serialNumber", serialNumber)
	}
	return nil
}
