package googlewallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "walletbridge/internal/errors"
	"walletbridge/pkg/googlewallet/types"

	"github.com/sirupsen/logrus"
)

// APIClient talks to the provider's wallet objects REST API. Classes are
// shared templates; objects are per-holder instances.
type APIClient struct {
	baseURL   string
	authToken string
	client    *http.Client
	logger    *logrus.Logger
}

func NewAPIClient(baseURL, authToken string, httpClient *http.Client, logger *logrus.Logger) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	return &APIClient{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		authToken: authToken,
		client:    httpClient,
		logger:    logger,
	}
}

func (c *APIClient) GetClass(ctx context.Context, kind types.ObjectKind, classID string) (*types.Template, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, kind.ClassPath(), classID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.WrapRetryable(err, apperrors.ErrCodeGoogleWalletAPI, "class lookup failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp, endpoint)
	}

	var template types.Template
	if err := json.NewDecoder(resp.Body).Decode(&template); err != nil {
		return nil, fmt.Errorf("failed to decode class response: %w", err)
	}
	return &template, nil
}

func (c *APIClient) InsertClass(ctx context.Context, kind types.ObjectKind, template *types.Template) error {
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, kind.ClassPath())

	body, err := json.Marshal(template)
	if err != nil {
		return fmt.Errorf("failed to marshal class: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"classId":  template.ID,
	}).Debug("Inserting wallet class")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.WrapRetryable(err, apperrors.ErrCodeGoogleWalletAPI, "class insert failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return c.statusError(resp, endpoint)
	}
	return nil
}

func (c *APIClient) PatchObject(ctx context.Context, kind types.ObjectKind, objectID string, patch *types.WalletObject) error {
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, kind.ObjectPath(), objectID)

	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to marshal object patch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.WrapRetryable(err, apperrors.ErrCodeGoogleWalletAPI, "object patch failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return apperrors.NewNotFoundError("wallet object", objectID).WithStep(apperrors.StepObjectPatch)
	}
	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp, endpoint)
	}
	return nil
}

func (c *APIClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
}

func (c *APIClient) statusError(resp *http.Response, endpoint string) error {
	bodyBytes, _ := io.ReadAll(resp.Body)
	err := fmt.Errorf("wallet API error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	return apperrors.NewProviderError("googlewallet", endpoint, resp.StatusCode, err)
}
