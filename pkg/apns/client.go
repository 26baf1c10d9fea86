package apns

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"walletbridge/internal/constants"
	apperrors "walletbridge/internal/errors"
	"walletbridge/internal/models"
	"walletbridge/internal/privacy"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
)

// PushResult reports the outcome of one push attempt. StatusCode is zero
// when the request never reached the provider.
type PushResult struct {
	Success    bool
	StatusCode int
	Reason     string
	Err        error
}

// Client sends background update pushes over the provider's HTTP/2
// endpoint, authenticating with a short-lived ES256 provider token.
type Client struct {
	cfg    models.APNSConfig
	key    *ecdsa.PrivateKey
	client *http.Client
	logger *logrus.Logger

	mu          sync.Mutex
	cachedToken string
	tokenIssued time.Time
}

// NewClient loads the provider signing key and prepares the HTTP/2
// transport. A nil httpClient gets a dedicated HTTP/2 client; tests
// inject their own.
func NewClient(cfg models.APNSConfig, httpClient *http.Client, logger *logrus.Logger) (*Client, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.Host == "" {
		cfg.Host = constants.DefaultAPNSHost
	}

	c := &Client{
		cfg:    cfg,
		client: httpClient,
		logger: logger,
	}

	if cfg.KeyPath != "" {
		key, err := loadECKey(cfg.KeyPath)
		if err != nil {
			return nil, err
		}
		c.key = key
	}

	if c.client == nil {
		timeout := time.Duration(cfg.TimeoutSec) * time.Second
		if timeout == 0 {
			timeout = constants.DefaultHTTPTimeoutSec * time.Second
		}
		c.client = &http.Client{
			Transport: &http2.Transport{},
			Timeout:   timeout,
		}
	}

	return c, nil
}

// Push sends a content-available background push telling the device to
// refresh its pass. Missing configuration fails fast without any network
// traffic; transport and status failures come back retryable.
func (c *Client) Push(ctx context.Context, deviceToken, serialNumber string) (*PushResult, error) {
	if err := c.checkConfig(deviceToken); err != nil {
		return &PushResult{Success: false, Err: err}, err
	}

	token, err := c.providerToken()
	if err != nil {
		return &PushResult{Success: false, Err: err}, err
	}

	payload := map[string]interface{}{
		"aps":          map[string]interface{}{"content-available": 1},
		"serialNumber": serialNumber,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal push payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/3/device/%s", c.cfg.Host, deviceToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create push request: %w", err)
	}
	req.Header.Set("authorization", "bearer "+token)
	req.Header.Set("apns-topic", c.cfg.Topic)
	req.Header.Set("apns-push-type", "background")
	req.Header.Set("apns-priority", "5")

	resp, err := c.client.Do(req)
	if err != nil {
		pushErr := apperrors.WrapRetryable(err, apperrors.ErrCodeAPNSAPI, "push request failed").
			WithStep(apperrors.StepPush)
		return &PushResult{Success: false, Err: pushErr}, pushErr
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		reason := readReason(resp.Body)
		pushErr := apperrors.NewProviderError("apns", endpoint, resp.StatusCode,
			fmt.Errorf("push rejected: %s", reason)).
			WithStep(apperrors.StepPush)
		return &PushResult{
			Success:    false,
			StatusCode: resp.StatusCode,
			Reason:     reason,
			Err:        pushErr,
		}, pushErr
	}

	c.logger.WithFields(logrus.Fields{
		"serialNumber": serialNumber,
		"deviceToken":  privacy.MaskToken(deviceToken),
	}).Info("Sent background push")

	return &PushResult{Success: true, StatusCode: resp.StatusCode}, nil
}

func (c *Client) checkConfig(deviceToken string) error {
	switch {
	case c.key == nil:
		return apperrors.NewConfigError("apns.keyPath", "push signing key is not configured")
	case c.cfg.KeyID == "":
		return apperrors.NewConfigError("apns.keyId", "push key id is not configured")
	case c.cfg.TeamID == "":
		return apperrors.NewConfigError("apns.teamId", "push team id is not configured")
	case c.cfg.Topic == "":
		return apperrors.NewConfigError("apns.topic", "push topic is not configured")
	case deviceToken == "":
		return apperrors.New(apperrors.ErrCodeInvalidInput, "device token is empty")
	}
	return nil
}

// providerToken returns a cached provider token, re-signing when the
// cached one approaches the provider's one-hour limit.
func (c *Client) providerToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cachedToken != "" && time.Since(c.tokenIssued) < constants.APNSTokenLifetimeMin*time.Minute {
		return c.cachedToken, nil
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": c.cfg.TeamID,
		"iat": now.Unix(),
	})
	token.Header["kid"] = c.cfg.KeyID

	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", apperrors.NewSigningError("provider token signing failed", err)
	}

	c.cachedToken = signed
	c.tokenIssued = now
	return signed, nil
}

func loadECKey(path string) (*ecdsa.PrivateKey, error) {
	keyBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeMissingConfig, "failed to read push signing key")
	}

	block, _ := pem.Decode(keyBytes)
	if block == nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidConfig, "no PEM block in push signing key")
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidConfig, "failed to parse push signing key")
	}

	ecKey, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeInvalidConfig,
			fmt.Sprintf("push signing key is %T, expected ECDSA", parsed))
	}
	return ecKey, nil
}

func readReason(body io.Reader) string {
	var parsed struct {
		Reason string `json:"reason"`
	}
	raw, err := io.ReadAll(io.LimitReader(body, 1024))
	if err != nil || len(raw) == 0 {
		return "unknown"
	}
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.Reason == "" {
		return string(raw)
	}
	return parsed.Reason
}
