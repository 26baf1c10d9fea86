package config

import (
	"encoding/json"
	"fmt"
	"os"

	"walletbridge/internal/constants"
	"walletbridge/internal/models"
)

var (
	ErrMissingDBPath   = models.ConfigError{Message: "missing database path"}
	ErrMissingIssuerID = models.ConfigError{Message: "missing Google Wallet issuer id"}
	ErrMissingPassType = models.ConfigError{Message: "missing Apple pass type identifier"}
	ErrMissingTeamID   = models.ConfigError{Message: "missing Apple team identifier"}
)

func LoadConfig(path string) (*models.Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *models.Config) error {
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}
	if c.GoogleWallet.IssuerID == "" {
		return ErrMissingIssuerID
	}
	if c.ApplePass.PassTypeIdentifier == "" {
		return ErrMissingPassType
	}
	if c.ApplePass.TeamIdentifier == "" {
		return ErrMissingTeamID
	}

	if c.GoogleWallet.APIBaseURL == "" {
		c.GoogleWallet.APIBaseURL = constants.DefaultGoogleWalletBaseURL
	}
	if c.GoogleWallet.SaveLinkBaseURL == "" {
		c.GoogleWallet.SaveLinkBaseURL = constants.DefaultSaveLinkBaseURL
	}
	if c.GoogleWallet.ShortenerURL == "" {
		c.GoogleWallet.ShortenerURL = constants.DefaultShortenerBaseURL
	}
	if c.GoogleWallet.QRRenderURL == "" {
		c.GoogleWallet.QRRenderURL = constants.DefaultQRRenderBaseURL
	}
	if c.GoogleWallet.QRFallbackURL == "" {
		c.GoogleWallet.QRFallbackURL = constants.DefaultQRFallbackBaseURL
	}
	if c.GoogleWallet.TimeoutSec <= 0 {
		c.GoogleWallet.TimeoutSec = constants.DefaultHTTPTimeoutSec
	}

	if c.APNS.Host == "" {
		c.APNS.Host = constants.DefaultAPNSHost
	}
	if c.APNS.TimeoutSec <= 0 {
		c.APNS.TimeoutSec = constants.DefaultHTTPTimeoutSec
	}
	if c.APNS.Topic == "" {
		c.APNS.Topic = c.ApplePass.PassTypeIdentifier
	}

	if c.ApplePass.ImageTimeoutSec <= 0 {
		c.ApplePass.ImageTimeoutSec = constants.DefaultImageFetchSec
	}

	if c.Jobs.BatchSize <= 0 {
		c.Jobs.BatchSize = constants.DefaultJobBatchSize
	}
	if c.Jobs.MaxAttempts <= 0 {
		c.Jobs.MaxAttempts = constants.DefaultJobMaxAttempts
	}
	if c.Jobs.BackoffBaseSec <= 0 {
		c.Jobs.BackoffBaseSec = constants.DefaultJobBackoffBaseSec
	}
	if c.Jobs.JobTimeoutSec <= 0 {
		c.Jobs.JobTimeoutSec = constants.DefaultJobTimeoutSec
	}
	if c.Jobs.LeaseSec < 0 {
		c.Jobs.LeaseSec = constants.DefaultJobLeaseSec
	}

	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if path := os.Getenv("WALLETBRIDGE_DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if dir := os.Getenv("WALLETBRIDGE_ARTIFACTS_DIR"); dir != "" {
		c.Artifacts.Dir = dir
	}

	// Secrets come from the environment, never from the config file.
	if token := os.Getenv("GOOGLE_WALLET_API_TOKEN"); token != "" {
		c.GoogleWallet.APIToken = token
	}
	if key := os.Getenv("GOOGLE_WALLET_PRIVATE_KEY_PATH"); key != "" {
		c.GoogleWallet.PrivateKeyPath = key
	}
	if pass := os.Getenv("APPLE_PASS_CERT_PASSPHRASE"); pass != "" {
		c.ApplePass.Passphrase = pass
	}
	if key := os.Getenv("APNS_KEY_PATH"); key != "" {
		c.APNS.KeyPath = key
	}
	if id := os.Getenv("APNS_KEY_ID"); id != "" {
		c.APNS.KeyID = id
	}
	if id := os.Getenv("APNS_TEAM_ID"); id != "" {
		c.APNS.TeamID = id
	}
}
