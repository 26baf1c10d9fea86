package models

// Config holds the application configuration
type Config struct {
	GoogleWallet GoogleWalletConfig `json:"googleWallet"`
	ApplePass    ApplePassConfig    `json:"applePass"`
	APNS         APNSConfig         `json:"apns"`
	Database     DatabaseConfig     `json:"database"`
	Artifacts    ArtifactsConfig    `json:"artifacts"`
	Jobs         JobsConfig         `json:"jobs"`
	Tracing      TracingConfig      `json:"tracing"`
	LogLevel     string             `json:"logLevel"`
}

// GoogleWalletConfig holds Google Wallet related configuration
type GoogleWalletConfig struct {
	APIBaseURL      string   `json:"apiBaseUrl"`
	IssuerID        string   `json:"issuerId"`
	IssuerEmail     string   `json:"issuerEmail"`
	PrivateKeyPath  string   `json:"privateKeyPath"`
	Origins         []string `json:"origins"`
	APIToken        string   `json:"apiToken"`
	TimeoutSec      int      `json:"timeoutSec"`
	ShortenerURL    string   `json:"shortenerUrl"`
	QRRenderURL     string   `json:"qrRenderUrl"`
	QRFallbackURL   string   `json:"qrFallbackUrl"`
	SaveLinkBaseURL string   `json:"saveLinkBaseUrl"`
}

// ApplePassConfig holds Apple pass signing configuration
type ApplePassConfig struct {
	PassTypeIdentifier string `json:"passTypeIdentifier"`
	TeamIdentifier     string `json:"teamIdentifier"`
	OrganizationName   string `json:"organizationName"`
	CertPath           string `json:"certPath"`
	KeyPath            string `json:"keyPath"`
	P12Path            string `json:"p12Path"`
	Passphrase         string `json:"passphrase"`
	WWDRPath           string `json:"wwdrPath"`
	ImageTimeoutSec    int    `json:"imageTimeoutSec"`
}

// APNSConfig holds push notifier configuration
type APNSConfig struct {
	Host       string `json:"host"`
	KeyPath    string `json:"keyPath"`
	KeyID      string `json:"keyId"`
	TeamID     string `json:"teamId"`
	Topic      string `json:"topic"`
	TimeoutSec int    `json:"timeoutSec"`
}

// DatabaseConfig holds database related configuration
type DatabaseConfig struct {
	Path string `json:"path"`
}

// ArtifactsConfig holds durable artifact storage configuration
type ArtifactsConfig struct {
	Dir           string `json:"dir"`
	PublicBaseURL string `json:"publicBaseUrl"`
}

// JobsConfig holds dispatcher configuration
type JobsConfig struct {
	BatchSize       int `json:"batchSize"`
	MaxAttempts     int `json:"maxAttempts"`
	BackoffBaseSec  int `json:"backoffBaseSec"`
	JobTimeoutSec   int `json:"jobTimeoutSec"`
	LeaseSec        int `json:"leaseSec"`
	PollIntervalSec int `json:"pollIntervalSec"`
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	ServiceName    string  `json:"serviceName"`
	ServiceVersion string  `json:"serviceVersion"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlpEndpoint"`
	SampleRate     float64 `json:"sampleRate"`
	Enabled        bool    `json:"enabled"`
	UseStdout      bool    `json:"useStdout"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
