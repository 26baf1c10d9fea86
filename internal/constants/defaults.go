package constants

// Default job queue configuration values
const (
	DefaultJobMaxAttempts    = 5
	DefaultJobBatchSize      = 25
	DefaultJobBackoffBaseSec = 60
	DefaultJobTimeoutSec     = 30
	DefaultJobLeaseSec       = 0 // leasing disabled unless configured
)

// Default timeout values
const (
	DefaultHTTPTimeoutSec        = 30
	DefaultDatabaseRetryAttempts = 3
	DefaultRetryBackoffMs        = 1000
	DefaultMaxBackoffMs          = 60000
	DefaultGracefulShutdownSec   = 30
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultServerPort            = 8084
)

// Google Wallet defaults
const (
	DefaultGoogleWalletBaseURL = "https://walletobjects.googleapis.com/walletobjects/v1"
	DefaultSaveLinkBaseURL     = "https://pay.google.com/gp/v/save/"
	DefaultShortenerBaseURL    = "https://tinyurl.com/api-create.php"
	DefaultQRRenderBaseURL     = "https://api.qrserver.com/v1/create-qr-code/"
	DefaultQRFallbackBaseURL   = "https://quickchart.io/qr"
	DefaultQRSizePx            = 300
	TemplateIDHashLen          = 20
	ObjectIDHashLen            = 20
)

// Apple Wallet defaults
const (
	DefaultAPNSHost       = "https://api.push.apple.com"
	APNSTokenLifetimeMin  = 55
	PassFormatVersion     = 1
	PKPassContentType     = "application/vnd.apple.pkpass"
	DefaultImageFetchSec  = 15
	SerialNumberRandBytes = 4
)

// Privacy settings
const (
	DefaultTokenMaskLength = 6
)
