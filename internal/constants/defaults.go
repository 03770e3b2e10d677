package constants

// Default outbound delivery values
const (
	DefaultPushMaxAttempts  = 3
	DefaultPushRetryDelayMs = 5000
	DefaultPushWorkers      = 4
	DefaultQueueCapacity    = 0
	DefaultBreakerCooldown  = 30
	DefaultSMSTimeoutSec    = 10
	DefaultTelerivetBaseURL = "https://api.telerivet.com"
	DefaultDispatchBacklog  = 256
	DefaultRateLimitPerMin  = 60
	DefaultServerPort       = 5000
)

// Default timeout values
const (
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
	DefaultRateLimitCleanupSec   = 300
	DefaultDatabaseRetryAttempts = 3
	MaxWebhookBodyBytes          = 64 * 1024
)

// Privacy settings
const (
	DefaultPhoneMaskLength = 4
)

// Telerivet webhook event names
const (
	EventIncomingMessage = "incoming_message"
)
