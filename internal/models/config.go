package models

// DeliveryMode selects how chat messages reach the SMS transport
type DeliveryMode string

const (
	DeliveryModePush DeliveryMode = "push"
	DeliveryModePull DeliveryMode = "pull"
)

// Config holds the application configuration
type Config struct {
	Discord  DiscordConfig     `json:"discord" mapstructure:"discord"`
	SMS      SMSConfig         `json:"sms" mapstructure:"sms"`
	Delivery DeliveryConfig    `json:"delivery" mapstructure:"delivery"`
	Access   AccessConfig      `json:"access" mapstructure:"access"`
	Aliases  map[string]string `json:"aliases" mapstructure:"aliases"`
	Server   ServerConfig      `json:"server" mapstructure:"server"`
	Database DatabaseConfig    `json:"database" mapstructure:"database"`
	Tracing  TracingConfig     `json:"tracing" mapstructure:"tracing"`
	LogLevel string            `json:"log_level" mapstructure:"log_level"`
}

// DiscordConfig holds chat platform settings
type DiscordConfig struct {
	BotToken string `json:"bot_token" mapstructure:"bot_token"`
	GuildID  string `json:"guild_id" mapstructure:"guild_id"`
}

// SMSConfig holds SMS transport settings
type SMSConfig struct {
	APIBaseURL        string `json:"api_base_url" mapstructure:"api_base_url"`
	APIKey            string `json:"api_key" mapstructure:"api_key"`
	ProjectID         string `json:"project_id" mapstructure:"project_id"`
	PhoneID           string `json:"phone_id" mapstructure:"phone_id"`
	DestinationNumber string `json:"destination_number" mapstructure:"destination_number"` // the number chat messages are relayed to
	TimeoutSec        int    `json:"timeout_sec" mapstructure:"timeout_sec"`
}

// DeliveryConfig holds outbound delivery settings
type DeliveryConfig struct {
	Mode          DeliveryMode `json:"mode" mapstructure:"mode"`
	MaxAttempts   int          `json:"max_attempts" mapstructure:"max_attempts"`
	RetryDelayMs  int          `json:"retry_delay_ms" mapstructure:"retry_delay_ms"`
	Workers       int          `json:"workers" mapstructure:"workers"`
	QueueCapacity int          `json:"queue_capacity" mapstructure:"queue_capacity"`
	// BreakerThreshold is the run of transport failures that pauses push
	// sends for BreakerCooldownSec. Zero or negative leaves the breaker off.
	// While open, a paused send still uses up one of MaxAttempts.
	BreakerThreshold   int `json:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownSec int `json:"breaker_cooldown_sec" mapstructure:"breaker_cooldown_sec"`
}

// AccessConfig holds the inbound sender allow list
type AccessConfig struct {
	AllowedNumbers []string `json:"allowed_numbers" mapstructure:"allowed_numbers"`
	WebhookSecret  string   `json:"webhook_secret" mapstructure:"webhook_secret"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Port              int  `json:"port" mapstructure:"port"`
	ReadTimeoutSec    int  `json:"read_timeout_sec" mapstructure:"read_timeout_sec"`
	WriteTimeoutSec   int  `json:"write_timeout_sec" mapstructure:"write_timeout_sec"`
	RateLimitPerMin   int  `json:"rate_limit_per_min" mapstructure:"rate_limit_per_min"`
	DispatchBacklog   int  `json:"dispatch_backlog" mapstructure:"dispatch_backlog"`
	TrustProxyHeaders bool `json:"trust_proxy_headers" mapstructure:"trust_proxy_headers"`
}

// DatabaseConfig holds the optional status journal location
type DatabaseConfig struct {
	Path string `json:"path"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	ServiceName    string  `json:"service_name"`
	ServiceVersion string  `json:"service_version"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlp_endpoint"`
	SampleRate     float64 `json:"sample_rate"`
	UseStdout      bool    `json:"use_stdout"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
