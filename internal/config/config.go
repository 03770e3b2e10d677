package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"smsgate/internal/constants"
	"smsgate/internal/models"
	"smsgate/internal/privacy"
	"smsgate/internal/security"
	"smsgate/internal/validation"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var (
	ErrMissingBotToken    = models.ConfigError{Message: "missing Discord bot token"}
	ErrMissingDestination = models.ConfigError{Message: "missing SMS destination number"}
	ErrMissingTransport   = models.ConfigError{Message: "push delivery requires Telerivet api key, project id and phone id"}
)

// LoadConfig reads the optional JSON file at path, then .env and the process
// environment. A missing file is not an error: the environment alone is a
// complete configuration source.
func LoadConfig(path string, logger *logrus.Logger) (*models.Config, error) {
	if logger == nil {
		logger = logrus.New()
	}

	var config models.Config
	if path != "" {
		if err := security.ValidateFilePath(path); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}

		file, err := os.ReadFile(path) // #nosec G304 - Path validated by security.ValidateFilePath above
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.WithField("path", path).Info("Config file not found, using environment only")
		case err != nil:
			return nil, err
		default:
			if err := decodeConfigFile(file, &config, logger); err != nil {
				return nil, err
			}
		}
	}

	loadDotEnv(path)
	applyEnvironmentOverrides(&config, logger)

	if err := validate(&config); err != nil {
		return nil, err
	}

	if err := validateSecurity(&config); err != nil {
		return nil, err
	}

	warnSuspiciousEntries(&config, logger)

	return &config, nil
}

// configFile shadows the alias table so ids written as JSON numbers decode
// the same way as NUMBER_MAP
type configFile struct {
	models.Config
	Aliases json.RawMessage `json:"aliases"`
}

func decodeConfigFile(data []byte, config *models.Config, logger *logrus.Logger) error {
	var file configFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	*config = file.Config

	raw := strings.TrimSpace(string(file.Aliases))
	if raw == "" || raw == "null" {
		return nil
	}
	aliases, err := ParseAliasTable(raw)
	if err != nil {
		logger.WithError(err).Warn("Failed to parse aliases in config file, using empty alias table")
	}
	config.Aliases = aliases
	return nil
}

// loadDotEnv loads .env next to the config file and in the working directory.
// Variables already present in the environment win.
func loadDotEnv(configPath string) {
	candidates := []string{".env"}
	if configPath != "" {
		if dir := filepath.Dir(configPath); dir != "." {
			candidates = append([]string{filepath.Join(dir, ".env")}, candidates...)
		}
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			_ = godotenv.Load(candidate)
		}
	}
}

func validate(c *models.Config) error {
	if c.Discord.BotToken == "" {
		return ErrMissingBotToken
	}
	if c.SMS.DestinationNumber == "" {
		return ErrMissingDestination
	}

	if c.Delivery.Mode == "" {
		c.Delivery.Mode = models.DeliveryModePush
	}
	switch c.Delivery.Mode {
	case models.DeliveryModePush:
		if c.SMS.APIKey == "" || c.SMS.ProjectID == "" || c.SMS.PhoneID == "" {
			return ErrMissingTransport
		}
	case models.DeliveryModePull:
	default:
		return models.ConfigError{Message: fmt.Sprintf("unknown delivery mode %q (want push or pull)", c.Delivery.Mode)}
	}

	if c.SMS.APIBaseURL == "" {
		c.SMS.APIBaseURL = constants.DefaultTelerivetBaseURL
	}
	if c.SMS.TimeoutSec <= 0 {
		c.SMS.TimeoutSec = constants.DefaultSMSTimeoutSec
	}
	if c.Delivery.MaxAttempts <= 0 {
		c.Delivery.MaxAttempts = constants.DefaultPushMaxAttempts
	}
	if c.Delivery.RetryDelayMs <= 0 {
		c.Delivery.RetryDelayMs = constants.DefaultPushRetryDelayMs
	}
	if c.Delivery.Workers <= 0 {
		c.Delivery.Workers = constants.DefaultPushWorkers
	}
	if c.Delivery.BreakerCooldownSec <= 0 {
		c.Delivery.BreakerCooldownSec = constants.DefaultBreakerCooldown
	}
	if c.Delivery.QueueCapacity < 0 {
		c.Delivery.QueueCapacity = constants.DefaultQueueCapacity
	}
	if c.Server.Port <= 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if c.Server.RateLimitPerMin <= 0 {
		c.Server.RateLimitPerMin = constants.DefaultRateLimitPerMin
	}
	if c.Server.DispatchBacklog <= 0 {
		c.Server.DispatchBacklog = constants.DefaultDispatchBacklog
	}
	if c.Aliases == nil {
		c.Aliases = map[string]string{}
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "smsgate"
	}
	return validateRanges(c)
}

func validateRanges(c *models.Config) error {
	checks := []error{
		validation.ValidateNumericRange(c.Delivery.MaxAttempts, "delivery.max_attempts", 1, 20),
		validation.ValidateNumericRange(c.Delivery.Workers, "delivery.workers", 1, 256),
		validation.ValidateNumericRange(c.Delivery.RetryDelayMs, "delivery.retry_delay_ms", 1, 600000),
		validation.ValidateNumericRange(c.Server.Port, "server.port", 1, 65535),
		validation.ValidateTimeout(c.SMS.TimeoutSec, "sms.timeout_sec"),
		validation.ValidateTimeout(c.Delivery.BreakerCooldownSec, "delivery.breaker_cooldown_sec"),
		validation.ValidateTimeout(c.Server.ReadTimeoutSec, "server.read_timeout_sec"),
		validation.ValidateTimeout(c.Server.WriteTimeoutSec, "server.write_timeout_sec"),
	}
	if c.Discord.GuildID != "" {
		checks = append(checks, validation.ValidateSnowflake(c.Discord.GuildID, "discord.guild_id"))
	}
	for _, err := range checks {
		if err != nil {
			return models.ConfigError{Message: err.Error()}
		}
	}
	return nil
}

// warnSuspiciousEntries logs entries that load fine but can never match at
// runtime. Values are masked since they are phone numbers.
func warnSuspiciousEntries(c *models.Config, logger *logrus.Logger) {
	if err := validation.ValidatePhoneNumber(c.SMS.DestinationNumber); err != nil {
		logger.WithField("number", privacy.MaskPhoneNumber(c.SMS.DestinationNumber)).WithError(err).Warn("Destination number does not look like a phone number")
	}
	for _, number := range c.Access.AllowedNumbers {
		if err := validation.ValidatePhoneNumber(number); err != nil {
			logger.WithField("number", privacy.MaskPhoneNumber(number)).WithError(err).Warn("Allow list entry does not look like a phone number")
		}
	}
	for alias, token := range c.Aliases {
		if err := validation.ValidateAlias(alias); err != nil {
			logger.WithField("alias", alias).WithError(err).Warn("Alias can never be addressed by an SMS")
		}
		if err := validation.ValidateAliasTarget(token); err != nil {
			logger.WithField("alias", alias).WithError(err).Warn("Alias target is unusable")
		}
	}
}

func applyEnvironmentOverrides(c *models.Config, logger *logrus.Logger) {
	if token := os.Getenv("BOT_TOKEN"); token != "" {
		c.Discord.BotToken = token
	}
	if guild := os.Getenv("DISCORD_GUILD_ID"); guild != "" {
		c.Discord.GuildID = guild
	}
	if key := os.Getenv("TELERIVET_API_KEY"); key != "" {
		c.SMS.APIKey = key
	}
	if project := os.Getenv("TELERIVET_PROJECT_ID"); project != "" {
		c.SMS.ProjectID = project
	}
	if phone := os.Getenv("TELERIVET_PHONE_ID"); phone != "" {
		c.SMS.PhoneID = phone
	}
	if target := os.Getenv("TARGET_PHONE_NUMBER"); target != "" {
		c.SMS.DestinationNumber = target
	}
	if allowed, ok := os.LookupEnv("ALLOWED_NUMBERS"); ok {
		c.Access.AllowedNumbers = ParseAllowList(allowed)
	}
	if raw, ok := os.LookupEnv("NUMBER_MAP"); ok {
		aliases, err := ParseAliasTable(raw)
		if err != nil {
			logger.WithError(err).Warn("Failed to parse NUMBER_MAP, using empty alias table")
		}
		c.Aliases = aliases
	}
	if mode := os.Getenv("DELIVERY_MODE"); mode != "" {
		c.Delivery.Mode = models.DeliveryMode(strings.ToLower(mode))
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		} else {
			logger.WithField("port", port).Warn("Ignoring non-numeric PORT")
		}
	}
	// SECURITY: Webhook secrets should be set via environment variables
	if secret := os.Getenv("SMSGATE_WEBHOOK_SECRET"); secret != "" {
		c.Access.WebhookSecret = secret
	}
	if path := os.Getenv("DB_PATH"); path != "" {
		c.Database.Path = path
	}
}

// ParseAllowList splits a comma separated list of sender numbers, keeping order
func ParseAllowList(raw string) []string {
	numbers := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if number := strings.TrimSpace(part); number != "" {
			numbers = append(numbers, number)
		}
	}
	return numbers
}

// ParseAliasTable decodes a JSON object of alias -> token. On error it returns
// an empty, non-nil table alongside the error so callers can degrade.
func ParseAliasTable(raw string) (map[string]string, error) {
	aliases := map[string]string{}
	if strings.TrimSpace(raw) == "" {
		return aliases, nil
	}

	var decoded map[string]any
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&decoded); err != nil {
		return map[string]string{}, models.ConfigError{Message: fmt.Sprintf("alias table is not a JSON object: %v", err)}
	}

	for alias, value := range decoded {
		switch v := value.(type) {
		case string:
			aliases[alias] = v
		case json.Number:
			aliases[alias] = v.String()
		default:
			return map[string]string{}, models.ConfigError{Message: fmt.Sprintf("alias %q must map to a string", alias)}
		}
	}
	return aliases, nil
}

// validateSecurity performs security-specific validation
func validateSecurity(c *models.Config) error {
	isProduction := os.Getenv("SMSGATE_ENV") == "production"

	if isProduction {
		if c.Access.WebhookSecret == "" {
			return models.ConfigError{Message: "webhook secret is required in production (set SMSGATE_WEBHOOK_SECRET environment variable)"}
		}
		if len(c.Access.AllowedNumbers) == 0 {
			return models.ConfigError{Message: "allowed_numbers must not be empty in production"}
		}
		if c.LogLevel == "debug" {
			return models.ConfigError{Message: "debug logging should not be used in production (security risk)"}
		}
	} else if c.Access.WebhookSecret == "" {
		fmt.Fprintf(os.Stderr, "WARNING: webhook secret not set. Set SMSGATE_WEBHOOK_SECRET environment variable for security.\n")
	}

	return nil
}
