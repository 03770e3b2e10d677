package validation

import (
	"fmt"
	"strings"
	"unicode"

	"smsgate/internal/errors"
)

const (
	minPhoneDigits   = 7
	maxPhoneDigits   = 15
	minSnowflakeLen  = 17
	maxSnowflakeLen  = 20
	maxTimeoutSec    = 3600
	maxAliasLength   = 64
	maxChannelLength = 100
)

// ValidatePhoneNumber checks for an optional leading "+" followed by digits
func ValidatePhoneNumber(phone string) error {
	if phone == "" {
		return errors.New(errors.ErrCodeConfigInvalid, "phone number cannot be empty")
	}

	digits := strings.TrimPrefix(phone, "+")
	if len(digits) < minPhoneDigits {
		return errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("phone number must be at least %d digits", minPhoneDigits))
	}
	if len(digits) > maxPhoneDigits {
		return errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("phone number too long (max %d digits)", maxPhoneDigits))
	}
	for _, char := range digits {
		if char < '0' || char > '9' {
			return errors.New(errors.ErrCodeConfigInvalid, "phone number must contain only digits")
		}
	}
	return nil
}

// ValidateSnowflake checks the shape of a Discord id
func ValidateSnowflake(id, fieldName string) error {
	if len(id) < minSnowflakeLen || len(id) > maxSnowflakeLen {
		return errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("%s must be %d-%d digits", fieldName, minSnowflakeLen, maxSnowflakeLen))
	}
	for _, char := range id {
		if char < '0' || char > '9' {
			return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("%s must contain only digits", fieldName))
		}
	}
	return nil
}

// ValidateAlias rejects aliases no SMS could ever address: the parser splits
// on the first whitespace and strips a single leading "@".
func ValidateAlias(alias string) error {
	if alias == "" {
		return errors.New(errors.ErrCodeConfigInvalid, "alias cannot be empty")
	}
	if len(alias) > maxAliasLength {
		return errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("alias too long (max %d characters)", maxAliasLength))
	}
	if strings.HasPrefix(alias, "@") {
		return errors.New(errors.ErrCodeConfigInvalid, "alias cannot start with @")
	}
	for _, char := range alias {
		if unicode.IsSpace(char) {
			return errors.New(errors.ErrCodeConfigInvalid, "alias cannot contain whitespace")
		}
	}
	return nil
}

// ValidateAliasTarget checks the token an alias maps to
func ValidateAliasTarget(token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New(errors.ErrCodeConfigInvalid, "alias target cannot be empty")
	}
	return ValidateStringLength(token, "alias target", 1, maxChannelLength)
}

// ValidateStringLength validates string length against bounds
func ValidateStringLength(value, fieldName string, minLength, maxLength int) error {
	if len(value) < minLength {
		return errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("%s too short (min %d characters)", fieldName, minLength))
	}
	if len(value) > maxLength {
		return errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("%s too long (max %d characters)", fieldName, maxLength))
	}
	return nil
}

// ValidateNumericRange validates numeric values against bounds
func ValidateNumericRange(value int, fieldName string, min, max int) error {
	if value < min {
		return errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("%s too small (min %d)", fieldName, min))
	}
	if value > max {
		return errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("%s too large (max %d)", fieldName, max))
	}
	return nil
}

// ValidateTimeout validates timeout values
func ValidateTimeout(timeoutSec int, fieldName string) error {
	if timeoutSec < 1 {
		return errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("%s must be at least 1 second", fieldName))
	}
	if timeoutSec > maxTimeoutSec {
		return errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("%s too large (max %d seconds)", fieldName, maxTimeoutSec))
	}
	return nil
}
