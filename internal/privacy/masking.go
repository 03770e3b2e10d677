package privacy

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"smsgate/internal/constants"
)

// MaskPhoneNumber masks a phone number showing only the last 4 digits
// Example: "+15551234567" -> "+*******4567"
func MaskPhoneNumber(phone string) string {
	if phone == "" {
		return ""
	}

	if strings.HasPrefix(phone, "+") {
		return "+" + maskString(phone[1:], constants.DefaultPhoneMaskLength)
	}
	return maskString(phone, constants.DefaultPhoneMaskLength)
}

// MaskID masks a platform identifier such as a channel or user snowflake
func MaskID(id string) string {
	return maskString(id, 4)
}

// DescribeContent summarizes a message body without revealing it
func DescribeContent(content string) string {
	if content == "" {
		return ""
	}
	return fmt.Sprintf("[%d chars]", utf8.RuneCountInString(content))
}

func maskString(s string, keepLast int) string {
	if s == "" {
		return ""
	}
	if len(s) <= keepLast {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-keepLast) + s[len(s)-keepLast:]
}

// MaskSensitiveFields applies appropriate masking to common logging fields
func MaskSensitiveFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}

	masked := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		s, isString := v.(string)
		if !isString {
			masked[k] = v
			continue
		}
		switch k {
		case "phone", "sender", "from", "to", "destination":
			masked[k] = MaskPhoneNumber(s)
		case "user_id", "channel_id":
			masked[k] = MaskID(s)
		case "content", "body", "message":
			masked[k] = DescribeContent(s)
		default:
			masked[k] = v
		}
	}

	return masked
}
