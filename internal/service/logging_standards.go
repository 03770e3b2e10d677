package service

// Logging Standards for smsgate
//
// Standard field names and message patterns shared by every component so
// that log queries work across both relay directions.

// Standard Field Names
const (
	// Core identifiers
	LogFieldRequestID     = "request_id"
	LogFieldTraceID       = "trace_id"
	LogFieldCorrelationID = "correlation_id"
	LogFieldMessageID     = "message_id"
	LogFieldUserID        = "user_id"
	LogFieldChannelID     = "channel_id"
	LogFieldGuildID       = "guild_id"

	// Service and operation fields
	LogFieldService   = "service"
	LogFieldOperation = "operation"
	LogFieldComponent = "component"
	LogFieldMethod    = "method"

	// Relay fields
	LogFieldDirection   = "direction" // "sms_to_chat" or "chat_to_sms"
	LogFieldSender      = "sender"
	LogFieldDestination = "destination"
	LogFieldAlias       = "alias"
	LogFieldToken       = "token"
	LogFieldTargetKind  = "target_kind"
	LogFieldTarget      = "target"
	LogFieldMode        = "mode"
	LogFieldStatus      = "status"
	LogFieldContent     = "content"

	// Performance and metrics
	LogFieldDuration = "duration_ms"
	LogFieldCount    = "count"
	LogFieldSize     = "size_bytes"

	// Network and external services
	LogFieldURL        = "url"
	LogFieldEndpoint   = "endpoint"
	LogFieldStatusCode = "status_code"
	LogFieldRemoteIP   = "remote_ip"
	LogFieldUserAgent  = "user_agent"

	// Error and debugging
	LogFieldErrorCode = "error_code"
	LogFieldAttempt   = "attempt"
)

// Direction values for LogFieldDirection
const (
	DirectionSMSToChat = "sms_to_chat"
	DirectionChatToSMS = "chat_to_sms"
)

// Log Level Usage Guidelines
//
// DEBUG: raw payload details, only in verbose mode.
// INFO: startup/shutdown, accepted inbound SMS, successful deliveries.
// WARN: rejected senders, retried sends, unknown status reports.
// ERROR: terminal delivery failures and routing failures.
//
// Message patterns: "Starting [operation]", "Failed to [operation]",
// "Skipping [operation]: [reason]".
