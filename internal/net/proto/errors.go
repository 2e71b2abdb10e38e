package proto

// ErrorCode is a protocol-level failure reported through system/error or a
// heartbeat disconnect.
type ErrorCode string

const (
	ErrorBadFormat        ErrorCode = "bad_format"
	ErrorAuthRequired     ErrorCode = "auth_required"
	ErrorInvalidSession   ErrorCode = "invalid_session"
	ErrorSessionExpired   ErrorCode = "session_expired"
	ErrorUnknownType      ErrorCode = "unknown_type"
	ErrorHeartbeatTimeout ErrorCode = "heartbeat_timeout"
	ErrorNotInInstance    ErrorCode = "not_in_instance"
	ErrorPartyNotFound    ErrorCode = "party_not_found"
	ErrorEmptyParty       ErrorCode = "empty_party"
	ErrorInInstance       ErrorCode = "already_in_instance"
	ErrorInternal         ErrorCode = "internal"
)

// ErrorPayload is the body of system/error.
type ErrorPayload struct {
	Code              ErrorCode `json:"code" jsonschema:"enum=bad_format,enum=auth_required,enum=invalid_session,enum=session_expired,enum=unknown_type,enum=not_in_instance,enum=party_not_found,enum=empty_party,enum=already_in_instance,enum=internal,required"`
	Message           string    `json:"message"`
	RetryAfterSeconds *int      `json:"retryAfterSeconds,omitempty"`
}

// DisconnectPayload is the system/heartbeat body the server sends before it
// closes a socket.
type DisconnectPayload struct {
	Code         ErrorCode `json:"code" jsonschema:"required"`
	Message      string    `json:"message"`
	CanReconnect bool      `json:"canReconnect"`
}

// NewError builds a system/error envelope.
func NewError(sessionID, requestID string, code ErrorCode, message string) Envelope {
	env, _ := NewEnvelope(TypeError, sessionID, requestID, ErrorPayload{Code: code, Message: message})
	return env
}

// NewDisconnect builds the system/heartbeat disconnect notice.
func NewDisconnect(sessionID string, code ErrorCode, message string, canReconnect bool) Envelope {
	env, _ := NewEnvelope(TypeHeartbeat, sessionID, "", DisconnectPayload{Code: code, Message: message, CanReconnect: canReconnect})
	return env
}
