package network

import (
	"context"

	"github.com/jackandcarter/Adventure-2.0-sub000/logging"
)

const (
	// EventSessionIssued is emitted when a session is created.
	EventSessionIssued logging.EventType = "network.session_issued"
	// EventSessionExpired is emitted when the sweeper removes an idle session.
	EventSessionExpired logging.EventType = "network.session_expired"
	// EventHeartbeatTimeout is emitted when a connection misses its heartbeat window.
	EventHeartbeatTimeout logging.EventType = "network.heartbeat_timeout"
	// EventBadFrame is emitted when a frame cannot be parsed as an envelope.
	EventBadFrame logging.EventType = "network.bad_frame"
	// EventConnectionReplaced is emitted when a session binds a newer connection.
	EventConnectionReplaced logging.EventType = "network.connection_replaced"
)

// SessionPayload identifies a session and its connection.
type SessionPayload struct {
	SessionID    string `json:"sessionId,omitempty"`
	ConnectionID string `json:"connectionId,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// SessionIssued publishes a debug event for a new session.
func SessionIssued(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload SessionPayload, extra map[string]any) {
	publish(ctx, pub, EventSessionIssued, logging.SeverityDebug, actor, payload, extra)
}

// SessionExpired publishes an info event for an expired session.
func SessionExpired(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload SessionPayload, extra map[string]any) {
	publish(ctx, pub, EventSessionExpired, logging.SeverityInfo, actor, payload, extra)
}

// HeartbeatTimeout publishes a warning when a client goes silent.
func HeartbeatTimeout(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload SessionPayload, extra map[string]any) {
	publish(ctx, pub, EventHeartbeatTimeout, logging.SeverityWarn, actor, payload, extra)
}

// BadFrame publishes a debug event for an unparsable frame.
func BadFrame(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload SessionPayload, extra map[string]any) {
	publish(ctx, pub, EventBadFrame, logging.SeverityDebug, actor, payload, extra)
}

// ConnectionReplaced publishes an info event when a connection is superseded.
func ConnectionReplaced(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload SessionPayload, extra map[string]any) {
	publish(ctx, pub, EventConnectionReplaced, logging.SeverityInfo, actor, payload, extra)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, actor logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Actor:    actor,
		Severity: severity,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	})
}
