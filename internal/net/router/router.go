package router

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/net/proto"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/session"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/telemetry"
)

const (
	dispatchMetricKey = "router_dispatch_total"
	errorMetricKey    = "router_errors_total"
)

// Sender pushes envelopes back to a client.
type Sender interface {
	Send(ctx context.Context, env proto.Envelope) error
}

// SenderFunc adapts a function into a Sender.
type SenderFunc func(ctx context.Context, env proto.Envelope) error

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, env proto.Envelope) error {
	if f == nil {
		return nil
	}
	return f(ctx, env)
}

// SessionValidator resolves live sessions.
type SessionValidator interface {
	Validate(sessionID string) (session.Record, error)
}

// Request is what a handler receives besides its decoded payload.
type Request struct {
	Session      session.Record
	ConnectionID string
	Envelope     proto.Envelope
}

// Error is a handler failure the client should see with a specific code.
type Error struct {
	Code    proto.ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errorf builds a client-visible handler error.
func Errorf(code proto.ErrorCode, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

type route func(ctx context.Context, req Request, sender Sender) error

// Config wires the router's collaborators.
type Config struct {
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
}

// Router dispatches envelopes to handlers registered by message type.
type Router struct {
	sessions SessionValidator
	logger   telemetry.Logger
	metrics  telemetry.Metrics

	mu     sync.RWMutex
	routes map[string]route
}

// New builds an empty router.
func New(sessions SessionValidator, cfg Config) *Router {
	if cfg.Logger == nil {
		cfg.Logger = telemetry.LoggerFunc(nil)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NopMetrics{}
	}
	return &Router{
		sessions: sessions,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		routes:   make(map[string]route),
	}
}

// Handle registers fn for messageType, decoding the payload into T first.
// Registering a type twice replaces the earlier handler.
func Handle[T any](r *Router, messageType string, fn func(ctx context.Context, req Request, payload T, sender Sender) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[messageType] = func(ctx context.Context, req Request, sender Sender) error {
		var payload T
		if err := req.Envelope.DecodePayload(&payload); err != nil {
			return &Error{Code: proto.ErrorBadFormat, Message: err.Error()}
		}
		return fn(ctx, req, payload, sender)
	}
}

// Types lists the registered message types.
func (r *Router) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.routes))
	for t := range r.routes {
		out = append(out, t)
	}
	return out
}

// Dispatch re-validates the envelope's session, then runs the handler for its
// type. Failures are reported to the client through sender; send errors are
// logged and otherwise ignored.
func (r *Router) Dispatch(ctx context.Context, connectionID string, env proto.Envelope, sender Sender) {
	ctx, span := telemetry.Tracer().Start(ctx, "router.dispatch", trace.WithAttributes(
		attribute.String("message.type", env.Type),
		attribute.String("connection.id", connectionID),
	))
	defer span.End()
	r.metrics.Add(dispatchMetricKey, 1)

	record, err := r.sessions.Validate(env.SessionID)
	if err != nil {
		code := proto.ErrorInvalidSession
		if errors.Is(err, session.ErrSessionExpired) {
			code = proto.ErrorSessionExpired
		}
		r.fail(ctx, span, env, sender, code, err.Error())
		return
	}

	r.mu.RLock()
	handler, ok := r.routes[env.Type]
	r.mu.RUnlock()
	if !ok {
		r.fail(ctx, span, env, sender, proto.ErrorUnknownType, fmt.Sprintf("unknown message type %q", env.Type))
		return
	}

	err = handler(ctx, Request{Session: record, ConnectionID: connectionID, Envelope: env}, sender)
	if err == nil {
		return
	}
	var handlerErr *Error
	if errors.As(err, &handlerErr) {
		r.fail(ctx, span, env, sender, handlerErr.Code, handlerErr.Message)
		return
	}
	r.logger.Printf("[router] %s handler failed for session %s: %v", env.Type, env.SessionID, err)
	r.fail(ctx, span, env, sender, proto.ErrorInternal, "internal error")
}

func (r *Router) fail(ctx context.Context, span trace.Span, env proto.Envelope, sender Sender, code proto.ErrorCode, message string) {
	r.metrics.Add(errorMetricKey, 1)
	span.SetStatus(codes.Error, string(code))
	if sender == nil {
		return
	}
	if err := sender.Send(ctx, proto.NewError(env.SessionID, env.RequestID, code, message)); err != nil {
		r.logger.Printf("[router] send %s error to session %s failed: %v", code, env.SessionID, err)
	}
}
