package router

import (
	"context"
	"errors"
	"testing"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/net/proto"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/session"
)

type stubSessions map[string]error

func (s stubSessions) Validate(sessionID string) (session.Record, error) {
	err, ok := s[sessionID]
	if !ok {
		return session.Record{}, session.ErrSessionNotFound
	}
	if err != nil {
		return session.Record{}, err
	}
	return session.Record{SessionID: sessionID, PlayerID: "player-" + sessionID}, nil
}

type captureSender struct {
	sent []proto.Envelope
	err  error
}

func (c *captureSender) Send(_ context.Context, env proto.Envelope) error {
	c.sent = append(c.sent, env)
	return c.err
}

func (c *captureSender) lastError(t *testing.T) proto.ErrorPayload {
	t.Helper()
	if len(c.sent) == 0 {
		t.Fatalf("expected an envelope to be sent")
	}
	env := c.sent[len(c.sent)-1]
	if env.Type != proto.TypeError {
		t.Fatalf("expected system/error, got %q", env.Type)
	}
	var payload proto.ErrorPayload
	if err := env.DecodePayload(&payload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	return payload
}

func newEnvelope(t *testing.T, messageType, sessionID string, payload any) proto.Envelope {
	t.Helper()
	env, err := proto.NewEnvelope(messageType, sessionID, "req-1", payload)
	if err != nil {
		t.Fatalf("new envelope: %v", err)
	}
	return env
}

func TestDispatchInvokesTypedHandler(t *testing.T) {
	r := New(stubSessions{"s1": nil}, Config{})
	var got proto.AbilityCastRequest
	var gotReq Request
	Handle(r, proto.TypeAbilityCast, func(_ context.Context, req Request, payload proto.AbilityCastRequest, _ Sender) error {
		got, gotReq = payload, req
		return nil
	})

	sender := &captureSender{}
	r.Dispatch(context.Background(), "conn-1", newEnvelope(t, proto.TypeAbilityCast, "s1", proto.AbilityCastRequest{AbilityID: "bite"}), sender)

	if got.AbilityID != "bite" {
		t.Fatalf("expected decoded payload, got %+v", got)
	}
	if gotReq.Session.PlayerID != "player-s1" || gotReq.ConnectionID != "conn-1" {
		t.Fatalf("unexpected request %+v", gotReq)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected no error envelopes, got %+v", sender.sent)
	}
}

func TestDispatchReportsSessionFailures(t *testing.T) {
	r := New(stubSessions{"old": session.ErrSessionExpired}, Config{})
	Handle(r, proto.TypeAbilityCast, func(context.Context, Request, proto.AbilityCastRequest, Sender) error {
		t.Fatalf("handler must not run without a valid session")
		return nil
	})

	sender := &captureSender{}
	r.Dispatch(context.Background(), "c", newEnvelope(t, proto.TypeAbilityCast, "missing", nil), sender)
	if code := sender.lastError(t).Code; code != proto.ErrorInvalidSession {
		t.Fatalf("expected invalid_session, got %q", code)
	}
	r.Dispatch(context.Background(), "c", newEnvelope(t, proto.TypeAbilityCast, "old", nil), sender)
	if code := sender.lastError(t).Code; code != proto.ErrorSessionExpired {
		t.Fatalf("expected session_expired, got %q", code)
	}
}

func TestDispatchUnknownTypeAndBadPayload(t *testing.T) {
	r := New(stubSessions{"s1": nil}, Config{})
	Handle(r, proto.TypeAbilityCast, func(context.Context, Request, proto.AbilityCastRequest, Sender) error {
		return nil
	})
	sender := &captureSender{}

	r.Dispatch(context.Background(), "c", newEnvelope(t, "chat/say", "s1", nil), sender)
	if code := sender.lastError(t).Code; code != proto.ErrorUnknownType {
		t.Fatalf("expected unknown_type, got %q", code)
	}

	bad := newEnvelope(t, proto.TypeAbilityCast, "s1", nil)
	bad.Payload = []byte(`{"abilityId":42}`)
	r.Dispatch(context.Background(), "c", bad, sender)
	payload := sender.lastError(t)
	if payload.Code != proto.ErrorBadFormat {
		t.Fatalf("expected bad_format, got %q", payload.Code)
	}
	if sender.sent[len(sender.sent)-1].RequestID != "req-1" {
		t.Fatalf("expected error to echo the request id")
	}
}

func TestDispatchMapsHandlerErrors(t *testing.T) {
	r := New(stubSessions{"s1": nil}, Config{})
	Handle(r, proto.TypeDungeonInteract, func(context.Context, Request, proto.DungeonInteractRequest, Sender) error {
		return Errorf(proto.ErrorNotInInstance, "player %s has no instance", "p")
	})
	Handle(r, proto.TypeMovementInput, func(context.Context, Request, proto.MovementInput, Sender) error {
		return errors.New("boom")
	})
	sender := &captureSender{err: errors.New("socket gone")}

	r.Dispatch(context.Background(), "c", newEnvelope(t, proto.TypeDungeonInteract, "s1", proto.DungeonInteractRequest{}), sender)
	if code := sender.lastError(t).Code; code != proto.ErrorNotInInstance {
		t.Fatalf("expected not_in_instance, got %q", code)
	}
	r.Dispatch(context.Background(), "c", newEnvelope(t, proto.TypeMovementInput, "s1", proto.MovementInput{}), sender)
	if code := sender.lastError(t).Code; code != proto.ErrorInternal {
		t.Fatalf("expected internal, got %q", code)
	}
}
