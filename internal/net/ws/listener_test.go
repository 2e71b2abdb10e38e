package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/net/proto"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/net/router"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/session"
)

type recordingDispatcher struct {
	mu       sync.Mutex
	received []proto.Envelope
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, _ string, env proto.Envelope, sender router.Sender) {
	d.mu.Lock()
	d.received = append(d.received, env)
	d.mu.Unlock()
	reply, _ := proto.NewEnvelope(env.Type, env.SessionID, env.RequestID, map[string]bool{"echo": true})
	sender.Send(ctx, reply)
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.received)
}

type harness struct {
	sessions   *session.Manager
	dispatcher *recordingDispatcher
	listener   *Listener
	url        string
}

func newHarness(t *testing.T, heartbeat time.Duration) *harness {
	t.Helper()
	sessions, err := session.NewManager(session.Config{SigningKey: []byte("k")})
	if err != nil {
		t.Fatalf("new session manager: %v", err)
	}
	dispatcher := &recordingDispatcher{}
	listener := NewListener(sessions, dispatcher, Config{HeartbeatTimeout: heartbeat})
	srv := httptest.NewServer(http.HandlerFunc(listener.Handle))
	t.Cleanup(srv.Close)
	return &harness{
		sessions:   sessions,
		dispatcher: dispatcher,
		listener:   listener,
		url:        "ws" + strings.TrimPrefix(srv.URL, "http"),
	}
}

func (h *harness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(h.url, nil)
	if err != nil {
		t.Fatalf("failed to open websocket connection: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, messageType, sessionID string, payload any) {
	t.Helper()
	env, err := proto.NewEnvelope(messageType, sessionID, "req", payload)
	if err != nil {
		t.Fatalf("new envelope: %v", err)
	}
	data, _ := env.Encode()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func read(t *testing.T, conn *websocket.Conn) proto.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	env, err := proto.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env
}

func expectClose(t *testing.T, conn *websocket.Conn, code int) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		t.Fatalf("expected close frame, got %v", err)
	}
	if closeErr.Code != code {
		t.Fatalf("expected close code %d, got %d", code, closeErr.Code)
	}
}

func TestHeartbeatSilenceDisconnectsWithReconnect(t *testing.T) {
	h := newHarness(t, 100*time.Millisecond)
	conn := h.dial(t)

	env := read(t, conn)
	if env.Type != proto.TypeHeartbeat {
		t.Fatalf("expected heartbeat disconnect, got %q", env.Type)
	}
	var payload proto.DisconnectPayload
	if err := env.DecodePayload(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Code != proto.ErrorHeartbeatTimeout || !payload.CanReconnect {
		t.Fatalf("unexpected disconnect payload %+v", payload)
	}
	expectClose(t, conn, websocket.CloseNormalClosure)
}

func TestProtocolErrorsKeepConnectionOpen(t *testing.T) {
	h := newHarness(t, time.Second)
	record, _ := h.sessions.IssueSession(context.Background(), "alice")
	conn := h.dial(t)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{broken")); err != nil {
		t.Fatalf("write: %v", err)
	}
	var errPayload proto.ErrorPayload
	env := read(t, conn)
	env.DecodePayload(&errPayload)
	if env.Type != proto.TypeError || errPayload.Code != proto.ErrorBadFormat {
		t.Fatalf("expected bad_format, got %+v", env)
	}

	send(t, conn, proto.TypeAbilityCast, "", nil)
	env = read(t, conn)
	env.DecodePayload(&errPayload)
	if errPayload.Code != proto.ErrorAuthRequired {
		t.Fatalf("expected auth_required, got %+v", errPayload)
	}

	send(t, conn, proto.TypeAbilityCast, record.SessionID, proto.AbilityCastRequest{AbilityID: "bite"})
	env = read(t, conn)
	if env.Type != proto.TypeAbilityCast || env.SessionID != record.SessionID {
		t.Fatalf("expected routed echo, got %+v", env)
	}
	if h.dispatcher.count() != 1 {
		t.Fatalf("expected one dispatched envelope, got %d", h.dispatcher.count())
	}
}

func TestHeartbeatsAreSwallowedAndBindSession(t *testing.T) {
	h := newHarness(t, time.Second)
	record, _ := h.sessions.IssueSession(context.Background(), "bob")
	conn := h.dial(t)

	send(t, conn, proto.TypeHeartbeat, record.SessionID, proto.HeartbeatPayload{ClientTime: 1})
	send(t, conn, proto.TypeMovementInput, record.SessionID, proto.MovementInput{})
	read(t, conn)

	if h.dispatcher.count() != 1 {
		t.Fatalf("expected heartbeat to be swallowed, got %d dispatches", h.dispatcher.count())
	}
	connID, sender, ok := h.listener.ConnectionFor("bob")
	if !ok || connID == "" || sender == nil {
		t.Fatalf("expected bob's connection to be resolvable")
	}
	current, err := h.sessions.Validate(record.SessionID)
	if err != nil || current.ConnectionID != connID {
		t.Fatalf("expected session bound to %s, got %+v %v", connID, current, err)
	}
	if !current.ExpiresAt.After(record.ExpiresAt) {
		t.Fatalf("expected session expiry to slide")
	}
}

func TestInvalidSessionDisconnectsWithoutReconnect(t *testing.T) {
	h := newHarness(t, time.Second)
	conn := h.dial(t)

	send(t, conn, proto.TypeMovementInput, "nope", proto.MovementInput{})
	env := read(t, conn)
	var payload proto.DisconnectPayload
	env.DecodePayload(&payload)
	if env.Type != proto.TypeHeartbeat || payload.Code != proto.ErrorInvalidSession || payload.CanReconnect {
		t.Fatalf("unexpected disconnect %+v %+v", env, payload)
	}
	expectClose(t, conn, websocket.ClosePolicyViolation)
	if h.dispatcher.count() != 0 {
		t.Fatalf("expected nothing dispatched")
	}
}

func TestRebindingSessionClosesSupersededConnection(t *testing.T) {
	h := newHarness(t, time.Second)
	record, _ := h.sessions.IssueSession(context.Background(), "carol")

	first := h.dial(t)
	send(t, first, proto.TypeMovementInput, record.SessionID, proto.MovementInput{})
	read(t, first)

	second := h.dial(t)
	send(t, second, proto.TypeMovementInput, record.SessionID, proto.MovementInput{})
	read(t, second)

	expectClose(t, first, websocket.ClosePolicyViolation)
	connID, _, ok := h.listener.ConnectionFor("carol")
	if !ok {
		t.Fatalf("expected carol to stay connected")
	}
	current, _ := h.sessions.Validate(record.SessionID)
	if current.ConnectionID != connID {
		t.Fatalf("expected session bound to newest connection")
	}
}
