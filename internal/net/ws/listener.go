package ws

import (
	"context"
	"errors"
	"net"
	nethttp "net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/net/proto"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/net/router"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/session"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/telemetry"
	"github.com/jackandcarter/Adventure-2.0-sub000/logging"
	logginglifecycle "github.com/jackandcarter/Adventure-2.0-sub000/logging/lifecycle"
	loggingnetwork "github.com/jackandcarter/Adventure-2.0-sub000/logging/network"
)

const (
	DefaultHeartbeatTimeout = 30 * time.Second
	DefaultWriteTimeout     = 5 * time.Second

	connectionsMetricKey = "ws_connections"
	badFrameMetricKey    = "ws_bad_frames_total"
	timeoutMetricKey     = "ws_heartbeat_timeouts_total"
)

// Sessions is the slice of the session manager the listener needs.
type Sessions interface {
	Validate(sessionID string) (session.Record, error)
	TouchSession(sessionID string) (session.Record, error)
	AttachConnection(ctx context.Context, sessionID, connectionID string) (session.Record, string, error)
	DetachConnection(connectionID string)
	SessionByPlayer(playerID string) (session.Record, bool)
}

// Dispatcher routes a validated envelope.
type Dispatcher interface {
	Dispatch(ctx context.Context, connectionID string, env proto.Envelope, sender router.Sender)
}

// Config tunes the listener.
type Config struct {
	HeartbeatTimeout time.Duration
	WriteTimeout     time.Duration
	Logger           telemetry.Logger
	Metrics          telemetry.Metrics
	Publisher        logging.Publisher
	// OnDisconnect runs after a bound connection closes.
	OnDisconnect func(record session.Record, connectionID string)
}

// Listener upgrades HTTP requests to sockets and runs one read loop per
// connection.
type Listener struct {
	sessions   Sessions
	dispatcher Dispatcher
	cfg        Config
	upgrader   websocket.Upgrader
	registry   *Registry
}

// NewListener builds a listener.
func NewListener(sessions Sessions, dispatcher Dispatcher, cfg Config) *Listener {
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.LoggerFunc(nil)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NopMetrics{}
	}
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	return &Listener{
		sessions:   sessions,
		dispatcher: dispatcher,
		cfg:        cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *nethttp.Request) bool {
				return true
			},
		},
		registry: NewRegistry(),
	}
}

// Registry exposes the live connections.
func (l *Listener) Registry() *Registry {
	return l.registry
}

// ConnectionFor resolves the connection bound to playerID's session.
func (l *Listener) ConnectionFor(playerID string) (string, router.Sender, bool) {
	record, ok := l.sessions.SessionByPlayer(playerID)
	if !ok || record.ConnectionID == "" {
		return "", nil, false
	}
	conn, ok := l.registry.Get(record.ConnectionID)
	if !ok {
		return "", nil, false
	}
	return conn.ID(), conn, true
}

// Handle upgrades the request and serves the connection until it closes.
func (l *Listener) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	raw, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.cfg.Logger.Printf("[ws] upgrade failed from %s: %v", r.RemoteAddr, err)
		return
	}
	conn := newConnection(uuid.NewString(), raw, l.cfg.WriteTimeout)
	l.registry.add(conn)
	l.cfg.Metrics.Store(connectionsMetricKey, uint64(l.registry.Len()))
	l.serve(r.Context(), conn)
}

func (l *Listener) serve(ctx context.Context, conn *Connection) {
	defer l.release(ctx, conn)

	for {
		conn.conn.SetReadDeadline(time.Now().Add(l.cfg.HeartbeatTimeout))
		_, data, err := conn.conn.ReadMessage()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				l.timeout(ctx, conn)
			}
			return
		}

		env, err := proto.Decode(data)
		if err != nil {
			l.cfg.Metrics.Add(badFrameMetricKey, 1)
			loggingnetwork.BadFrame(ctx, l.cfg.Publisher, logging.EntityRef{ID: conn.ID(), Kind: logging.EntityKindUnknown}, loggingnetwork.SessionPayload{
				ConnectionID: conn.ID(),
				Reason:       err.Error(),
			}, nil)
			l.send(ctx, conn, proto.NewError("", "", proto.ErrorBadFormat, err.Error()))
			continue
		}
		if env.SessionID == "" {
			l.send(ctx, conn, proto.NewError("", env.RequestID, proto.ErrorAuthRequired, "session id required"))
			continue
		}

		if _, err := l.sessions.TouchSession(env.SessionID); err != nil {
			code := proto.ErrorInvalidSession
			if errors.Is(err, session.ErrSessionExpired) {
				code = proto.ErrorSessionExpired
			}
			l.send(ctx, conn, proto.NewDisconnect(env.SessionID, code, err.Error(), false))
			conn.Close(websocket.ClosePolicyViolation, string(code))
			return
		}
		if conn.bind(env.SessionID) {
			if !l.attach(ctx, conn, env.SessionID) {
				return
			}
		}

		if env.Type == proto.TypeHeartbeat {
			continue
		}
		l.dispatcher.Dispatch(ctx, conn.ID(), env, conn)
	}
}

// attach binds the connection to the session, closing any connection the
// session was bound to before.
func (l *Listener) attach(ctx context.Context, conn *Connection, sessionID string) bool {
	record, previous, err := l.sessions.AttachConnection(ctx, sessionID, conn.ID())
	if err != nil {
		l.send(ctx, conn, proto.NewDisconnect(sessionID, proto.ErrorInvalidSession, err.Error(), false))
		conn.Close(websocket.ClosePolicyViolation, string(proto.ErrorInvalidSession))
		return false
	}
	if previous != "" {
		if old, ok := l.registry.Get(previous); ok {
			old.Close(websocket.ClosePolicyViolation, "superseded by a newer connection")
		}
		loggingnetwork.ConnectionReplaced(ctx, l.cfg.Publisher, logging.Player(record.PlayerID), loggingnetwork.SessionPayload{
			SessionID:    sessionID,
			ConnectionID: previous,
		}, nil)
	}
	logginglifecycle.PlayerConnected(ctx, l.cfg.Publisher, logging.Player(record.PlayerID), logginglifecycle.PlayerPayload{ConnectionID: conn.ID()}, nil)
	return true
}

func (l *Listener) timeout(ctx context.Context, conn *Connection) {
	l.cfg.Metrics.Add(timeoutMetricKey, 1)
	sessionID := conn.SessionID()
	actor := logging.EntityRef{ID: conn.ID(), Kind: logging.EntityKindUnknown}
	if record, err := l.sessions.Validate(sessionID); err == nil {
		actor = logging.Player(record.PlayerID)
	}
	loggingnetwork.HeartbeatTimeout(ctx, l.cfg.Publisher, actor, loggingnetwork.SessionPayload{
		SessionID:    sessionID,
		ConnectionID: conn.ID(),
	}, nil)
	l.send(ctx, conn, proto.NewDisconnect(sessionID, proto.ErrorHeartbeatTimeout, "no message within heartbeat window", true))
	conn.Close(websocket.CloseNormalClosure, string(proto.ErrorHeartbeatTimeout))
}

func (l *Listener) release(ctx context.Context, conn *Connection) {
	conn.Close(websocket.CloseNormalClosure, "")
	l.registry.remove(conn)
	l.cfg.Metrics.Store(connectionsMetricKey, uint64(l.registry.Len()))

	sessionID := conn.SessionID()
	if sessionID == "" {
		return
	}
	record, err := l.sessions.Validate(sessionID)
	superseded := err == nil && record.ConnectionID != conn.ID()
	if !superseded {
		l.sessions.DetachConnection(conn.ID())
	}
	if err != nil || superseded {
		return
	}
	logginglifecycle.PlayerDisconnected(ctx, l.cfg.Publisher, logging.Player(record.PlayerID), logginglifecycle.PlayerPayload{ConnectionID: conn.ID()}, nil)
	if l.cfg.OnDisconnect != nil {
		l.cfg.OnDisconnect(record, conn.ID())
	}
}

func (l *Listener) send(ctx context.Context, conn *Connection, env proto.Envelope) {
	if err := conn.Send(ctx, env); err != nil {
		l.cfg.Logger.Printf("[ws] send %s to %s failed: %v", env.Type, conn.ID(), err)
	}
}
