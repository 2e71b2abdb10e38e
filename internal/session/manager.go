package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/telemetry"
	"github.com/jackandcarter/Adventure-2.0-sub000/logging"
	loggingnetwork "github.com/jackandcarter/Adventure-2.0-sub000/logging/network"
)

const (
	DefaultTTL        = 30 * time.Minute
	DefaultTokenTTL   = 2 * time.Minute
	DefaultIssuer     = "gloom"
	activeMetricKey   = "sessions_active"
	expiredMetricKey  = "sessions_expired_total"
	signingKeyEntropy = 32
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrTokenInvalid    = errors.New("login token invalid")
	ErrTokenUsed       = errors.New("login token already exchanged")
	ErrPlayerRequired  = errors.New("player id is required")
)

// Record is one live session.
type Record struct {
	SessionID    string    `json:"sessionId"`
	PlayerID     string    `json:"playerId"`
	ConnectionID string    `json:"connectionId,omitempty"`
	IssuedAt     time.Time `json:"issuedAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Valid reports whether the record is still live at now.
func (r Record) Valid(now time.Time) bool {
	return now.Before(r.ExpiresAt)
}

// Store persists session records. Implementations must tolerate deleting a
// record that was never saved.
type Store interface {
	SaveSession(ctx context.Context, record Record) error
	DeleteSession(ctx context.Context, sessionID string) error
}

// Config tunes a Manager. Zero values fall back to defaults.
type Config struct {
	TTL        time.Duration
	TokenTTL   time.Duration
	SigningKey []byte
	Issuer     string
	Store      Store
	Clock      logging.Clock
	Logger     telemetry.Logger
	Metrics    telemetry.Metrics
	Publisher  logging.Publisher
}

// Manager maps session id, player id and connection id onto one another.
// Every index is updated under one lock so callers never observe a dangling
// reverse lookup.
type Manager struct {
	cfg Config

	mu           sync.Mutex
	sessions     map[string]*Record
	byPlayer     map[string]string
	byConnection map[string]string
	pending      map[string]time.Time
}

// NewManager builds a Manager. A missing signing key is replaced with random
// bytes, which invalidates outstanding tokens on restart.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if len(cfg.SigningKey) == 0 {
		key := make([]byte, signingKeyEntropy)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
		cfg.SigningKey = key
	}
	if cfg.Clock == nil {
		cfg.Clock = logging.SystemClock{}
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
	return &Manager{
		cfg:          cfg,
		sessions:     make(map[string]*Record),
		byPlayer:     make(map[string]string),
		byConnection: make(map[string]string),
		pending:      make(map[string]time.Time),
	}, nil
}

// TTL is the sliding lifetime applied on every touch.
func (m *Manager) TTL() time.Duration {
	return m.cfg.TTL
}

// IssueSession creates a session for playerID, replacing any session the
// player already holds.
func (m *Manager) IssueSession(ctx context.Context, playerID string) (Record, error) {
	if playerID == "" {
		return Record{}, ErrPlayerRequired
	}
	now := m.cfg.Clock.Now()
	record := &Record{
		SessionID: uuid.NewString(),
		PlayerID:  playerID,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.cfg.TTL),
	}

	m.mu.Lock()
	var replaced string
	if previous, ok := m.byPlayer[playerID]; ok {
		replaced = previous
		m.removeLocked(previous)
	}
	m.sessions[record.SessionID] = record
	m.byPlayer[playerID] = record.SessionID
	active := len(m.sessions)
	issued := *record
	m.mu.Unlock()

	m.cfg.Metrics.Store(activeMetricKey, uint64(active))
	if replaced != "" {
		m.deleteStored(ctx, replaced)
	}
	m.save(ctx, issued)
	loggingnetwork.SessionIssued(ctx, m.cfg.Publisher, logging.Player(playerID), loggingnetwork.SessionPayload{SessionID: issued.SessionID}, nil)
	return issued, nil
}

type loginClaims struct {
	jwt.RegisteredClaims
}

// IssueLoginToken signs a short-lived, single-use token that
// ExchangeLoginToken turns into a session.
func (m *Manager) IssueLoginToken(playerID string) (string, error) {
	if playerID == "" {
		return "", ErrPlayerRequired
	}
	now := m.cfg.Clock.Now()
	expires := now.Add(m.cfg.TokenTTL)
	jti := uuid.NewString()
	claims := loginClaims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    m.cfg.Issuer,
		Subject:   playerID,
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.cfg.SigningKey)
	if err != nil {
		return "", fmt.Errorf("sign login token: %w", err)
	}
	m.mu.Lock()
	m.pending[jti] = expires
	m.mu.Unlock()
	return signed, nil
}

// ExchangeLoginToken verifies a login token and issues a session for its
// subject. Each token exchanges once.
func (m *Manager) ExchangeLoginToken(ctx context.Context, token string) (Record, error) {
	var claims loginClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.cfg.SigningKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.cfg.Clock.Now),
	)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if claims.ID == "" || claims.Subject == "" {
		return Record{}, ErrTokenInvalid
	}

	m.mu.Lock()
	_, ok := m.pending[claims.ID]
	delete(m.pending, claims.ID)
	m.mu.Unlock()
	if !ok {
		return Record{}, ErrTokenUsed
	}
	return m.IssueSession(ctx, claims.Subject)
}

// Validate returns the session if it exists and has not expired.
func (m *Manager) Validate(sessionID string) (Record, error) {
	now := m.cfg.Clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	record, err := m.liveLocked(sessionID, now)
	if err != nil {
		return Record{}, err
	}
	return *record, nil
}

// TouchSession slides the session's expiry forward.
func (m *Manager) TouchSession(sessionID string) (Record, error) {
	now := m.cfg.Clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	record, err := m.liveLocked(sessionID, now)
	if err != nil {
		return Record{}, err
	}
	m.slideLocked(record, now)
	return *record, nil
}

// AttachConnection binds connectionID to the session, slides its expiry and
// persists the updated record. It returns the connection id the session was
// bound to before, if any.
func (m *Manager) AttachConnection(ctx context.Context, sessionID, connectionID string) (Record, string, error) {
	now := m.cfg.Clock.Now()
	m.mu.Lock()
	record, err := m.liveLocked(sessionID, now)
	if err != nil {
		m.mu.Unlock()
		return Record{}, "", err
	}
	previous := record.ConnectionID
	if previous == connectionID {
		previous = ""
	} else if previous != "" {
		delete(m.byConnection, previous)
	}
	if other, ok := m.byConnection[connectionID]; ok && other != sessionID {
		if prior := m.sessions[other]; prior != nil {
			prior.ConnectionID = ""
		}
	}
	record.ConnectionID = connectionID
	m.byConnection[connectionID] = sessionID
	m.slideLocked(record, now)
	attached := *record
	m.mu.Unlock()

	m.save(ctx, attached)
	return attached, previous, nil
}

// DetachConnection unbinds connectionID. Detaching an unknown connection is a
// no-op.
func (m *Manager) DetachConnection(connectionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sessionID, ok := m.byConnection[connectionID]
	if !ok {
		return
	}
	delete(m.byConnection, connectionID)
	if record := m.sessions[sessionID]; record != nil && record.ConnectionID == connectionID {
		record.ConnectionID = ""
	}
}

// SessionByConnection resolves the session bound to connectionID.
func (m *Manager) SessionByConnection(connectionID string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record := m.sessions[m.byConnection[connectionID]]
	if record == nil {
		return Record{}, false
	}
	return *record, true
}

// SessionByPlayer resolves the session held by playerID.
func (m *Manager) SessionByPlayer(playerID string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record := m.sessions[m.byPlayer[playerID]]
	if record == nil {
		return Record{}, false
	}
	return *record, true
}

// RemoveSession deletes the session and both reverse indices. It reports
// whether anything was removed.
func (m *Manager) RemoveSession(ctx context.Context, sessionID string) bool {
	m.mu.Lock()
	removed := m.removeLocked(sessionID)
	active := len(m.sessions)
	m.mu.Unlock()
	if !removed {
		return false
	}
	m.cfg.Metrics.Store(activeMetricKey, uint64(active))
	m.deleteStored(ctx, sessionID)
	return true
}

// ExpireIdleSessions removes every session whose expiry is at or before now
// and returns the removed records ordered by session id.
func (m *Manager) ExpireIdleSessions(ctx context.Context, now time.Time) []Record {
	m.mu.Lock()
	var expired []Record
	for id, record := range m.sessions {
		if !record.Valid(now) {
			expired = append(expired, *record)
			m.removeLocked(id)
		}
	}
	for jti, expires := range m.pending {
		if !now.Before(expires) {
			delete(m.pending, jti)
		}
	}
	active := len(m.sessions)
	m.mu.Unlock()

	m.cfg.Metrics.Store(activeMetricKey, uint64(active))
	if len(expired) == 0 {
		return nil
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].SessionID < expired[j].SessionID })
	m.cfg.Metrics.Add(expiredMetricKey, uint64(len(expired)))
	for _, record := range expired {
		m.deleteStored(ctx, record.SessionID)
		loggingnetwork.SessionExpired(ctx, m.cfg.Publisher, logging.Player(record.PlayerID), loggingnetwork.SessionPayload{
			SessionID:    record.SessionID,
			ConnectionID: record.ConnectionID,
		}, nil)
	}
	return expired
}

// Run sweeps idle sessions every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if expired := m.ExpireIdleSessions(ctx, m.cfg.Clock.Now()); len(expired) > 0 {
				m.cfg.Logger.Printf("[session] expired %d idle sessions", len(expired))
			}
		}
	}
}

// Stats summarises the manager for diagnostics.
type Stats struct {
	Active    int `json:"active"`
	Connected int `json:"connected"`
	Pending   int `json:"pendingTokens"`
}

// Stats reports current counts.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{Active: len(m.sessions), Connected: len(m.byConnection), Pending: len(m.pending)}
}

func (m *Manager) liveLocked(sessionID string, now time.Time) (*Record, error) {
	record, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !record.Valid(now) {
		return nil, ErrSessionExpired
	}
	return record, nil
}

func (m *Manager) slideLocked(record *Record, now time.Time) {
	next := now.Add(m.cfg.TTL)
	if !next.After(record.ExpiresAt) {
		next = record.ExpiresAt.Add(time.Nanosecond)
	}
	record.ExpiresAt = next
}

func (m *Manager) removeLocked(sessionID string) bool {
	record, ok := m.sessions[sessionID]
	if !ok {
		return false
	}
	delete(m.sessions, sessionID)
	if m.byPlayer[record.PlayerID] == sessionID {
		delete(m.byPlayer, record.PlayerID)
	}
	if record.ConnectionID != "" && m.byConnection[record.ConnectionID] == sessionID {
		delete(m.byConnection, record.ConnectionID)
	}
	return true
}

func (m *Manager) save(ctx context.Context, record Record) {
	if m.cfg.Store == nil {
		return
	}
	if err := m.cfg.Store.SaveSession(ctx, record); err != nil {
		m.cfg.Logger.Printf("[session] persist %s failed: %v", record.SessionID, err)
	}
}

func (m *Manager) deleteStored(ctx context.Context, sessionID string) {
	if m.cfg.Store == nil {
		return
	}
	if err := m.cfg.Store.DeleteSession(ctx, sessionID); err != nil {
		m.cfg.Logger.Printf("[session] delete %s failed: %v", sessionID, err)
	}
}
