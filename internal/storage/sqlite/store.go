// Package sqlite persists runs, run events, parties and sessions in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/instance"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/session"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/storage/sqlite/migrations"
)

// Store implements instance.RunRepository, instance.PartyRepository and
// session.Store on one SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun inserts a run.
func (s *Store) BeginRun(ctx context.Context, run instance.RunRecord) error {
	if run.RunID == "" {
		return errors.New("run id is required")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (run_id, instance_id, party_id, dungeon_id, seed, started_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID, run.InstanceID, run.PartyID, run.DungeonID, run.Seed, run.StartedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("begin run %s: %w", run.RunID, err)
	}
	return nil
}

// CompleteRun stamps a run's outcome once; later calls leave it unchanged.
func (s *Store) CompleteRun(ctx context.Context, runID string, outcome instance.Outcome, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE runs SET completed_at = ?, outcome = ?
WHERE run_id = ? AND completed_at IS NULL`,
		at.UTC().UnixMilli(), string(outcome), runID,
	)
	if err != nil {
		return fmt.Errorf("complete run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	exists, err := s.runExists(ctx, runID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", instance.ErrRunNotFound, runID)
	}
	return nil
}

// AppendEvent inserts one run event.
func (s *Store) AppendEvent(ctx context.Context, event instance.RunEvent) error {
	exists, err := s.runExists(ctx, event.RunID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", instance.ErrRunNotFound, event.RunID)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO run_events (id, run_id, event_type, occurred_at, payload)
VALUES (?, ?, ?, ?, ?)`,
		event.ID, event.RunID, event.Type, event.OccurredAt.UTC().UnixMilli(), []byte(event.Payload),
	)
	if err != nil {
		return fmt.Errorf("append %s to run %s: %w", event.Type, event.RunID, err)
	}
	return nil
}

// GetEvents lists a run's events ordered by id.
func (s *Store) GetEvents(ctx context.Context, runID string) ([]instance.RunEvent, error) {
	exists, err := s.runExists(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", instance.ErrRunNotFound, runID)
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, run_id, event_type, occurred_at, payload
FROM run_events
WHERE run_id = ?
ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list events for %s: %w", runID, err)
	}
	defer rows.Close()

	var events []instance.RunEvent
	for rows.Next() {
		var (
			event      instance.RunEvent
			occurredAt int64
			payload    []byte
		)
		if err := rows.Scan(&event.ID, &event.RunID, &event.Type, &occurredAt, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.OccurredAt = time.UnixMilli(occurredAt).UTC()
		event.Payload = payload
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// GetRun loads a run record.
func (s *Store) GetRun(ctx context.Context, runID string) (instance.RunRecord, error) {
	var (
		run         instance.RunRecord
		startedAt   int64
		completedAt sql.NullInt64
		outcome     string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT run_id, instance_id, party_id, dungeon_id, seed, started_at, completed_at, outcome
FROM runs WHERE run_id = ?`, runID).Scan(
		&run.RunID, &run.InstanceID, &run.PartyID, &run.DungeonID, &run.Seed, &startedAt, &completedAt, &outcome,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return instance.RunRecord{}, fmt.Errorf("%w: %s", instance.ErrRunNotFound, runID)
	}
	if err != nil {
		return instance.RunRecord{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	run.StartedAt = time.UnixMilli(startedAt).UTC()
	if completedAt.Valid {
		at := time.UnixMilli(completedAt.Int64).UTC()
		run.CompletedAt = &at
	}
	run.Outcome = instance.Outcome(outcome)
	return run, nil
}

func (s *Store) runExists(ctx context.Context, runID string) (bool, error) {
	var found int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM runs WHERE run_id = ?", runID).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("look up run %s: %w", runID, err)
	}
	return true, nil
}

// SaveParty inserts or replaces a party and its membership.
func (s *Store) SaveParty(ctx context.Context, party instance.Party) error {
	if party.ID == "" {
		return errors.New("party id is required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save party: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO parties (party_id, leader_id) VALUES (?, ?)
ON CONFLICT (party_id) DO UPDATE SET leader_id = excluded.leader_id`,
		party.ID, party.LeaderID); err != nil {
		return fmt.Errorf("save party %s: %w", party.ID, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM party_members WHERE party_id = ?", party.ID); err != nil {
		return fmt.Errorf("clear members of %s: %w", party.ID, err)
	}
	for i, member := range party.Members {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO party_members (party_id, player_id, position) VALUES (?, ?, ?)
ON CONFLICT (player_id) DO UPDATE SET party_id = excluded.party_id, position = excluded.position`,
			party.ID, member, i); err != nil {
			return fmt.Errorf("add %s to %s: %w", member, party.ID, err)
		}
	}
	return tx.Commit()
}

// GetParty implements instance.PartyRepository.
func (s *Store) GetParty(ctx context.Context, partyID string) (instance.Party, error) {
	party := instance.Party{ID: partyID}
	err := s.db.QueryRowContext(ctx, "SELECT leader_id FROM parties WHERE party_id = ?", partyID).Scan(&party.LeaderID)
	if errors.Is(err, sql.ErrNoRows) {
		return instance.Party{}, fmt.Errorf("%w: %s", instance.ErrPartyNotFound, partyID)
	}
	if err != nil {
		return instance.Party{}, fmt.Errorf("get party %s: %w", partyID, err)
	}
	rows, err := s.db.QueryContext(ctx, "SELECT player_id FROM party_members WHERE party_id = ? ORDER BY position", partyID)
	if err != nil {
		return instance.Party{}, fmt.Errorf("list members of %s: %w", partyID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var member string
		if err := rows.Scan(&member); err != nil {
			return instance.Party{}, fmt.Errorf("scan member: %w", err)
		}
		party.Members = append(party.Members, member)
	}
	return party, rows.Err()
}

// PartyForPlayer returns the player's party, or a solo party when the player
// has none.
func (s *Store) PartyForPlayer(ctx context.Context, playerID string) (instance.Party, error) {
	var partyID string
	err := s.db.QueryRowContext(ctx, "SELECT party_id FROM party_members WHERE player_id = ?", playerID).Scan(&partyID)
	if errors.Is(err, sql.ErrNoRows) {
		return instance.Party{ID: "solo-" + playerID, LeaderID: playerID, Members: []string{playerID}}, nil
	}
	if err != nil {
		return instance.Party{}, fmt.Errorf("party for %s: %w", playerID, err)
	}
	return s.GetParty(ctx, partyID)
}

// SaveSession implements session.Store.
func (s *Store) SaveSession(ctx context.Context, record session.Record) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO sessions (session_id, player_id, issued_at, expires_at) VALUES (?, ?, ?, ?)
ON CONFLICT (session_id) DO UPDATE SET expires_at = excluded.expires_at`,
		record.SessionID, record.PlayerID, record.IssuedAt.UTC().UnixMilli(), record.ExpiresAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", record.SessionID, err)
	}
	return nil
}

// DeleteSession implements session.Store.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

// PurgeExpiredSessions deletes persisted sessions that expired before now and
// reports how many were removed.
func (s *Store) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}

// CountSessions returns the number of persisted sessions.
func (s *Store) CountSessions(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

var (
	_ instance.RunRepository   = (*Store)(nil)
	_ instance.PartyRepository = (*Store)(nil)
	_ session.Store            = (*Store)(nil)
)
