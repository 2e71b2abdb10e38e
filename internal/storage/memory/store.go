// Package memory keeps runs, parties and sessions in process memory. It backs
// tests and the development server.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/instance"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/session"
)

// Store implements instance.RunRepository, instance.PartyRepository and
// session.Store.
type Store struct {
	mu       sync.RWMutex
	runs     map[string]instance.RunRecord
	events   map[string][]instance.RunEvent
	parties  map[string]instance.Party
	byPlayer map[string]string
	sessions map[string]session.Record
}

// New returns an empty store.
func New() *Store {
	return &Store{
		runs:     make(map[string]instance.RunRecord),
		events:   make(map[string][]instance.RunEvent),
		parties:  make(map[string]instance.Party),
		byPlayer: make(map[string]string),
		sessions: make(map[string]session.Record),
	}
}

// BeginRun records a new run.
func (s *Store) BeginRun(ctx context.Context, run instance.RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if run.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.RunID]; exists {
		return fmt.Errorf("run %s already exists", run.RunID)
	}
	s.runs[run.RunID] = run
	return nil
}

// CompleteRun stamps the run's outcome. Completing a finished run is a no-op.
func (s *Store) CompleteRun(ctx context.Context, runID string, outcome instance.Outcome, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", instance.ErrRunNotFound, runID)
	}
	if run.CompletedAt != nil {
		return nil
	}
	run.CompletedAt = &at
	run.Outcome = outcome
	s.runs[runID] = run
	return nil
}

// AppendEvent adds an event to its run's log.
func (s *Store) AppendEvent(ctx context.Context, event instance.RunEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[event.RunID]; !ok {
		return fmt.Errorf("%w: %s", instance.ErrRunNotFound, event.RunID)
	}
	s.events[event.RunID] = append(s.events[event.RunID], event)
	return nil
}

// GetEvents returns a run's events ordered by id.
func (s *Store) GetEvents(ctx context.Context, runID string) ([]instance.RunEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.runs[runID]; !ok {
		return nil, fmt.Errorf("%w: %s", instance.ErrRunNotFound, runID)
	}
	out := append([]instance.RunEvent(nil), s.events[runID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Run returns a stored run.
func (s *Store) Run(runID string) (instance.RunRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	return run, ok
}

// SaveParty registers or replaces a party. A player belongs to at most one
// party; saving moves members out of their previous party index.
func (s *Store) SaveParty(ctx context.Context, party instance.Party) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if party.ID == "" {
		return fmt.Errorf("party id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if previous, ok := s.parties[party.ID]; ok {
		for _, member := range previous.Members {
			if s.byPlayer[member] == party.ID {
				delete(s.byPlayer, member)
			}
		}
	}
	for _, member := range party.Members {
		if other, ok := s.byPlayer[member]; ok && other != party.ID {
			s.parties[other] = withoutMember(s.parties[other], member)
		}
	}
	party.Members = append([]string(nil), party.Members...)
	s.parties[party.ID] = party
	for _, member := range party.Members {
		s.byPlayer[member] = party.ID
	}
	return nil
}

// GetParty implements instance.PartyRepository.
func (s *Store) GetParty(ctx context.Context, partyID string) (instance.Party, error) {
	if err := ctx.Err(); err != nil {
		return instance.Party{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	party, ok := s.parties[partyID]
	if !ok {
		return instance.Party{}, fmt.Errorf("%w: %s", instance.ErrPartyNotFound, partyID)
	}
	return party, nil
}

// PartyForPlayer returns the player's party, or a solo party named after the
// player when they have none.
func (s *Store) PartyForPlayer(ctx context.Context, playerID string) (instance.Party, error) {
	if err := ctx.Err(); err != nil {
		return instance.Party{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if partyID, ok := s.byPlayer[playerID]; ok {
		return s.parties[partyID], nil
	}
	return instance.Party{ID: "solo-" + playerID, LeaderID: playerID, Members: []string{playerID}}, nil
}

// SaveSession implements session.Store.
func (s *Store) SaveSession(ctx context.Context, record session.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[record.SessionID] = record
	return nil
}

// DeleteSession implements session.Store.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Sessions lists stored sessions ordered by id.
func (s *Store) Sessions() []session.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]session.Record, 0, len(s.sessions))
	for _, record := range s.sessions {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}

func withoutMember(party instance.Party, playerID string) instance.Party {
	members := make([]string, 0, len(party.Members))
	for _, member := range party.Members {
		if member != playerID {
			members = append(members, member)
		}
	}
	party.Members = members
	return party
}

var (
	_ instance.RunRepository   = (*Store)(nil)
	_ instance.PartyRepository = (*Store)(nil)
	_ session.Store            = (*Store)(nil)
)
