package instance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/abilities"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/actor"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/combat"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/dungeon"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/sim"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/status"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/telemetry"
	"github.com/jackandcarter/Adventure-2.0-sub000/logging"
	loggingdungeon "github.com/jackandcarter/Adventure-2.0-sub000/logging/dungeon"
	logginglifecycle "github.com/jackandcarter/Adventure-2.0-sub000/logging/lifecycle"
	"github.com/jackandcarter/Adventure-2.0-sub000/stats"
)

const activeInstancesMetricKey = "instances_active"

// Deps carries shared infrastructure for the manager and its simulations.
type Deps struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Clock     logging.Clock
	Publisher logging.Publisher
	// Entropy feeds run event ids; it must be safe for concurrent use.
	Entropy io.Reader
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = telemetry.WrapLogger(log.Default())
	}
	if d.Metrics == nil {
		d.Metrics = telemetry.NopMetrics{}
	}
	if d.Clock == nil {
		d.Clock = logging.SystemClock{}
	}
	if d.Publisher == nil {
		d.Publisher = logging.NopPublisher()
	}
	if d.Entropy == nil {
		d.Entropy = ulid.DefaultEntropy()
	}
	return d
}

func (d Deps) sim() sim.Deps {
	return sim.Deps{Logger: d.Logger, Metrics: d.Metrics, Clock: d.Clock, Publisher: d.Publisher}
}

// PlayerTemplate describes how party members spawn.
type PlayerTemplate struct {
	StatBlock     string  `yaml:"statBlock" json:"statBlock"`
	Level         int     `yaml:"level" json:"level"`
	Speed         float64 `yaml:"speed" json:"speed"`
	TranceMax     float64 `yaml:"tranceMax" json:"tranceMax"`
	TrancePassive float64 `yaml:"trancePassive" json:"trancePassive"`
}

// Catalogs are the parsed content an instance is built from.
type Catalogs struct {
	Abilities  *abilities.Catalog
	Effects    *status.Catalog
	StatBlocks *stats.Resolver
	Player     PlayerTemplate
}

// Config wires a Manager.
type Config struct {
	Loop             *sim.Loop
	Generator        Generator
	Runs             RunRepository
	Parties          PartyRepository
	Connections      Connections
	Catalogs         Catalogs
	GraceWindow      time.Duration
	SprintMultiplier float64
	QueueCapacity    int
	// Roller overrides the crit and evade source; nil means random.
	Roller combat.Roller
	Deps   Deps
}

// Manager owns every running dungeon instance.
type Manager struct {
	cfg  Config
	deps Deps

	mu        sync.Mutex
	instances map[string]*Simulation
	byPlayer  map[string]string
}

// NewManager validates cfg and builds an empty manager.
func NewManager(cfg Config) (*Manager, error) {
	switch {
	case cfg.Loop == nil:
		return nil, errors.New("simulation loop is required")
	case cfg.Generator == nil:
		return nil, errors.New("dungeon generator is required")
	case cfg.Runs == nil:
		return nil, errors.New("run repository is required")
	case cfg.Parties == nil:
		return nil, errors.New("party repository is required")
	case cfg.Catalogs.Abilities == nil || cfg.Catalogs.Effects == nil || cfg.Catalogs.StatBlocks == nil:
		return nil, errors.New("ability, effect and stat block catalogs are required")
	}
	return &Manager{
		cfg:       cfg,
		deps:      cfg.Deps.withDefaults(),
		instances: make(map[string]*Simulation),
		byPlayer:  make(map[string]string),
	}, nil
}

// SetConnections installs the connection resolver used by instances started
// afterwards. The listener and the manager depend on each other, so one of
// them is wired late.
func (m *Manager) SetConnections(conns Connections) {
	m.mu.Lock()
	m.cfg.Connections = conns
	m.mu.Unlock()
}

// StartForPlayer returns the instance playerID is in, starting one for the
// player's party if there is none.
func (m *Manager) StartForPlayer(ctx context.Context, playerID, partyID string, seed int64) (*Simulation, error) {
	if s, ok := m.InstanceForPlayer(playerID); ok {
		return s, nil
	}
	var (
		party Party
		err   error
	)
	if partyID == "" {
		party, err = m.cfg.Parties.PartyForPlayer(ctx, playerID)
	} else {
		party, err = m.cfg.Parties.GetParty(ctx, partyID)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve party for %s: %w", playerID, err)
	}
	if !contains(party.Members, playerID) {
		return nil, fmt.Errorf("%w: %s is not in party %s", ErrPartyNotFound, playerID, party.ID)
	}
	return m.start(ctx, party, seed)
}

// StartInstance starts a run for partyID.
func (m *Manager) StartInstance(ctx context.Context, partyID string, seed int64) (*Simulation, error) {
	party, err := m.cfg.Parties.GetParty(ctx, partyID)
	if err != nil {
		return nil, fmt.Errorf("get party %s: %w", partyID, err)
	}
	return m.start(ctx, party, seed)
}

func (m *Manager) start(ctx context.Context, party Party, seed int64) (*Simulation, error) {
	if len(party.Members) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyParty, party.ID)
	}
	m.mu.Lock()
	for _, member := range party.Members {
		if _, busy := m.byPlayer[member]; busy {
			m.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrPlayerInInstance, member)
		}
	}
	conns := m.cfg.Connections
	m.mu.Unlock()

	generated, layout, err := m.cfg.Generator.Generate(ctx, GenerateRequest{PartyID: party.ID, Seed: seed})
	if err != nil {
		return nil, fmt.Errorf("generate dungeon: %w", err)
	}

	instanceID := uuid.NewString()
	instanceRef := logging.Instance(instanceID)
	issues := dungeon.ValidateStaticLayout(generated)
	for _, issue := range issues {
		loggingdungeon.LayoutWarning(ctx, m.deps.Publisher, instanceRef, loggingdungeon.LayoutWarningPayload{
			Code:     string(issue.Code),
			ObjectID: issue.ObjectID,
			Message:  issue.Message,
		}, nil)
	}

	validator := dungeon.NewStateValidator(generated)
	runID := uuid.NewString()
	roomDeps := m.deps.sim()
	roomDeps.Publisher = logging.WithFields(roomDeps.Publisher, map[string]any{"instance": instanceID, "run": runID})
	room, err := sim.NewRoom(sim.RoomConfig{
		ID:               instanceID,
		Layout:           layout,
		Executor:         combat.NewExecutor(m.cfg.Catalogs.Abilities, m.cfg.Catalogs.Effects, layout, m.cfg.Roller),
		Dungeon:          validator,
		GraceWindow:      m.cfg.GraceWindow,
		SprintMultiplier: m.cfg.SprintMultiplier,
		Deps:             roomDeps,
	})
	if err != nil {
		return nil, fmt.Errorf("build room: %w", err)
	}
	if err := m.populate(room, generated, party.Members); err != nil {
		return nil, err
	}
	clearEmptyRooms(validator, generated, party.Members)

	s := &Simulation{
		id:      instanceID,
		players: append([]string(nil), party.Members...),
		run: RunRecord{
			RunID:      runID,
			InstanceID: instanceID,
			PartyID:    party.ID,
			DungeonID:  generated.ID,
			Seed:       generated.Seed,
			StartedAt:  m.deps.Clock.Now(),
		},
		generated:  generated,
		layout:     layout,
		validator:  validator,
		room:       room,
		conns:      conns,
		runs:       m.cfg.Runs,
		deps:       m.deps,
		layoutSent: make(map[string]string),
	}
	if err := m.cfg.Runs.BeginRun(ctx, s.run); err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	s.appendEvent(ctx, EventRunStarted, map[string]any{"players": s.players, "seed": s.run.Seed})
	for _, issue := range issues {
		s.appendEvent(ctx, EventLayoutWarning, issue)
	}

	// The simulation must be fully running before it becomes visible to
	// StopInstance.
	s.start(context.WithoutCancel(ctx))
	s.reg = m.cfg.Loop.Register(room)

	m.mu.Lock()
	for _, member := range party.Members {
		if _, busy := m.byPlayer[member]; busy {
			m.mu.Unlock()
			s.stop()
			m.cfg.Runs.CompleteRun(ctx, s.run.RunID, OutcomeAbandoned, m.deps.Clock.Now())
			return nil, fmt.Errorf("%w: %s", ErrPlayerInInstance, member)
		}
	}
	m.instances[instanceID] = s
	for _, member := range party.Members {
		m.byPlayer[member] = instanceID
	}
	active := len(m.instances)
	m.mu.Unlock()

	m.deps.Metrics.Store(activeInstancesMetricKey, uint64(active))
	logginglifecycle.InstanceStarted(ctx, m.deps.Publisher, instanceRef, logginglifecycle.InstancePayload{
		RunID:   s.run.RunID,
		PartyID: party.ID,
		Players: s.Players(),
	}, nil)
	m.deps.Logger.Printf("[instance] started %s for party %s (run %s)", instanceID, party.ID, s.run.RunID)
	return s, nil
}

func (m *Manager) populate(room *sim.Room, generated *dungeon.GeneratedDungeon, members []string) error {
	tmpl := m.cfg.Catalogs.Player
	for _, playerID := range members {
		comp, err := m.cfg.Catalogs.StatBlocks.Component(tmpl.StatBlock, max(tmpl.Level, 1), nil)
		if err != nil {
			return fmt.Errorf("player %s stats: %w", playerID, err)
		}
		a := actor.New(actor.Config{
			ID:            playerID,
			Kind:          actor.KindPlayer,
			Position:      generated.PlayerSpawn,
			Speed:         tmpl.Speed,
			Stats:         comp,
			TranceMax:     tmpl.TranceMax,
			TrancePassive: tmpl.TrancePassive,
			QueueCapacity: m.cfg.QueueCapacity,
			QueueMetrics:  m.deps.Metrics,
		})
		if err := room.AddActor(a); err != nil {
			return err
		}
	}
	for _, dr := range generated.Rooms {
		for _, spawn := range dr.Enemies {
			comp, err := m.cfg.Catalogs.StatBlocks.Component(spawn.StatBlock, max(spawn.Level, 1), nil)
			if err != nil {
				return fmt.Errorf("enemy %s stats: %w", spawn.ID, err)
			}
			a := actor.New(actor.Config{
				ID:            spawn.ID,
				Kind:          actor.KindEnemy,
				DungeonRoomID: dr.ID,
				Position:      spawn.Position,
				Speed:         spawn.Speed,
				Stats:         comp,
				QueueCapacity: m.cfg.QueueCapacity,
				AutoAbilityID: spawn.AutoAbility,
				AggroRange:    spawn.AggroRange,
				QueueMetrics:  m.deps.Metrics,
			})
			if err := room.AddActor(a); err != nil {
				return err
			}
		}
	}
	return nil
}

// clearEmptyRooms marks gated rooms with no enemy spawns as cleared, since
// nothing in them could ever be defeated, and hands the party the keys of
// rooms that start cleared.
func clearEmptyRooms(validator *dungeon.StateValidator, generated *dungeon.GeneratedDungeon, members []string) {
	for _, dr := range generated.Rooms {
		gated := dr.Archetype.RequiresClear()
		if (gated && len(dr.Enemies) == 0) || (!gated && len(dr.ProvidesKeys) > 0) {
			validator.MarkRoomCleared(dr.ID, members...)
		}
	}
}

// InstanceForPlayer returns the instance playerID is in.
func (m *Manager) InstanceForPlayer(playerID string) (*Simulation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.instances[m.byPlayer[playerID]]
	return s, ok
}

// Instance returns the instance with the given id.
func (m *Manager) Instance(id string) (*Simulation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.instances[id]
	return s, ok
}

// StopInstance stops an instance and records the run's end. Completed runs
// keep their completed outcome. Stopping an unknown instance returns
// ErrInstanceNotFound.
func (m *Manager) StopInstance(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.instances[id]
	if ok {
		delete(m.instances, id)
		for _, member := range s.players {
			if m.byPlayer[member] == id {
				delete(m.byPlayer, member)
			}
		}
	}
	active := len(m.instances)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
	}
	if !s.stop() {
		return nil
	}
	m.deps.Metrics.Store(activeInstancesMetricKey, uint64(active))

	outcome := OutcomeAbandoned
	if s.Completed() {
		outcome = OutcomeCompleted
	} else if err := m.cfg.Runs.CompleteRun(ctx, s.run.RunID, outcome, m.deps.Clock.Now()); err != nil {
		m.deps.Logger.Printf("[instance] record end of run %s failed: %v", s.run.RunID, err)
	}
	logginglifecycle.InstanceStopped(ctx, m.deps.Publisher, logging.Instance(id), logginglifecycle.InstancePayload{
		RunID:   s.run.RunID,
		PartyID: s.run.PartyID,
		Players: s.Players(),
		Outcome: string(outcome),
	}, nil)
	return nil
}

// Shutdown stops every instance.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.instances))
	for id := range m.instances {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	sort.Strings(ids)
	for _, id := range ids {
		m.StopInstance(ctx, id)
	}
}

// Summaries describes every running instance, ordered by start time.
func (m *Manager) Summaries() []Summary {
	m.mu.Lock()
	list := make([]*Simulation, 0, len(m.instances))
	for _, s := range m.instances {
		list = append(list, s)
	}
	m.mu.Unlock()
	out := make([]Summary, 0, len(list))
	for _, s := range list {
		out = append(out, s.summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].InstanceID < out[j].InstanceID
	})
	return out
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
