package actor

import (
	"sync"
	"testing"
	"time"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/world"
	"github.com/jackandcarter/Adventure-2.0-sub000/stats"
)

func TestCommandQueueWraparound(t *testing.T) {
	queue := NewCommandQueue(3, nil)
	cmds := []Command{
		{Kind: CommandMovement, RequestID: "a"},
		{Kind: CommandAbilityCast, RequestID: "b"},
		{Kind: CommandInteract, RequestID: "c"},
	}
	for _, cmd := range cmds {
		if !queue.Push(cmd) {
			t.Fatalf("expected push to succeed for %+v", cmd)
		}
	}
	if queue.Push(Command{RequestID: "overflow"}) {
		t.Fatalf("expected push to fail when queue full")
	}
	drained := queue.Drain()
	if len(drained) != len(cmds) {
		t.Fatalf("expected %d commands, got %d", len(cmds), len(drained))
	}
	for i, cmd := range drained {
		if cmd.RequestID != cmds[i].RequestID {
			t.Fatalf("expected drain order %v, got %v", cmds[i].RequestID, cmd.RequestID)
		}
	}
	for _, cmd := range []Command{{RequestID: "d"}, {RequestID: "e"}} {
		if !queue.Push(cmd) {
			t.Fatalf("expected push to succeed after drain for %+v", cmd)
		}
	}
	wrapped := queue.Drain()
	if len(wrapped) != 2 || wrapped[0].RequestID != "d" || wrapped[1].RequestID != "e" {
		t.Fatalf("unexpected order after wraparound: %+v", wrapped)
	}
}

type countingMetrics struct {
	mu     sync.Mutex
	added  map[string]uint64
	stored map[string]uint64
}

func (m *countingMetrics) Add(key string, delta uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.added == nil {
		m.added = make(map[string]uint64)
	}
	m.added[key] += delta
}

func (m *countingMetrics) Store(key string, value uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stored == nil {
		m.stored = make(map[string]uint64)
	}
	m.stored[key] = value
}

func TestCommandQueueReportsOverflow(t *testing.T) {
	metrics := &countingMetrics{}
	queue := NewCommandQueue(1, metrics)
	queue.Push(Command{RequestID: "one"})
	queue.Push(Command{RequestID: "two"})
	if metrics.added[commandQueueOverflowMetricKey] != 1 {
		t.Fatalf("expected one overflow, got %d", metrics.added[commandQueueOverflowMetricKey])
	}
	if metrics.stored[commandQueueOccupancyMetricKey] != 1 {
		t.Fatalf("expected occupancy 1, got %d", metrics.stored[commandQueueOccupancyMetricKey])
	}
}

func TestCommandQueueConcurrentProducers(t *testing.T) {
	queue := NewCommandQueue(1000, nil)
	var wg sync.WaitGroup
	for p := 0; p < 10; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				queue.Push(Command{Kind: CommandMovement})
			}
		}()
	}
	wg.Wait()
	if got := len(queue.Drain()); got != 500 {
		t.Fatalf("expected 500 commands, got %d", got)
	}
}

func TestActorDefaults(t *testing.T) {
	base := stats.ValueSet{}
	base[stats.StatMaxHealth] = 80
	base[stats.StatMaxMana] = 30
	a := New(Config{ID: "p1", Kind: KindPlayer, Position: world.Vec2{X: 1, Y: 1}, Speed: 4, Stats: stats.NewComponent(1, base)})
	if a.Resources.Health != 80 || a.Resources.Mana != 30 {
		t.Fatalf("expected full pools, got %+v", a.Resources)
	}
	if a.Commands.Capacity() != DefaultQueueCapacity {
		t.Fatalf("expected default queue capacity")
	}
	now := time.Unix(100, 0)
	a.Cooldowns["strike"] = now.Add(time.Second)
	if !a.OnCooldown("strike", now) || a.OnCooldown("strike", now.Add(time.Second)) {
		t.Fatalf("unexpected cooldown evaluation")
	}
	if a.AdjustHealth(-200) != -80 || a.Alive() {
		t.Fatalf("expected actor to die at zero health")
	}
}

func TestCastInputConversion(t *testing.T) {
	pos := world.Vec2{X: 2, Y: 3}
	issued := time.Unix(5, 0)
	cmd := NewAbilityCastInput("r1", issued, AbilityCastInput{AbilityID: "bolt", TargetID: "e1", TargetPosition: &pos})
	cast := cmd.CastInput.ToCast(cmd.IssuedAt)
	if cast.AbilityID != "bolt" || cast.TargetID != "e1" || !cast.IssuedAt.Equal(issued) || *cast.TargetPosition != pos {
		t.Fatalf("unexpected conversion: %+v", cast)
	}
	if cmd.Kind.String() != "ability_cast_input" {
		t.Fatalf("unexpected kind name %s", cmd.Kind)
	}
}
