package sim

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/telemetry"
	loggingsimulation "github.com/jackandcarter/Adventure-2.0-sub000/logging/simulation"
)

const (
	MinTickRate     = 1
	MaxTickRate     = 60
	DefaultTickRate = 20

	tickDurationMetricKey = "sim_tick_duration_microseconds"
	tickOverrunMetricKey  = "sim_tick_overrun_total"
	tickTargetsMetricKey  = "sim_tick_targets"
)

// ErrInvalidTickRate is returned when the configured rate is outside 1..60 Hz.
var ErrInvalidTickRate = errors.New("tick rate must be between 1 and 60 Hz")

// TickTarget is anything the loop advances once per tick.
type TickTarget interface {
	Tick(delta time.Duration)
}

// TickFunc adapts a function into a TickTarget.
type TickFunc func(delta time.Duration)

// Tick implements TickTarget.
func (f TickFunc) Tick(delta time.Duration) {
	if f != nil {
		f(delta)
	}
}

// LoopConfig tunes the fixed-rate scheduler.
type LoopConfig struct {
	TickRate int
	Deps     Deps
}

// LoopStats summarises loop activity for diagnostics.
type LoopStats struct {
	TickRate int    `json:"tickRate"`
	Running  bool   `json:"running"`
	Ticks    uint64 `json:"ticks"`
	Overruns uint64 `json:"overruns"`
	Targets  int    `json:"targets"`
}

// Loop ticks every registered target at a fixed rate on one goroutine. It
// holds no room state; registration is independent of Start and Stop.
type Loop struct {
	deps     Deps
	rate     int
	interval time.Duration

	mu      sync.Mutex
	targets map[uint64]TickTarget
	nextID  uint64
	cancel  context.CancelFunc
	done    chan struct{}

	ticks    atomic.Uint64
	overruns atomic.Uint64
	streak   uint64
}

// NewLoop validates the tick rate and builds a stopped loop.
func NewLoop(cfg LoopConfig) (*Loop, error) {
	if cfg.TickRate < MinTickRate || cfg.TickRate > MaxTickRate {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTickRate, cfg.TickRate)
	}
	return &Loop{
		deps:     cfg.Deps.withDefaults(),
		rate:     cfg.TickRate,
		interval: time.Second / time.Duration(cfg.TickRate),
		targets:  make(map[uint64]TickTarget),
	}, nil
}

// Interval is the target time between ticks.
func (l *Loop) Interval() time.Duration {
	return l.interval
}

// Registration is the handle returned by Register.
type Registration struct {
	loop *Loop
	id   uint64
	once sync.Once
}

// Revoke removes the target from the loop. Revoking twice is a no-op.
func (r *Registration) Revoke() {
	if r == nil || r.loop == nil {
		return
	}
	r.once.Do(func() {
		r.loop.mu.Lock()
		delete(r.loop.targets, r.id)
		r.loop.mu.Unlock()
	})
}

// Register adds a target ticked from the next tick onward.
func (l *Loop) Register(target TickTarget) *Registration {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	l.targets[l.nextID] = target
	return &Registration{loop: l, id: l.nextID}
}

// Start launches the tick goroutine. Starting a running loop is a no-op.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done
	go func() {
		defer close(done)
		l.run(runCtx)
	}()
}

// Stop cancels the tick goroutine and waits for it to exit. Stopping a
// stopped loop is a no-op.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Stats reports counters for diagnostics.
func (l *Loop) Stats() LoopStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LoopStats{
		TickRate: l.rate,
		Running:  l.cancel != nil,
		Ticks:    l.ticks.Load(),
		Overruns: l.overruns.Load(),
		Targets:  len(l.targets),
	}
}

func (l *Loop) run(ctx context.Context) {
	clock := l.deps.Clock
	last := clock.Now().Add(-l.interval)
	for {
		if ctx.Err() != nil {
			return
		}
		start := clock.Now()
		delta := start.Sub(last)
		last = start

		work := l.step(ctx, delta)
		if work >= l.interval {
			continue
		}
		timer := time.NewTimer(l.interval - work)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// step runs one tick and returns how long it took.
func (l *Loop) step(ctx context.Context, delta time.Duration) time.Duration {
	clock := l.deps.Clock
	tick := l.ticks.Add(1)
	targets := l.snapshotTargets()

	spanCtx, span := telemetry.Tracer().Start(ctx, "sim.tick", trace.WithAttributes(
		attribute.Int64("sim.tick", int64(tick)),
		attribute.Int("sim.targets", len(targets)),
	))
	start := clock.Now()
	for _, target := range targets {
		target.Tick(delta)
	}
	work := clock.Now().Sub(start)
	span.End()

	l.deps.Metrics.Store(tickDurationMetricKey, uint64(work.Microseconds()))
	l.deps.Metrics.Store(tickTargetsMetricKey, uint64(len(targets)))
	if work > l.interval {
		l.overruns.Add(1)
		l.streak++
		l.deps.Metrics.Add(tickOverrunMetricKey, 1)
		loggingsimulation.TickBudgetOverrun(spanCtx, l.deps.Publisher, tick, loggingsimulation.TickBudgetOverrunPayload{
			DurationMillis: work.Milliseconds(),
			BudgetMillis:   l.interval.Milliseconds(),
			Ratio:          float64(work) / float64(l.interval),
			Streak:         l.streak,
			Targets:        len(targets),
		}, nil)
		if l.streak&(l.streak-1) == 0 {
			l.deps.Logger.Printf("[sim] tick %d overran budget: %s > %s (streak=%d)", tick, work, l.interval, l.streak)
		}
	} else {
		l.streak = 0
	}
	return work
}

func (l *Loop) snapshotTargets() []TickTarget {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]uint64, 0, len(l.targets))
	for id := range l.targets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]TickTarget, len(ids))
	for i, id := range ids {
		out[i] = l.targets[id]
	}
	return out
}
