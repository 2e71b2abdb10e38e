package stats

import (
	"errors"
	"fmt"
	"math"
)

// ErrInsufficientTrance is returned when Spend is called without enough trance.
var ErrInsufficientTrance = errors.New("insufficient trance")

// ResourceState holds an actor's health and mana pools. Pools never go
// negative and never exceed their caps.
type ResourceState struct {
	Health    int `json:"health"`
	MaxHealth int `json:"maxHealth"`
	Mana      int `json:"mana"`
	MaxMana   int `json:"maxMana"`
}

// NewResourceState returns full pools sized from the snapshot.
func NewResourceState(s StatSnapshot) ResourceState {
	maxHealth := int(math.Max(1, s.MaxHealth))
	maxMana := int(math.Max(0, s.MaxMana))
	return ResourceState{Health: maxHealth, MaxHealth: maxHealth, Mana: maxMana, MaxMana: maxMana}
}

// Alive reports whether health is above zero.
func (r *ResourceState) Alive() bool {
	return r.Health > 0
}

// ApplyHealthDelta adds delta (negative for damage) and returns the change
// actually applied after clamping.
func (r *ResourceState) ApplyHealthDelta(delta int) int {
	before := r.Health
	r.Health = clampInt(r.Health+delta, 0, r.MaxHealth)
	return r.Health - before
}

// CanSpendMana reports whether amount mana is available.
func (r *ResourceState) CanSpendMana(amount int) bool {
	return amount <= 0 || r.Mana >= amount
}

// SpendMana removes amount mana. It never drives the pool negative.
func (r *ResourceState) SpendMana(amount int) bool {
	if !r.CanSpendMana(amount) {
		return false
	}
	if amount > 0 {
		r.Mana -= amount
	}
	return true
}

// RestoreMana adds amount mana up to the cap.
func (r *ResourceState) RestoreMana(amount int) {
	r.Mana = clampInt(r.Mana+amount, 0, r.MaxMana)
}

// Resize changes the caps, keeping current pools within them.
func (r *ResourceState) Resize(s StatSnapshot) {
	r.MaxHealth = int(math.Max(1, s.MaxHealth))
	r.MaxMana = int(math.Max(0, s.MaxMana))
	r.Health = clampInt(r.Health, 0, r.MaxHealth)
	r.Mana = clampInt(r.Mana, 0, r.MaxMana)
}

// DefaultTranceMax is the trance cap for actors without an override.
const DefaultTranceMax = 100.0

// TranceMeter is the secondary pool filled by dealing and taking damage.
type TranceMeter struct {
	Current     float64 `json:"current"`
	Max         float64 `json:"max"`
	PassiveGain float64 `json:"passiveGain"`
}

// NewTranceMeter builds an empty meter. Trance efficiency scales the passive
// gain rate.
func NewTranceMeter(s StatSnapshot, max, passivePerSecond float64) TranceMeter {
	if max <= 0 {
		max = DefaultTranceMax
	}
	return TranceMeter{
		Max:         max,
		PassiveGain: math.Max(0, passivePerSecond*(1+s.TranceEfficiency)),
	}
}

// Advance applies passive gain for dt seconds.
func (t *TranceMeter) Advance(dt float64) {
	if dt <= 0 || t.PassiveGain <= 0 {
		return
	}
	t.Gain(t.PassiveGain * dt)
}

// Gain adds amount, capped at Max.
func (t *TranceMeter) Gain(amount float64) {
	if amount <= 0 {
		return
	}
	t.Current = math.Min(t.Max, t.Current+amount)
}

// CanSpend reports whether amount trance is available.
func (t *TranceMeter) CanSpend(amount float64) bool {
	return amount <= 0 || t.Current+1e-9 >= amount
}

// Spend removes amount trance. Callers are expected to check CanSpend first.
func (t *TranceMeter) Spend(amount float64) error {
	if !t.CanSpend(amount) {
		return fmt.Errorf("%w: have %.2f need %.2f", ErrInsufficientTrance, t.Current, amount)
	}
	if amount > 0 {
		t.Current = math.Max(0, t.Current-amount)
	}
	return nil
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
