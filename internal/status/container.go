package status

import (
	"sort"
	"time"
)

// Instance is a live effect on one actor.
type Instance struct {
	Definition *Definition
	SourceID   string
	Remaining  time.Duration
	UntilTick  time.Duration
	Stacks     int
}

// EventKind classifies a container event.
type EventKind string

const (
	EventApplied   EventKind = "applied"
	EventRefreshed EventKind = "refreshed"
	EventTicked    EventKind = "ticked"
	EventExpired   EventKind = "expired"
	EventDispelled EventKind = "dispelled"
	EventRemoved   EventKind = "removed"
)

// Event records one hook invocation for the room to broadcast.
type Event struct {
	Kind     EventKind
	EffectID string
	Effect   EffectKind
	SourceID string
	TargetID string
	Stacks   int
	Amount   int
}

// Container tracks every active effect on one actor. It is not safe for
// concurrent use; the owning room serialises access through its tick.
type Container struct {
	target Target
	hooks  map[EffectKind]Hooks
	active map[string]*Instance
	events []Event
}

// NewContainer returns an empty container bound to target.
func NewContainer(target Target) *Container {
	return &Container{
		target: target,
		hooks:  defaultHooks,
		active: make(map[string]*Instance),
	}
}

// Apply adds def to the actor or re-applies it according to its stack behavior.
func (c *Container) Apply(def *Definition, sourceID string) *Instance {
	if c == nil || def == nil {
		return nil
	}
	if inst, ok := c.active[def.ID]; ok {
		switch def.StackBehavior {
		case StackExtend:
			inst.Remaining += def.Duration
		case StackStack:
			if inst.Stacks < def.maxStacks() {
				inst.Stacks++
				if sh, ok := c.hooksFor(def).(StackHooks); ok {
					sh.OnStacksChanged(c.target, inst)
				}
			}
			inst.Remaining = def.Duration
		default:
			inst.Remaining = def.Duration
		}
		inst.SourceID = sourceID
		c.record(EventRefreshed, inst, 0)
		return inst
	}
	inst := &Instance{
		Definition: def,
		SourceID:   sourceID,
		Remaining:  def.Duration,
		UntilTick:  def.TickInterval,
		Stacks:     1,
	}
	c.active[def.ID] = inst
	amount := c.hooksFor(def).OnApplied(c.target, inst)
	c.record(EventApplied, inst, amount)
	return inst
}

// Tick advances every instance by delta. Periodic countdowns loop, so every
// interval that elapsed fires once, including one landing on expiry.
func (c *Container) Tick(delta time.Duration) {
	if c == nil || delta <= 0 || len(c.active) == 0 {
		return
	}
	for _, id := range c.sortedIDs() {
		inst, ok := c.active[id]
		if !ok {
			continue
		}
		hooks := c.hooksFor(inst.Definition)
		if interval := inst.Definition.TickInterval; interval > 0 {
			elapsed := delta
			if elapsed > inst.Remaining {
				elapsed = inst.Remaining
			}
			inst.UntilTick -= elapsed
			for inst.UntilTick <= 0 {
				amount := hooks.OnPeriodicTick(c.target, inst)
				c.record(EventTicked, inst, amount)
				inst.UntilTick += interval
			}
		}
		inst.Remaining -= delta
		if inst.Remaining <= 0 {
			c.remove(id, EventExpired)
		}
	}
}

// Dispel removes every instance whose dispel types include dispelType and
// returns how many were removed.
func (c *Container) Dispel(dispelType string) int {
	if c == nil || dispelType == "" {
		return 0
	}
	removed := 0
	for _, id := range c.sortedIDs() {
		if c.active[id].Definition.dispelledBy(dispelType) {
			c.remove(id, EventDispelled)
			removed++
		}
	}
	return removed
}

// Remove drops the effect with id if it is active.
func (c *Container) Remove(id string) bool {
	if c == nil {
		return false
	}
	if _, ok := c.active[id]; !ok {
		return false
	}
	c.remove(id, EventRemoved)
	return true
}

// Clear removes every effect, firing removal hooks.
func (c *Container) Clear() {
	if c == nil {
		return
	}
	for _, id := range c.sortedIDs() {
		c.remove(id, EventRemoved)
	}
}

// Has reports whether the effect id is active.
func (c *Container) Has(id string) bool {
	if c == nil {
		return false
	}
	_, ok := c.active[id]
	return ok
}

// HasKind reports whether any active effect is of kind.
func (c *Container) HasKind(kind EffectKind) bool {
	if c == nil {
		return false
	}
	for _, inst := range c.active {
		if inst.Definition.Kind == kind {
			return true
		}
	}
	return false
}

// Get returns a copy of the active instance for id.
func (c *Container) Get(id string) (Instance, bool) {
	if c == nil {
		return Instance{}, false
	}
	inst, ok := c.active[id]
	if !ok {
		return Instance{}, false
	}
	return *inst, true
}

// Len returns the number of active effects.
func (c *Container) Len() int {
	if c == nil {
		return 0
	}
	return len(c.active)
}

// DrainEvents returns and clears the buffered events.
func (c *Container) DrainEvents() []Event {
	if c == nil || len(c.events) == 0 {
		return nil
	}
	events := c.events
	c.events = nil
	return events
}

func (c *Container) remove(id string, kind EventKind) {
	inst := c.active[id]
	delete(c.active, id)
	amount := c.hooksFor(inst.Definition).OnRemoved(c.target, inst)
	c.record(kind, inst, amount)
}

func (c *Container) hooksFor(def *Definition) Hooks {
	if h, ok := c.hooks[def.Kind]; ok {
		return h
	}
	return noHooks{}
}

func (c *Container) record(kind EventKind, inst *Instance, amount int) {
	targetID := ""
	if c.target != nil {
		targetID = c.target.EntityID()
	}
	c.events = append(c.events, Event{
		Kind:     kind,
		EffectID: inst.Definition.ID,
		Effect:   inst.Definition.Kind,
		SourceID: inst.SourceID,
		TargetID: targetID,
		Stacks:   inst.Stacks,
		Amount:   amount,
	})
}

func (c *Container) sortedIDs() []string {
	ids := make([]string, 0, len(c.active))
	for id := range c.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
