package combat

// Denial is the machine-readable reason an ability command was refused.
type Denial string

const (
	DenialNone           Denial = ""
	DenialUnknownAbility Denial = "unknown_ability"
	DenialCooldown       Denial = "cooldown"
	DenialTranceLocked   Denial = "trance_locked"
	DenialResources      Denial = "resources"
	DenialRange          Denial = "range"
	DenialLineOfSight    Denial = "line_of_sight"

	DenialStaleCommand   Denial = "stale_command"
	DenialMissingAbility Denial = "missing_ability"
	DenialBusy           Denial = "busy"
	DenialStunned        Denial = "stunned"
	DenialDead           Denial = "dead"
	DenialInvalidTarget  Denial = "invalid_target"
	DenialQueueFull      Denial = "queue_full"
)

// Outcome describes what one execution did.
type Outcome string

const (
	OutcomeHit         Outcome = "hit"
	OutcomeEvaded      Outcome = "evaded"
	OutcomeNoTarget    Outcome = "no_target"
	OutcomeFizzled     Outcome = "fizzled"
	OutcomeInterrupted Outcome = "interrupted"
	OutcomeChanneling  Outcome = "channeling"
)

// EffectType distinguishes damage from healing on the wire.
type EffectType string

const (
	EffectDamage EffectType = "damage"
	EffectHeal   EffectType = "heal"
)

// ExecutionResult is one resolved execution of an ability. A double cast
// produces two.
type ExecutionResult struct {
	AbilityID    string
	CasterID     string
	TargetID     string
	Outcome      Outcome
	Effect       EffectType
	Amount       int
	Critical     bool
	TargetHealth int
	Killed       bool
	Execution    int
	StatusEffect string
}
