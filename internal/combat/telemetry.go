package combat

import (
	"context"

	"github.com/jackandcarter/Adventure-2.0-sub000/logging"
	loggingcombat "github.com/jackandcarter/Adventure-2.0-sub000/logging/combat"
)

// ResultTelemetryRecorderConfig captures the dependencies required to publish
// combat telemetry for execution results.
type ResultTelemetryRecorderConfig struct {
	Publisher    logging.Publisher
	LookupEntity func(id string) logging.EntityRef
	CurrentTick  func() uint64
	RoomID       string
}

// NewResultTelemetryRecorder constructs a hook that emits damage, heal, evade
// and defeat events for each execution result. Results without a landed
// effect are ignored.
func NewResultTelemetryRecorder(cfg ResultTelemetryRecorderConfig) func(ctx context.Context, results []ExecutionResult) {
	if cfg.Publisher == nil {
		return nil
	}

	lookup := cfg.LookupEntity
	if lookup == nil {
		lookup = func(id string) logging.EntityRef { return logging.EntityRef{ID: id, Kind: logging.EntityKindUnknown} }
	}

	tick := cfg.CurrentTick
	if tick == nil {
		tick = func() uint64 { return 0 }
	}

	return func(ctx context.Context, results []ExecutionResult) {
		current := tick()
		for _, result := range results {
			casterRef := lookup(result.CasterID)
			targetRef := lookup(result.TargetID)
			payload := loggingcombat.AmountPayload{
				Ability:      result.AbilityID,
				Amount:       result.Amount,
				Critical:     result.Critical,
				TargetHealth: result.TargetHealth,
				Execution:    result.Execution,
				StatusEffect: result.StatusEffect,
			}

			switch result.Outcome {
			case OutcomeEvaded:
				loggingcombat.Evade(ctx, cfg.Publisher, current, casterRef, targetRef, payload, nil)
				continue
			case OutcomeHit:
			default:
				continue
			}

			if result.Effect == EffectHeal {
				loggingcombat.Heal(ctx, cfg.Publisher, current, casterRef, targetRef, payload, nil)
				continue
			}
			loggingcombat.Damage(ctx, cfg.Publisher, current, casterRef, targetRef, payload, nil)
			if result.Killed {
				loggingcombat.Defeat(ctx, cfg.Publisher, current, casterRef, targetRef, loggingcombat.DefeatPayload{
					Ability: result.AbilityID,
					RoomID:  cfg.RoomID,
				}, nil)
			}
		}
	}
}
