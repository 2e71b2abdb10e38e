package abilities

import (
	"testing"
	"time"
)

func TestNewCatalogNormalizesDefaults(t *testing.T) {
	catalog, err := NewCatalog([]Definition{{ID: "strike", Power: 10, Range: 2}})
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	def, ok := catalog.Get("strike")
	if !ok {
		t.Fatalf("expected strike to be registered")
	}
	if def.Timing != TimingInstant || def.Category != CategoryStandard || def.Element != ElementPhysical {
		t.Fatalf("unexpected defaults: %+v", def)
	}
	if def.TranceBehavior != TranceNone || def.Cost.Resource != ResourceNone {
		t.Fatalf("unexpected trance/cost defaults: %+v", def)
	}
}

func TestNewCatalogRejectsBadDefinitions(t *testing.T) {
	cases := map[string][]Definition{
		"missing id":   {{Power: 1}},
		"duplicate":    {{ID: "a"}, {ID: "a"}},
		"bad resource": {{ID: "a", Cost: Cost{Resource: "rage", Amount: 1}}},
		"negative":     {{ID: "a", Cooldown: -time.Second}},
		"bad trance":   {{ID: "a", TranceBehavior: "triple"}},
	}
	for name, defs := range cases {
		if _, err := NewCatalog(defs); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestDefinitionHelpers(t *testing.T) {
	channel := Definition{ID: "drain", Timing: TimingChannel, ChannelDuration: time.Second}
	if !channel.IsChannel() {
		t.Fatalf("expected channel")
	}
	zero := Definition{ID: "drain", Timing: TimingChannel}
	if zero.IsChannel() {
		t.Fatalf("expected zero-duration channel to resolve immediately")
	}
	if !ElementFrost.IsElemental() || ElementPhysical.IsElemental() || ElementHealing.IsElemental() {
		t.Fatalf("unexpected elemental classification")
	}
	trance := Definition{Cost: Cost{Resource: ResourceTrance, Amount: 40}}
	if trance.TranceCost() != 40 {
		t.Fatalf("expected trance cost 40")
	}
}
