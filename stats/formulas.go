package stats

import "math"

// StatSnapshot is the resolved numeric stat line for one level and gear combination.
type StatSnapshot struct {
	Level                 int     `json:"level"`
	MaxHealth             float64 `json:"maxHealth"`
	MaxMana               float64 `json:"maxMana"`
	AttackPower           float64 `json:"attackPower"`
	MagicPower            float64 `json:"magicPower"`
	Defense               float64 `json:"defense"`
	MagicResist           float64 `json:"magicResist"`
	CritRating            float64 `json:"critRating"`
	EvadeRating           float64 `json:"evadeRating"`
	Precision             float64 `json:"precision"`
	Awareness             float64 `json:"awareness"`
	TranceGenerationBonus float64 `json:"tranceGenerationBonus"`
	TranceEfficiency      float64 `json:"tranceEfficiency"`
}

// DerivedStats are the combat probabilities computed from a snapshot.
type DerivedStats struct {
	CriticalChance           float64 `json:"criticalChance"`
	CriticalDamageMultiplier float64 `json:"criticalDamageMultiplier"`
	EvadeChance              float64 `json:"evadeChance"`
}

const (
	baseCritChance       = 0.05
	critRatingScalar     = 0.0005
	critPrecisionScalar  = 0.00025
	maxCritChance        = 0.75
	baseCritMultiplier   = 1.5
	critDamageScalar     = 0.0015
	evadeRatingScalar    = 0.0005
	evadeAwarenessScalar = 0.0002
	maxEvadeChance       = 0.5
)

// Derive computes the derived combat stats for s.
func Derive(s StatSnapshot) DerivedStats {
	return DerivedStats{
		CriticalChance:           CriticalChance(s),
		CriticalDamageMultiplier: CriticalDamageMultiplier(s),
		EvadeChance:              EvadeChance(s),
	}
}

// CriticalChance is clamp(0.05 + crit*0.0005 + precision*0.00025, 0, 0.75).
func CriticalChance(s StatSnapshot) float64 {
	return clamp(baseCritChance+s.CritRating*critRatingScalar+s.Precision*critPrecisionScalar, 0, maxCritChance)
}

// CriticalDamageMultiplier is 1.5 + precision*0.0015.
func CriticalDamageMultiplier(s StatSnapshot) float64 {
	return baseCritMultiplier + s.Precision*critDamageScalar
}

// EvadeChance is clamp(evade*0.0005 + awareness*0.0002, 0, 0.5).
func EvadeChance(s StatSnapshot) float64 {
	return clamp(s.EvadeRating*evadeRatingScalar+s.Awareness*evadeAwarenessScalar, 0, maxEvadeChance)
}

func snapshotFromTotals(level int, totals ValueSet) StatSnapshot {
	return StatSnapshot{
		Level:                 level,
		MaxHealth:             math.Round(totals[StatMaxHealth]),
		MaxMana:               math.Round(totals[StatMaxMana]),
		AttackPower:           totals[StatAttackPower],
		MagicPower:            totals[StatMagicPower],
		Defense:               totals[StatDefense],
		MagicResist:           totals[StatMagicResist],
		CritRating:            totals[StatCritRating],
		EvadeRating:           totals[StatEvadeRating],
		Precision:             totals[StatPrecision],
		Awareness:             totals[StatAwareness],
		TranceGenerationBonus: totals[StatTranceGeneration],
		TranceEfficiency:      totals[StatTranceEfficiency],
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
