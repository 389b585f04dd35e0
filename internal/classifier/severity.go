package classifier

import (
	"cybernews/internal/config"
	"cybernews/internal/models"
)

// DefaultMultiplier applies to tiers missing from the multiplier table.
const DefaultMultiplier = 1.0

// Score computes the weighted keyword sum scaled by the tier multiplier.
func Score(weightedSum int, multiplier float64) float64 {
	return float64(weightedSum) * multiplier
}

// SeverityFor maps a score onto a tier. Reaching a tier requires a score
// strictly above its threshold.
func SeverityFor(score float64, t config.Thresholds) models.Severity {
	switch {
	case score > t.High:
		return models.SeverityHigh
	case score > t.Medium:
		return models.SeverityMedium
	case score > t.Low:
		return models.SeverityLow
	}

	return models.SeverityNone
}

// Multipliers maps a source tier to its score multiplier.
type Multipliers map[models.SourceTier]float64

// For returns the multiplier of tier.
func (m Multipliers) For(tier models.SourceTier) float64 {
	if v, ok := m[tier]; ok {
		return v
	}

	return DefaultMultiplier
}

// MultipliersFromConfig converts the config table keyed by tier name.
func MultipliersFromConfig(table map[string]float64) Multipliers {
	out := make(Multipliers, len(table))
	for tier, v := range table {
		out[models.SourceTier(tier)] = v
	}

	return out
}
