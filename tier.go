package donorauth

import "math"

// TierName is the loyalty classification derived from cumulative donations.
type TierName string

const (
	TierNew    TierName = "New"
	TierBronze TierName = "Bronze"
	TierSilver TierName = "Silver"
	TierGold   TierName = "Gold"
)

// Tier loyalty thresholds, in the same monetary unit as
// UserSnapshot.TotalDonations.
const (
	tierBronzeThreshold = 1_000
	tierSilverThreshold = 100_000
	tierGoldThreshold   = 500_000
)

// Tier is derived, never stored. Recompute it on every render.
// NextThreshold is 0 for Gold, which has no next band.
type Tier struct {
	Name            TierName
	CurrentTotal    float64
	NextThreshold   float64
	ProgressPercent float64
}

// TierOf maps a cumulative donation total onto its loyalty tier and the
// clamped linear progress within the current band. Negative and non-finite
// totals are treated as zero.
func TierOf(total float64) Tier {
	if total < 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		total = 0
	}

	var (
		name       TierName
		lower      float64
		next       float64
	)
	switch {
	case total >= tierGoldThreshold:
		name, lower, next = TierGold, tierGoldThreshold, 0
	case total >= tierSilverThreshold:
		name, lower, next = TierSilver, tierSilverThreshold, tierGoldThreshold
	case total >= tierBronzeThreshold:
		name, lower, next = TierBronze, tierBronzeThreshold, tierSilverThreshold
	default:
		name, lower, next = TierNew, 0, tierBronzeThreshold
	}

	progress := 100.0
	if next > lower {
		progress = (total - lower) / (next - lower) * 100
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	return Tier{
		Name:            name,
		CurrentTotal:    total,
		NextThreshold:   next,
		ProgressPercent: progress,
	}
}
