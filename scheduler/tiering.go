package scheduler

import (
	"math"

	"shift-scheduler/models"
)

// TierCounts splits a pool of total workers into LEVEL3/LEVEL2/LEVEL1 bucket
// sizes. The LEVEL1 bucket takes whatever is left so the three always sum to total.
func TierCounts(total int, p models.TierPolicy) (high, middle, low int) {
	high = min(percentOf(total, p.HighPct), total)
	middle = min(percentOf(total, p.MiddlePct), total-high)
	low = total - high - middle
	return high, middle, low
}

func percentOf(total, pct int) int {
	return int(math.Round(float64(total) * float64(pct) / 100))
}

// PartitionTiers assigns a tier to each code. codes must be ordered by seniority,
// most senior first; the result is index-aligned with codes.
func PartitionTiers(codes []int, p models.TierPolicy) []models.Tier {
	high, middle, _ := TierCounts(len(codes), p)
	tiers := make([]models.Tier, len(codes))
	for i := range codes {
		switch {
		case i < high:
			tiers[i] = models.Level3
		case i < high+middle:
			tiers[i] = models.Level2
		default:
			tiers[i] = models.Level1
		}
	}
	return tiers
}
