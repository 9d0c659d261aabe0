package scheduler

import (
	"math"

	"gonum.org/v1/gonum/stat"

	schederrors "shift-scheduler/errors"
	"shift-scheduler/models"
)

// AverageDemand is the mean predicted volume over every record, zeros included.
func AverageDemand(records []models.Demand) float64 {
	if len(records) == 0 {
		return 0
	}
	xs := make([]float64, len(records))
	for i, r := range records {
		xs[i] = float64(r.Predicted)
	}
	return stat.Mean(xs, nil)
}

// RequiredWorkers is ceil(demand / throughput), at least one for any positive demand.
func RequiredWorkers(demand int, throughput float64) int {
	if demand <= 0 {
		return 0
	}
	n := int(math.Ceil(float64(demand) / throughput))
	return max(n, 1)
}

// ClassifyTier grades an hour against the day's average demand.
func ClassifyTier(demand int, avg float64) models.Tier {
	d := float64(demand)
	switch {
	case d < avg/2:
		return models.Level1
	case d >= avg*2:
		return models.Level3
	default:
		return models.Level2
	}
}

// FixedSlots is how many of a LEVEL3 hour's slots only LEVEL3 workers may take.
func FixedSlots(required int, tier models.Tier, fixedRatio float64) int {
	if tier != models.Level3 {
		return 0
	}
	n := int(math.Round(float64(required) * fixedRatio))
	return min(max(n, 0), required)
}

// ClassifyDemand turns hourly demand into slots, in record order. The first
// FixedSlots slots of each hour are flagged fixed.
func ClassifyDemand(records []models.Demand, avg float64, cfg Config, fixedRatio float64) ([]*models.Slot, error) {
	var slots []*models.Slot
	for _, r := range records {
		if r.Predicted < 0 {
			return nil, schederrors.Invalid("demand at hour", r.Hour, schederrors.ErrNegativeDemand)
		}
		win, err := cfg.Windows.WindowForHour(r.Hour)
		if err != nil {
			return nil, err
		}
		required := RequiredWorkers(r.Predicted, cfg.ThroughputPerWorkerHour)
		tier := ClassifyTier(r.Predicted, avg)
		fixed := FixedSlots(required, tier, fixedRatio)
		for i := range required {
			slots = append(slots, &models.Slot{
				Hour:         r.Hour,
				Index:        i,
				Window:       win,
				RequiredTier: tier,
				Fixed:        i < fixed,
			})
		}
	}
	return slots, nil
}
