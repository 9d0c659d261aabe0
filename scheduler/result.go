package scheduler

import "shift-scheduler/models"

// extract flattens committed slots in window order, then slot order.
// Worker totals are read after every window ran.
func extract(slotsByWindow map[models.TimeWindow][]*models.Slot) *models.Plan {
	plan := &models.Plan{
		Assignments: make([]models.Assignment, 0),
		Unmet:       make([]models.UnmetSlot, 0),
	}
	for _, win := range models.Windows {
		for _, s := range slotsByWindow[win] {
			plan.Requested++
			if s.Worker == nil {
				plan.Unmet = append(plan.Unmet, models.UnmetSlot{
					Hour:   s.Hour,
					Index:  s.Index,
					Window: s.Window,
					Tier:   s.RequiredTier,
					Fixed:  s.Fixed,
				})
				continue
			}
			plan.Assignments = append(plan.Assignments, models.Assignment{
				Hour:        s.Hour,
				WorkerCode:  s.Worker.Code,
				WorkerTotal: s.Worker.TotalAssigned,
				Window:      s.Window,
				SlotTier:    s.RequiredTier,
				Fixed:       s.Fixed,
				WorkerTier:  s.WorkerTier,
			})
		}
	}
	return plan
}
