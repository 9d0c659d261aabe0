package scheduler

import (
	"cmp"
	"slices"

	"shift-scheduler/models"
)

// engine commits one window's slots to that window's tiered pool. It is built
// fresh for every window and must not be shared.
type engine struct {
	cfg  Config
	pool []*models.Worker
}

func newEngine(cfg Config, pool []*models.Worker) *engine {
	return &engine{cfg: cfg, pool: pool}
}

// match processes slots in order and reports how many were committed.
func (e *engine) match(slots []*models.Slot) int {
	committed := 0
	for _, s := range slots {
		if e.assign(s) {
			committed++
		}
	}
	return committed
}

// assign commits s to the first eligible candidate in priority order. With
// Augment set, a slot with no free candidate may displace an occupied worker
// whose same-hour slot can be moved elsewhere.
func (e *engine) assign(s *models.Slot) bool {
	candidates := e.candidates(s.RequiredTier)
	if e.firstFree(s, candidates) {
		return true
	}
	if !e.cfg.Augment {
		return false
	}
	return e.augment(s, candidates, make(map[int]bool))
}

// candidates stably re-sorts the pool for tier. Ties keep the order left by
// the previous sort. The returned slice is a snapshot when augmenting, since
// nested searches re-sort the pool.
func (e *engine) candidates(tier models.Tier) []*models.Worker {
	slices.SortStableFunc(e.pool, comparatorFor(tier))
	if e.cfg.Augment {
		return slices.Clone(e.pool)
	}
	return e.pool
}

func (e *engine) firstFree(s *models.Slot, candidates []*models.Worker) bool {
	for _, w := range candidates {
		if w.SlotAt(s.Hour) == nil && e.eligible(s, w) {
			w.Commit(s)
			s.WorkerTier = w.Tier
			return true
		}
	}
	return false
}

func (e *engine) augment(s *models.Slot, candidates []*models.Worker, visited map[int]bool) bool {
	for _, w := range candidates {
		occupied := w.SlotAt(s.Hour)
		if occupied == nil || visited[w.Code] || !tierAllows(s, w) {
			continue
		}
		visited[w.Code] = true
		if e.rehome(occupied, visited) {
			w.Swap(s)
			s.WorkerTier = w.Tier
			return true
		}
	}
	return false
}

// rehome moves s, still held by a visited worker, to another worker.
func (e *engine) rehome(s *models.Slot, visited map[int]bool) bool {
	candidates := e.candidates(s.RequiredTier)
	if e.firstFree(s, candidates) {
		return true
	}
	return e.augment(s, candidates, visited)
}

func (e *engine) eligible(s *models.Slot, w *models.Worker) bool {
	return w.DailyAssigned < e.cfg.DayCap &&
		w.TotalAssigned < e.cfg.TotalCap &&
		tierAllows(s, w)
}

func tierAllows(s *models.Slot, w *models.Worker) bool {
	return !s.Fixed || w.Tier == models.Level3
}

// comparatorFor returns the candidate ordering for a slot tier:
//
//	LEVEL1: preferred windows asc, total asc, tier asc
//	LEVEL2: total asc, preferred windows asc, tier desc
//	LEVEL3: tier desc, preferred windows asc, total asc
func comparatorFor(tier models.Tier) func(a, b *models.Worker) int {
	switch tier {
	case models.Level1:
		return func(a, b *models.Worker) int {
			return cmp.Or(
				cmp.Compare(a.PreferredWindowCount(), b.PreferredWindowCount()),
				cmp.Compare(a.TotalAssigned, b.TotalAssigned),
				a.Tier.Compare(b.Tier),
			)
		}
	case models.Level2:
		return func(a, b *models.Worker) int {
			return cmp.Or(
				cmp.Compare(a.TotalAssigned, b.TotalAssigned),
				cmp.Compare(a.PreferredWindowCount(), b.PreferredWindowCount()),
				b.Tier.Compare(a.Tier),
			)
		}
	default:
		return func(a, b *models.Worker) int {
			return cmp.Or(
				b.Tier.Compare(a.Tier),
				cmp.Compare(a.PreferredWindowCount(), b.PreferredWindowCount()),
				cmp.Compare(a.TotalAssigned, b.TotalAssigned),
			)
		}
	}
}
