package scheduler

import (
	"cmp"
	"slices"

	schederrors "shift-scheduler/errors"
	"shift-scheduler/logger"
	"shift-scheduler/models"
)

// Input is everything one run needs, already fetched by the caller.
type Input struct {
	Roster []models.RosterEntry
	Demand []models.Demand
	Policy models.TierPolicy
	// Seniority holds each window's ranked worker codes, most senior first.
	Seniority map[models.TimeWindow][]int
}

// Scheduler computes shift assignments. It keeps no state between runs, so one
// value may serve any number of sequential or concurrent Run calls.
type Scheduler struct {
	cfg Config
	log logger.Logger
}

// New returns a Scheduler. A nil log discards output.
func New(cfg Config, log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Scheduler{cfg: cfg, log: log}
}

// Run validates in and computes one day's assignments. Invalid input is
// rejected before any worker or slot state is built.
func (s *Scheduler) Run(in Input) (*models.Plan, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := in.Policy.Validate(); err != nil {
		return nil, err
	}
	if in.Policy.HighPct+in.Policy.MiddlePct == 0 {
		s.log.Warnf("tier policy is 0%%/0%%: every worker is LEVEL1 and no fixed slots are reserved")
	}
	workers, err := s.buildWorkers(in.Roster)
	if err != nil {
		return nil, err
	}
	demandByWindow, err := s.bucketDemand(in.Demand)
	if err != nil {
		return nil, err
	}

	avg := AverageDemand(in.Demand)
	fixedRatio := s.cfg.FixedRatio(in.Policy.HighPct)
	slotsByWindow := make(map[models.TimeWindow][]*models.Slot, len(models.Windows))
	for _, win := range models.Windows {
		slots, err := ClassifyDemand(demandByWindow[win], avg, s.cfg, fixedRatio)
		if err != nil {
			return nil, err
		}
		slotsByWindow[win] = slots
	}

	pools := make(map[models.TimeWindow]models.PoolSize, len(models.Windows))
	for _, win := range models.Windows {
		pool, size := s.tierPool(win, in.Seniority[win], workers, in.Policy)
		pools[win] = size
		committed := newEngine(s.cfg, pool).match(slotsByWindow[win])
		s.log.Debugw("window matched", map[string]any{
			"window":    win.String(),
			"pool":      len(pool),
			"slots":     len(slotsByWindow[win]),
			"committed": committed,
		})
	}

	plan := extract(slotsByWindow)
	plan.Pools = pools
	s.log.Infof("scheduled %d of %d slots (avg demand %.2f, %d workers)",
		len(plan.Assignments), plan.Requested, avg, len(workers))
	return plan, nil
}

func (s *Scheduler) buildWorkers(roster []models.RosterEntry) (map[int]*models.Worker, error) {
	workers := make(map[int]*models.Worker, len(roster))
	for _, e := range roster {
		if _, dup := workers[e.Code]; dup {
			return nil, schederrors.Invalid("worker code", e.Code, schederrors.ErrDuplicateCode)
		}
		if e.TotalAssigned < 0 {
			return nil, schederrors.Invalid("total assigned of worker", e.Code, schederrors.ErrNegativeTotal)
		}
		windows := make([]models.TimeWindow, 0, len(e.PreferredStartHours))
		for _, h := range e.PreferredStartHours {
			win, err := s.cfg.Windows.WindowForHour(h)
			if err != nil {
				return nil, err
			}
			windows = append(windows, win)
		}
		workers[e.Code] = models.NewWorker(e.Code, e.TotalAssigned, windows)
	}
	return workers, nil
}

// bucketDemand validates every record and groups them by window, ascending hour.
func (s *Scheduler) bucketDemand(demand []models.Demand) (map[models.TimeWindow][]models.Demand, error) {
	seen := make(map[int]bool, len(demand))
	out := make(map[models.TimeWindow][]models.Demand, len(models.Windows))
	for _, d := range demand {
		if d.Predicted < 0 {
			return nil, schederrors.Invalid("demand at hour", d.Hour, schederrors.ErrNegativeDemand)
		}
		win, err := s.cfg.Windows.WindowForHour(d.Hour)
		if err != nil {
			return nil, err
		}
		if seen[d.Hour] {
			return nil, schederrors.Invalid("demand hour", d.Hour, schederrors.ErrDuplicateHour)
		}
		seen[d.Hour] = true
		out[win] = append(out[win], d)
	}
	for win := range out {
		slices.SortStableFunc(out[win], func(a, b models.Demand) int {
			return cmp.Compare(a.Hour, b.Hour)
		})
	}
	return out, nil
}

// tierPool tiers the workers ranked for win and returns them in rank order.
// Workers outside the ranking, or ranked for a window they do not prefer, are
// left untiered and sit the window out.
func (s *Scheduler) tierPool(win models.TimeWindow, ranked []int, workers map[int]*models.Worker, p models.TierPolicy) ([]*models.Worker, models.PoolSize) {
	for _, w := range workers {
		w.Tier = models.TierNone
	}

	seen := make(map[int]bool, len(ranked))
	codes := make([]int, 0, len(ranked))
	for _, code := range ranked {
		if seen[code] {
			continue
		}
		seen[code] = true
		w, ok := workers[code]
		if !ok {
			s.log.Warnf("window %s: ranked worker %d is not in the roster, skipping", win, code)
			continue
		}
		if !slices.Contains(w.PreferredWindows, win) {
			s.log.Warnf("window %s: ranked worker %d does not prefer this window, skipping", win, code)
			continue
		}
		codes = append(codes, code)
	}

	tiers := PartitionTiers(codes, p)
	pool := make([]*models.Worker, len(codes))
	for i, code := range codes {
		w := workers[code]
		w.Tier = tiers[i]
		pool[i] = w
	}
	high, middle, low := TierCounts(len(codes), p)
	s.log.Debugw("window tiered", map[string]any{
		"window": win.String(),
		"level3": high,
		"level2": middle,
		"level1": low,
	})
	return pool, models.PoolSize{Level3: high, Level2: middle, Level1: low}
}
