package models

import (
	"slices"
	"time"

	schederrors "shift-scheduler/errors"
)

// Demand is the predicted workload volume for one hour of the day.
type Demand struct {
	Hour      int `json:"hour" yaml:"hour"`
	Predicted int `json:"predicted" yaml:"predicted"`
}

// RosterEntry is one worker row supplied by the caller.
type RosterEntry struct {
	Code          int
	TotalAssigned int
	// PreferredStartHours holds hours that resolve to the worker's preferred windows.
	PreferredStartHours []int
	JoinDate            time.Time
	Role                string
}

// TierPolicy holds the percentages used to split a window's worker pool.
type TierPolicy struct {
	HighPct   int `json:"high_pct" yaml:"high_pct"`
	MiddlePct int `json:"middle_pct" yaml:"middle_pct"`
}

// Validate rejects percentages outside 0-100 or summing above 100.
func (p TierPolicy) Validate() error {
	if p.HighPct < 0 || p.HighPct > 100 {
		return schederrors.Invalid("high_pct", p.HighPct, schederrors.ErrInvalidPercentage)
	}
	if p.MiddlePct < 0 || p.MiddlePct > 100 {
		return schederrors.Invalid("middle_pct", p.MiddlePct, schederrors.ErrInvalidPercentage)
	}
	if p.HighPct+p.MiddlePct > 100 {
		return schederrors.Invalid("high_pct+middle_pct", p.HighPct+p.MiddlePct, schederrors.ErrPercentageSum)
	}
	return nil
}

// Worker is the run-scoped state of one roster entry.
type Worker struct {
	Code             int
	PreferredWindows []TimeWindow
	TotalAssigned    int
	DailyAssigned    int
	// Tier is reassigned for every window the worker is ranked in.
	Tier      Tier
	Committed map[int]*Slot
}

// NewWorker creates a worker with no committed slots. Duplicate windows are dropped.
func NewWorker(code, totalAssigned int, windows []TimeWindow) *Worker {
	ws := slices.Clone(windows)
	slices.Sort(ws)
	return &Worker{
		Code:             code,
		PreferredWindows: slices.Compact(ws),
		TotalAssigned:    totalAssigned,
		Committed:        make(map[int]*Slot),
	}
}

// PreferredWindowCount is how many windows the worker is willing to cover.
func (w *Worker) PreferredWindowCount() int {
	return len(w.PreferredWindows)
}

// SlotAt returns the slot committed to w at hour, or nil.
func (w *Worker) SlotAt(hour int) *Slot {
	return w.Committed[hour]
}

// Commit binds s to w and bumps both counters.
func (w *Worker) Commit(s *Slot) {
	w.Committed[s.Hour] = s
	w.DailyAssigned++
	w.TotalAssigned++
	s.Worker = w
}

// Swap replaces w's slot at the same hour with s. Counters are unchanged.
func (w *Worker) Swap(s *Slot) {
	w.Committed[s.Hour] = s
	s.Worker = w
}

// Slot is one required worker-hour of coverage.
type Slot struct {
	Hour         int
	Index        int
	Window       TimeWindow
	RequiredTier Tier
	// Fixed slots may only be taken by a Level3 worker.
	Fixed  bool
	Worker *Worker
	// WorkerTier is the tier the worker held in this slot's window when it was bound.
	WorkerTier Tier
}

// Assignment is one committed slot in the run output.
type Assignment struct {
	Hour        int        `json:"hour" yaml:"hour"`
	WorkerCode  int        `json:"worker_code" yaml:"worker_code"`
	WorkerTotal int        `json:"worker_total" yaml:"worker_total"`
	Window      TimeWindow `json:"window" yaml:"window"`
	SlotTier    Tier       `json:"slot_tier" yaml:"slot_tier"`
	Fixed       bool       `json:"fixed" yaml:"fixed"`
	WorkerTier  Tier       `json:"worker_tier" yaml:"worker_tier"`
}

// UnmetSlot is a generated slot no eligible worker could take.
type UnmetSlot struct {
	Hour   int        `json:"hour" yaml:"hour"`
	Index  int        `json:"index" yaml:"index"`
	Window TimeWindow `json:"window" yaml:"window"`
	Tier   Tier       `json:"tier" yaml:"tier"`
	Fixed  bool       `json:"fixed" yaml:"fixed"`
}

// PoolSize counts the workers tiered into one window's pool.
type PoolSize struct {
	Level3 int `json:"level3" yaml:"level3"`
	Level2 int `json:"level2" yaml:"level2"`
	Level1 int `json:"level1" yaml:"level1"`
}

// Count returns the number of workers tiered at t.
func (p PoolSize) Count(t Tier) int {
	switch t {
	case Level3:
		return p.Level3
	case Level2:
		return p.Level2
	case Level1:
		return p.Level1
	}
	return 0
}

// Plan is the result of one scheduling run.
type Plan struct {
	Assignments []Assignment            `json:"assignments" yaml:"assignments"`
	Unmet       []UnmetSlot             `json:"unmet" yaml:"unmet"`
	Requested   int                     `json:"requested" yaml:"requested"`
	Pools       map[TimeWindow]PoolSize `json:"pools,omitempty" yaml:"pools,omitempty"`
}

// Coverage is the share of requested slots that were assigned.
func (p *Plan) Coverage() float64 {
	if p.Requested == 0 {
		return 1
	}
	return float64(len(p.Assignments)) / float64(p.Requested)
}
