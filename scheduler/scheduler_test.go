package scheduler_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	schederrors "shift-scheduler/errors"
	"shift-scheduler/logger"
	"shift-scheduler/models"
	"shift-scheduler/scheduler"
)

// seniority ranks roster the way the store would.
func seniority(t *testing.T, roster []models.RosterEntry) map[models.TimeWindow][]int {
	t.Helper()
	ranked, err := scheduler.FetchSeniority(context.Background(),
		scheduler.RosterRanker{Roster: roster, Windows: models.DefaultPartition},
		models.DefaultPartition, scheduler.DefaultRole)
	require.NoError(t, err)
	return ranked
}

func manager(code, total int, startHours ...int) models.RosterEntry {
	return models.RosterEntry{
		Code:                code,
		TotalAssigned:       total,
		PreferredStartHours: startHours,
		JoinDate:            joined(code),
		Role:                scheduler.DefaultRole,
	}
}

func run(t *testing.T, cfg scheduler.Config, roster []models.RosterEntry, demand []models.Demand, policy models.TierPolicy) *models.Plan {
	t.Helper()
	plan, err := scheduler.New(cfg, nil).Run(scheduler.Input{
		Roster:    roster,
		Demand:    demand,
		Policy:    policy,
		Seniority: seniority(t, roster),
	})
	require.NoError(t, err)
	return plan
}

func TestRun_LowDemandHourSingleWorker(t *testing.T) {
	roster := []models.RosterEntry{manager(1, 0, 6)}
	demand := []models.Demand{
		{Hour: 7, Predicted: 40},
		{Hour: 13, Predicted: 160},
	}

	plan := run(t, scheduler.DefaultConfig(), roster, demand, models.TierPolicy{})

	assert.Equal(t, []models.Assignment{{
		Hour:        7,
		WorkerCode:  1,
		WorkerTotal: 1,
		Window:      models.Morning,
		SlotTier:    models.Level1,
		Fixed:       false,
		WorkerTier:  models.Level1,
	}}, plan.Assignments)
	assert.Equal(t, 5, plan.Requested)
	assert.Len(t, plan.Unmet, 4, "afternoon has no workers")
	assert.InDelta(t, 0.2, plan.Coverage(), 1e-9)
}

func TestRun_HighDemandHourReservesFixedSlots(t *testing.T) {
	var roster []models.RosterEntry
	for code := 1; code <= 10; code++ {
		roster = append(roster, manager(code, 0, 6))
	}
	demand := []models.Demand{
		{Hour: 2, Predicted: 20},
		{Hour: 8, Predicted: 260},
		{Hour: 20, Predicted: 20},
	}

	plan := run(t, scheduler.DefaultConfig(), roster, demand, models.TierPolicy{HighPct: 20, MiddlePct: 30})

	require.Len(t, plan.Assignments, 6)
	var gotCodes []int
	fixed := 0
	for _, a := range plan.Assignments {
		assert.Equal(t, 8, a.Hour)
		assert.Equal(t, models.Level3, a.SlotTier)
		assert.Equal(t, 1, a.WorkerTotal)
		if a.Fixed {
			fixed++
			assert.Equal(t, models.Level3, a.WorkerTier)
		}
		gotCodes = append(gotCodes, a.WorkerCode)
	}
	assert.Equal(t, 2, fixed)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, gotCodes)
	assert.Len(t, plan.Unmet, 2, "dawn and evening have no workers")
}

func TestRun_FixedSlotLeftOpenWithoutEnoughLevel3(t *testing.T) {
	var roster []models.RosterEntry
	for code := 1; code <= 5; code++ {
		roster = append(roster, manager(code, 0, 6))
	}
	demand := []models.Demand{
		{Hour: 2, Predicted: 20},
		{Hour: 8, Predicted: 260},
		{Hour: 20, Predicted: 20},
	}

	plan := run(t, scheduler.DefaultConfig(), roster, demand, models.TierPolicy{HighPct: 20, MiddlePct: 30})

	require.Len(t, plan.Assignments, 5)
	for _, a := range plan.Assignments {
		if a.Fixed {
			assert.Equal(t, 1, a.WorkerCode)
			assert.Equal(t, models.Level3, a.WorkerTier)
		}
	}
	var openFixed []models.UnmetSlot
	for _, u := range plan.Unmet {
		if u.Fixed {
			openFixed = append(openFixed, u)
		}
	}
	require.Len(t, openFixed, 1)
	assert.Equal(t, 8, openFixed[0].Hour)
	assert.Equal(t, 1, openFixed[0].Index)
}

func TestRun_DailyCapStopsFurtherAssignments(t *testing.T) {
	roster := []models.RosterEntry{manager(1, 0, 0, 6, 12, 18)}
	demand := []models.Demand{
		{Hour: 1, Predicted: 50},
		{Hour: 7, Predicted: 50},
		{Hour: 13, Predicted: 50},
		{Hour: 19, Predicted: 50},
	}

	plan := run(t, scheduler.DefaultConfig(), roster, demand, models.TierPolicy{HighPct: 100})

	require.Len(t, plan.Assignments, scheduler.DefaultDayCap)
	for _, a := range plan.Assignments {
		assert.Equal(t, 3, a.WorkerTotal)
	}
	require.Len(t, plan.Unmet, 1)
	assert.Equal(t, 19, plan.Unmet[0].Hour)
}

func TestRun_TotalCapCountsPriorAssignments(t *testing.T) {
	roster := []models.RosterEntry{manager(1, scheduler.DefaultTotalCap-1, 6)}
	demand := []models.Demand{
		{Hour: 7, Predicted: 50},
		{Hour: 8, Predicted: 50},
	}

	plan := run(t, scheduler.DefaultConfig(), roster, demand, models.TierPolicy{})

	require.Len(t, plan.Assignments, 1)
	assert.Equal(t, 7, plan.Assignments[0].Hour)
	assert.Equal(t, scheduler.DefaultTotalCap, plan.Assignments[0].WorkerTotal)
}

func TestRun_ZeroDemandHourGeneratesNothing(t *testing.T) {
	roster := []models.RosterEntry{manager(1, 0, 6)}
	demand := []models.Demand{{Hour: 7, Predicted: 0}, {Hour: 8, Predicted: 1}}

	plan := run(t, scheduler.DefaultConfig(), roster, demand, models.TierPolicy{})

	assert.Equal(t, 1, plan.Requested)
	require.Len(t, plan.Assignments, 1)
	assert.Equal(t, 8, plan.Assignments[0].Hour)
}

func TestRun_OutputFollowsWindowOrderThenHour(t *testing.T) {
	roster := []models.RosterEntry{manager(1, 0, 0, 6, 18), manager(2, 0, 0, 6, 18)}
	demand := []models.Demand{
		{Hour: 20, Predicted: 10},
		{Hour: 9, Predicted: 10},
		{Hour: 7, Predicted: 10},
		{Hour: 3, Predicted: 10},
	}

	plan := run(t, scheduler.DefaultConfig(), roster, demand, models.TierPolicy{})

	var hours []int
	for _, a := range plan.Assignments {
		hours = append(hours, a.Hour)
	}
	assert.Equal(t, []int{3, 7, 9, 20}, hours)
}

func TestRun_WorkerTotalIsReadAfterAllWindows(t *testing.T) {
	roster := []models.RosterEntry{manager(1, 4, 0, 18)}
	demand := []models.Demand{{Hour: 2, Predicted: 10}, {Hour: 21, Predicted: 10}}

	plan := run(t, scheduler.DefaultConfig(), roster, demand, models.TierPolicy{})

	require.Len(t, plan.Assignments, 2)
	assert.Equal(t, 6, plan.Assignments[0].WorkerTotal)
	assert.Equal(t, 6, plan.Assignments[1].WorkerTotal)
}

func TestRun_UnknownRankedCodesAreSkipped(t *testing.T) {
	roster := []models.RosterEntry{manager(1, 0, 6)}
	plan, err := scheduler.New(scheduler.DefaultConfig(), nil).Run(scheduler.Input{
		Roster: roster,
		Demand: []models.Demand{{Hour: 7, Predicted: 100}},
		Seniority: map[models.TimeWindow][]int{
			models.Morning: {99, 1, 1},
		},
	})

	require.NoError(t, err)
	require.Len(t, plan.Assignments, 1)
	assert.Equal(t, 1, plan.Assignments[0].WorkerCode)
}

func TestRun_InvalidInput(t *testing.T) {
	valid := func() scheduler.Input {
		return scheduler.Input{
			Roster: []models.RosterEntry{manager(1, 0, 6)},
			Demand: []models.Demand{{Hour: 7, Predicted: 40}},
			Policy: models.TierPolicy{HighPct: 20, MiddlePct: 30},
		}
	}

	tests := map[string]struct {
		mutate   func(in *scheduler.Input)
		cfg      func(c *scheduler.Config)
		expected error
	}{
		"NegativeDemand": {
			mutate:   func(in *scheduler.Input) { in.Demand[0].Predicted = -1 },
			expected: schederrors.ErrNegativeDemand,
		},
		"DemandHourOutOfRange": {
			mutate:   func(in *scheduler.Input) { in.Demand = append(in.Demand, models.Demand{Hour: 24}) },
			expected: schederrors.ErrHourOutOfRange,
		},
		"DuplicateDemandHour": {
			mutate:   func(in *scheduler.Input) { in.Demand = append(in.Demand, models.Demand{Hour: 7, Predicted: 1}) },
			expected: schederrors.ErrDuplicateHour,
		},
		"HighPctAbove100": {
			mutate:   func(in *scheduler.Input) { in.Policy.HighPct = 101 },
			expected: schederrors.ErrInvalidPercentage,
		},
		"NegativeMiddlePct": {
			mutate:   func(in *scheduler.Input) { in.Policy.MiddlePct = -5 },
			expected: schederrors.ErrInvalidPercentage,
		},
		"PercentagesOver100": {
			mutate:   func(in *scheduler.Input) { in.Policy = models.TierPolicy{HighPct: 60, MiddlePct: 50} },
			expected: schederrors.ErrPercentageSum,
		},
		"DuplicateWorkerCode": {
			mutate:   func(in *scheduler.Input) { in.Roster = append(in.Roster, manager(1, 0, 12)) },
			expected: schederrors.ErrDuplicateCode,
		},
		"PreferredHourOutOfRange": {
			mutate:   func(in *scheduler.Input) { in.Roster[0].PreferredStartHours = []int{25} },
			expected: schederrors.ErrHourOutOfRange,
		},
		"NegativeTotal": {
			mutate:   func(in *scheduler.Input) { in.Roster[0].TotalAssigned = -1 },
			expected: schederrors.ErrNegativeTotal,
		},
		"ZeroThroughput": {
			cfg:      func(c *scheduler.Config) { c.ThroughputPerWorkerHour = 0 },
			expected: schederrors.ErrInvalidConfig,
		},
		"OverlappingWindows": {
			cfg:      func(c *scheduler.Config) { c.Windows[models.Morning] = models.Bounds{Start: 5, End: 12} },
			expected: schederrors.ErrInvalidPartition,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			in := valid()
			if tt.mutate != nil {
				tt.mutate(&in)
			}
			cfg := scheduler.DefaultConfig()
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			plan, err := scheduler.New(cfg, nil).Run(in)
			assert.Nil(t, plan)
			assert.True(t, errors.Is(err, tt.expected), "got %v", err)

			var verr *schederrors.ValidationError
			if !errors.Is(tt.expected, schederrors.ErrInvalidConfig) {
				assert.True(t, errors.As(err, &verr), "expected a ValidationError, got %T", err)
			}
		})
	}
}

// randomInput builds a reproducible day with a mixed roster.
func randomInput(seed uint64) ([]models.RosterEntry, []models.Demand, models.TierPolicy) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	starts := []int{0, 6, 12, 18}

	var roster []models.RosterEntry
	for code := 1; code <= 40; code++ {
		n := 1 + rng.IntN(4)
		perm := rng.Perm(4)[:n]
		hours := make([]int, n)
		for i, p := range perm {
			hours[i] = starts[p]
		}
		roster = append(roster, manager(code, rng.IntN(scheduler.DefaultTotalCap+1), hours...))
	}

	var demand []models.Demand
	for h := range 24 {
		demand = append(demand, models.Demand{Hour: h, Predicted: rng.IntN(400)})
	}
	return roster, demand, models.TierPolicy{HighPct: 20, MiddlePct: 30}
}

func assertInvariants(t *testing.T, cfg scheduler.Config, roster []models.RosterEntry, plan *models.Plan) {
	t.Helper()
	initial := make(map[int]int, len(roster))
	for _, e := range roster {
		initial[e.Code] = e.TotalAssigned
	}

	perWorker := make(map[int]int)
	booked := make(map[[2]int]bool)
	finalTotal := make(map[int]int)
	for _, a := range plan.Assignments {
		key := [2]int{a.WorkerCode, a.Hour}
		assert.False(t, booked[key], "worker %d double-booked at hour %d", a.WorkerCode, a.Hour)
		booked[key] = true
		perWorker[a.WorkerCode]++

		if prev, ok := finalTotal[a.WorkerCode]; ok {
			assert.Equal(t, prev, a.WorkerTotal, "worker %d reports two totals", a.WorkerCode)
		}
		finalTotal[a.WorkerCode] = a.WorkerTotal

		if a.Fixed {
			assert.Equal(t, models.Level3, a.WorkerTier, "fixed slot at hour %d", a.Hour)
		}
	}
	for code, n := range perWorker {
		assert.LessOrEqual(t, n, cfg.DayCap, "worker %d daily count", code)
		assert.Equal(t, initial[code]+n, finalTotal[code], "worker %d total", code)
		assert.LessOrEqual(t, finalTotal[code], cfg.TotalCap, "worker %d total cap", code)
	}
	assert.Equal(t, plan.Requested, len(plan.Assignments)+len(plan.Unmet))
}

func TestRun_InvariantsHoldAcrossRandomDays(t *testing.T) {
	for _, augment := range []bool{false, true} {
		for seed := uint64(1); seed <= 25; seed++ {
			t.Run(fmt.Sprintf("augment=%t/seed=%d", augment, seed), func(t *testing.T) {
				cfg := scheduler.DefaultConfig()
				cfg.Augment = augment
				roster, demand, policy := randomInput(seed)
				plan := run(t, cfg, roster, demand, policy)
				assertInvariants(t, cfg, roster, plan)
			})
		}
	}
}

func TestRun_Deterministic(t *testing.T) {
	roster, demand, policy := randomInput(42)
	first := run(t, scheduler.DefaultConfig(), roster, demand, policy)
	for range 5 {
		again := run(t, scheduler.DefaultConfig(), roster, demand, policy)
		assert.Equal(t, first, again)
	}
}

func TestRun_AugmentNeverLowersCoverage(t *testing.T) {
	for seed := uint64(100); seed < 120; seed++ {
		roster, demand, policy := randomInput(seed)
		greedy := run(t, scheduler.DefaultConfig(), roster, demand, policy)

		cfg := scheduler.DefaultConfig()
		cfg.Augment = true
		augmented := run(t, cfg, roster, demand, policy)

		assert.GreaterOrEqual(t, len(augmented.Assignments), len(greedy.Assignments), "seed %d", seed)
	}
}

func TestScheduler_ReusableAcrossRuns(t *testing.T) {
	s := scheduler.New(scheduler.DefaultConfig(), nil)
	roster := []models.RosterEntry{manager(1, 0, 6)}
	in := scheduler.Input{
		Roster:    roster,
		Demand:    []models.Demand{{Hour: 7, Predicted: 10}},
		Seniority: seniority(t, roster),
	}

	first, err := s.Run(in)
	require.NoError(t, err)
	second, err := s.Run(in)
	require.NoError(t, err)

	assert.Equal(t, first, second, "no state carries over between runs")
	assert.Equal(t, 1, second.Assignments[0].WorkerTotal)
}

func TestRun_ReportsPoolSizes(t *testing.T) {
	var roster []models.RosterEntry
	for code := 1; code <= 10; code++ {
		roster = append(roster, manager(code, 0, 6))
	}
	roster = append(roster, manager(11, 0, 0, 18))

	plan := run(t, scheduler.DefaultConfig(), roster, []models.Demand{{Hour: 8, Predicted: 50}}, models.TierPolicy{HighPct: 20, MiddlePct: 30})

	assert.Equal(t, map[models.TimeWindow]models.PoolSize{
		models.Dawn:      {Level3: 0, Level2: 0, Level1: 1},
		models.Morning:   {Level3: 2, Level2: 3, Level1: 5},
		models.Afternoon: {},
		models.Evening:   {Level3: 0, Level2: 0, Level1: 1},
	}, plan.Pools)
}

func TestRun_RankedWorkerOutsidePreferredWindowIsSkipped(t *testing.T) {
	var buf bytes.Buffer
	log := logger.FromZerolog(zerolog.New(&buf).Level(zerolog.WarnLevel))
	roster := []models.RosterEntry{manager(1, 0, 0), manager(2, 0, 6)}

	plan, err := scheduler.New(scheduler.DefaultConfig(), log).Run(scheduler.Input{
		Roster: roster,
		Demand: []models.Demand{{Hour: 7, Predicted: 40}, {Hour: 8, Predicted: 40}},
		Policy: models.TierPolicy{HighPct: 50},
		Seniority: map[models.TimeWindow][]int{
			models.Morning: {1, 2},
		},
	})
	require.NoError(t, err)

	for _, a := range plan.Assignments {
		assert.Equal(t, 2, a.WorkerCode, "worker 1 only prefers DAWN")
	}
	assert.Len(t, plan.Assignments, 2)
	assert.Equal(t, models.PoolSize{Level3: 1}, plan.Pools[models.Morning])
	assert.Contains(t, buf.String(), "ranked worker 1 does not prefer this window")
}

func TestRun_WarnsOnEmptyTierPolicy(t *testing.T) {
	var buf bytes.Buffer
	log := logger.FromZerolog(zerolog.New(&buf).Level(zerolog.WarnLevel))
	roster := []models.RosterEntry{manager(1, 0, 6)}
	in := scheduler.Input{
		Roster:    roster,
		Demand:    []models.Demand{{Hour: 7, Predicted: 40}},
		Seniority: seniority(t, roster),
	}

	_, err := scheduler.New(scheduler.DefaultConfig(), log).Run(in)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "tier policy is 0%/0%")

	buf.Reset()
	in.Policy = models.TierPolicy{HighPct: 20}
	_, err = scheduler.New(scheduler.DefaultConfig(), log).Run(in)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestRun_ZeroFixedRatioReservesNothing(t *testing.T) {
	var roster []models.RosterEntry
	for code := 1; code <= 10; code++ {
		roster = append(roster, manager(code, 0, 6))
	}
	demand := []models.Demand{
		{Hour: 2, Predicted: 20},
		{Hour: 8, Predicted: 260},
		{Hour: 14, Predicted: 20},
	}
	cfg := scheduler.DefaultConfig()
	cfg.FixedRatioPerHighPct = 0

	plan := run(t, cfg, roster, demand, models.TierPolicy{HighPct: 20, MiddlePct: 30})

	for _, a := range plan.Assignments {
		assert.False(t, a.Fixed, "hour %d", a.Hour)
	}
	for _, u := range plan.Unmet {
		assert.False(t, u.Fixed, "hour %d", u.Hour)
	}
}
