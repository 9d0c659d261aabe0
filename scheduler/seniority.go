package scheduler

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	schederrors "shift-scheduler/errors"
	"shift-scheduler/models"
)

// SeniorityRanker returns the codes of workers with role who prefer the window
// starting at startHour, earliest join first.
type SeniorityRanker interface {
	RankBySeniority(ctx context.Context, startHour int, role string) ([]int, error)
}

// RosterRanker ranks an in-memory roster.
type RosterRanker struct {
	Roster  []models.RosterEntry
	Windows models.Partition
}

// RankBySeniority implements SeniorityRanker. An empty role matches everyone.
func (r RosterRanker) RankBySeniority(ctx context.Context, startHour int, role string) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	win, ok := r.Windows.WindowByStart(startHour)
	if !ok {
		return nil, schederrors.Invalid("window start hour", startHour, schederrors.ErrNoWindow)
	}
	bounds := r.Windows.Bounds(win)

	var matched []models.RosterEntry
	for _, e := range r.Roster {
		if role != "" && !strings.EqualFold(e.Role, role) {
			continue
		}
		if slices.ContainsFunc(e.PreferredStartHours, bounds.Contains) {
			matched = append(matched, e)
		}
	}
	slices.SortStableFunc(matched, func(a, b models.RosterEntry) int {
		return cmp.Or(a.JoinDate.Compare(b.JoinDate), cmp.Compare(a.Code, b.Code))
	})

	codes := make([]int, len(matched))
	for i, e := range matched {
		codes[i] = e.Code
	}
	return codes, nil
}

// FetchSeniority asks ranker for every window's ranking ahead of a run.
func FetchSeniority(ctx context.Context, ranker SeniorityRanker, p models.Partition, role string) (map[models.TimeWindow][]int, error) {
	out := make(map[models.TimeWindow][]int, len(models.Windows))
	for _, win := range models.Windows {
		codes, err := ranker.RankBySeniority(ctx, p.Bounds(win).Start, role)
		if err != nil {
			return nil, fmt.Errorf("rank %s: %w", win, err)
		}
		out[win] = codes
	}
	return out, nil
}
