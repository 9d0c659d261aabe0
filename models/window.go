package models

import (
	"fmt"

	schederrors "shift-scheduler/errors"
)

// TimeWindow is one of the four hour-of-day buckets workers declare preferences for.
type TimeWindow int

const (
	Dawn TimeWindow = iota
	Morning
	Afternoon
	Evening
)

const windowCount = 4

// Windows lists every TimeWindow in processing order.
var Windows = [windowCount]TimeWindow{Dawn, Morning, Afternoon, Evening}

var windowNames = [windowCount]string{"DAWN", "MORNING", "AFTERNOON", "EVENING"}

func (w TimeWindow) String() string {
	if w < 0 || int(w) >= windowCount {
		return fmt.Sprintf("TimeWindow(%d)", int(w))
	}
	return windowNames[w]
}

// MarshalText encodes the window by name.
func (w TimeWindow) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// Bounds is a half-open hour range [Start, End).
type Bounds struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Contains reports whether hour falls inside b.
func (b Bounds) Contains(hour int) bool {
	return b.Start <= hour && hour < b.End
}

// Partition maps every TimeWindow to its hour bounds.
type Partition [windowCount]Bounds

// DefaultPartition splits the day into four six-hour windows.
var DefaultPartition = Partition{
	Dawn:      {Start: 0, End: 6},
	Morning:   {Start: 6, End: 12},
	Afternoon: {Start: 12, End: 18},
	Evening:   {Start: 18, End: 24},
}

// Validate checks that every hour of the day belongs to exactly one window.
func (p Partition) Validate() error {
	var owners [24]int
	for _, w := range Windows {
		b := p[w]
		if b.Start < 0 || b.End > 24 || b.Start >= b.End {
			return schederrors.Invalid("window "+w.String(), b, schederrors.ErrInvalidPartition)
		}
		for h := b.Start; h < b.End; h++ {
			owners[h]++
		}
	}
	for h, n := range owners {
		if n != 1 {
			return schederrors.Invalid("hour coverage", h, schederrors.ErrInvalidPartition)
		}
	}
	return nil
}

// Bounds returns the hour range of w.
func (p Partition) Bounds(w TimeWindow) Bounds {
	return p[w]
}

// WindowForHour resolves the window that owns hour.
func (p Partition) WindowForHour(hour int) (TimeWindow, error) {
	if hour < 0 || hour > 23 {
		return 0, schederrors.Invalid("hour", hour, schederrors.ErrHourOutOfRange)
	}
	for _, w := range Windows {
		if p[w].Contains(hour) {
			return w, nil
		}
	}
	return 0, fmt.Errorf("%w %d", schederrors.ErrNoWindow, hour)
}

// WindowByStart finds the window starting exactly at hour.
func (p Partition) WindowByStart(hour int) (TimeWindow, bool) {
	for _, w := range Windows {
		if p[w].Start == hour {
			return w, true
		}
	}
	return 0, false
}
