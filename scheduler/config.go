package scheduler

import (
	"fmt"

	schederrors "shift-scheduler/errors"
	"shift-scheduler/models"
)

const (
	// DefaultThroughputPerWorkerHour is the average number of cards one worker clears per hour.
	DefaultThroughputPerWorkerHour = 50.0
	// DefaultDayCap is the maximum number of slots a worker takes in one run.
	DefaultDayCap = 3
	// DefaultTotalCap is the cumulative slot limit per worker.
	DefaultTotalCap = 10
	// DefaultFixedRatioPerHighPct converts the high-tier percentage into the share of
	// a LEVEL3 hour's slots reserved for LEVEL3 workers: ratio = highPct * 0.02.
	DefaultFixedRatioPerHighPct = 0.02
	// DefaultRole is the role the seniority ranking is filtered by.
	DefaultRole = "MANAGER"
)

// Config holds the tunables of a scheduling run.
type Config struct {
	ThroughputPerWorkerHour float64 `json:"throughput_per_worker_hour"`
	DayCap                  int     `json:"day_cap"`
	TotalCap                int     `json:"total_cap"`
	// FixedRatioPerHighPct of 0 reserves no fixed slots. SetDefaults treats 0 as
	// unset, so build on DefaultConfig to keep an explicit 0.
	FixedRatioPerHighPct float64 `json:"fixed_ratio_per_high_pct"`
	// Augment lets a slot with no free candidate displace an occupied worker
	// when that worker's slot can be re-homed. Off by default.
	Augment bool   `json:"augment"`
	Role    string `json:"role"`

	Windows models.Partition `json:"-"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	var c Config
	c.SetDefaults()
	return c
}

// SetDefaults fills zero-valued fields.
func (c *Config) SetDefaults() {
	if c.ThroughputPerWorkerHour == 0 {
		c.ThroughputPerWorkerHour = DefaultThroughputPerWorkerHour
	}
	if c.DayCap == 0 {
		c.DayCap = DefaultDayCap
	}
	if c.TotalCap == 0 {
		c.TotalCap = DefaultTotalCap
	}
	if c.FixedRatioPerHighPct == 0 {
		c.FixedRatioPerHighPct = DefaultFixedRatioPerHighPct
	}
	if c.Role == "" {
		c.Role = DefaultRole
	}
	if c.Windows == (models.Partition{}) {
		c.Windows = models.DefaultPartition
	}
}

// Validate checks the configuration before a run.
func (c Config) Validate() error {
	if c.ThroughputPerWorkerHour <= 0 {
		return fmt.Errorf("%w: throughput_per_worker_hour must be positive", schederrors.ErrInvalidConfig)
	}
	if c.DayCap <= 0 || c.TotalCap <= 0 {
		return fmt.Errorf("%w: day_cap and total_cap must be positive", schederrors.ErrInvalidConfig)
	}
	if c.FixedRatioPerHighPct < 0 {
		return fmt.Errorf("%w: fixed_ratio_per_high_pct must not be negative", schederrors.ErrInvalidConfig)
	}
	return c.Windows.Validate()
}

// FixedRatio is the share of a LEVEL3 hour's slots flagged fixed-tier.
func (c Config) FixedRatio(highPct int) float64 {
	return float64(highPct) * c.FixedRatioPerHighPct
}
