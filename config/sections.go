package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"shift-scheduler/models"
)

// WindowsConfig names the hour bounds of each time window.
type WindowsConfig struct {
	Dawn      models.Bounds `json:"dawn"`
	Morning   models.Bounds `json:"morning"`
	Afternoon models.Bounds `json:"afternoon"`
	Evening   models.Bounds `json:"evening"`
}

// SetDefaults fills the standard six-hour windows when none are configured.
func (c *WindowsConfig) SetDefaults() {
	if *c == (WindowsConfig{}) {
		d := models.DefaultPartition
		c.Dawn, c.Morning, c.Afternoon, c.Evening = d[models.Dawn], d[models.Morning], d[models.Afternoon], d[models.Evening]
	}
}

// Partition converts the named windows into a models.Partition.
func (c WindowsConfig) Partition() models.Partition {
	var p models.Partition
	p[models.Dawn] = c.Dawn
	p[models.Morning] = c.Morning
	p[models.Afternoon] = c.Afternoon
	p[models.Evening] = c.Evening
	return p
}

// LoggingConfig selects the log verbosity.
type LoggingConfig struct {
	// Level is a zerolog level name: trace, debug, info, warn, error.
	Level string `json:"level"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate checks the level is known to zerolog.
func (c LoggingConfig) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Level)); err != nil {
		return fmt.Errorf("unknown level %s", c.Level)
	}
	return nil
}

// MetricsConfig controls how run metrics leave the process.
type MetricsConfig struct {
	// Addr exposes /metrics when set, e.g. ":9090".
	Addr string `json:"addr"`
	// PushURL pushes to a Prometheus Pushgateway after the run when set.
	PushURL string `json:"push_url"`
	Job     string `json:"job"`
	// Wait keeps the process alive after the run for scraping.
	Wait bool `json:"wait"`
}

// SetDefaults applies sane defaults.
func (c *MetricsConfig) SetDefaults() {
	if c.Job == "" {
		c.Job = "shift_scheduler"
	}
}

// Validate checks mandatory fields.
func (c MetricsConfig) Validate() error {
	if c.PushURL == "" {
		return nil
	}
	if !strings.HasPrefix(c.PushURL, "http://") && !strings.HasPrefix(c.PushURL, "https://") {
		return fmt.Errorf("push_url must be an http(s) URL, got %s", c.PushURL)
	}
	if c.Job == "" {
		return fmt.Errorf("job is required with push_url")
	}
	return nil
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *StoreConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "scheduler.db"
	}
}

// Validate checks mandatory fields.
func (c StoreConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// NotifyConfig defines the MQTT connection used to publish assignments.
type NotifyConfig struct {
	Enabled     bool   `json:"enabled"`
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	TopicPrefix string `json:"topic_prefix"`
	QoS         byte   `json:"qos"`
	Retain      bool   `json:"retain"`
	TimeoutMS   int    `json:"timeout_ms"`
}

// SetDefaults applies sane defaults.
func (c *NotifyConfig) SetDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = "shifts/assignments"
	}
	if c.TimeoutMS == 0 {
		c.TimeoutMS = 5000
	}
}

// Validate checks mandatory fields when publishing is enabled.
func (c NotifyConfig) Validate() error {
	if c.QoS > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2, got %d", c.QoS)
	}
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return fmt.Errorf("broker is required")
	}
	if c.TopicPrefix == "" {
		return fmt.Errorf("topic_prefix is required")
	}
	if c.TimeoutMS <= 0 {
		return fmt.Errorf("timeout_ms must be positive")
	}
	return nil
}
