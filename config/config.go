package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"shift-scheduler/models"
	"shift-scheduler/scheduler"
)

// EnvPrefix marks environment overrides. Nested keys are joined with "__",
// e.g. SCHED_SCHEDULER__DAY_CAP=4 or SCHED_NOTIFY__BROKER=tcp://mq:1883.
const EnvPrefix = "SCHED_"

type Config struct {
	Scheduler scheduler.Config  `json:"scheduler"`
	Windows   WindowsConfig     `json:"windows"`
	Policy    models.TierPolicy `json:"policy"`
	Logging   LoggingConfig     `json:"logging"`
	Metrics   MetricsConfig     `json:"metrics"`
	Store     StoreConfig       `json:"store"`
	Notify    NotifyConfig      `json:"notify"`
}

// Default returns a configuration with every section defaulted.
func Default() Config {
	var cfg Config
	cfg.SetDefaults()
	return cfg
}

// SetDefaults applies sane defaults to every section.
func (c *Config) SetDefaults() {
	c.Scheduler.SetDefaults()
	c.Windows.SetDefaults()
	c.Logging.SetDefaults()
	c.Metrics.SetDefaults()
	c.Store.SetDefaults()
	c.Notify.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.SchedulerConfig().Validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.Notify.Validate(); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

// SchedulerConfig returns the scheduler tunables with the configured windows.
func (c Config) SchedulerConfig() scheduler.Config {
	sc := c.Scheduler
	sc.Windows = c.Windows.Partition()
	return sc
}

// Load reads path (yaml or json) and applies SCHED_ environment overrides.
// An empty path yields defaults plus environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	// Keys absent from every source keep their defaults; explicit values,
	// zero included, are kept as given.
	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
