package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"shift-scheduler/config"
	"shift-scheduler/formatter"
	"shift-scheduler/logger"
	"shift-scheduler/metrics"
	"shift-scheduler/models"
	"shift-scheduler/notify"
	"shift-scheduler/parser"
	"shift-scheduler/scheduler"
	"shift-scheduler/store"
)

var validFormats = map[string]bool{"text": true, "json": true, "csv": true, "yaml": true}

type runOptions struct {
	root        *rootOptions
	demandPath  string
	rosterPath  string
	day         string
	format      string
	augment     bool
	persist     bool
	notify      bool
	metricsAddr string
	pushURL     string
	wait        bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	o := &runOptions{root: root}
	c := &cobra.Command{
		Use:   "run",
		Short: "Compute the day's assignments",
		Long: `Compute the day's assignments.

Inputs come from CSV files when --demand and --roster are both given, otherwise
from the SQLite store filled by "import".`,
		Args: cobra.NoArgs,
		RunE: o.run,
	}
	f := c.Flags()
	f.StringVar(&o.demandPath, "demand", "", "demand CSV (hour, predicted)")
	f.StringVar(&o.rosterPath, "roster", "", "roster CSV (code, total_assigned, join_date, role, preferred_hours)")
	f.StringVar(&o.day, "day", time.Now().Format(time.DateOnly), "day the run is for (YYYY-MM-DD)")
	f.StringVar(&o.format, "format", "text", "Output format: text|json|csv|yaml")
	f.BoolVar(&o.augment, "augment", false, "let a slot displace an occupied worker whose slot can be re-homed")
	f.BoolVar(&o.persist, "persist", false, "store accepted assignments and updated worker totals")
	f.BoolVar(&o.notify, "notify", false, "publish each worker's assignments over MQTT")
	f.StringVar(&o.metricsAddr, "metrics-addr", "", "Address to expose Prometheus metrics (e.g., :9090)")
	f.StringVar(&o.pushURL, "push-url", "", "Pushgateway URL to push metrics to (e.g., http://localhost:9091)")
	f.BoolVar(&o.wait, "wait", false, "Keep process running after completion to allow for metric scraping")
	return c
}

// applyFlags lets explicitly set flags override the loaded configuration.
func (o *runOptions) applyFlags(c *cobra.Command, cfg *config.Config) {
	f := c.Flags()
	if f.Changed("augment") {
		cfg.Scheduler.Augment = o.augment
	}
	if f.Changed("notify") {
		cfg.Notify.Enabled = o.notify
	}
	if f.Changed("metrics-addr") {
		cfg.Metrics.Addr = o.metricsAddr
	}
	if f.Changed("push-url") {
		cfg.Metrics.PushURL = o.pushURL
	}
	if f.Changed("wait") {
		cfg.Metrics.Wait = o.wait
	}
}

func (o *runOptions) run(c *cobra.Command, _ []string) error {
	if !validFormats[o.format] {
		return fmt.Errorf("format must be one of: text, json, csv, yaml (got: %s)", o.format)
	}
	if _, err := time.Parse(time.DateOnly, o.day); err != nil {
		return fmt.Errorf("invalid --day: %w", err)
	}
	if (o.demandPath == "") != (o.rosterPath == "") {
		return errors.New("--demand and --roster must be given together")
	}

	ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(o.root.cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	o.applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.NewWithLevel("scheduler", cfg.Logging.Level)
	if cfg.Metrics.Addr != "" {
		serveMetrics(cfg.Metrics.Addr, log)
	}

	var st *store.SQLiteStore
	if o.persist || o.demandPath == "" {
		st, err = store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer func() {
			if err := st.Close(); err != nil {
				log.Errorf("store close: %v", err)
			}
		}()
	}

	sc := cfg.SchedulerConfig()
	var in scheduler.Input
	if o.demandPath != "" {
		in, err = o.inputFromCSV(ctx, cfg, st)
	} else {
		in, err = o.inputFromStore(ctx, cfg, st, log)
	}
	if err != nil {
		return err
	}

	start := time.Now()
	plan, err := scheduler.New(sc, log).Run(in)
	if err != nil {
		metrics.RecordRunFailure()
		return err
	}
	metrics.RecordPlan(plan, len(in.Roster), time.Since(start))

	if err := writePlan(c.OutOrStdout(), o.format, plan, sc.Windows); err != nil {
		return err
	}

	runID := uuid.NewString()
	if o.persist {
		if err := st.SaveAssignments(ctx, runID, o.day, plan.Assignments); err != nil {
			return fmt.Errorf("persist assignments: %w", err)
		}
		log.Infof("run %s: stored %d assignments for %s", runID, len(plan.Assignments), o.day)
	}

	if cfg.Notify.Enabled {
		n, err := notify.NewMQTTNotifier(cfg.Notify, log)
		if err != nil {
			return fmt.Errorf("mqtt notifier: %w", err)
		}
		defer n.Close()
		if err := n.Publish(ctx, runID, o.day, plan); err != nil {
			return fmt.Errorf("notify: %w", err)
		}
	}

	return finishMetrics(ctx, cfg.Metrics, log)
}

func (o *runOptions) inputFromCSV(ctx context.Context, cfg *config.Config, st *store.SQLiteStore) (scheduler.Input, error) {
	demand, err := parseFile(o.demandPath, "demand", parser.ParseDemand)
	if err != nil {
		return scheduler.Input{}, err
	}
	roster, err := parseFile(o.rosterPath, "roster", parser.ParseRoster)
	if err != nil {
		return scheduler.Input{}, err
	}

	sc := cfg.SchedulerConfig()
	if st != nil {
		// persisted totals need the workers on record
		if err := st.SaveRoster(ctx, roster, sc.Windows); err != nil {
			return scheduler.Input{}, fmt.Errorf("store roster: %w", err)
		}
		if err := st.ReplaceDemand(ctx, o.day, demand); err != nil {
			return scheduler.Input{}, fmt.Errorf("store demand: %w", err)
		}
	}

	ranker := scheduler.RosterRanker{Roster: roster, Windows: sc.Windows}
	seniority, err := scheduler.FetchSeniority(ctx, ranker, sc.Windows, sc.Role)
	if err != nil {
		return scheduler.Input{}, err
	}
	return scheduler.Input{Roster: roster, Demand: demand, Policy: cfg.Policy, Seniority: seniority}, nil
}

func (o *runOptions) inputFromStore(ctx context.Context, cfg *config.Config, st *store.SQLiteStore, log logger.Logger) (scheduler.Input, error) {
	roster, err := st.LoadRoster(ctx)
	if err != nil {
		return scheduler.Input{}, fmt.Errorf("load roster: %w", err)
	}
	demand, err := st.LoadDemand(ctx, o.day)
	if err != nil {
		return scheduler.Input{}, fmt.Errorf("load demand: %w", err)
	}
	if len(demand) == 0 {
		log.Warnf("no demand stored for %s", o.day)
	}

	policy, err := st.LoadPolicy(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		policy = cfg.Policy
	case err != nil:
		return scheduler.Input{}, fmt.Errorf("load policy: %w", err)
	}

	sc := cfg.SchedulerConfig()
	seniority, err := scheduler.FetchSeniority(ctx, st, sc.Windows, sc.Role)
	if err != nil {
		return scheduler.Input{}, err
	}
	return scheduler.Input{Roster: roster, Demand: demand, Policy: policy, Seniority: seniority}, nil
}

func parseFile[T any](path, input string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", input, err)
	}
	defer file.Close()

	start := time.Now()
	data, err := parse(file)
	metrics.RecordParse(input, len(data), time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", input, err)
	}
	return data, nil
}

func writePlan(w io.Writer, format string, plan *models.Plan, p models.Partition) error {
	var out string
	switch format {
	case "json":
		out = formatter.FormatJSON(plan, p)
	case "csv":
		out = formatter.FormatCSV(plan, p)
	case "yaml":
		out = formatter.FormatYAML(plan, p)
	default: // "text"
		out = formatter.FormatText(plan, p)
	}
	_, err := io.WriteString(w, out)
	return err
}
