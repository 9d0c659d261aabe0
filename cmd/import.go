package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"shift-scheduler/config"
	"shift-scheduler/logger"
	"shift-scheduler/parser"
	"shift-scheduler/store"
)

type importOptions struct {
	root       *rootOptions
	demandPath string
	rosterPath string
	day        string
	policy     bool
}

func newImportCmd(root *rootOptions) *cobra.Command {
	o := &importOptions{root: root}
	c := &cobra.Command{
		Use:   "import",
		Short: "Load roster and demand CSV files into the SQLite store",
		Args:  cobra.NoArgs,
		RunE:  o.run,
	}
	f := c.Flags()
	f.StringVar(&o.demandPath, "demand", "", "demand CSV (hour, predicted)")
	f.StringVar(&o.rosterPath, "roster", "", "roster CSV (code, total_assigned, join_date, role, preferred_hours)")
	f.StringVar(&o.day, "day", time.Now().Format(time.DateOnly), "day the demand forecast is for (YYYY-MM-DD)")
	f.BoolVar(&o.policy, "policy", false, "store the configured tier policy")
	return c
}

func (o *importOptions) run(c *cobra.Command, _ []string) error {
	if o.demandPath == "" && o.rosterPath == "" && !o.policy {
		return errors.New("nothing to import: pass --demand, --roster and/or --policy")
	}
	if _, err := time.Parse(time.DateOnly, o.day); err != nil {
		return fmt.Errorf("invalid --day: %w", err)
	}

	cfg, err := config.Load(o.root.cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.NewWithLevel("import", cfg.Logging.Level)
	ctx := c.Context()

	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Errorf("store close: %v", err)
		}
	}()

	if o.rosterPath != "" {
		roster, err := parseFile(o.rosterPath, "roster", parser.ParseRoster)
		if err != nil {
			return err
		}
		if err := st.SaveRoster(ctx, roster, cfg.SchedulerConfig().Windows); err != nil {
			return fmt.Errorf("store roster: %w", err)
		}
		log.Infof("imported %d workers", len(roster))
	}
	if o.demandPath != "" {
		demand, err := parseFile(o.demandPath, "demand", parser.ParseDemand)
		if err != nil {
			return err
		}
		if err := st.ReplaceDemand(ctx, o.day, demand); err != nil {
			return fmt.Errorf("store demand: %w", err)
		}
		log.Infof("imported %d demand hours for %s", len(demand), o.day)
	}
	if o.policy {
		if err := st.SavePolicy(ctx, cfg.Policy); err != nil {
			return fmt.Errorf("store policy: %w", err)
		}
		log.Infof("stored tier policy high=%d%% middle=%d%%", cfg.Policy.HighPct, cfg.Policy.MiddlePct)
	}
	return nil
}
