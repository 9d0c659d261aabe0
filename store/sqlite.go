// Package store persists scheduler inputs and accepted assignments in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	_ "modernc.org/sqlite"

	"shift-scheduler/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// joinDateLayout keeps join dates lexically ordered in the database.
const joinDateLayout = "2006-01-02T15:04:05Z"

const schema = `
CREATE TABLE IF NOT EXISTS workers (
    code INTEGER PRIMARY KEY,
    total_assigned INTEGER NOT NULL DEFAULT 0,
    join_date TEXT NOT NULL,
    role TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS worker_windows (
    code INTEGER NOT NULL REFERENCES workers(code) ON DELETE CASCADE,
    start_hour INTEGER NOT NULL,
    PRIMARY KEY (code, start_hour)
);
CREATE TABLE IF NOT EXISTS demand (
    day TEXT NOT NULL,
    hour INTEGER NOT NULL,
    predicted INTEGER NOT NULL,
    PRIMARY KEY (day, hour)
);
CREATE TABLE IF NOT EXISTS tier_policy (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    high_pct INTEGER NOT NULL,
    middle_pct INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS assignments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    day TEXT NOT NULL,
    hour INTEGER NOT NULL,
    worker_code INTEGER NOT NULL,
    worker_total INTEGER NOT NULL,
    time_window INTEGER NOT NULL,
    slot_tier TEXT NOT NULL,
    fixed INTEGER NOT NULL,
    worker_tier TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS assignments_day ON assignments (day);`

// SQLiteStore keeps the roster, demand forecasts, tier policy and accepted
// assignments in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// SaveRoster upserts entries. Preferred hours are normalized to the start hour
// of their window in p, and replace whatever the worker preferred before.
func (s *SQLiteStore) SaveRoster(ctx context.Context, entries []models.RosterEntry, p models.Partition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range entries {
		starts := make([]int, 0, len(e.PreferredStartHours))
		for _, h := range e.PreferredStartHours {
			win, err := p.WindowForHour(h)
			if err != nil {
				return fmt.Errorf("worker %d: %w", e.Code, err)
			}
			starts = append(starts, p.Bounds(win).Start)
		}
		slices.Sort(starts)
		starts = slices.Compact(starts)

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO workers (code, total_assigned, join_date, role) VALUES (?, ?, ?, ?)
             ON CONFLICT(code) DO UPDATE SET total_assigned = excluded.total_assigned,
                 join_date = excluded.join_date, role = excluded.role`,
			e.Code, e.TotalAssigned, e.JoinDate.UTC().Format(joinDateLayout), e.Role); err != nil {
			return fmt.Errorf("upsert worker %d: %w", e.Code, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM worker_windows WHERE code = ?`, e.Code); err != nil {
			return err
		}
		for _, start := range starts {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO worker_windows (code, start_hour) VALUES (?, ?)`, e.Code, start); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// LoadRoster returns every worker ordered by code.
func (s *SQLiteStore) LoadRoster(ctx context.Context) ([]models.RosterEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code, total_assigned, join_date, role FROM workers ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var res []models.RosterEntry
	index := make(map[int]int)
	for rows.Next() {
		var (
			e    models.RosterEntry
			date string
		)
		if err := rows.Scan(&e.Code, &e.TotalAssigned, &date, &e.Role); err != nil {
			return nil, err
		}
		e.JoinDate, err = time.Parse(joinDateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("worker %d join date: %w", e.Code, err)
		}
		e.PreferredStartHours = []int{}
		index[e.Code] = len(res)
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	wrows, err := s.db.QueryContext(ctx, `SELECT code, start_hour FROM worker_windows ORDER BY code, start_hour`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = wrows.Close() }()
	for wrows.Next() {
		var code, start int
		if err := wrows.Scan(&code, &start); err != nil {
			return nil, err
		}
		if i, ok := index[code]; ok {
			res[i].PreferredStartHours = append(res[i].PreferredStartHours, start)
		}
	}
	return res, wrows.Err()
}

// RankBySeniority returns the codes of workers with role who prefer the window
// starting at startHour, earliest join first. An empty role matches everyone.
func (s *SQLiteStore) RankBySeniority(ctx context.Context, startHour int, role string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT w.code FROM workers w
         JOIN worker_windows ww ON ww.code = w.code
         WHERE ww.start_hour = ? AND (? = '' OR w.role = ? COLLATE NOCASE)
         ORDER BY w.join_date, w.code`,
		startHour, role, role)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	codes := []int{}
	for rows.Next() {
		var code int
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// ReplaceDemand stores the forecast for day, dropping any previous one.
func (s *SQLiteStore) ReplaceDemand(ctx context.Context, day string, demand []models.Demand) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM demand WHERE day = ?`, day); err != nil {
		return err
	}
	for _, d := range demand {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO demand (day, hour, predicted) VALUES (?, ?, ?)`, day, d.Hour, d.Predicted); err != nil {
			return fmt.Errorf("insert demand hour %d: %w", d.Hour, err)
		}
	}
	return tx.Commit()
}

// LoadDemand returns day's forecast by ascending hour.
func (s *SQLiteStore) LoadDemand(ctx context.Context, day string) ([]models.Demand, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT hour, predicted FROM demand WHERE day = ? ORDER BY hour`, day)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var res []models.Demand
	for rows.Next() {
		var d models.Demand
		if err := rows.Scan(&d.Hour, &d.Predicted); err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

// SavePolicy replaces the stored tier policy.
func (s *SQLiteStore) SavePolicy(ctx context.Context, p models.TierPolicy) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tier_policy (id, high_pct, middle_pct) VALUES (1, ?, ?)
         ON CONFLICT(id) DO UPDATE SET high_pct = excluded.high_pct, middle_pct = excluded.middle_pct`,
		p.HighPct, p.MiddlePct)
	return err
}

// LoadPolicy returns the stored tier policy or ErrNotFound.
func (s *SQLiteStore) LoadPolicy(ctx context.Context) (models.TierPolicy, error) {
	var p models.TierPolicy
	err := s.db.QueryRowContext(ctx, `SELECT high_pct, middle_pct FROM tier_policy WHERE id = 1`).
		Scan(&p.HighPct, &p.MiddlePct)
	if errors.Is(err, sql.ErrNoRows) {
		return p, fmt.Errorf("tier policy: %w", ErrNotFound)
	}
	return p, err
}

// SaveAssignments records an accepted plan and moves each assigned worker's
// stored total to its post-run value, in one transaction.
func (s *SQLiteStore) SaveAssignments(ctx context.Context, runID, day string, assignments []models.Assignment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	created := s.now().Unix()
	totals := make(map[int]int)
	for _, a := range assignments {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO assignments (run_id, day, hour, worker_code, worker_total, time_window, slot_tier, fixed, worker_tier, created_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, day, a.Hour, a.WorkerCode, a.WorkerTotal, int(a.Window), a.SlotTier.String(), a.Fixed, a.WorkerTier.String(), created); err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
		totals[a.WorkerCode] = max(totals[a.WorkerCode], a.WorkerTotal)
	}

	for code, total := range totals {
		res, err := tx.ExecContext(ctx, `UPDATE workers SET total_assigned = ? WHERE code = ?`, total, code)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("worker %d: %w", code, ErrNotFound)
		}
	}
	return tx.Commit()
}

// ListAssignments returns the assignments recorded for day, by hour then worker.
func (s *SQLiteStore) ListAssignments(ctx context.Context, day string) ([]models.Assignment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT hour, worker_code, worker_total, time_window, slot_tier, fixed, worker_tier
         FROM assignments WHERE day = ? ORDER BY hour, worker_code`, day)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var res []models.Assignment
	for rows.Next() {
		var a models.Assignment
		var window int
		var slotTier, workerTier string
		if err := rows.Scan(&a.Hour, &a.WorkerCode, &a.WorkerTotal, &window, &slotTier, &a.Fixed, &workerTier); err != nil {
			return nil, err
		}
		a.Window = models.TimeWindow(window)
		if a.SlotTier, err = models.ParseTier(slotTier); err != nil {
			return nil, fmt.Errorf("assignment at hour %d: %w", a.Hour, err)
		}
		if a.WorkerTier, err = models.ParseTier(workerTier); err != nil {
			return nil, fmt.Errorf("assignment at hour %d: %w", a.Hour, err)
		}
		res = append(res, a)
	}
	return res, rows.Err()
}
