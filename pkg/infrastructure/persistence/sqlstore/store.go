// Package sqlstore persists planning runs to SQLite or Postgres as one JSON payload per table bucket.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"github.com/vsinha/meio/pkg/application/dto"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"

	defaultSQLitePath = "meio.db"

	// fixed width so planned_at sorts as text
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// Buckets of a stored run, in write order
var runBuckets = []string{"demand", "metrics", "allocations", "orders", "costs", "skips", "issues"}

// ErrRunNotFound is returned when a run id has no stored snapshot
var ErrRunNotFound = errors.New("run not found")

// RunInfo is the header row of a stored run
type RunInfo struct {
	RunID     uuid.UUID
	PlannedAt time.Time
	Settings  dto.RunSettings
}

// Store saves and restores planning results
type Store struct {
	db     *sql.DB
	driver string
	mu     sync.Mutex
}

// Open connects to the database and ensures the snapshot tables exist.
// An empty dsn means meio.db for sqlite; postgres requires a dsn.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case "", DriverSQLite:
		driver = DriverSQLite
		if dsn == "" {
			dsn = defaultSQLitePath
		}
		if dir := filepath.Dir(dsn); dir != "." && !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create dirs: %w", err)
			}
		}
	case DriverPostgres, "postgres":
		driver = DriverPostgres
		if dsn == "" {
			return nil, fmt.Errorf("postgres dsn required")
		}
	default:
		return nil, fmt.Errorf("unsupported store driver: %s (expected: sqlite or pgx)", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// a single connection keeps :memory: databases alive across calls
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.ensureTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureTables(ctx context.Context) error {
	payloadType := "BLOB"
	if s.driver == DriverPostgres {
		payloadType = "JSONB"
	}
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			planned_at TEXT NOT NULL,
			settings ` + payloadType + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_tables (
			run_id TEXT NOT NULL,
			bucket TEXT NOT NULL,
			payload ` + payloadType + ` NOT NULL,
			PRIMARY KEY (run_id, bucket)
		)`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure tables: %w", err)
		}
	}
	return nil
}

// SaveRun writes the run header and every table bucket in one transaction.
// Saving the same run id again replaces the stored snapshot.
func (s *Store) SaveRun(ctx context.Context, result *dto.PlanningResult) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := json.Marshal(result.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	runID := result.RunID.String()
	if _, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO runs(run_id,planned_at,settings) VALUES(?,?,?)
		 ON CONFLICT(run_id) DO UPDATE SET planned_at=excluded.planned_at, settings=excluded.settings`),
		runID, result.PlannedAt.UTC().Format(timeLayout), settings,
	); err != nil {
		return fmt.Errorf("upsert run %s: %w", runID, err)
	}

	for _, bucket := range runBuckets {
		var data []byte
		switch bucket {
		case "demand":
			data, err = json.Marshal(result.Demand)
		case "metrics":
			data, err = json.Marshal(result.Metrics)
		case "allocations":
			data, err = json.Marshal(result.Allocations)
		case "orders":
			data, err = json.Marshal(result.Orders)
		case "costs":
			data, err = json.Marshal(result.Costs)
		case "skips":
			data, err = json.Marshal(result.Skips)
		case "issues":
			data, err = json.Marshal(result.IssueMessages())
		}
		if err != nil {
			return fmt.Errorf("encode %s: %w", bucket, err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(
			`INSERT INTO run_tables(run_id,bucket,payload) VALUES(?,?,?)
			 ON CONFLICT(run_id,bucket) DO UPDATE SET payload=excluded.payload`),
			runID, bucket, data,
		); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", runID, err)
	}
	return nil
}

// LoadRun restores a stored run. Issues come back as plain errors carrying the stored message.
func (s *Store) LoadRun(ctx context.Context, runID uuid.UUID) (*dto.PlanningResult, error) {
	var (
		plannedAt string
		settings  []byte
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT planned_at, settings FROM runs WHERE run_id = ?`), runID.String()).
		Scan(&plannedAt, &settings)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("select run: %w", err)
	}

	result := &dto.PlanningResult{RunID: runID}
	if result.PlannedAt, err = time.Parse(timeLayout, plannedAt); err != nil {
		return nil, fmt.Errorf("decode planned_at: %w", err)
	}
	if err := json.Unmarshal(settings, &result.Settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT bucket, payload FROM run_tables WHERE run_id = ?`), runID.String())
	if err != nil {
		return nil, fmt.Errorf("select run tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var issues []string
	for rows.Next() {
		var (
			bucket  string
			payload []byte
		)
		if err := rows.Scan(&bucket, &payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var target any
		switch bucket {
		case "demand":
			target = &result.Demand
		case "metrics":
			target = &result.Metrics
		case "allocations":
			target = &result.Allocations
		case "orders":
			target = &result.Orders
		case "costs":
			target = &result.Costs
		case "skips":
			target = &result.Skips
		case "issues":
			target = &issues
		default:
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return nil, fmt.Errorf("decode %s: %w", bucket, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run tables: %w", err)
	}

	for _, msg := range issues {
		result.Issues = append(result.Issues, errors.New(msg))
	}
	return result, nil
}

// ListRuns returns every stored run header, most recent first
func (s *Store) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, planned_at, settings FROM runs ORDER BY planned_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []RunInfo
	for rows.Next() {
		var (
			id        string
			plannedAt string
			settings  []byte
			info      RunInfo
		)
		if err := rows.Scan(&id, &plannedAt, &settings); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if info.RunID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("decode run id %q: %w", id, err)
		}
		if info.PlannedAt, err = time.Parse(timeLayout, plannedAt); err != nil {
			return nil, fmt.Errorf("decode planned_at: %w", err)
		}
		if err := json.Unmarshal(settings, &info.Settings); err != nil {
			return nil, fmt.Errorf("decode settings: %w", err)
		}
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

// Driver returns the database/sql driver name in use
func (s *Store) Driver() string { return s.driver }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for postgres
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	return rebindDollar(query)
}

func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
