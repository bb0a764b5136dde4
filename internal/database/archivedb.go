package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/rpdarchive/internal/model"
)

// FileName is the database file created inside the database directory.
const FileName = "rpdarchive.db"

// ArchiveDB stores run history, the latest fetch of each detail page and
// per-run failures.
type ArchiveDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures ArchiveDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the database in dbDir. When CreateIfNotExists is
// false a missing database file is an error.
func Open(dbDir string, opts Options) (*ArchiveDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s: %w", dbPath, err)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a new file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	adb := &ArchiveDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := adb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return adb, nil
}

// Path returns the database file path.
func (adb *ArchiveDB) Path() string {
	return adb.dbPath
}

// Close closes the database connection.
func (adb *ArchiveDB) Close() error {
	return adb.db.Close()
}

func (adb *ArchiveDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mode TEXT NOT NULL,
		base_url TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		discovered INTEGER DEFAULT 0,
		with_series INTEGER DEFAULT 0,
		fetched INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0
	);

	-- pages keeps only the latest fetch of each detail id
	CREATE TABLE IF NOT EXISTS pages (
		p_id TEXT PRIMARY KEY,
		asset_name TEXT NOT NULL,
		url TEXT NOT NULL,
		status_code INTEGER,
		title TEXT,
		content_hash TEXT,
		fetched_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pages_asset ON pages(asset_name);

	CREATE TABLE IF NOT EXISTS failures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		p_id TEXT NOT NULL,
		asset_name TEXT,
		url TEXT,
		error TEXT,
		timestamp TEXT NOT NULL,
		FOREIGN KEY(run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_failures_run ON failures(run_id);
	`
	_, err := adb.db.ExecContext(context.Background(), schema)
	return err
}

// Run is one row of the run history.
type Run struct {
	ID         int64
	Mode       model.RunMode
	BaseURL    string
	StartedAt  time.Time
	FinishedAt time.Time // zero while the run is in progress or if it crashed
	Discovered int
	WithSeries int
	Fetched    int
	Failed     int
}

// StartRun inserts a new run and returns its id.
func (adb *ArchiveDB) StartRun(ctx context.Context, mode model.RunMode, baseURL string, startedAt time.Time) (int64, error) {
	result, err := adb.db.ExecContext(ctx,
		`INSERT INTO runs (mode, base_url, started_at) VALUES (?, ?, ?)`,
		string(mode), baseURL, formatTimestamp(startedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to start run: %w", err)
	}
	return result.LastInsertId()
}

// FinishRun stores the final counts of summary under summary.RunID.
func (adb *ArchiveDB) FinishRun(ctx context.Context, summary *model.RunSummary) error {
	query := `
	UPDATE runs SET
		finished_at = ?,
		discovered = ?,
		with_series = ?,
		fetched = ?,
		failed = ?
	WHERE id = ?
	`
	result, err := adb.db.ExecContext(ctx, query,
		formatTimestamp(summary.FinishedAt),
		summary.Discovered,
		summary.WithSeries,
		summary.Fetched,
		summary.Failed,
		summary.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to finish run: no run with id %d", summary.RunID)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (adb *ArchiveDB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
	SELECT id, mode, base_url, started_at, finished_at, discovered, with_series, fetched, failed
	FROM runs
	ORDER BY id DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := adb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var mode, started string
		var finished sql.NullString
		if err := rows.Scan(&r.ID, &mode, &r.BaseURL, &started, &finished,
			&r.Discovered, &r.WithSeries, &r.Fetched, &r.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Mode = model.RunMode(mode)
		r.StartedAt = parseTimestamp(started)
		if finished.Valid {
			r.FinishedAt = parseTimestamp(finished.String)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RecordPage upserts the latest fetch of page.PID.
func (adb *ArchiveDB) RecordPage(ctx context.Context, page *model.Page) error {
	query := `
	INSERT INTO pages (p_id, asset_name, url, status_code, title, content_hash, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(p_id) DO UPDATE SET
		asset_name = excluded.asset_name,
		url = excluded.url,
		status_code = excluded.status_code,
		title = excluded.title,
		content_hash = excluded.content_hash,
		fetched_at = excluded.fetched_at
	`
	_, err := adb.db.ExecContext(ctx, query,
		page.PID,
		page.AssetName,
		page.URL,
		page.StatusCode,
		page.Title,
		page.Hash,
		formatTimestamp(page.FetchedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record page %s: %w", page.PID, err)
	}
	return nil
}

// GetPage returns the latest stored fetch of pID, or nil if it was never
// fetched. The raw body is not stored.
func (adb *ArchiveDB) GetPage(ctx context.Context, pID string) (*model.Page, error) {
	query := `
	SELECT p_id, asset_name, url, status_code, title, content_hash, fetched_at
	FROM pages
	WHERE p_id = ?
	`
	var page model.Page
	var fetchedAt string
	err := adb.db.QueryRowContext(ctx, query, pID).Scan(
		&page.PID,
		&page.AssetName,
		&page.URL,
		&page.StatusCode,
		&page.Title,
		&page.Hash,
		&fetchedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	page.FetchedAt = parseTimestamp(fetchedAt)
	return &page, nil
}

// RecordFailure stores a failed detail fetch of run runID.
func (adb *ArchiveDB) RecordFailure(ctx context.Context, runID int64, f model.Failure) error {
	query := `
	INSERT INTO failures (run_id, p_id, asset_name, url, error, timestamp)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := adb.db.ExecContext(ctx, query,
		runID, f.PID, f.AssetName, f.URL, f.Error, formatTimestamp(f.Timestamp))
	if err != nil {
		return fmt.Errorf("failed to record failure %s: %w", f.PID, err)
	}
	return nil
}

// ListFailures returns the failures of run runID in insertion order.
func (adb *ArchiveDB) ListFailures(ctx context.Context, runID int64) ([]model.Failure, error) {
	query := `
	SELECT p_id, asset_name, url, error, timestamp
	FROM failures
	WHERE run_id = ?
	ORDER BY id
	`
	rows, err := adb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list failures: %w", err)
	}
	defer rows.Close()

	var failures []model.Failure
	for rows.Next() {
		var f model.Failure
		var ts string
		if err := rows.Scan(&f.PID, &f.AssetName, &f.URL, &f.Error, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		f.Timestamp = parseTimestamp(ts)
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// RunRecorder reports the detail loop outcomes of one run to the database.
type RunRecorder struct {
	db    *ArchiveDB
	runID int64
}

// Recorder returns a recorder bound to runID.
func (adb *ArchiveDB) Recorder(runID int64) *RunRecorder {
	return &RunRecorder{db: adb, runID: runID}
}

// RecordPage stores the page.
func (r *RunRecorder) RecordPage(ctx context.Context, page *model.Page) error {
	return r.db.RecordPage(ctx, page)
}

// RecordFailure stores the failure under the bound run.
func (r *RunRecorder) RecordFailure(ctx context.Context, f model.Failure) error {
	return r.db.RecordFailure(ctx, r.runID, f)
}

// timestampFormats lists the layouts SQLite or older rows may hold, most
// specific first.
var timestampFormats = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTimestamp returns the zero time when no layout matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
