package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/deepscan/internal/model"
)

// FileName is the database file created inside the data directory.
const FileName = "deepscan.db"

// ErrNotFound is returned when no stored analysis matches.
var ErrNotFound = errors.New("analysis not found")

// HistoryDB stores analyses in SQLite.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file.
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

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

func (h *HistoryDB) createTables() error {
	schema := `
	-- One row per analysis; analysis_json is the full model.Analysis
	CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		source TEXT,
		fingerprint TEXT NOT NULL,
		mime_type TEXT,
		verdict TEXT NOT NULL,
		confidence REAL DEFAULT 0,
		analysis_json TEXT NOT NULL,
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_fingerprint ON analyses(fingerprint);
	CREATE INDEX IF NOT EXISTS idx_analyses_timestamp ON analyses(timestamp);

	-- One row per provider result; used as the vendor cache
	CREATE TABLE IF NOT EXISTS provider_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
		fingerprint TEXT NOT NULL,
		provider TEXT NOT NULL,
		verdict TEXT NOT NULL,
		confidence REAL DEFAULT 0,
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_lookup ON provider_results(fingerprint, provider, timestamp);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// SaveAnalysis stores an analysis and its provider results in one
// transaction. Saving the same analysis ID again replaces it.
func (h *HistoryDB) SaveAnalysis(ctx context.Context, a *model.Analysis) error {
	if a == nil {
		return errors.New("analysis is nil")
	}

	analysisJSON, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to serialize analysis: %w", err)
	}

	ts := formatTimestamp(a.CreatedAt)

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM provider_results WHERE analysis_id = ?`, a.ID); err != nil {
		return fmt.Errorf("failed to clear provider results: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO analyses (id, source, fingerprint, mime_type, verdict, confidence, analysis_json, timestamp)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		source = excluded.source,
		fingerprint = excluded.fingerprint,
		mime_type = excluded.mime_type,
		verdict = excluded.verdict,
		confidence = excluded.confidence,
		analysis_json = excluded.analysis_json,
		timestamp = excluded.timestamp
	`, a.ID, a.Source, a.Fingerprint, a.MIMEType, a.Verdict().String(), a.Confidence(), string(analysisJSON), ts)
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}

	for _, provider := range a.Providers() {
		r := a.Result(provider)
		// Cached results were already stored by an earlier analysis.
		if r == nil || r.Cached {
			continue
		}
		_, err := tx.ExecContext(ctx, `
		INSERT INTO provider_results (analysis_id, fingerprint, provider, verdict, confidence, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
		`, a.ID, a.Fingerprint, provider, r.Overall.Verdict.String(), r.Overall.Confidence, ts)
		if err != nil {
			return fmt.Errorf("failed to save %s result: %w", provider, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit analysis: %w", err)
	}
	return nil
}

// GetAnalysisByID returns the stored analysis or ErrNotFound.
func (h *HistoryDB) GetAnalysisByID(ctx context.Context, id string) (*model.Analysis, error) {
	var analysisJSON string
	err := h.db.QueryRowContext(ctx, `SELECT analysis_json FROM analyses WHERE id = ?`, id).Scan(&analysisJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return decodeAnalysis(analysisJSON)
}

// GetLatestAnalysis returns the newest analysis of fingerprint that holds a
// result from provider, or ErrNotFound.
func (h *HistoryDB) GetLatestAnalysis(ctx context.Context, fingerprint, provider string) (*model.Analysis, error) {
	query := `
	SELECT a.analysis_json FROM provider_results r
	JOIN analyses a ON a.id = r.analysis_id
	WHERE r.fingerprint = ? AND r.provider = ?
	ORDER BY r.timestamp DESC
	LIMIT 1
	`

	var analysisJSON string
	err := h.db.QueryRowContext(ctx, query, fingerprint, provider).Scan(&analysisJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest analysis: %w", err)
	}
	return decodeAnalysis(analysisJSON)
}

// HasRecentAnalysis reports whether provider analyzed fingerprint within ttl.
// A non-positive ttl always reports false.
func (h *HistoryDB) HasRecentAnalysis(ctx context.Context, fingerprint, provider string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, nil
	}

	var ts string
	err := h.db.QueryRowContext(ctx, `
	SELECT timestamp FROM provider_results
	WHERE fingerprint = ? AND provider = ?
	ORDER BY timestamp DESC
	LIMIT 1
	`, fingerprint, provider).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check recent analysis: %w", err)
	}

	t := parseTimestamp(ts)
	if t.IsZero() {
		return false, nil
	}
	return time.Since(t) < ttl, nil
}

// ListAnalyses returns the newest analyses first. limit <= 0 returns all.
func (h *HistoryDB) ListAnalyses(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	query := `
	SELECT a.id, a.source, a.fingerprint, a.verdict, a.confidence, a.timestamp,
		COALESCE((SELECT GROUP_CONCAT(provider, ',') FROM
			(SELECT provider FROM provider_results WHERE analysis_id = a.id ORDER BY provider)), '')
	FROM analyses a
	ORDER BY a.timestamp DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	results := make([]model.HistoryEntry, 0)
	for rows.Next() {
		var (
			s         model.HistoryEntry
			source    sql.NullString
			verdict   string
			timestamp string
			providers string
		)
		if err := rows.Scan(&s.ID, &source, &s.Fingerprint, &verdict, &s.Confidence, &timestamp, &providers); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		s.Source = source.String
		s.Verdict = model.Verdict(verdict)
		s.Timestamp = parseTimestamp(timestamp)
		s.Providers = []string{}
		if providers != "" {
			s.Providers = strings.Split(providers, ",")
		}
		results = append(results, s)
	}

	return results, rows.Err()
}

// History returns the newest limit entries and the verdict totals.
func (h *HistoryDB) History(ctx context.Context, limit int) (*model.History, error) {
	entries, err := h.ListAnalyses(ctx, limit)
	if err != nil {
		return nil, err
	}
	counts, err := h.VerdictCounts(ctx)
	if err != nil {
		return nil, err
	}
	return &model.History{Entries: entries, Counts: counts}, nil
}

// VerdictCounts returns how many stored analyses ended with each verdict.
func (h *HistoryDB) VerdictCounts(ctx context.Context) (map[model.Verdict]int, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT verdict, COUNT(*) FROM analyses GROUP BY verdict`)
	if err != nil {
		return nil, fmt.Errorf("failed to count verdicts: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Verdict]int)
	for rows.Next() {
		var (
			verdict string
			n       int
		)
		if err := rows.Scan(&verdict, &n); err != nil {
			return nil, fmt.Errorf("failed to scan verdict count: %w", err)
		}
		counts[model.Verdict(verdict)] = n
	}
	return counts, rows.Err()
}

func decodeAnalysis(s string) (*model.Analysis, error) {
	var a model.Analysis
	if err := json.Unmarshal([]byte(s), &a); err != nil {
		return nil, fmt.Errorf("failed to parse analysis: %w", err)
	}
	return &a, nil
}

// storedTimestampFormat sorts lexically in chronological order.
const storedTimestampFormat = "2006-01-02T15:04:05.000000000Z"

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(storedTimestampFormat)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	storedTimestampFormat,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp returns the zero time when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
