package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/valpere/perepys/internal"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; serialise instead of surfacing SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		domain TEXT NOT NULL,
		use_ml BOOLEAN NOT NULL DEFAULT FALSE,
		passes INTEGER NOT NULL,
		skip_grammar BOOLEAN NOT NULL DEFAULT FALSE,
		engine TEXT NOT NULL DEFAULT '',
		source_text TEXT NOT NULL,
		result_text TEXT NOT NULL,
		original_words INTEGER NOT NULL DEFAULT 0,
		result_words INTEGER NOT NULL DEFAULT 0,
		original_chars INTEGER NOT NULL DEFAULT 0,
		result_chars INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		cached BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- result_cache maps normalised source text plus settings to a final result;
	-- raw_text holds the exact input, and only an identical input hits
	CREATE TABLE IF NOT EXISTS result_cache (
		source_text TEXT NOT NULL,
		config_key TEXT NOT NULL,
		raw_text TEXT NOT NULL DEFAULT '',
		result_text TEXT NOT NULL,
		usage_count INTEGER DEFAULT 1,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (source_text, config_key)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.addColumn("result_cache", "raw_text", "TEXT NOT NULL DEFAULT ''")
}

// addColumn adds a column to tables created before it existed.
func (s *Store) addColumn(table, column, decl string) error {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid, notNull, pk int
			name, typ        string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return err
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	_, err = s.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	return err
}

// SaveRun records run, assigning an ID and timestamp when missing. Runs
// that were not served from the cache also populate it.
func (s *Store) SaveRun(ctx context.Context, run *internal.ProcessingRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now()
	}
	// Stored as text; a single zone keeps ORDER BY created_at chronological.
	run.Timestamp = run.Timestamp.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, mode, domain, use_ml, passes, skip_grammar, engine, source_text, result_text,
			original_words, result_words, original_chars, result_chars, duration_ms, cached, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Mode, run.Domain, run.UseML, run.Passes, run.SkipGrammar, run.Engine, run.SourceText, run.ResultText,
		run.OriginalWords, run.ResultWords, run.OriginalChars, run.ResultChars, run.Duration.Milliseconds(), run.Cached, run.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if !run.Cached && strings.TrimSpace(run.SourceText) != "" {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO result_cache (source_text, config_key, raw_text, result_text, usage_count, last_used, created_at)
			 VALUES (?, ?, ?, ?, 1, ?, ?)
			 ON CONFLICT(source_text, config_key) DO UPDATE SET
				raw_text = excluded.raw_text, result_text = excluded.result_text, last_used = excluded.last_used`,
			normalizeText(run.SourceText), run.ConfigKey(), run.SourceText, run.ResultText, run.Timestamp, run.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to cache result: %w", err)
		}
	}

	return tx.Commit()
}

// GetCachedResult looks up a previous result for exactly sourceText under
// configKey and bumps its usage count on a hit. Inputs that normalise to
// the same text share one entry, holding the most recently saved variant.
func (s *Store) GetCachedResult(ctx context.Context, sourceText, configKey string) (string, bool, error) {
	normalized := normalizeText(sourceText)

	var result, raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT raw_text, result_text FROM result_cache WHERE source_text = ? AND config_key = ?`,
		normalized, configKey).Scan(&raw, &result)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if raw != sourceText {
		return "", false, nil
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE result_cache SET usage_count = usage_count + 1, last_used = ? WHERE source_text = ? AND config_key = ?`,
		time.Now().UTC(), normalized, configKey)
	return result, true, err
}

const runColumns = `id, mode, domain, use_ml, passes, skip_grammar, engine, source_text, result_text,
	original_words, result_words, original_chars, result_chars, duration_ms, cached, created_at`

func scanRun(sc interface{ Scan(...any) error }) (internal.ProcessingRun, error) {
	var (
		r          internal.ProcessingRun
		durationMs int64
	)
	err := sc.Scan(&r.ID, &r.Mode, &r.Domain, &r.UseML, &r.Passes, &r.SkipGrammar, &r.Engine, &r.SourceText, &r.ResultText,
		&r.OriginalWords, &r.ResultWords, &r.OriginalChars, &r.ResultChars, &durationMs, &r.Cached, &r.Timestamp)
	r.Duration = time.Duration(durationMs) * time.Millisecond
	return r, err
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]internal.ProcessingRun, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, rowid DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []internal.ProcessingRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns a run by ID, or false when it does not exist.
func (s *Store) GetRun(ctx context.Context, id string) (*internal.ProcessingRun, bool, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &r, true, nil
}

type Stats struct {
	TotalRuns     int
	MLRuns        int
	CachedRuns    int
	CachedResults int
	TotalCacheUse int
	AvgDuration   time.Duration
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	var avgMs float64
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN use_ml THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN cached THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(duration_ms), 0)
		FROM runs`).Scan(&stats.TotalRuns, &stats.MLRuns, &stats.CachedRuns, &avgMs)
	if err != nil {
		return nil, err
	}
	stats.AvgDuration = time.Duration(avgMs * float64(time.Millisecond))

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(usage_count), 0) FROM result_cache`).Scan(&stats.CachedResults, &stats.TotalCacheUse)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// DeleteRun removes one run. It reports whether a row was deleted.
func (s *Store) DeleteRun(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ClearRuns deletes every run and cached result, returning the number of
// runs removed.
func (s *Store) ClearRuns(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM runs`)
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM result_cache`); err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// normalizeText trims whitespace and applies Unicode NFC normalization so
// that visually identical inputs share a cache slot.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
