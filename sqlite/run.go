package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/fwojciec/doccrawl"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ doccrawl.RunService = (*RunService)(nil)

// RunService implements doccrawl.RunService using SQLite.
type RunService struct {
	db *DB
}

// NewRunService creates a new RunService.
func NewRunService(db *DB) *RunService {
	return &RunService{db: db}
}

// StartRun inserts the run row.
func (s *RunService) StartRun(ctx context.Context, stats doccrawl.RunStats) error {
	if stats.RunID == "" {
		return doccrawl.Errorf(doccrawl.EINVALID, "run ID required")
	}
	if stats.RootURL == "" {
		return doccrawl.Errorf(doccrawl.EINVALID, "root URL required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, root_url, max_depth, concurrency, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, stats.RunID, stats.RootURL, stats.MaxDepth, stats.Concurrency, formatTime(stats.StartedAt))
	return err
}

// RecordPage inserts one page outcome.
func (s *RunService) RecordPage(ctx context.Context, runID string, page *doccrawl.PageResult) error {
	var errKind, errMsg string
	if page.Err != nil {
		errKind = doccrawl.FailureKind(page.Err)
		errMsg = page.Err.Error()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pages (id, run_id, url, final_url, depth, parent, status, status_code,
			attempts, latency_ms, bytes, chunks, content_hash, error_kind, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, uuid.New().String(), runID, page.URL, page.FinalURL, page.Depth, page.Parent,
		string(page.Status()), page.StatusCode, page.Attempts, page.Latency.Milliseconds(),
		page.ContentLength, len(page.Chunks), page.ContentHash, errKind, errMsg)
	return err
}

// FinishRun stores the final statistics.
// Returns ENOTFOUND if the run was never started.
func (s *RunService) FinishRun(ctx context.Context, stats doccrawl.RunStats) error {
	failures, err := json.Marshal(stats.FailuresByKind)
	if err != nil {
		return err
	}
	if stats.FailuresByKind == nil {
		failures = []byte("{}")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET attempted = ?, succeeded = ?, failed = ?, skipped = ?,
			total_chunks = ?, total_chars = ?, total_tokens = ?, failures_by_kind = ?,
			partial = ?, finished_at = ?
		WHERE id = ?
	`, stats.Attempted, stats.Succeeded, stats.Failed, stats.Skipped,
		stats.TotalChunks, stats.TotalChars, stats.TotalTokens, string(failures),
		boolToInt(stats.Partial), formatTime(stats.FinishedAt), stats.RunID)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return doccrawl.Errorf(doccrawl.ENOTFOUND, "run not found")
	}
	return nil
}

const runColumns = `id, root_url, max_depth, concurrency, attempted, succeeded, failed, skipped,
	total_chunks, total_chars, total_tokens, failures_by_kind, partial, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*doccrawl.RunStats, error) {
	var stats doccrawl.RunStats
	var failures, startedAt, finishedAt string
	var partial int

	if err := row.Scan(&stats.RunID, &stats.RootURL, &stats.MaxDepth, &stats.Concurrency,
		&stats.Attempted, &stats.Succeeded, &stats.Failed, &stats.Skipped,
		&stats.TotalChunks, &stats.TotalChars, &stats.TotalTokens, &failures, &partial,
		&startedAt, &finishedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(failures), &stats.FailuresByKind); err != nil {
		return nil, err
	}
	if len(stats.FailuresByKind) == 0 {
		stats.FailuresByKind = nil
	}
	stats.Partial = partial != 0

	var err error
	if stats.StartedAt, err = parseRFC3339(startedAt, "started_at"); err != nil {
		return nil, err
	}
	if stats.FinishedAt, err = parseRFC3339(finishedAt, "finished_at"); err != nil {
		return nil, err
	}
	return &stats, nil
}

// FindRunByID retrieves a run by ID.
func (s *RunService) FindRunByID(ctx context.Context, id string) (*doccrawl.RunStats, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	stats, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, doccrawl.Errorf(doccrawl.ENOTFOUND, "run not found")
	}
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// FindRuns retrieves runs matching the filter, most recent first.
func (s *RunService) FindRuns(ctx context.Context, filter doccrawl.RunFilter) ([]*doccrawl.RunStats, error) {
	var query strings.Builder
	query.WriteString(`SELECT ` + runColumns + ` FROM runs`)

	var args []any
	if filter.RootURL != nil {
		query.WriteString(" WHERE root_url = ?")
		args = append(args, *filter.RootURL)
	}
	query.WriteString(" ORDER BY started_at DESC, id")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []*doccrawl.RunStats{}
	for rows.Next() {
		stats, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, stats)
	}
	return runs, rows.Err()
}

// PageCounts returns the number of recorded pages per status for a run.
func (s *RunService) PageCounts(ctx context.Context, runID string) (map[doccrawl.URLStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM pages WHERE run_id = ? GROUP BY status
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[doccrawl.URLStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[doccrawl.URLStatus(status)] = n
	}
	return counts, rows.Err()
}
