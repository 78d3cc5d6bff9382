package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fwojciec/doccrawl"
)

var _ doccrawl.RunLog = (*RunLog)(nil)

// RunLog appends one JSON object per line to <dir>/<YYYYMMDD_HHMMSS>_pages.jsonl:
// a "start" record, one "page" record per processed URL and a closing
// "summary" record.
type RunLog struct {
	dir string

	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
	path string
}

// NewRunLog creates a RunLog writing into dir.
func NewRunLog(dir string) *RunLog {
	return &RunLog{dir: dir}
}

// Path returns the log file of the current or last run.
func (l *RunLog) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

type runRecord struct {
	Type string `json:"type"`
	*doccrawl.RunStats
}

// PageRecord is the JSON form of one page outcome in the run log.
type PageRecord struct {
	Type        string   `json:"type"`
	RunID       string   `json:"run_id"`
	URL         string   `json:"url"`
	FinalURL    string   `json:"final_url,omitempty"`
	Depth       int      `json:"depth"`
	Parent      string   `json:"parent,omitempty"`
	Status      string   `json:"status"`
	StatusCode  int      `json:"status_code,omitempty"`
	Attempts    int      `json:"attempts"`
	LatencyMS   int64    `json:"latency_ms"`
	Bytes       int      `json:"bytes"`
	Chunks      int      `json:"chunks"`
	ContentHash string   `json:"content_hash,omitempty"`
	DuplicateOf string   `json:"duplicate_of,omitempty"`
	ErrorKind   string   `json:"error_kind,omitempty"`
	Error       string   `json:"error,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// NewPageRecord converts a page result to its log form.
func NewPageRecord(runID string, page *doccrawl.PageResult) PageRecord {
	rec := PageRecord{
		Type:        "page",
		RunID:       runID,
		URL:         page.URL,
		FinalURL:    page.FinalURL,
		Depth:       page.Depth,
		Parent:      page.Parent,
		Status:      string(page.Status()),
		StatusCode:  page.StatusCode,
		Attempts:    page.Attempts,
		LatencyMS:   page.Latency.Milliseconds(),
		Bytes:       page.ContentLength,
		Chunks:      len(page.Chunks),
		ContentHash: page.ContentHash,
		DuplicateOf: page.DuplicateOf,
		Warnings:    page.Warnings,
	}
	if rec.FinalURL == rec.URL {
		rec.FinalURL = ""
	}
	if page.Err != nil {
		rec.ErrorKind = doccrawl.FailureKind(page.Err)
		rec.Error = page.Err.Error()
	}
	return rec
}

// StartRun creates the log file named after the run's start time and
// writes the start record.
func (l *RunLog) StartRun(ctx context.Context, stats doccrawl.RunStats) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		_ = l.file.Close()
	}

	started := stats.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return err
	}

	path := filepath.Join(l.dir, started.Format("20060102_150405")+"_pages.jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	l.file = f
	l.path = path
	l.enc = json.NewEncoder(f)
	l.enc.SetEscapeHTML(false)

	return l.enc.Encode(runRecord{Type: "start", RunStats: &stats})
}

// RecordPage appends a page record.
func (l *RunLog) RecordPage(ctx context.Context, runID string, page *doccrawl.PageResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.enc == nil {
		return doccrawl.Errorf(doccrawl.EINVALID, "run log not started")
	}
	return l.enc.Encode(NewPageRecord(runID, page))
}

// FinishRun appends the summary record and closes the file.
func (l *RunLog) FinishRun(ctx context.Context, stats doccrawl.RunStats) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.enc == nil {
		return doccrawl.Errorf(doccrawl.EINVALID, "run log not started")
	}
	err := l.enc.Encode(runRecord{Type: "summary", RunStats: &stats})
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	l.file = nil
	l.enc = nil
	return err
}
