package doccrawl

import (
	"context"
	"time"
)

// PageResult is the outcome of processing one admitted URL.
// It is produced exactly once per URL and never modified afterwards.
type PageResult struct {
	URL      string // as fetched
	FinalURL string // after redirects
	Depth    int
	Parent   string

	StatusCode    int
	ContentType   string
	ContentLength int
	ContentHash   string

	Title    string
	Text     string
	Links    []DiscoveredLink // same-origin links offered to the frontier
	Warnings []string
	Chunks   []Chunk

	Attempts int
	Latency  time.Duration
	Err      error

	// DuplicateOf is the key of the page already holding the content this
	// page redirected to. Duplicate pages carry no chunks or links.
	DuplicateOf string
}

// Status returns the terminal status of the page.
func (p *PageResult) Status() URLStatus {
	if p.Err != nil {
		return StatusFailed
	}
	if p.DuplicateOf != "" {
		return StatusSkipped
	}
	return StatusFetched
}

// RunStats summarizes one crawl run.
type RunStats struct {
	RunID       string `json:"run_id"`
	RootURL     string `json:"root_url"`
	MaxDepth    int    `json:"max_depth"`
	Concurrency int    `json:"concurrency"`

	Attempted   int `json:"pages_attempted"`
	Succeeded   int `json:"pages_succeeded"`
	Failed      int `json:"pages_failed"`
	Skipped     int `json:"pages_skipped"`
	TotalChunks int `json:"total_chunks"`
	TotalChars  int `json:"total_characters"`
	TotalTokens int `json:"total_tokens,omitempty"`

	// FailuresByKind counts failed pages by FetchErrorKind, with
	// "unparseable" for extraction failures.
	FailuresByKind map[string]int `json:"failures_by_kind,omitempty"`

	// Partial is set when the run was aborted before the frontier was exhausted.
	Partial bool `json:"partial"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// RunArtifact is the final output of one crawl invocation.
type RunArtifact struct {
	Stats  RunStats
	Chunks []Chunk

	// Pages holds every page result ordered by depth, then URL.
	Pages []*PageResult
}

// RunStatus is a point-in-time snapshot of an executing crawl.
type RunStatus struct {
	RunID      string `json:"run_id"`
	Active     bool   `json:"active"`
	Discovered int    `json:"discovered"`
	Admitted   int    `json:"admitted"`
	InFlight   int    `json:"in_flight"`
	Fetched    int    `json:"fetched"`
	Failed     int    `json:"failed"`
	Skipped    int    `json:"skipped"`
	Chunks     int    `json:"chunks"`
}

// ArtifactWriter persists a finished artifact.
type ArtifactWriter interface {
	// WriteArtifact writes the artifact and returns the paths it created.
	WriteArtifact(ctx context.Context, artifact *RunArtifact) ([]string, error)
}

// RunLog records per-page outcomes as a run progresses.
type RunLog interface {
	StartRun(ctx context.Context, stats RunStats) error
	RecordPage(ctx context.Context, runID string, page *PageResult) error
	FinishRun(ctx context.Context, stats RunStats) error
}

// RunFilter represents a filter for RunService.FindRuns.
type RunFilter struct {
	RootURL *string
	Limit   int
	Offset  int
}

// RunService stores run history.
type RunService interface {
	RunLog

	// FindRuns returns runs matching the filter, most recent first.
	FindRuns(ctx context.Context, filter RunFilter) ([]*RunStats, error)

	// FindRunByID retrieves a run by ID.
	// Returns ENOTFOUND if the run does not exist.
	FindRunByID(ctx context.Context, id string) (*RunStats, error)
}

// IngestRequest is the batch ingestion payload accepted by the downstream
// vector store. A chunk artifact is its Documents field verbatim.
type IngestRequest struct {
	Documents []Chunk `json:"documents"`
	Namespace string  `json:"namespace,omitempty"`
}

// NewIngestRequest wraps the artifact's chunks for ingestion.
func NewIngestRequest(artifact *RunArtifact, namespace string) *IngestRequest {
	docs := artifact.Chunks
	if docs == nil {
		docs = []Chunk{}
	}
	return &IngestRequest{Documents: docs, Namespace: namespace}
}

// ChatMessage is one turn of a retrieval chat history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// QueryRequest is the retrieval service query shape, listed so that chunk
// URLs stay compatible with its metadata filters.
type QueryRequest struct {
	Query          string         `json:"query"`
	ChatHistory    []ChatMessage  `json:"chat_history,omitempty"`
	MetadataFilter map[string]any `json:"metadata_filter,omitempty"`
}
