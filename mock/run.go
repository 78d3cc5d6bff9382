package mock

import (
	"context"

	"github.com/fwojciec/doccrawl"
)

var _ doccrawl.ArtifactWriter = (*ArtifactWriter)(nil)

// ArtifactWriter is a mock implementation of doccrawl.ArtifactWriter.
type ArtifactWriter struct {
	WriteArtifactFn func(ctx context.Context, artifact *doccrawl.RunArtifact) ([]string, error)
}

func (w *ArtifactWriter) WriteArtifact(ctx context.Context, artifact *doccrawl.RunArtifact) ([]string, error) {
	return w.WriteArtifactFn(ctx, artifact)
}

var _ doccrawl.RunLog = (*RunLog)(nil)

// RunLog is a mock implementation of doccrawl.RunLog.
type RunLog struct {
	StartRunFn   func(ctx context.Context, stats doccrawl.RunStats) error
	RecordPageFn func(ctx context.Context, runID string, page *doccrawl.PageResult) error
	FinishRunFn  func(ctx context.Context, stats doccrawl.RunStats) error
}

func (l *RunLog) StartRun(ctx context.Context, stats doccrawl.RunStats) error {
	return l.StartRunFn(ctx, stats)
}

func (l *RunLog) RecordPage(ctx context.Context, runID string, page *doccrawl.PageResult) error {
	return l.RecordPageFn(ctx, runID, page)
}

func (l *RunLog) FinishRun(ctx context.Context, stats doccrawl.RunStats) error {
	return l.FinishRunFn(ctx, stats)
}

var _ doccrawl.RunService = (*RunService)(nil)

// RunService is a mock implementation of doccrawl.RunService.
type RunService struct {
	RunLog
	FindRunsFn    func(ctx context.Context, filter doccrawl.RunFilter) ([]*doccrawl.RunStats, error)
	FindRunByIDFn func(ctx context.Context, id string) (*doccrawl.RunStats, error)
}

func (s *RunService) FindRuns(ctx context.Context, filter doccrawl.RunFilter) ([]*doccrawl.RunStats, error) {
	return s.FindRunsFn(ctx, filter)
}

func (s *RunService) FindRunByID(ctx context.Context, id string) (*doccrawl.RunStats, error) {
	return s.FindRunByIDFn(ctx, id)
}
