package slog

import (
	"context"
	"log/slog"

	"github.com/fwojciec/doccrawl"
)

var (
	_ doccrawl.RunLog         = (*LoggingRunLog)(nil)
	_ doccrawl.ArtifactWriter = (*LoggingArtifactWriter)(nil)
)

// LoggingRunLog wraps a RunLog, logging every write failure. The crawler
// ignores run log errors, so this is where they surface.
type LoggingRunLog struct {
	next   doccrawl.RunLog
	logger *slog.Logger
}

// NewLoggingRunLog creates a new LoggingRunLog.
func NewLoggingRunLog(next doccrawl.RunLog, logger *slog.Logger) *LoggingRunLog {
	return &LoggingRunLog{next: next, logger: logger}
}

// StartRun delegates to the wrapped run log.
func (l *LoggingRunLog) StartRun(ctx context.Context, stats doccrawl.RunStats) error {
	err := l.next.StartRun(ctx, stats)
	if err != nil {
		l.logger.Warn("run log start", "run", stats.RunID, "err", err)
	}
	return err
}

// RecordPage delegates to the wrapped run log.
func (l *LoggingRunLog) RecordPage(ctx context.Context, runID string, page *doccrawl.PageResult) error {
	err := l.next.RecordPage(ctx, runID, page)
	if err != nil {
		l.logger.Warn("run log page", "run", runID, "url", page.URL, "err", err)
	}
	return err
}

// FinishRun delegates to the wrapped run log.
func (l *LoggingRunLog) FinishRun(ctx context.Context, stats doccrawl.RunStats) error {
	err := l.next.FinishRun(ctx, stats)
	if err != nil {
		l.logger.Warn("run log finish", "run", stats.RunID, "err", err)
	}
	return err
}

// MultiRunLog fans run log writes out to several logs. Every log receives
// every write; the first error is returned.
type MultiRunLog []doccrawl.RunLog

// StartRun implements doccrawl.RunLog.
func (m MultiRunLog) StartRun(ctx context.Context, stats doccrawl.RunStats) error {
	var first error
	for _, l := range m {
		if err := l.StartRun(ctx, stats); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RecordPage implements doccrawl.RunLog.
func (m MultiRunLog) RecordPage(ctx context.Context, runID string, page *doccrawl.PageResult) error {
	var first error
	for _, l := range m {
		if err := l.RecordPage(ctx, runID, page); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// FinishRun implements doccrawl.RunLog.
func (m MultiRunLog) FinishRun(ctx context.Context, stats doccrawl.RunStats) error {
	var first error
	for _, l := range m {
		if err := l.FinishRun(ctx, stats); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// LoggingArtifactWriter wraps an ArtifactWriter, logging the written paths.
type LoggingArtifactWriter struct {
	next   doccrawl.ArtifactWriter
	logger *slog.Logger
}

// NewLoggingArtifactWriter creates a new LoggingArtifactWriter.
func NewLoggingArtifactWriter(next doccrawl.ArtifactWriter, logger *slog.Logger) *LoggingArtifactWriter {
	return &LoggingArtifactWriter{next: next, logger: logger}
}

// WriteArtifact delegates to the wrapped writer and logs the outcome.
func (w *LoggingArtifactWriter) WriteArtifact(ctx context.Context, artifact *doccrawl.RunArtifact) (paths []string, err error) {
	defer func() {
		w.logger.Info("artifact written",
			"run", artifact.Stats.RunID,
			"chunks", len(artifact.Chunks),
			"paths", paths,
			"err", err,
		)
	}()
	return w.next.WriteArtifact(ctx, artifact)
}
