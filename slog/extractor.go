package slog

import (
	"log/slog"
	"time"

	"github.com/fwojciec/doccrawl"
)

var _ doccrawl.Extractor = (*LoggingExtractor)(nil)

// LoggingExtractor wraps an Extractor with debug logging of each page's
// text size, link count and warnings.
type LoggingExtractor struct {
	next   doccrawl.Extractor
	logger *slog.Logger
}

// NewLoggingExtractor creates a new LoggingExtractor.
func NewLoggingExtractor(next doccrawl.Extractor, logger *slog.Logger) *LoggingExtractor {
	return &LoggingExtractor{next: next, logger: logger}
}

// Extract delegates to the wrapped extractor and logs the outcome.
func (e *LoggingExtractor) Extract(resp *doccrawl.Response) (out *doccrawl.Extraction, err error) {
	defer func(begin time.Time) {
		if err != nil {
			e.logger.Warn("extract", "url", resp.URL, "duration", time.Since(begin), "err", err)
			return
		}
		e.logger.Debug("extract",
			"url", resp.URL,
			"title", out.Title,
			"chars", len(out.Text),
			"links", len(out.Links),
			"duration", time.Since(begin),
		)
		for _, w := range out.Warnings {
			e.logger.Warn("extract warning", "url", resp.URL, "warning", w)
		}
	}(time.Now())
	return e.next.Extract(resp)
}
