package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/doccrawl"
)

var _ doccrawl.SitemapService = (*LoggingSitemapService)(nil)

// LoggingSitemapService logs sitemap seeding. A failed lookup is logged as a
// warning since the crawl continues from the root link graph alone.
type LoggingSitemapService struct {
	next   doccrawl.SitemapService
	logger *slog.Logger
}

func NewLoggingSitemapService(next doccrawl.SitemapService, logger *slog.Logger) *LoggingSitemapService {
	return &LoggingSitemapService{next: next, logger: logger}
}

func (s *LoggingSitemapService) DiscoverURLs(ctx context.Context, baseURL string, filter *doccrawl.URLFilter) ([]string, error) {
	begin := time.Now()
	urls, err := s.next.DiscoverURLs(ctx, baseURL, filter)
	attrs := []any{
		"url", baseURL,
		"filtered", filter != nil,
		"duration", time.Since(begin),
	}
	if err != nil {
		s.logger.Warn("sitemap unavailable", append(attrs, "err", err)...)
		return urls, err
	}
	s.logger.Info("sitemap seeds", append(attrs, "count", len(urls))...)
	return urls, nil
}
