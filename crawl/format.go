package crawl

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/doccrawl"
)

// computeHash fingerprints extracted text with xxhash, so repeated runs can
// be compared page by page.
func computeHash(content string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(content))
}

// TruncateURL shortens a URL for display, keeping the end which is more informative.
func TruncateURL(url string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if maxLen < 4 {
		return url[:min(len(url), maxLen)]
	}
	if len(url) <= maxLen {
		return url
	}
	return "..." + url[len(url)-maxLen+3:]
}

// FormatTokens formats token count in human-readable form.
func FormatTokens(tokens int) string {
	if tokens < 1000 {
		return fmt.Sprintf("~%d tokens", tokens)
	}
	return fmt.Sprintf("~%dk tokens", (tokens+500)/1000)
}

// FormatSummary renders run statistics as a single human-readable line, e.g.
// "12 pages attempted: 11 succeeded, 1 failed [bad-status=1], 0 skipped; 87 chunks, 91520 characters in 3.2s".
func FormatSummary(stats doccrawl.RunStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d pages attempted: %d succeeded, %d failed", stats.Attempted, stats.Succeeded, stats.Failed)
	if len(stats.FailuresByKind) > 0 {
		kinds := make([]string, 0, len(stats.FailuresByKind))
		for kind, n := range stats.FailuresByKind {
			kinds = append(kinds, fmt.Sprintf("%s=%d", kind, n))
		}
		sort.Strings(kinds)
		fmt.Fprintf(&b, " [%s]", strings.Join(kinds, " "))
	}
	fmt.Fprintf(&b, ", %d skipped; %d chunks, %d characters", stats.Skipped, stats.TotalChunks, stats.TotalChars)
	if stats.TotalTokens > 0 {
		fmt.Fprintf(&b, ", %s", FormatTokens(stats.TotalTokens))
	}
	if !stats.StartedAt.IsZero() && !stats.FinishedAt.IsZero() {
		fmt.Fprintf(&b, " in %s", stats.FinishedAt.Sub(stats.StartedAt).Round(100*time.Millisecond))
	}
	if stats.Partial {
		b.WriteString(" (partial)")
	}
	return b.String()
}
