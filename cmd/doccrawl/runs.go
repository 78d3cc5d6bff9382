package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/fwojciec/doccrawl"
)

// Run executes the runs list command.
func (c *RunsListCmd) Run(deps *Dependencies) error {
	filter := doccrawl.RunFilter{Limit: c.Limit}
	if c.URL != "" {
		filter.RootURL = &c.URL
	}

	runs, err := deps.Runs.FindRuns(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", doccrawl.ErrorMessage(err))
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(deps.Stdout, "No runs found. Use 'doccrawl crawl --db' to record one.")
		return nil
	}

	for _, r := range runs {
		status := "complete"
		if r.Partial {
			status = "partial"
		}
		fmt.Fprintf(deps.Stdout, "%s  %s  %s  %d/%d pages  %d chunks  %s\n",
			r.RunID, r.StartedAt.Local().Format(time.DateTime), r.RootURL,
			r.Succeeded, r.Attempted, r.TotalChunks, status)
	}
	return nil
}

// Run executes the runs show command.
func (c *RunsShowCmd) Run(deps *Dependencies) error {
	r, err := deps.Runs.FindRunByID(deps.Ctx, c.ID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", doccrawl.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Run:         %s\n", r.RunID)
	fmt.Fprintf(deps.Stdout, "Root URL:    %s\n", r.RootURL)
	fmt.Fprintf(deps.Stdout, "Depth:       %d\n", r.MaxDepth)
	fmt.Fprintf(deps.Stdout, "Concurrency: %d\n", r.Concurrency)
	fmt.Fprintf(deps.Stdout, "Started:     %s\n", r.StartedAt.Local().Format(time.DateTime))
	if !r.FinishedAt.IsZero() {
		fmt.Fprintf(deps.Stdout, "Duration:    %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
	fmt.Fprintf(deps.Stdout, "Pages:       %d attempted, %d succeeded, %d failed, %d skipped\n",
		r.Attempted, r.Succeeded, r.Failed, r.Skipped)
	fmt.Fprintf(deps.Stdout, "Chunks:      %d (%d characters)\n", r.TotalChunks, r.TotalChars)
	if r.Partial {
		fmt.Fprintln(deps.Stdout, "Partial:     yes")
	}

	kinds := make([]string, 0, len(r.FailuresByKind))
	for kind := range r.FailuresByKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(deps.Stdout, "  %s: %d\n", kind, r.FailuresByKind[kind])
	}
	return nil
}
