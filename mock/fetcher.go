package mock

import (
	"context"

	"github.com/fwojciec/doccrawl"
)

var _ doccrawl.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of doccrawl.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) (*doccrawl.Response, error)
	CloseFn func() error
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (*doccrawl.Response, error) {
	return f.FetchFn(ctx, url)
}

func (f *Fetcher) Close() error {
	if f.CloseFn == nil {
		return nil
	}
	return f.CloseFn()
}
