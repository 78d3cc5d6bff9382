package mock

import (
	"context"

	"github.com/fwojciec/doccrawl"
)

var _ doccrawl.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter is a mock implementation of doccrawl.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, domain string) error
}

func (l *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return l.WaitFn(ctx, domain)
}

var _ doccrawl.RobotsPolicy = (*RobotsPolicy)(nil)

// RobotsPolicy is a mock implementation of doccrawl.RobotsPolicy.
type RobotsPolicy struct {
	AllowedFn func(ctx context.Context, url string) bool
}

func (p *RobotsPolicy) Allowed(ctx context.Context, url string) bool {
	return p.AllowedFn(ctx, url)
}
