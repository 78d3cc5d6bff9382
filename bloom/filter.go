// Package bloom provides a probabilistic pre-check for the crawl visited set.
package bloom

import "github.com/bits-and-blooms/bloom/v3"

// Filter answers "definitely not seen" for normalized URL keys without
// touching the exact visited set. It is not safe for concurrent use.
type Filter struct {
	f *bloom.BloomFilter
}

// NewFilter creates a Bloom filter sized for n expected keys with the
// given false positive rate.
func NewFilter(n uint, fpRate float64) *Filter {
	if n == 0 {
		n = 1
	}
	return &Filter{
		f: bloom.NewWithEstimates(n, fpRate),
	}
}

// Add records a key.
func (f *Filter) Add(key string) {
	f.f.AddString(key)
}

// MaybeContains returns true if the key might have been added.
// A false result is definitive.
func (f *Filter) MaybeContains(key string) bool {
	return f.f.TestString(key)
}
