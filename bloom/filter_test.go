package bloom_test

import (
	"fmt"
	"testing"

	"github.com/fwojciec/doccrawl/bloom"
	"github.com/stretchr/testify/assert"
)

func TestFilter_MaybeContains(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(1000, 0.01)

	assert.False(t, f.MaybeContains("https://docs.example.com/guide"))

	f.Add("https://docs.example.com/guide")

	assert.True(t, f.MaybeContains("https://docs.example.com/guide"))
	assert.False(t, f.MaybeContains("https://docs.example.com/reference"))
}

func TestFilter_ZeroCapacity(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(0, 0.01)
	f.Add("https://docs.example.com/")

	assert.True(t, f.MaybeContains("https://docs.example.com/"))
}

func TestFilter_FalsePositiveRate(t *testing.T) {
	t.Parallel()

	const (
		numKeys = 5000
		lookups = 5000
	)

	f := bloom.NewFilter(numKeys, 0.01)
	for i := range numKeys {
		f.Add(fmt.Sprintf("https://docs.example.com/seen/%d", i))
	}

	hits := 0
	for i := range lookups {
		if f.MaybeContains(fmt.Sprintf("https://docs.example.com/unseen/%d", i)) {
			hits++
		}
	}

	rate := float64(hits) / float64(lookups)
	assert.Less(t, rate, 0.03, "false positive rate %f too high", rate)
}
