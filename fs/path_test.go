package fs_test

import (
	"testing"

	"github.com/fwojciec/doccrawl/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLToPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com", "index.md"},
		{"https://example.com/", "index.md"},
		{"https://example.com/docs/", "docs/index.md"},
		{"https://example.com/docs/api/users", "docs/api/users.md"},
		{"https://example.com/guide.html", "guide.md"},
		{"https://example.com/docs/intro?lang=en", "docs/intro.md"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()

			got, err := fs.URLToPath(tt.url)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
