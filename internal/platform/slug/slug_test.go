package slug_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"habitkit/internal/platform/slug"
)

func TestMake(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"Daily Walk":        "daily-walk",
		"  --cold shower!!": "cold-shower",
		"30_day/no-sugar":   "30-day-no-sugar",
		"Café au lait":      "café-au-lait",
		"???":               "untitled",
		"":                  "untitled",
	}
	for in, want := range cases {
		assert.Equal(t, want, slug.Make(in), in)
	}
}

func TestMakeCapsLength(t *testing.T) {
	t.Parallel()
	got := slug.Make(strings.Repeat("ab ", 100))
	assert.LessOrEqual(t, len([]rune(got)), slug.MaxLen)
	assert.False(t, strings.HasSuffix(got, "-"))
}
