package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pders01/blogify/internal/api"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		limit  int
		end    string
		middle string
	}{
		{"dragons", 10, "dragons", "dragons"},
		{"dragons", 7, "dragons", "dragons"},
		{"dragons", 5, "drag…", "dr…ns"},
		{"dragons", 1, "…", "…"},
		{"dragons", 0, "", ""},
		{"ünïcödé", 4, "ünï…", "ü…dé"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.end, truncateEnd(tt.in, tt.limit), "end %q/%d", tt.in, tt.limit)
		assert.Equal(t, tt.middle, truncateMiddle(tt.in, tt.limit), "middle %q/%d", tt.in, tt.limit)
	}
}

func TestLikesAndHashtags(t *testing.T) {
	assert.Equal(t, "♥ 3", Likes(api.Article{Favorited: true, FavoritesCount: 3}))
	assert.Equal(t, "♡ 0", Likes(api.Article{}))

	assert.Equal(t, "#go #dragons", Hashtags([]string{"go", "dragons"}))
	assert.Empty(t, Hashtags(nil))

	assert.Equal(t, "ab  ", padRight("ab", 4))
	assert.Equal(t, "abcdef", padRight("abcdef", 4))
}
