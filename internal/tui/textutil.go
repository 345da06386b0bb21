package tui

import (
	"strconv"
	"strings"

	"github.com/pders01/blogify/internal/api"
)

const ellipsis = "…"

func heartGlyph(favorited bool) string {
	if favorited {
		return "♥"
	}
	return "♡"
}

// Likes renders an article's favorite state and count, e.g. "♥ 3".
func Likes(a api.Article) string {
	return heartGlyph(a.Favorited) + " " + strconv.Itoa(a.FavoritesCount)
}

// Hashtags renders tags as "#go #dragons".
func Hashtags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return "#" + strings.Join(tags, " #")
}

// truncateEnd cuts s to limit runes, the last of which becomes an ellipsis.
func truncateEnd(s string, limit int) string {
	r := []rune(s)
	switch {
	case limit <= 0:
		return ""
	case len(r) <= limit:
		return s
	case limit == 1:
		return ellipsis
	}
	return string(r[:limit-1]) + ellipsis
}

// truncateMiddle cuts s to limit runes but keeps both ends, for URLs whose
// host and file name both matter.
func truncateMiddle(s string, limit int) string {
	r := []rune(s)
	switch {
	case limit <= 0:
		return ""
	case len(r) <= limit:
		return s
	case limit == 1:
		return ellipsis
	}
	head := (limit - 1) / 2
	tail := limit - 1 - head
	return string(r[:head]) + ellipsis + string(r[len(r)-tail:])
}

func padRight(s string, n int) string {
	if pad := n - len([]rune(s)); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}
