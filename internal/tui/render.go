package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/pders01/blogify/internal/api"
	"github.com/pders01/blogify/internal/config"
)

// ArticleMarkdown lays out an article and its comments as one markdown
// document for glamour.
func ArticleMarkdown(article api.Article, comments []api.Comment) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", article.Title)
	fmt.Fprintf(&b, "*by %s", article.Author.Username)
	if !article.CreatedAt.IsZero() {
		fmt.Fprintf(&b, " • %s", article.CreatedAt.Format("January 2, 2006"))
	}
	b.WriteString("*\n\n")

	b.WriteString(Likes(article))
	for _, tag := range article.TagList {
		fmt.Fprintf(&b, " `#%s`", tag)
	}
	b.WriteString("\n\n---\n\n")

	b.WriteString(strings.TrimSpace(article.Body))
	b.WriteString("\n\n---\n\n")

	if len(comments) == 0 {
		b.WriteString("*No comments yet.*\n")
		return b.String()
	}

	fmt.Fprintf(&b, "## Comments (%d)\n\n", len(comments))
	for _, c := range comments {
		fmt.Fprintf(&b, "**%s**", c.Author.Username)
		if !c.CreatedAt.IsZero() {
			fmt.Fprintf(&b, " · %s", c.CreatedAt.Format("Jan 2, 2006"))
		}
		body := strings.ReplaceAll(strings.TrimSpace(c.Body), "\n", "\n> ")
		fmt.Fprintf(&b, "\n\n> %s\n\n", body)
	}
	return b.String()
}

// WrapWidth picks a readable word-wrap width for a terminal of the given
// width within the configured bounds.
func WrapWidth(width int, cfg config.ArticleConfig) int {
	maxWidth, minWidth := cfg.WordWrapMaxWidth, cfg.WordWrapMinWidth
	if maxWidth <= 0 {
		maxWidth = 120
	}
	if minWidth <= 0 {
		minWidth = 40
	}

	wrap := (width * 9) / 10
	if wrap > maxWidth {
		wrap = maxWidth
	}
	if wrap < minWidth {
		wrap = minWidth
	}
	if width < 50 {
		wrap = width - 4
		if wrap < 20 {
			wrap = 20
		}
	}
	return wrap
}

// NewRenderer returns a glamour renderer wrapping at wrap columns.
func NewRenderer(wrap int) (*glamour.TermRenderer, error) {
	return glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	wrap := WrapWidth(a.width, a.config.UI.Article)

	if a.glamourRenderer == nil || abs(a.rendererWidth-wrap) > 10 {
		r, err := NewRenderer(wrap)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wrap
	}
	return a.glamourRenderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
