package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/blogify/internal/api"
	"github.com/pders01/blogify/internal/search"
)

type View int

const (
	ViewHome View = iota
	ViewTags
	ViewReader
	ViewComments
	ViewProfile
	ViewEditor
	ViewSettings
	ViewLogin
	ViewRegister
	ViewSearch
	ViewDeleteConfirm
)

func (v View) String() string {
	switch v {
	case ViewHome:
		return "home"
	case ViewTags:
		return "tags"
	case ViewReader:
		return "article"
	case ViewComments:
		return "comments"
	case ViewProfile:
		return "profile"
	case ViewEditor:
		return "editor"
	case ViewSettings:
		return "settings"
	case ViewLogin:
		return "sign in"
	case ViewRegister:
		return "sign up"
	case ViewSearch:
		return "search"
	case ViewDeleteConfirm:
		return "delete"
	default:
		return "unknown"
	}
}

type articleItem struct {
	article api.Article
	maxDesc int
}

func (i articleItem) Title() string {
	heart := heartGlyph(i.article.Favorited)
	if i.article.Favorited {
		heart = FavoritedStyle.Render(heart)
	}
	return fmt.Sprintf("%s %d  %s", heart, i.article.FavoritesCount, i.article.Title)
}

func (i articleItem) Description() string {
	limit := i.maxDesc
	if limit <= 0 {
		limit = 80
	}
	desc := truncateEnd(i.article.Description, limit)

	meta := i.article.Author.Username
	if !i.article.CreatedAt.IsZero() {
		meta += " • " + i.article.CreatedAt.Format("Jan 2, 2006")
	}
	if len(i.article.TagList) > 0 {
		meta += " • " + Hashtags(i.article.TagList)
	}

	return lipgloss.NewStyle().
		Foreground(MutedColor).
		Render(desc) + MetaStyle.Render(" • "+meta)
}

func (i articleItem) FilterValue() string { return i.article.Title }

func articleItems(articles []api.Article, maxDesc int) []list.Item {
	items := make([]list.Item, len(articles))
	for i, a := range articles {
		items[i] = articleItem{article: a, maxDesc: maxDesc}
	}
	return items
}

type tagItem string

func (t tagItem) Title() string       { return "#" + string(t) }
func (t tagItem) Description() string { return "" }
func (t tagItem) FilterValue() string { return string(t) }

func tagItems(tags []string) []list.Item {
	items := make([]list.Item, len(tags))
	for i, t := range tags {
		items[i] = tagItem(t)
	}
	return items
}

type commentItem struct {
	comment api.Comment
	own     bool
}

func (i commentItem) Title() string {
	title := i.comment.Author.Username
	if i.own {
		title += " (you)"
	}
	return AuthorStyle.Render(title)
}

func (i commentItem) Description() string {
	body := strings.Join(strings.Fields(i.comment.Body), " ")
	if !i.comment.CreatedAt.IsZero() {
		body = i.comment.CreatedAt.Format("Jan 2") + " • " + body
	}
	return lipgloss.NewStyle().Foreground(MutedColor).Render(truncateEnd(body, 100))
}

func (i commentItem) FilterValue() string { return i.comment.Body }

func commentItems(comments []api.Comment, username string) []list.Item {
	items := make([]list.Item, len(comments))
	for i, c := range comments {
		items[i] = commentItem{comment: c, own: username != "" && c.Author.Username == username}
	}
	return items
}

type searchResultItem struct {
	article api.Article
	snippet string
	field   string
}

func (i searchResultItem) Title() string {
	return ResultTitleStyle.Render("📄 " + i.article.Title)
}

func (i searchResultItem) Description() string {
	desc := i.snippet
	if desc == "" {
		desc = i.article.Description
	}
	desc = truncateEnd(desc, 60)
	if i.field != "" {
		desc = i.field + ": " + desc
	}
	return lipgloss.NewStyle().
		Foreground(MutedColor).
		Render(desc + " • by " + i.article.Author.Username)
}

func (i searchResultItem) FilterValue() string {
	return i.article.Title + " " + i.article.Description
}

func searchItems(results []*search.Result) []searchResultItem {
	items := make([]searchResultItem, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		item := searchResultItem{article: r.Article}
		if len(r.Matches) > 0 {
			item.snippet = r.Matches[0].Text
			item.field = r.Matches[0].Field
		}
		items = append(items, item)
	}
	return items
}

// storeChangedMsg is sent whenever any store notifies its listeners.
type storeChangedMsg struct{}

// opDoneMsg reports the end of a store operation started by the view.
type opDoneMsg struct {
	op  string
	err error
}

type articleRenderedMsg struct {
	slug    string
	content string
}

type articleSavedMsg struct {
	slug string
	err  error
}

type articleDeletedMsg struct {
	slug string
	err  error
}

type signedInMsg struct {
	err error
}

type settingsSavedMsg struct {
	err error
}

type searchResultsMsg struct {
	seq     int
	results []searchResultItem
}

type searchDebounceFireMsg struct {
	seq int
}

type errorMsg struct {
	err error
}
