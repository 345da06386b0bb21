package search

import "github.com/pders01/blogify/internal/api"

// Searcher defines the minimal search API used by the TUI.
type Searcher interface {
	Search(query string, limit int) ([]*Result, error)
	SearchInArticle(article *api.Article, query string) ([]*Result, error)
}

// Indexer is fed every article the client loads.
type Indexer interface {
	Index(articles ...api.Article) error
	Remove(slug string) error
}

// DebugStatser provides lightweight stats for visibility/debugging.
// Implemented by engines that can report index doc counts, etc.
type DebugStatser interface {
	DocCount() (int, error)
}
