package search

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/blogify/internal/api"
	"github.com/pders01/blogify/internal/debuglog"
)

type BleveEngine struct {
	idx bleve.Index
}

// NewBleveEngine opens or creates the index at indexPath. An empty path
// keeps the index in memory.
func NewBleveEngine(indexPath string) (*BleveEngine, error) {
	if indexPath == "" {
		idx, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("creating in-memory index: %w", err)
		}
		return &BleveEngine{idx: idx}, nil
	}

	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	idx, err := bleve.Open(indexPath)
	if err != nil {
		idx, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("creating index: %w", err)
		}
	}
	return &BleveEngine{idx: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.Store = true
	title.IncludeTermVectors = true
	title.DocValues = true

	desc := bleve.NewTextFieldMapping()
	desc.Analyzer = standard.Name
	desc.Store = true

	body := bleve.NewTextFieldMapping()
	body.Analyzer = standard.Name
	body.Store = false

	tags := bleve.NewTextFieldMapping()
	tags.Analyzer = standard.Name
	tags.Store = true

	slug := bleve.NewTextFieldMapping()
	slug.Analyzer = keyword.Name
	slug.Store = true

	author := bleve.NewTextFieldMapping()
	author.Analyzer = keyword.Name
	author.Store = true

	created := bleve.NewDateTimeFieldMapping()
	created.Store = true

	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("description", desc)
	dm.AddFieldMappingsAt("body", body)
	dm.AddFieldMappingsAt("tags", tags)
	dm.AddFieldMappingsAt("slug", slug)
	dm.AddFieldMappingsAt("author", author)
	dm.AddFieldMappingsAt("created_at", created)

	im.DefaultMapping = dm
	return im
}

func articleDoc(a api.Article) map[string]any {
	doc := map[string]any{
		"slug":        a.Slug,
		"title":       a.Title,
		"description": a.Description,
		"body":        a.Body,
		"tags":        a.TagList,
		"author":      a.Author.Username,
	}
	if !a.CreatedAt.IsZero() {
		doc["created_at"] = a.CreatedAt
	}
	return doc
}

// Index adds or replaces articles, keyed by slug.
func (b *BleveEngine) Index(articles ...api.Article) error {
	if len(articles) == 0 {
		return nil
	}
	batch := b.idx.NewBatch()
	indexed := 0
	for _, a := range articles {
		if a.Slug == "" {
			continue
		}
		if err := batch.Index(docIDForArticle(a.Slug), articleDoc(a)); err != nil {
			return fmt.Errorf("indexing %s: %w", a.Slug, err)
		}
		indexed++
	}
	if err := b.idx.Batch(batch); err != nil {
		return fmt.Errorf("indexing batch: %w", err)
	}
	debuglog.Debugf("indexed %d articles", indexed)
	return nil
}

func (b *BleveEngine) Remove(slug string) error {
	return b.idx.Delete(docIDForArticle(slug))
}

func (b *BleveEngine) Search(query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return []*Result{}, nil
	}

	var qs []bleveQuery.Query
	for _, tok := range tokenize(query) {
		qs = append(qs, fieldQueries(tok, "title", 4.0, 3.5)...)
		qs = append(qs, fieldQueries(tok, "tags", 3.0, 2.5)...)
		qs = append(qs, fieldQueries(tok, "description", 2.0, 1.8)...)
		qs = append(qs, fieldQueries(tok, "body", 1.0, 0.8)...)

		author := bleve.NewPrefixQuery(tok)
		author.SetField("author")
		author.SetBoost(0.5)
		qs = append(qs, author)
	}
	if len(qs) == 0 {
		return []*Result{}, nil
	}

	srch := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)
	srch.Fields = []string{"slug", "title", "description", "tags", "author", "created_at"}
	srch.IncludeLocations = true
	res, err := b.idx.Search(srch)
	if err != nil {
		return nil, err
	}

	out := make([]*Result, 0, len(res.Hits))
	for _, h := range res.Hits {
		a := api.Article{Slug: strings.TrimPrefix(h.ID, "article:")}
		if t, ok := h.Fields["title"].(string); ok {
			a.Title = t
		}
		if d, ok := h.Fields["description"].(string); ok {
			a.Description = d
		}
		if u, ok := h.Fields["author"].(string); ok {
			a.Author.Username = u
		}
		if c, ok := h.Fields["created_at"].(string); ok {
			a.CreatedAt, _ = time.Parse(time.RFC3339, c)
		}
		a.TagList = storedStrings(h.Fields["tags"])

		r := &Result{Article: a, Score: h.Score}
		for field := range h.Locations {
			r.Matches = append(r.Matches, Match{Field: field, Weight: h.Score})
		}
		out = append(out, r)
	}
	return out, nil
}

// fieldQueries returns a match and a prefix query on field for tok.
func fieldQueries(tok, field string, matchBoost, prefixBoost float64) []bleveQuery.Query {
	m := bleve.NewMatchQuery(tok)
	m.SetField(field)
	m.SetBoost(matchBoost)
	p := bleve.NewPrefixQuery(tok)
	p.SetField(field)
	p.SetBoost(prefixBoost)
	return []bleveQuery.Query{m, p}
}

// storedStrings reads a stored multi-value field, which bleve returns as a
// plain string when only one value was indexed.
func storedStrings(v any) []string {
	switch vv := v.(type) {
	case string:
		return []string{vv}
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// SearchInArticle scores the article in hand against query without touching
// the index.
func (b *BleveEngine) SearchInArticle(article *api.Article, query string) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < 2 || article == nil {
		return []*Result{}, nil
	}
	terms := tokenize(query)
	if len(terms) == 0 {
		return []*Result{}, nil
	}
	if res := matchArticle(article, terms); res != nil {
		return []*Result{res}, nil
	}
	return []*Result{}, nil
}

// DocCount reports total documents in the index.
func (b *BleveEngine) DocCount() (int, error) {
	n, err := b.idx.DocCount()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (b *BleveEngine) Close() error {
	return b.idx.Close()
}

func docIDForArticle(slug string) string { return "article:" + slug }
