package search

import (
	"math"
	"strings"
	"unicode"

	"github.com/pders01/blogify/internal/api"
)

// Result is one search hit.
type Result struct {
	Article api.Article
	Score   float64
	Matches []Match
}

// Match is the part of an article a query hit, with a short excerpt.
type Match struct {
	Field  string
	Text   string
	Weight float64
}

// articleField describes how one article field takes part in scoring.
type articleField struct {
	name    string
	weight  float64
	text    func(*api.Article) string
	excerpt func(a *api.Article, terms []string) string
}

// Fields in the order matches are reported. Titles outrank tags, tags
// outrank descriptions and the body counts least.
var articleFields = []articleField{
	{
		name:    "title",
		weight:  4,
		text:    func(a *api.Article) string { return a.Title },
		excerpt: func(a *api.Article, _ []string) string { return a.Title },
	},
	{
		name:    "tags",
		weight:  3,
		text:    func(a *api.Article) string { return strings.Join(a.TagList, " ") },
		excerpt: func(a *api.Article, _ []string) string { return strings.Join(a.TagList, ", ") },
	},
	{
		name:    "description",
		weight:  2,
		text:    func(a *api.Article) string { return a.Description },
		excerpt: func(a *api.Article, _ []string) string { return truncate(a.Description, 150) },
	},
	{
		name:    "body",
		weight:  1,
		text:    func(a *api.Article) string { return a.Body },
		excerpt: func(a *api.Article, terms []string) string { return findBestSnippet(a.Body, terms, 200) },
	},
}

// matchArticle scores a single article against terms without the index.
// It returns nil when no field matches.
func matchArticle(article *api.Article, terms []string) *Result {
	res := Result{}
	for _, f := range articleFields {
		score := scoreField(f.text(article), terms, f.weight)
		if score <= 0 {
			continue
		}
		res.Matches = append(res.Matches, Match{Field: f.name, Text: f.excerpt(article, terms), Weight: score})
		res.Score += score
	}
	if res.Score == 0 {
		return nil
	}
	res.Article = article.Clone()
	return &res
}

// scoreField rates how well text answers terms. Whole-word hits count more
// than prefix or suffix hits, which count more than infix hits.
func scoreField(text string, terms []string, weight float64) float64 {
	words := tokenize(text)
	if len(words) == 0 {
		return 0
	}
	lower := strings.ToLower(text)

	var score float64
	hits := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			score += 2
			hits++
		}
		for _, w := range words {
			if s := wordScore(w, term); s > 0 {
				score += s
				hits++
			}
		}
	}

	if len(terms) > 1 && hits > 1 {
		score *= 1 + float64(hits)/float64(len(terms))
	}
	density := float64(hits) / float64(len(words))
	return score * (1 + math.Log1p(density)) * weight
}

func wordScore(word, term string) float64 {
	switch {
	case word == term:
		return 1.5
	case strings.HasPrefix(word, term), strings.HasSuffix(word, term):
		return 1
	case strings.Contains(word, term):
		return 0.5
	}
	return 0
}

// findBestSnippet returns the run of words from text that mentions the
// most terms, cut to maxLength runes.
func findBestSnippet(text string, terms []string, maxLength int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	// Roughly eight runes per word.
	span := maxLength / 8
	if span >= len(words) {
		return truncate(text, maxLength)
	}

	best, bestHits := 0, 0
	for start := 0; start+span <= len(words); start++ {
		window := strings.ToLower(strings.Join(words[start:start+span], " "))
		hits := 0
		for _, term := range terms {
			if strings.Contains(window, term) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = start, hits
		}
	}
	return truncate(strings.Join(words[best:best+span], " "), maxLength)
}

// tokenize lowercases text and splits it on anything that is not a letter
// or digit. One-rune tokens are dropped.
func tokenize(text string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	var terms []string
	for _, tok := range tokens {
		if len([]rune(tok)) > 1 {
			terms = append(terms, tok)
		}
	}
	return terms
}

// truncate cuts text to maxLen runes, the last being an ellipsis.
func truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen-1]) + "…"
}
