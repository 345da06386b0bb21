// Package frontmatter reads and writes markdown article files with a TOML
// header delimited by "+++" lines, the layout Hugo uses.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/pders01/blogify/internal/api"
)

const delimiter = "+++"

var ErrMissingFrontMatter = errors.New("file does not start with a +++ front matter block")

// Meta is the header of an article file. A non-empty Slug marks the file as
// an edit of an existing article.
type Meta struct {
	Title       string   `toml:"title"`
	Description string   `toml:"description"`
	Tags        []string `toml:"tags,omitempty"`
	Slug        string   `toml:"slug,omitempty"`
}

// Document is a parsed article file.
type Document struct {
	Meta Meta
	Body string
}

// Draft returns the document as an API payload.
func (d Document) Draft() api.ArticleDraft {
	return api.ArticleDraft{
		Title:       d.Meta.Title,
		Description: d.Meta.Description,
		Body:        d.Body,
		TagList:     d.Meta.Tags,
	}
}

// Parse splits data into its TOML header and markdown body.
func Parse(data []byte) (Document, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimPrefix(text, "\ufeff")

	if !strings.HasPrefix(text, delimiter+"\n") {
		return Document{}, ErrMissingFrontMatter
	}
	rest := text[len(delimiter)+1:]

	var header, body string
	switch {
	case strings.HasPrefix(rest, delimiter+"\n") || rest == delimiter:
		body = strings.TrimPrefix(rest, delimiter)
	default:
		end := strings.Index(rest, "\n"+delimiter+"\n")
		if end < 0 {
			if !strings.HasSuffix(rest, "\n"+delimiter) {
				return Document{}, fmt.Errorf("unterminated front matter: missing closing %s", delimiter)
			}
			end = len(rest) - len(delimiter) - 1
		}
		header = rest[:end]
		body = rest[min(end+len(delimiter)+1, len(rest)):]
	}

	var doc Document
	if err := toml.Unmarshal([]byte(header), &doc.Meta); err != nil {
		return Document{}, fmt.Errorf("parsing front matter: %w", err)
	}
	doc.Body = strings.TrimLeft(body, "\n")
	return doc, nil
}

// Format renders doc as an article file that Parse reads back.
func Format(doc Document) ([]byte, error) {
	header, err := toml.Marshal(doc.Meta)
	if err != nil {
		return nil, fmt.Errorf("encoding front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")
	buf.Write(header)
	if len(header) > 0 && header[len(header)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.WriteString(delimiter + "\n\n")
	buf.WriteString(doc.Body)
	if doc.Body != "" && !strings.HasSuffix(doc.Body, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
