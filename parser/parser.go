// Package parser extracts text from plan documents in the formats the
// engine ingests: PDF, DOCX, XLSX, plain text and markdown. Parsers
// produce ordered sections; Flatten joins them back into the single
// text stream the graph builder and chunker consume.
package parser

import (
	"context"
	"strings"
)

// ParseResult is what a parser produces from a document file.
type ParseResult struct {
	Sections []Section // Ordered sections extracted from the document
	Method   string    // "native"
	Metadata map[string]string
}

// Section represents a logical section of a parsed document.
type Section struct {
	Heading    string
	Content    string
	Level      int // Heading level (1=top, 2=sub, etc.)
	PageNumber int
	Type       string // "section", "table", "paragraph"
	Metadata   map[string]string
}

// Parser can parse a specific document format.
type Parser interface {
	Parse(ctx context.Context, path string) (*ParseResult, error)
	SupportedFormats() []string
}

// Flatten joins the parsed sections into one text document, restoring
// headings above their content so downstream tag inference still sees
// them. Sections are separated by blank lines.
func (r *ParseResult) Flatten() string {
	var b strings.Builder
	for _, sec := range r.Sections {
		if sec.Heading != "" {
			b.WriteString(sec.Heading)
			b.WriteString("\n")
		}
		if sec.Content != "" {
			b.WriteString(sec.Content)
		}
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}
