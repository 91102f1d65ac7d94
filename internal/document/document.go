package document

import "strings"

// Document is the text extracted from one source file.
type Document struct {
	Path  string // Source path or upload filename
	Pages []Page // In source order
}

// Page is one page (or section, for formats without pages) of a document.
type Page struct {
	Number int    // Zero-based
	Text   string // May be empty
}

// Chunk is a bounded slice of page text, ready for indexing.
type Chunk struct {
	ID    string // {tag}_chunk_{index}
	Tag   string
	Text  string
	Path  string
	Page  int
	Index int // Position within the page's chunk sequence
}

// Text joins all page text with newlines.
func (d *Document) Text() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n")
}

// NonEmptyPages counts pages with any non-whitespace text.
func (d *Document) NonEmptyPages() int {
	n := 0
	for _, p := range d.Pages {
		if strings.TrimSpace(p.Text) != "" {
			n++
		}
	}
	return n
}
