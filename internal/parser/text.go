package parser

import (
	"io"

	"github.com/dgallion1/pdfindex/internal/document"
)

// TextParser handles plain text. Form feeds separate pages; otherwise the
// whole file is page 0. Text is kept verbatim.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*document.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ExtractionError{Path: filename, Err: err}
	}

	doc := &document.Document{Path: filename}
	for i, text := range splitFormFeed(string(data)) {
		doc.Pages = append(doc.Pages, document.Page{Number: i, Text: text})
	}
	return doc, nil
}
