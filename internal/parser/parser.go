package parser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/pdfindex/internal/document"
)

// ErrExtraction is matched by every ExtractionError.
var ErrExtraction = errors.New("extraction failed")

// ExtractionError reports a file the extractor could not read.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

// Parser turns raw file bytes into a Document of ordered pages.
type Parser interface {
	Parse(r io.Reader, filename string) (*document.Document, error)
}

// Options configures parsers built by ForFile.
type Options struct {
	FallbackPdftotext bool
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".pdf":      true,
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.FallbackPdftotext}, nil
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %q", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// ParseFile opens path and parses it with the parser for its extension.
func ParseFile(path string, opts Options) (*document.Document, error) {
	p, err := ForFile(path, opts)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	defer f.Close()
	return p.Parse(f, path)
}

// sections collects heading-delimited text into pages, for formats that
// have no physical pages.
type sections struct {
	pages   []document.Page
	current strings.Builder
}

func (s *sections) heading(title string) {
	s.flush()
	s.current.WriteString(title)
}

func (s *sections) text(t string) {
	t = strings.TrimSpace(t)
	if t == "" {
		return
	}
	if s.current.Len() > 0 {
		s.current.WriteString("\n\n")
	}
	s.current.WriteString(t)
}

func (s *sections) flush() {
	if s.current.Len() == 0 {
		return
	}
	s.pages = append(s.pages, document.Page{Number: len(s.pages), Text: s.current.String()})
	s.current.Reset()
}

func (s *sections) document(path string) *document.Document {
	s.flush()
	return &document.Document{Path: path, Pages: s.pages}
}
