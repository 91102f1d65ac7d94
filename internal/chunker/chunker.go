package chunker

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/dgallion1/pdfindex/internal/document"
)

// ErrInvalidArgument reports a bad width, strategy name or tag.
var ErrInvalidArgument = errors.New("invalid argument")

// Strategy splits text into an ordered, lossless sequence of bounded chunks.
// String identifies the strategy and its parameters, e.g. "fixed:128".
type Strategy interface {
	Name() string
	String() string
	Split(text string) ([]string, error)
}

const (
	StrategyFixed = "fixed"
	StrategyWords = "words"
)

// NewStrategy returns the strategy registered under name.
func NewStrategy(name string, width int) (Strategy, error) {
	if width <= 0 {
		return nil, invalidWidth(width)
	}
	switch name {
	case StrategyFixed, "":
		return FixedWidth{Width: width}, nil
	case StrategyWords:
		return WordBoundary{Width: width}, nil
	default:
		return nil, fmt.Errorf("%w: unknown chunk strategy %q", ErrInvalidArgument, name)
	}
}

// Fixed partitions text into chunks of exactly width characters, the last
// one possibly shorter. Characters are code points; words, hyphens and
// whitespace are not treated specially.
func Fixed(text string, width int) ([]string, error) {
	if width <= 0 {
		return nil, invalidWidth(width)
	}
	var chunks []string
	start, n := 0, 0
	for i := range text {
		if n == width {
			chunks = append(chunks, text[start:i])
			start, n = i, 0
		}
		n++
	}
	if start < len(text) {
		chunks = append(chunks, text[start:])
	}
	return chunks, nil
}

// FixedWidth is the Strategy form of Fixed.
type FixedWidth struct {
	Width int
}

func (f FixedWidth) Name() string { return StrategyFixed }

func (f FixedWidth) String() string { return fmt.Sprintf("%s:%d", StrategyFixed, f.Width) }

func (f FixedWidth) Split(text string) ([]string, error) {
	return Fixed(text, f.Width)
}

// ChunkPage splits one page and assigns identifiers derived from the
// document path and page number.
func ChunkPage(page document.Page, path string, s Strategy) ([]document.Chunk, error) {
	parts, err := s.Split(page.Text)
	if err != nil {
		return nil, err
	}
	chunks, err := AssignIDs(parts, Tag(path, page.Number))
	if err != nil {
		return nil, err
	}
	for i := range chunks {
		chunks[i].Path = path
		chunks[i].Page = page.Number
	}
	return chunks, nil
}

// Len returns the chunk length in the unit widths are measured in.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}

func invalidWidth(width int) error {
	return fmt.Errorf("%w: chunk width must be positive, got %d", ErrInvalidArgument, width)
}
