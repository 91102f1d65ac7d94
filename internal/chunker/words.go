package chunker

import (
	"fmt"
	"strings"

	"github.com/clipperhouse/uax29/words"
)

// WordBoundary packs UAX #29 word segments (including the whitespace and
// punctuation between them) into chunks of at most Width characters. A
// segment longer than Width is cut with Fixed.
type WordBoundary struct {
	Width int
}

func (w WordBoundary) Name() string { return StrategyWords }

func (w WordBoundary) String() string { return fmt.Sprintf("%s:%d", StrategyWords, w.Width) }

func (w WordBoundary) Split(text string) ([]string, error) {
	if w.Width <= 0 {
		return nil, invalidWidth(w.Width)
	}

	var chunks []string
	var current strings.Builder
	n := 0
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			n = 0
		}
	}

	segments := words.NewSegmenter([]byte(text))
	for segments.Next() {
		seg := segments.Text()
		segLen := Len(seg)

		if segLen > w.Width {
			flush()
			parts, _ := Fixed(seg, w.Width)
			chunks = append(chunks, parts[:len(parts)-1]...)
			last := parts[len(parts)-1]
			current.WriteString(last)
			n = Len(last)
			continue
		}

		if n+segLen > w.Width {
			flush()
		}
		current.WriteString(seg)
		n += segLen
	}
	if err := segments.Err(); err != nil {
		return nil, fmt.Errorf("segment words: %w", err)
	}
	flush()

	return chunks, nil
}
