package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dgallion1/pdfindex/internal/document"
)

var tagRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// AssignIDs tags each chunk as {tag}_chunk_{i} in sequence order.
func AssignIDs(chunks []string, tag string) ([]document.Chunk, error) {
	if !tagRe.MatchString(tag) {
		return nil, fmt.Errorf("%w: malformed document tag %q", ErrInvalidArgument, tag)
	}
	out := make([]document.Chunk, len(chunks))
	for i, text := range chunks {
		out[i] = document.Chunk{
			ID:    fmt.Sprintf("%s_chunk_%d", tag, i),
			Tag:   tag,
			Text:  text,
			Index: i,
		}
	}
	return out, nil
}

// Tag derives a document tag from the source path and page number. The
// path hash suffix keeps same-named files in different directories apart.
func Tag(path string, page int) string {
	sum := sha256.Sum256([]byte(path))
	return fmt.Sprintf("%s_page_%d_%s", slug(path), page, hex.EncodeToString(sum[:4]))
}

func slug(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(base) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	s := strings.TrimSuffix(b.String(), "_")
	if s == "" {
		return "doc"
	}
	return s
}
