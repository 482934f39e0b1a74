// ABOUTME: Chunker splits document text into overlapping, size-bounded chunks
// ABOUTME: Prefers paragraph → line → sentence → word boundaries before hard character cuts
package core

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"github.com/harper/folio/internal/models"
)

const (
	// DefaultChunkSize is the target chunk length in characters
	DefaultChunkSize = 900
	// DefaultChunkOverlap is how many trailing characters a chunk may share with the next
	DefaultChunkOverlap = 120
)

// defaultSeparators are tried in order; "" means cut between characters
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunker handles recursive text chunking
type Chunker struct {
	size       int
	overlap    int
	separators []string
}

// NewChunker creates a Chunker. Overlap is clamped below size.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Chunker{size: size, overlap: overlap, separators: defaultSeparators}
}

// Fingerprint returns the hex SHA-1 of the full document text
func Fingerprint(text string) string {
	sum := sha1.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ChunkDocument splits a document and stamps its source and fingerprint on every chunk
func (c *Chunker) ChunkDocument(doc models.Document) []models.Chunk {
	parts := c.Split(doc.Text)
	chunks := make([]models.Chunk, 0, len(parts))
	for _, p := range parts {
		chunks = append(chunks, models.Chunk{
			Content:     p,
			Source:      doc.Source,
			Fingerprint: doc.Fingerprint,
		})
	}
	return chunks
}

// Split breaks text into trimmed chunks of at most size characters
func (c *Chunker) Split(text string) []string {
	return c.split(text, c.separators)
}

func (c *Chunker) split(text string, separators []string) []string {
	sep := ""
	var rest []string
	for i, s := range separators {
		if s == "" {
			break
		}
		if strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	var (
		out  []string
		good []string
	)
	for _, piece := range splitKeepSeparator(text, sep) {
		if runeLen(piece) < c.size {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, c.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			out = append(out, trimmed(piece)...)
		} else {
			out = append(out, c.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		out = append(out, c.merge(good)...)
	}
	return out
}

// merge greedily packs pieces into chunks, carrying up to overlap
// characters of trailing pieces into the next chunk
func (c *Chunker) merge(pieces []string) []string {
	var (
		chunks  []string
		current []string
		total   int
	)
	for _, p := range pieces {
		n := runeLen(p)
		if total+n > c.size && len(current) > 0 {
			chunks = append(chunks, trimmed(strings.Join(current, ""))...)
			for len(current) > 0 && (total > c.overlap || total+n > c.size) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	if len(current) > 0 {
		chunks = append(chunks, trimmed(strings.Join(current, ""))...)
	}
	return chunks
}

// splitKeepSeparator splits on sep, leaving sep attached to the end of each piece.
// An empty sep splits into single characters.
func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		pieces := make([]string, 0, len(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}
	parts := strings.SplitAfter(text, sep)
	pieces := parts[:0]
	for _, p := range parts {
		if p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

func trimmed(s string) []string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return []string{s}
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
