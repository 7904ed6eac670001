// Package chunker splits extracted document text into bounded,
// overlapping spans suitable for embedding.
package chunker

import (
	"github.com/insightqa/insightqa/internal/domain"
)

// Defaults match the ingestion pipeline's chunk geometry.
const (
	DefaultMaxLen  = 800
	DefaultOverlap = 150
)

// Config controls chunk geometry.
type Config struct {
	MaxLen  int
	Overlap int
}

// DefaultConfig provides sane defaults for chunking.
func DefaultConfig() Config {
	return Config{
		MaxLen:  DefaultMaxLen,
		Overlap: DefaultOverlap,
	}
}

// Chunk splits text into rune-bounded spans. Each span is at most
// maxLen runes; consecutive spans share exactly overlap runes, except
// the final span which may be shorter. The split is deterministic, and
// overlap-aware concatenation of the result reconstructs the input.
func Chunk(text string, maxLen, overlap int) ([]string, error) {
	if maxLen <= 0 {
		return nil, domain.ErrInvalidParameters.WithDetail("maxLen must be positive, got %d", maxLen)
	}
	if overlap < 0 || overlap >= maxLen {
		return nil, domain.ErrInvalidParameters.WithDetail("overlap must satisfy 0 <= overlap < maxLen, got overlap=%d maxLen=%d", overlap, maxLen)
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}
	if len(runes) <= maxLen {
		return []string{string(runes)}, nil
	}

	stride := maxLen - overlap
	spans := make([]string, 0, (len(runes)+stride-1)/stride)
	for start := 0; start < len(runes); start += stride {
		end := start + maxLen
		if end > len(runes) {
			end = len(runes)
		}
		spans = append(spans, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return spans, nil
}

// ChunkWithConfig applies Chunk using cfg, falling back to defaults for
// unset fields.
func ChunkWithConfig(text string, cfg Config) ([]string, error) {
	if cfg.MaxLen == 0 {
		cfg = DefaultConfig()
	}
	return Chunk(text, cfg.MaxLen, cfg.Overlap)
}

// Reconstruct rebuilds the original text from spans produced by Chunk
// with the same overlap.
func Reconstruct(spans []string, overlap int) string {
	if len(spans) == 0 {
		return ""
	}
	out := []rune(spans[0])
	for _, span := range spans[1:] {
		runes := []rune(span)
		if len(runes) > overlap {
			out = append(out, runes[overlap:]...)
		}
	}
	return string(out)
}
