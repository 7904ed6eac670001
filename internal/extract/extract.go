// Package extract converts uploaded files of a declared media type into
// plain UTF-8 text for chunking and embedding.
package extract

import (
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/insightqa/insightqa/internal/domain"
)

// Extractor converts file bytes of a declared media type into text.
type Extractor interface {
	Extract(data []byte, mediaType string) (string, error)
}

type extractFunc func(data []byte) (string, error)

// Service dispatches extraction by media type.
type Service struct {
	byType map[string]extractFunc
}

// NewService creates an extraction service covering the supported
// upload formats: plain text, markdown, JSON, HTML and PDF.
func NewService() *Service {
	s := &Service{byType: make(map[string]extractFunc)}
	s.byType["text/plain"] = extractText
	s.byType["text/markdown"] = extractText
	s.byType["application/json"] = extractJSON
	s.byType["text/html"] = extractHTML
	s.byType["application/pdf"] = extractPDF
	return s
}

// Extract converts data into plain text, failing with
// ErrUnsupportedFormat for unknown media types and ErrCorruptFile for
// payloads that cannot be decoded as the declared type.
func (s *Service) Extract(data []byte, mediaType string) (string, error) {
	base := mediaType
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		base = parsed
	}
	base = strings.ToLower(strings.TrimSpace(base))

	fn, ok := s.byType[base]
	if !ok {
		return "", domain.ErrUnsupportedFormat.WithDetail("media type %q", mediaType)
	}
	return fn(data)
}

// DetectMediaType resolves the media type for an upload, preferring the
// declared content type and falling back to the filename extension.
func DetectMediaType(filename, declared string) string {
	if declared != "" && declared != "application/octet-stream" {
		if parsed, _, err := mime.ParseMediaType(declared); err == nil {
			return parsed
		}
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return "text/plain"
	case ".md", ".markdown":
		return "text/markdown"
	case ".json":
		return "application/json"
	case ".html", ".htm":
		return "text/html"
	case ".pdf":
		return "application/pdf"
	}
	if t := mime.TypeByExtension(filepath.Ext(filename)); t != "" {
		if parsed, _, err := mime.ParseMediaType(t); err == nil {
			return parsed
		}
	}
	return declared
}

func extractText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", domain.ErrCorruptFile.WithDetail("payload is not valid UTF-8")
	}
	return string(data), nil
}
