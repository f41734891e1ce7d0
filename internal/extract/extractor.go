// Package extract turns corpus files of various formats into plain text for
// indexing. Routing is by file extension; unknown extensions are treated as
// plain text.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lu4p/cat"
)

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported reports whether ext (with leading dot) has a dedicated extractor.
// Unsupported extensions still extract, as plain text.
func (e *Extractor) Supported(ext string) bool {
	switch strings.ToLower(ext) {
	case ".txt", ".md", ".rst", ".html", ".htm", ".pdf", ".docx", ".xlsx", ".odt", ".rtf":
		return true
	}
	return false
}

// Extract reads the file at path and returns its text content. The format is
// chosen by extension: markup and office formats are decoded, everything else
// is validated as UTF-8 and returned as-is.
func (e *Extractor) Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	// ODF and RTF decoding works on the file directly.
	switch ext {
	case ".odt", ".rtf":
		text, err := cat.File(path)
		if err != nil {
			return "", fmt.Errorf("extract %s: %w", ext, err)
		}
		return strings.TrimSpace(text), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	case ".html", ".htm":
		return extractHTML(content)
	default:
		return extractPlain(content)
	}
}
