// Package source extracts plain text from uploaded source documents.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrUnsupported is returned for file types that cannot be extracted.
var ErrUnsupported = errors.New("unsupported file type")

// ErrEmpty is returned when a document has no extractable text.
var ErrEmpty = errors.New("no text content found")

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".pdf":      true,
	".docx":     true,
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".csv":      true,
}

// Page is one page (or one logical block for paginated-less formats).
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Document is the extracted text of an uploaded file.
type Document struct {
	Filename  string `json:"filename"`
	Title     string `json:"title"`
	Format    string `json:"format"`
	PageCount int    `json:"page_count"`
	Pages     []Page `json:"pages"`
}

// Text joins all pages.
func (d *Document) Text() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n\n")
}

// Options tunes extraction.
type Options struct {
	// PdftotextFallback runs the pdftotext binary when the Go PDF reader fails.
	PdftotextFallback bool
}

// IsSupported checks if a file extension is supported.
func IsSupported(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Extract reads r and returns the document text by file extension.
func Extract(ctx context.Context, filename string, r io.Reader, opts Options) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	var (
		doc *Document
		err error
	)
	switch ext {
	case ".pdf":
		doc, err = extractPDF(ctx, r, opts)
	case ".docx":
		doc, err = extractDOCX(r)
	case ".txt":
		doc, err = extractText(r)
	case ".md", ".markdown":
		doc, err = extractMarkdown(r)
	case ".html", ".htm":
		doc, err = extractHTML(r)
	case ".csv":
		doc, err = extractCSV(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	if err != nil {
		return nil, err
	}
	doc.Filename = filename
	doc.Format = strings.TrimPrefix(ext, ".")
	if doc.Title == "" {
		doc.Title = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	if doc.PageCount == 0 {
		doc.PageCount = len(doc.Pages)
	}
	if strings.TrimSpace(doc.Text()) == "" {
		return nil, fmt.Errorf("%s: %w", filename, ErrEmpty)
	}
	return doc, nil
}
