package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func extractPDF(ctx context.Context, r io.Reader, opts Options) (*Document, error) {
	// Both readers need a ReadSeeker, so spool to a temp file.
	tmp, err := os.CreateTemp("", "reportsmith-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	pageCount, validateErr := pdfPageCount(tmpPath)

	pages, err := extractPDFPages(tmpPath)
	if err != nil && opts.PdftotextFallback {
		var text string
		if text, err = extractPdftotext(ctx, tmpPath); err == nil {
			pages = splitPages(text)
		}
	}
	if err != nil {
		if validateErr != nil {
			return nil, fmt.Errorf("extract pdf text: %w (validate: %v)", err, validateErr)
		}
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	doc := &Document{PageCount: pageCount}
	for i, text := range pages {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		doc.Pages = append(doc.Pages, Page{Number: i + 1, Text: text})
	}
	if doc.PageCount < len(pages) {
		doc.PageCount = len(pages)
	}
	return doc, nil
}

// pdfPageCount validates the file structure and returns its page count.
func pdfPageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	pctx, err := api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("pdfcpu read: %w", err)
	}
	return pctx.PageCount, nil
}

func extractPDFPages(path string) (pages []string, err error) {
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("pdf reader: %v", p)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func extractPdftotext(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

// splitPages splits pdftotext output on form feeds.
func splitPages(text string) []string {
	return strings.Split(text, "\f")
}
