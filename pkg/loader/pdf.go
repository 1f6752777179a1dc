package loader

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PageExtractor returns the native text of every page of a document, in
// page order. Pages without embedded text come back empty.
type PageExtractor interface {
	ExtractPages(path string) ([]string, error)
}

// OCR recovers text from a single page when native extraction found none.
// Page numbers are 1-based.
type OCR interface {
	Page(path string, page int) (string, error)
}

// PDFPages extracts embedded text page by page.
type PDFPages struct{}

func (PDFPages) ExtractPages(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			// Unreadable page: leave it empty so the OCR fallback
			// gets a chance at it.
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}
