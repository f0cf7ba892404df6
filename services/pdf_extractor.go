package services

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"

	"semantic-qa-platform/internal/logger"
	"semantic-qa-platform/models"
	"semantic-qa-platform/utils"
)

// PDFExtractor extracts per-page text from PDF bytes. Corrupt or encrypted
// input is a parsing failure; a readable PDF with no extractable text (e.g.
// image-only scans) yields an empty page list, not an error.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// ExtractPages returns the non-empty pages of the document in order, with
// 1-indexed page numbers.
func (e *PDFExtractor) ExtractPages(data []byte) ([]models.Page, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, utils.NewParsingError("failed to open PDF: %v", err)
	}

	pages := make([]models.Page, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("Failed to extract text from page", "page", i, "error", err)
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, models.Page{Number: i, Text: text})
	}

	return pages, nil
}
