package mupdf

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"
)

// Extractor uses go-fitz for PDF text extraction (no external tools needed).
type Extractor struct{}

// NewExtractor creates a new go-fitz based extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// IsAvailable always returns true since MuPDF is linked in.
func (e *Extractor) IsAvailable() bool {
	return true
}

// PageCount returns the number of pages according to pdfcpu. It reads the
// document structure only and is used for diagnostics.
func (e *Extractor) PageCount(pdfPath string) (int, error) {
	n, err := api.PageCountFile(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("pdf page count failed: %w", err)
	}
	return n, nil
}

// ExtractText extracts all text from a PDF file, pages separated by a blank line.
func (e *Extractor) ExtractText(pdfPath string) (string, error) {
	log.Debug().Str("pdf", pdfPath).Msg("extracting text with go-fitz")

	doc, err := fitz.New(pdfPath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var result strings.Builder
	failed := 0
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			log.Warn().Err(err).Int("page", i+1).Msg("failed to extract text from page")
			failed++
			continue
		}
		if result.Len() > 0 {
			result.WriteString("\n\n")
		}
		result.WriteString(text)
	}
	if failed > 0 && failed == doc.NumPage() {
		return "", fmt.Errorf("no page of %s could be read", pdfPath)
	}

	text := result.String()
	log.Debug().Int("pages", doc.NumPage()).Int("chars", len(text)).Msg("extracted text from PDF")

	return text, nil
}
