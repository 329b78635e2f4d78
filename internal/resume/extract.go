// Package resume imports candidate resumes. PDF files are reduced to plain
// text suitable for storage on the candidate profile; the external retrieval
// system consumes that text when producing resume evaluations.
package resume

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractText reads a PDF file and returns its plain text content with
// whitespace normalized. An empty result is an error: a resume with no
// extractable text (e.g. scanned images) cannot be evaluated.
func ExtractText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting text from %s: %w", path, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("reading extracted text from %s: %w", path, err)
	}

	text := NormalizeText(buf.String())
	if text == "" {
		return "", fmt.Errorf("no extractable text in %s", path)
	}
	return text, nil
}

// NormalizeText collapses runs of whitespace into single spaces and trims the
// result. PDF extraction produces erratic spacing and stray newlines; the
// stored profile text should be a single clean block.
func NormalizeText(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
