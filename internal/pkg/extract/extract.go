// Package extract turns an uploaded file into plain text plus
// per-source metadata. Only pdf and txt are accepted; the slower
// formats (docx, pptx, csv) are rejected up front and users are asked
// to convert them to PDF first.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"notesage/internal/apperr"
	"notesage/internal/model"
)

// SupportedTypes is the hardened ingestion allow-list.
var SupportedTypes = []string{"pdf", "txt"}

const minParagraphChars = 10

// Result is the extractor output: the cleaned text and any
// format-specific metadata (page count for PDFs).
type Result struct {
	Text     string
	Metadata map[string]any
}

// Supported reports whether fileType is in the ingestion allow-list.
func Supported(fileType string) bool {
	t := strings.ToLower(strings.TrimSpace(fileType))
	for _, s := range SupportedTypes {
		if t == s {
			return true
		}
	}
	return false
}

// Extract reads the file at path and produces plain text according to
// the declared type. The declared type wins over sniffing; a mismatch
// surfaces as an extraction failure, not a silent fallback.
func Extract(path, fileType string) (*Result, error) {
	switch strings.ToLower(strings.TrimSpace(fileType)) {
	case "pdf":
		return extractPDF(path)
	case "txt":
		return extractText(path)
	default:
		return nil, apperr.New(
			apperr.KindUnsupportedFormat,
			fmt.Sprintf("currently supporting only %s files for faster processing", strings.Join(SupportedTypes, ", ")),
		).WithHint("please convert other formats to PDF")
	}
}

func extractText(path string) (*Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text file failed: %w", err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, apperr.New(apperr.KindNoContent, "no readable text content found in file")
	}
	return &Result{
		Text:     text,
		Metadata: map[string]any{},
	}, nil
}

func extractPDF(path string) (*Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pdf file failed: %w", err)
	}
	if len(raw) == 0 {
		return nil, apperr.New(apperr.KindNoContent, "no readable text content found in PDF")
	}

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNoContent, "failed to parse PDF", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNoContent, "failed to extract text from PDF", err)
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return nil, fmt.Errorf("read extracted pdf text failed: %w", err)
	}

	paragraphs := CleanPDFText(string(out))
	if len(paragraphs) == 0 {
		return nil, apperr.New(apperr.KindNoContent, "no readable text content found in PDF")
	}

	return &Result{
		Text: strings.Join(paragraphs, "\n\n"),
		Metadata: map[string]any{
			model.MetaPageCount: reader.NumPage(),
		},
	}, nil
}

var (
	pdfDictRe   = regexp.MustCompile(`<<[^>]*>>`)
	pdfRefRe    = regexp.MustCompile(`\[\d+ \d+ R\]`)
	pdfObjRe    = regexp.MustCompile(`/?\d+ \d+ obj`)
	pdfMarkerRe = regexp.MustCompile(`endobj|endstream|startxref|xref|trailer`)
	paragraphRe = regexp.MustCompile(`\n\s*\n`)
)

// CleanPDFText strips low-level PDF object syntax that leaks into
// extracted text and splits the remainder into paragraphs. Paragraphs
// shorter than 10 characters are treated as extraction noise.
func CleanPDFText(text string) []string {
	cleaned := pdfDictRe.ReplaceAllString(text, "")
	cleaned = pdfRefRe.ReplaceAllString(cleaned, "")
	cleaned = pdfObjRe.ReplaceAllString(cleaned, "")
	cleaned = pdfMarkerRe.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	var paragraphs []string
	for _, p := range paragraphRe.Split(cleaned, -1) {
		p = strings.TrimSpace(p)
		if len(p) >= minParagraphChars {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}
