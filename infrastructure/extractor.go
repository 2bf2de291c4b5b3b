package infrastructure

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"ats-evaluator/domain"
	"ats-evaluator/logger"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
	"go.uber.org/zap"
)

var errEncrypted = errors.New("document is encrypted")

// pageSource yields the text of individual pages, numbered from 1.
type pageSource interface {
	NumPages() int
	PageText(n int) (string, error)
}

// TextExtractor turns uploaded documents into plain text. It never fails: problems
// are reported as warnings next to whatever text could be recovered.
type TextExtractor struct {
	logger *zap.Logger
	unipdf bool
}

// NewTextExtractor creates an extractor. A non-empty licenseKey enables unipdf;
// without one PDFs are read with ledongthuc/pdf only.
func NewTextExtractor(licenseKey string, log *zap.Logger) *TextExtractor {
	e := &TextExtractor{logger: logger.OrNop(log)}
	if key := strings.TrimSpace(licenseKey); key != "" {
		if err := license.SetMeteredKey(key); err != nil {
			e.logger.Warn("unipdf license rejected, falling back to ledongthuc/pdf", zap.Error(err))
		} else {
			e.unipdf = true
		}
	}
	return e
}

// Extract returns the document text chosen by the filename extension. Unknown
// extensions are sniffed for a PDF header.
func (e *TextExtractor) Extract(filename string, data []byte) (out domain.Extraction) {
	log := e.logger.With(zap.String("resume_name", filename), zap.Int("bytes", len(data)))

	defer func() {
		if r := recover(); r != nil {
			out = domain.Extraction{Warnings: append(out.Warnings, fmt.Sprintf("text extraction aborted: %v", r))}
		}
		for _, w := range out.Warnings {
			log.Warn("text extraction", zap.String("warning", w))
		}
	}()

	if len(data) == 0 {
		return domain.Extraction{Warnings: []string{"document is empty"}}
	}

	switch ext := strings.ToLower(filepath.Ext(filename)); {
	case ext == ".pdf", bytes.HasPrefix(data, []byte("%PDF-")):
		return e.extractPDF(data)
	case ext == ".docx":
		return extractDOCX(data)
	case ext == ".txt":
		return extractPlain(data)
	default:
		return domain.Extraction{Warnings: []string{fmt.Sprintf("unsupported document type %q", ext)}}
	}
}

func (e *TextExtractor) extractPDF(data []byte) domain.Extraction {
	if e.unipdf {
		out, err := e.extractWith(openUniPDF, data)
		if errors.Is(err, errEncrypted) {
			return domain.Extraction{Warnings: []string{"PDF is encrypted, no text extracted"}}
		}
		if err == nil && out.Text != "" {
			return out
		}
		e.logger.Debug("unipdf gave no text, trying ledongthuc/pdf", zap.Error(err))
	}

	out, err := e.extractWith(openLedongthuc, data)
	if err != nil {
		return domain.Extraction{Warnings: []string{fmt.Sprintf("failed to read PDF: %v", err)}}
	}
	return out
}

func (e *TextExtractor) extractWith(open func([]byte) (pageSource, error), data []byte) (domain.Extraction, error) {
	src, err := open(data)
	if err != nil {
		return domain.Extraction{}, err
	}

	text, warnings := joinPages(src)
	if text == "" && len(warnings) == 0 {
		warnings = append(warnings, "no text could be extracted from the PDF")
	}
	return domain.Extraction{Text: text, Warnings: warnings}, nil
}

// joinPages concatenates page texts in page order. A failing page becomes an empty fragment.
func joinPages(src pageSource) (string, []string) {
	n := src.NumPages()
	if n <= 0 {
		return "", []string{"PDF has no pages"}
	}

	var warnings []string
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		text, err := pageText(src, i)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("page %d: %v", i, err))
			text = ""
		}
		pages = append(pages, text)
	}

	return strings.TrimSpace(strings.Join(pages, "\n")), warnings
}

func pageText(src pageSource, n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor panic: %v", r)
		}
	}()
	return src.PageText(n)
}

type uniPDF struct {
	reader *model.PdfReader
	pages  int
}

func openUniPDF(data []byte) (pageSource, error) {
	reader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	encrypted, err := reader.IsEncrypted()
	if err != nil {
		return nil, fmt.Errorf("failed to check encryption: %w", err)
	}
	if encrypted {
		ok, err := reader.Decrypt([]byte(""))
		if err != nil || !ok {
			return nil, errEncrypted
		}
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}

	return &uniPDF{reader: reader, pages: numPages}, nil
}

func (u *uniPDF) NumPages() int { return u.pages }

func (u *uniPDF) PageText(n int) (string, error) {
	page, err := u.reader.GetPage(n)
	if err != nil {
		return "", fmt.Errorf("get page: %w", err)
	}
	ex, err := extractor.New(page)
	if err != nil {
		return "", fmt.Errorf("create extractor: %w", err)
	}
	return ex.ExtractText()
}

type ledongthucPDF struct {
	reader *pdf.Reader
}

func openLedongthuc(data []byte) (src pageSource, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &ledongthucPDF{reader: reader}, nil
}

func (l *ledongthucPDF) NumPages() int { return l.reader.NumPage() }

func (l *ledongthucPDF) PageText(n int) (string, error) {
	page := l.reader.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

var (
	xmlParagraph = regexp.MustCompile(`</w:p>`)
	xmlTag       = regexp.MustCompile(`<[^>]+>`)
)

func extractDOCX(data []byte) domain.Extraction {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return domain.Extraction{Warnings: []string{fmt.Sprintf("failed to read DOCX: %v", err)}}
	}
	defer doc.Close()

	content := doc.Editable().GetContent()
	content = xmlParagraph.ReplaceAllString(content, "\n")
	content = xmlTag.ReplaceAllString(content, "")
	content = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'").Replace(content)

	text := strings.TrimSpace(content)
	if text == "" {
		return domain.Extraction{Warnings: []string{"no text could be extracted from the DOCX"}}
	}
	return domain.Extraction{Text: text}
}

func extractPlain(data []byte) domain.Extraction {
	if !utf8.Valid(data) {
		return domain.Extraction{
			Text:     strings.ToValidUTF8(string(data), ""),
			Warnings: []string{"text file is not valid UTF-8, invalid bytes dropped"},
		}
	}
	return domain.Extraction{Text: strings.TrimSpace(string(data))}
}
