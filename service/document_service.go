package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/tieubaoca/research-assistant/logging"
	"github.com/tieubaoca/research-assistant/types"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format: please use PDF or TXT")
	ErrEmptyDocument     = errors.New("no text found in document")
)

// PageSource gives access to the text of each page of an opened PDF.
// Pages are numbered from 1.
type PageSource interface {
	NumPage() int
	PageText(ctx context.Context, page int) (string, error)
	Close() error
}

// PDFEngine opens raw PDF bytes.
type PDFEngine interface {
	Open(ctx context.Context, data []byte) (PageSource, error)
}

// DocumentService turns uploads into plain text.
type DocumentService struct {
	pdf         PDFEngine
	previewSize int
	log         logging.Logger
}

func NewDocumentService(config types.DocumentServiceConfig, log logging.Logger) *DocumentService {
	var engine PDFEngine
	switch config.PDFEngine {
	case types.PDFEnginePoppler:
		engine = NewPopplerEngine(nil)
	case types.PDFEngineNative, "":
		engine = NativePDFEngine{}
	default:
		log.Warn(context.Background(), "unknown pdf engine, using native", "engine", config.PDFEngine)
		engine = NativePDFEngine{}
	}
	return NewDocumentServiceWithEngine(engine, config.PreviewSize, log)
}

func NewDocumentServiceWithEngine(engine PDFEngine, previewSize int, log logging.Logger) *DocumentService {
	if previewSize <= 0 {
		previewSize = types.DefaultPreviewSize
	}
	return &DocumentService{pdf: engine, previewSize: previewSize, log: log}
}

// Load extracts the text of an upload named name. Unsupported names fail
// before data is looked at.
func (s *DocumentService) Load(ctx context.Context, name string, data []byte) (*types.Document, error) {
	format := types.DetectFormat(name)

	var (
		text string
		err  error
	)
	switch format {
	case types.FormatPDF:
		text, err = s.extractPDF(ctx, data)
	case types.FormatPlainText:
		text = decodeUTF8(data)
	case types.FormatUnsupported:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}
	s.log.Debug(ctx, "document loaded", "name", name, "format", format.String(), "chars", utf8.RuneCountInString(text))
	return &types.Document{Name: name, Format: format, Text: text}, nil
}

// LoadReader is Load for a stream. Unsupported names are rejected without
// reading r.
func (s *DocumentService) LoadReader(ctx context.Context, name string, r io.Reader) (*types.Document, error) {
	if types.DetectFormat(name) == types.FormatUnsupported {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return s.Load(ctx, name, data)
}

// Preview returns the first characters of text.
func (s *DocumentService) Preview(text string) string {
	return truncateRunes(text, s.previewSize)
}

func (s *DocumentService) extractPDF(ctx context.Context, data []byte) (string, error) {
	src, err := s.pdf.Open(ctx, data)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer src.Close()

	var b strings.Builder
	for page := 1; page <= src.NumPage(); page++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := src.PageText(ctx, page)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", page, err)
		}
		if text == "" {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func decodeUTF8(data []byte) string {
	return strings.ToValidUTF8(string(data), string(utf8.RuneError))
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
