package types

import (
	"path/filepath"
	"strings"
)

// Format is the closed set of upload kinds the loader understands.
type Format int

const (
	FormatUnsupported Format = iota
	FormatPDF
	FormatPlainText
)

func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatPlainText:
		return "txt"
	default:
		return "unsupported"
	}
}

// DetectFormat maps a file name to its Format by suffix. Every name maps to
// exactly one Format.
func DetectFormat(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF
	case ".txt":
		return FormatPlainText
	default:
		return FormatUnsupported
	}
}

// Document is the extracted text of one upload. It lives only for the
// request that produced it.
type Document struct {
	Name   string `json:"name"`
	Format Format `json:"-"`
	Text   string `json:"-"`
}

// PDF extraction engines.
const (
	PDFEngineNative  = "native"
	PDFEnginePoppler = "poppler"
)

// DocumentServiceConfig contains configuration options for document loading
type DocumentServiceConfig struct {
	PDFEngine   string // native or poppler
	PreviewSize int    // characters returned by Preview
}

const DefaultPreviewSize = 1000
