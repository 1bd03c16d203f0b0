package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// NativePDFEngine parses PDFs in process.
type NativePDFEngine struct{}

func (NativePDFEngine) Open(_ context.Context, data []byte) (PageSource, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &nativePages{r: r}, nil
}

type nativePages struct {
	r *pdf.Reader
}

func (p *nativePages) NumPage() int {
	return p.r.NumPage()
}

func (p *nativePages) PageText(_ context.Context, page int) (text string, err error) {
	// the parser panics on some malformed content streams
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: %v", page, r)
		}
	}()
	pg := p.r.Page(page)
	if pg.V.IsNull() {
		return "", nil
	}
	return pg.GetPlainText(nil)
}

func (p *nativePages) Close() error {
	return nil
}
