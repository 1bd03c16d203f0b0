package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/research-assistant/logging"
	"github.com/tieubaoca/research-assistant/types"
)

type fakePages struct {
	pages  []string
	errs   map[int]error
	closed bool
}

func (f *fakePages) NumPage() int { return len(f.pages) }

func (f *fakePages) PageText(_ context.Context, page int) (string, error) {
	if err := f.errs[page]; err != nil {
		return "", err
	}
	return f.pages[page-1], nil
}

func (f *fakePages) Close() error {
	f.closed = true
	return nil
}

type fakeEngine struct {
	pages  *fakePages
	err    error
	opened bool
}

func (e *fakeEngine) Open(_ context.Context, _ []byte) (PageSource, error) {
	e.opened = true
	if e.err != nil {
		return nil, e.err
	}
	return e.pages, nil
}

func newDocService(engine PDFEngine) *DocumentService {
	return NewDocumentServiceWithEngine(engine, 0, logging.Nop())
}

func TestLoad_PlainText(t *testing.T) {
	s := newDocService(&fakeEngine{})
	doc, err := s.Load(context.Background(), "notes.txt", []byte("Hello\nWorld"))
	require.NoError(t, err)
	assert.Equal(t, "Hello\nWorld", doc.Text)
	assert.Equal(t, types.FormatPlainText, doc.Format)
}

func TestLoad_PlainTextInvalidUTF8(t *testing.T) {
	s := newDocService(&fakeEngine{})
	doc, err := s.Load(context.Background(), "x.TXT", []byte{'o', 'k', 0xff})
	require.NoError(t, err)
	assert.Equal(t, "ok�", doc.Text)
}

func TestLoad_PDFSkipsEmptyPage(t *testing.T) {
	engine := &fakeEngine{pages: &fakePages{pages: []string{"Page one", "", "Page three"}}}
	s := newDocService(engine)

	doc, err := s.Load(context.Background(), "paper.pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "Page one\nPage three\n", doc.Text)
	assert.NotContains(t, doc.Text, "\n\n")
	assert.True(t, engine.pages.closed)
}

func TestLoad_PDFFailedPageFailsDocument(t *testing.T) {
	pageErr := errors.New("bad stream")
	engine := &fakeEngine{pages: &fakePages{
		pages: []string{"a", "b"},
		errs:  map[int]error{1: pageErr},
	}}
	doc, err := newDocService(engine).Load(context.Background(), "x.pdf", nil)
	assert.Nil(t, doc)
	assert.ErrorIs(t, err, pageErr)
	assert.True(t, engine.pages.closed)
}

// buildPDF writes a minimal PDF with one page per entry of pages. An empty
// entry gives a page with no text.
func buildPDF(pages ...string) []byte {
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	kids := make([]string, 0, len(pages))
	for _, text := range pages {
		pageID := len(objs) + 1
		kids = append(kids, fmt.Sprintf("%d 0 R", pageID))
		objs = append(objs, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			pageID+1))
		content := "BT ET"
		if text != "" {
			content = fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		}
		objs = append(objs, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}
	objs[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages))

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, obj := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return b.Bytes()
}

func TestLoad_NativeEngineMultiPage(t *testing.T) {
	s := NewDocumentService(types.DocumentServiceConfig{PDFEngine: types.PDFEngineNative}, logging.Nop())

	doc, err := s.Load(context.Background(), "paper.pdf", buildPDF("Page one", "", "Page three"))
	require.NoError(t, err)
	assert.Equal(t, "Page one\nPage three\n", doc.Text)
	assert.Equal(t, types.FormatPDF, doc.Format)
}

func TestLoad_NativeEngineRejectsGarbage(t *testing.T) {
	s := NewDocumentService(types.DocumentServiceConfig{}, logging.Nop())
	_, err := s.Load(context.Background(), "paper.pdf", []byte("not a pdf at all"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyDocument)
}

func TestLoad_PDFOpenError(t *testing.T) {
	engine := &fakeEngine{err: errors.New("not a pdf")}
	_, err := newDocService(engine).Load(context.Background(), "x.pdf", []byte("junk"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyDocument)
}

func TestLoad_UnsupportedFormatDoesNotExtract(t *testing.T) {
	engine := &fakeEngine{pages: &fakePages{pages: []string{"x"}}}
	s := newDocService(engine)

	_, err := s.Load(context.Background(), "report.docx", []byte("PK..."))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.False(t, engine.opened)
}

func TestLoadReader_UnsupportedFormatDoesNotRead(t *testing.T) {
	r := &countingReader{r: strings.NewReader("data")}
	_, err := newDocService(&fakeEngine{}).LoadReader(context.Background(), "report.docx", r)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Zero(t, r.n)
}

func TestLoad_EmptyDocument(t *testing.T) {
	s := newDocService(&fakeEngine{pages: &fakePages{pages: []string{"", ""}}})
	ctx := context.Background()

	_, err := s.Load(ctx, "blank.txt", []byte("  \n\t "))
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = s.Load(ctx, "blank.pdf", []byte("%PDF"))
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestPreview_RuneAware(t *testing.T) {
	s := NewDocumentServiceWithEngine(&fakeEngine{}, 3, logging.Nop())
	assert.Equal(t, "héé", s.Preview("héééllo"))
	assert.Equal(t, "ab", s.Preview("ab"))

	def := newDocService(&fakeEngine{})
	long := strings.Repeat("x", 1500)
	assert.Len(t, def.Preview(long), types.DefaultPreviewSize)
}

type countingReader struct {
	r *strings.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

type fakeRunner struct {
	outputs map[string]string
	calls   [][]string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	key := name
	if name == "pdftotext" {
		key = name + ":" + args[1]
	}
	out, ok := f.outputs[key]
	if !ok {
		return nil, errors.New("unexpected command " + key)
	}
	return []byte(out), nil
}

func TestPopplerEngine_PerPage(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"pdfinfo":     "Title: x\nPages:          3\n",
		"pdftotext:1": "First page\n",
		"pdftotext:2": "   \n",
		"pdftotext:3": "Third page",
	}}
	s := newDocService(NewPopplerEngine(runner))

	doc, err := s.Load(context.Background(), "scan.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "First page\nThird page\n", doc.Text)
	assert.Len(t, runner.calls, 4)
}

func TestPopplerEngine_NoPageCount(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{"pdfinfo": "garbage"}}
	_, err := NewPopplerEngine(runner).Open(context.Background(), []byte("%PDF"))
	assert.Error(t, err)
}
