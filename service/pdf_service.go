package service

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// CommandRunner runs an external program and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out.Bytes(), nil
}

// PopplerEngine extracts PDF text with the poppler-utils binaries
// (pdfinfo, pdftotext), one page at a time.
type PopplerEngine struct {
	runner CommandRunner
}

// NewPopplerEngine uses runner, or os/exec when runner is nil.
func NewPopplerEngine(runner CommandRunner) *PopplerEngine {
	if runner == nil {
		runner = execRunner{}
	}
	return &PopplerEngine{runner: runner}
}

func (e *PopplerEngine) Open(ctx context.Context, data []byte) (PageSource, error) {
	f, err := os.CreateTemp("", "upload-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, err
	}

	total, err := e.numPages(ctx, path)
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	return &popplerPages{engine: e, path: path, total: total}, nil
}

var pagesRe = regexp.MustCompile(`Pages:\s+(\d+)`)

// numPages uses pdfinfo to get the total number of pages in a PDF file
func (e *PopplerEngine) numPages(ctx context.Context, pdfPath string) (int, error) {
	out, err := e.runner.Run(ctx, "pdfinfo", pdfPath)
	if err != nil {
		return 0, fmt.Errorf("error running pdfinfo: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if matches := pagesRe.FindStringSubmatch(scanner.Text()); len(matches) == 2 {
			return strconv.Atoi(matches[1])
		}
	}
	return 0, fmt.Errorf("unable to determine page count from pdfinfo")
}

type popplerPages struct {
	engine *PopplerEngine
	path   string
	total  int
}

func (p *popplerPages) NumPage() int {
	return p.total
}

// PageText runs pdftotext for a single page. Whitespace-only output counts
// as no text.
func (p *popplerPages) PageText(ctx context.Context, page int) (string, error) {
	out, err := p.engine.runner.Run(ctx, "pdftotext",
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-enc", "UTF-8", "-nopgbrk",
		p.path, "-")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (p *popplerPages) Close() error {
	return os.Remove(p.path)
}
