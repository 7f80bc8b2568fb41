package parser

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/dgallion1/docfill/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser reads text rows of a PDF as paragraphs. Rows come from
// ledongthuc/pdf; when it yields nothing and FallbackPdftotext is set,
// pdftotext is tried instead.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	// ledongthuc/pdf needs a ReaderAt with a known size.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	lines, err := pdfRows(data)
	if len(lines) == 0 && p.FallbackPdftotext {
		var ferr error
		if lines, ferr = pdftotextRows(data); ferr == nil {
			err = nil
		} else if err == nil {
			err = ferr
		}
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	return &doctree.Document{Title: titleFor(filename), Paragraphs: lines}, nil
}

func pdfRows(data []byte) (lines []string, err error) {
	// The library panics on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			lines, err = nil, fmt.Errorf("malformed pdf: %v", rec)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		for _, row := range rows {
			var b strings.Builder
			for _, word := range row.Content {
				b.WriteString(word.S)
			}
			if line := strings.TrimSpace(b.String()); line != "" {
				lines = append(lines, line)
			}
		}
	}
	return lines, nil
}

func pdftotextRows(data []byte) ([]string, error) {
	tmp, err := os.CreateTemp("", "docfill-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	out, err := exec.Command("pdftotext", "-layout", "-enc", "UTF-8", tmp.Name(), "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}

	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if line := strings.TrimSpace(strings.Trim(sc.Text(), "\f")); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}
