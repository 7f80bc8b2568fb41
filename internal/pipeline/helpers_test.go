package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/dgallion1/docfill/internal/history"
	godocx "github.com/fumiama/go-docx"
)

// writeForm writes a .docx holding one table with the given cell texts.
func writeForm(t *testing.T, path string, rows ...[]string) {
	t.Helper()
	d := godocx.New().WithDefaultTheme()
	tbl := d.AddTable(len(rows), len(rows[0]), 0, nil)
	for ri, row := range rows {
		for ci, text := range row {
			tbl.TableRows[ri].TableCells[ci].AddParagraph().AddText(text)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := d.WriteTo(f); err != nil {
		t.Fatal(err)
	}
}

// copyConverter converts by copying the input to <tmp>/<base>.docx.
type copyConverter struct {
	err error
}

func (c copyConverter) Convert(_ context.Context, path string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	dir, err := os.MkdirTemp("", "fake-convert-*")
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	base := filepath.Base(path)
	out := filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+".docx")
	return out, os.WriteFile(out, data, 0o644)
}

type memRecorder struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (m *memRecorder) Record(_ context.Context, e history.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
