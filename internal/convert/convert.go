// Package convert turns legacy .doc files into .docx through an external
// office suite.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrConversion is returned when a legacy document could not be converted.
var ErrConversion = errors.New("conversion failed")

// Converter converts the document at path and returns the path of the
// resulting .docx. The result lives in a directory of its own which the
// caller removes when done.
type Converter interface {
	Convert(ctx context.Context, path string) (string, error)
}

// NeedsConversion reports whether path is a legacy Word document.
func NeedsConversion(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".doc")
}

// Soffice runs LibreOffice in headless mode.
type Soffice struct {
	Bin     string // defaults to "soffice"
	TempDir string // parent for per-conversion output dirs; "" is os.TempDir
}

func (s *Soffice) Convert(ctx context.Context, path string) (string, error) {
	bin := s.Bin
	if bin == "" {
		bin = "soffice"
	}

	outDir, err := os.MkdirTemp(s.TempDir, "docfill-convert-*")
	if err != nil {
		return "", fmt.Errorf("%w: create output dir: %v", ErrConversion, err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "--headless", "--convert-to", "docx", "--outdir", outDir, path)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.RemoveAll(outDir)
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s: %v: %s", ErrConversion, filepath.Base(path), err, msg)
		}
		return "", fmt.Errorf("%w: %s: %v", ErrConversion, filepath.Base(path), err)
	}

	base := filepath.Base(path)
	out := filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+".docx")
	if _, err := os.Stat(out); err != nil {
		os.RemoveAll(outDir)
		return "", fmt.Errorf("%w: %s: no output produced", ErrConversion, base)
	}
	return out, nil
}
