package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// IsTarget reports whether name is a fillable Word document: .doc or .docx,
// not carrying the output prefix, and neither an Office lock file nor a
// hidden temp file.
func IsTarget(name, prefix string) bool {
	base := filepath.Base(name)
	switch strings.ToLower(filepath.Ext(base)) {
	case ".doc", ".docx":
	default:
		return false
	}
	if strings.HasPrefix(base, "~$") || strings.HasPrefix(base, ".") {
		return false
	}
	return prefix == "" || !strings.HasPrefix(base, prefix)
}

// AbsPath returns the cleaned absolute form of path, or the cleaned path
// when the working directory is unavailable.
func AbsPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Discover lists the target documents in dir, sorted by name. infoPath is
// the info source's path; it is excluded only when it is a file in dir.
func Discover(dir, infoPath, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	infoAbs := AbsPath(infoPath)
	var out []string
	for _, e := range entries {
		if e.IsDir() || !IsTarget(e.Name(), prefix) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if AbsPath(p) == infoAbs {
			continue
		}
		out = append(out, p)
	}
	slices.Sort(out)
	return out, nil
}

// CollectTargets de-duplicates an explicit target list, keeping first
// occurrences, and rejects lists longer than limit.
func CollectTargets(paths []string, limit int) ([]string, error) {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		key := AbsPath(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	if limit > 0 && len(out) > limit {
		return nil, fmt.Errorf("too many targets: %d (max %d)", len(out), limit)
	}
	return out, nil
}
