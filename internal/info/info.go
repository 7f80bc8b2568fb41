package info

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dgallion1/docfill/internal/doctree"
	"github.com/dgallion1/docfill/internal/parser"
)

var (
	// ErrMissingSource is returned when the info file does not exist.
	ErrMissingSource = errors.New("info source not found")
	// ErrNoInfo is returned when the info source yields no key/value pairs.
	ErrNoInfo = errors.New("no key/value pairs in info source")
)

// Entry is one key/value pair of a record.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Record is the parsed personal-information source. Entries keep source
// order; a repeated key keeps its first position and takes the last value.
type Record struct {
	entries []Entry
	index   map[string]int
}

func (r *Record) put(key, value string) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[key]; ok {
		r.entries[i].Value = value
		return
	}
	r.index[key] = len(r.entries)
	r.entries = append(r.entries, Entry{Key: key, Value: value})
}

// Entries returns a copy of the record's entries in order.
func (r Record) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r Record) Len() int { return len(r.entries) }

// Get returns the value for key.
func (r Record) Get(key string) (string, bool) {
	i, ok := r.index[key]
	if !ok {
		return "", false
	}
	return r.entries[i].Value, true
}

// FromPairs builds a record from alternating key, value arguments.
func FromPairs(kv ...string) Record {
	var r Record
	for i := 0; i+1 < len(kv); i += 2 {
		r.put(strings.TrimSpace(kv[i]), strings.TrimSpace(kv[i+1]))
	}
	return r
}

// ParseLine splits "key: value" at the first colon. Both the ASCII and the
// full-width colon count. ok is false for lines without a colon or with an
// empty key.
func ParseLine(line string) (key, value string, ok bool) {
	i := strings.IndexAny(line, ":：")
	if i < 0 {
		return "", "", false
	}
	sep := 1
	if strings.HasPrefix(line[i:], "：") {
		sep = len("：")
	}
	key = strings.TrimSpace(line[:i])
	value = strings.TrimSpace(line[i+sep:])
	if key == "" {
		return "", "", false
	}
	return key, value, true
}

// ParseLines builds a record from "key: value" lines.
func ParseLines(lines []string) Record {
	var r Record
	for _, line := range lines {
		for _, l := range strings.Split(line, "\n") {
			if k, v, ok := ParseLine(strings.TrimSpace(l)); ok {
				r.put(k, v)
			}
		}
	}
	return r
}

// FromDocument reads paragraphs as "key: value" lines, then two-cell table
// rows as key | value pairs.
func FromDocument(doc *doctree.Document) Record {
	r := ParseLines(doc.Paragraphs)
	for _, t := range doc.Tables {
		for _, row := range t.Rows {
			if len(row.Cells) != 2 {
				continue
			}
			k := strings.TrimSpace(row.Cells[0].Text())
			v := strings.TrimSpace(row.Cells[1].Text())
			if k == "" || v == "" {
				continue
			}
			r.put(k, v)
		}
	}
	return r
}

// Load parses the info source at path with the parser matching its
// extension.
func Load(path string, opts parser.Options) (Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Record{}, fmt.Errorf("%w: %s", ErrMissingSource, path)
		}
		return Record{}, fmt.Errorf("open info source: %w", err)
	}
	defer f.Close()

	p, err := parser.ForFile(path, opts)
	if err != nil {
		return Record{}, err
	}
	doc, err := p.Parse(f, path)
	if err != nil {
		return Record{}, fmt.Errorf("read info source %s: %w", path, err)
	}

	r := FromDocument(doc)
	if r.Len() == 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrNoInfo, path)
	}
	return r, nil
}
