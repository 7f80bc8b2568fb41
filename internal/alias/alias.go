package alias

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/dgallion1/docfill/internal/info"
)

// Table maps a canonical key to its accepted alternate spellings.
type Table map[string][]string

// DefaultTable returns the built-in synonym table.
func DefaultTable() Table {
	return Table{
		"姓名":   {"名字", "填表人", "申报人", "本人姓名"},
		"性别":   {"性别"},
		"年龄":   {"年龄", "岁数"},
		"出生年月": {"出生日期", "生日"},
		"工作单位": {"单位", "所在单位", "工作单位名称"},
		"职务":   {"现任职务", "担任职务"},
		"职称":   {"现职称", "现任职称", "现有职称"},
		"联系电话": {"电话", "手机号码", "联系方式"},
	}
}

// Validate rejects blank canonical keys and blank aliases.
func (t Table) Validate() error {
	for canonical, aliases := range t {
		if strings.TrimSpace(canonical) == "" {
			return fmt.Errorf("alias table: empty canonical key")
		}
		for _, a := range aliases {
			if strings.TrimSpace(a) == "" {
				return fmt.Errorf("alias table: empty alias for %q", canonical)
			}
		}
	}
	return nil
}

// CanonicalKeys returns the canonical keys name belongs to, sorted. A
// canonical key belongs only to itself. An alias listed under several
// canonical keys returns all of them. The result is nil when name appears
// nowhere in the table.
func (t Table) CanonicalKeys(name string) []string {
	if _, ok := t[name]; ok {
		return []string{name}
	}
	var out []string
	for canonical, aliases := range t {
		if slices.Contains(aliases, name) {
			out = append(out, canonical)
		}
	}
	slices.Sort(out)
	return out
}

// Index is an insertion-ordered key/value lookup. Setting an existing key
// replaces its value but keeps its position.
type Index struct {
	keys   []string
	values map[string]string
}

func newIndex(capacity int) *Index {
	return &Index{
		keys:   make([]string, 0, capacity),
		values: make(map[string]string, capacity),
	}
}

func (x *Index) set(key, value string) {
	if _, ok := x.values[key]; !ok {
		x.keys = append(x.keys, key)
	}
	x.values[key] = value
}

// Get returns the value stored under key.
func (x *Index) Get(key string) (string, bool) {
	v, ok := x.values[key]
	return v, ok
}

// Len returns the number of distinct keys.
func (x *Index) Len() int { return len(x.keys) }

// Keys returns the keys in insertion order.
func (x *Index) Keys() []string {
	out := make([]string, len(x.keys))
	copy(out, x.keys)
	return out
}

// All yields key/value pairs in insertion order.
func (x *Index) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, k := range x.keys {
			if !yield(k, x.values[k]) {
				return
			}
		}
	}
}

// Build expands record with every alias of its canonical keys. When two
// canonical keys share an alias, the one processed later wins.
func Build(record info.Record, table Table) *Index {
	x := newIndex(record.Len() * 2)
	for _, e := range record.Entries() {
		x.set(e.Key, e.Value)
		for _, a := range table[e.Key] {
			x.set(a, e.Value)
		}
	}
	return x
}
