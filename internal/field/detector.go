package field

import (
	"iter"
	"slices"
	"strings"

	"github.com/dgallion1/docfill/internal/alias"
)

// Detector applies an ordered list of rules to cell text.
type Detector struct {
	rules []Rule
}

// NewDetector returns a detector over rules, in order. With no rules it
// uses DefaultRules.
func NewDetector(rules ...Rule) *Detector {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Detector{rules: rules}
}

// Detect yields every rule's matches against the trimmed text: rule order
// first, then position. Each iteration re-runs the rules.
func (d *Detector) Detect(text string) iter.Seq[Match] {
	text = strings.TrimSpace(text)
	return func(yield func(Match) bool) {
		if text == "" {
			return
		}
		for _, r := range d.rules {
			for _, m := range r.Find(text) {
				if !yield(m) {
					return
				}
			}
		}
	}
}

// All collects Detect into a slice.
func (d *Detector) All(text string) []Match {
	return slices.Collect(d.Detect(text))
}

// Labels returns the display names of the anchored labels, in rule order.
func (d *Detector) Labels() []string {
	var out []string
	for _, r := range d.rules {
		if a, ok := r.(*AnchoredLabel); ok {
			out = append(out, a.Label())
		}
	}
	return out
}

// Resolve returns the first key of index, in insertion order, that contains
// label or is contained in it, ignoring case.
func Resolve(label string, index *alias.Index) (key, value string, ok bool) {
	l := strings.ToLower(label)
	if l == "" {
		return "", "", false
	}
	for k, v := range index.All() {
		lk := strings.ToLower(k)
		if lk == "" {
			continue
		}
		if strings.Contains(lk, l) || strings.Contains(l, lk) {
			return k, v, true
		}
	}
	return "", "", false
}
