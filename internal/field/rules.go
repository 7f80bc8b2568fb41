package field

import (
	"fmt"
	"regexp"
)

// Match is one candidate field occurrence in a cell's trimmed text. Start
// and End are byte offsets.
type Match struct {
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Rule  string `json:"rule"`
}

// Rule finds candidate fields in text. Matches are non-overlapping and in
// left-to-right order.
type Rule interface {
	Name() string
	Find(text string) []Match
}

type regexpRule struct {
	name string
	re   *regexp.Regexp
}

func (r regexpRule) Name() string { return r.name }

func (r regexpRule) Find(text string) []Match {
	locs := r.re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	out := make([]Match, 0, len(locs))
	for _, loc := range locs {
		out = append(out, Match{Label: text[loc[0]:loc[1]], Start: loc[0], End: loc[1], Rule: r.name})
	}
	return out
}

// AnchoredLabel fires only when its pattern ends the text, so a label that
// happens to appear mid-sentence is not treated as fillable.
type AnchoredLabel struct {
	regexpRule
	label string
}

// NewAnchoredLabel compiles pattern as a label anchored at the end of the
// text. An empty pattern matches label literally.
func NewAnchoredLabel(label, pattern string) (*AnchoredLabel, error) {
	if pattern == "" {
		pattern = regexp.QuoteMeta(label)
	}
	re, err := regexp.Compile(`(?:` + pattern + `)$`)
	if err != nil {
		return nil, fmt.Errorf("label %q: %w", label, err)
	}
	return &AnchoredLabel{regexpRule: regexpRule{name: "label:" + label, re: re}, label: label}, nil
}

// Label returns the display name used in the expected-field checklist.
func (a *AnchoredLabel) Label() string { return a.label }

// BracketDelimited matches non-empty content between an open and a close
// delimiter, delimiters included.
type BracketDelimited struct {
	regexpRule
}

func NewBracketDelimited(left, right rune) *BracketDelimited {
	l := regexp.QuoteMeta(string(left))
	r := regexp.QuoteMeta(string(right))
	re := regexp.MustCompile(l + `[^` + r + `]+` + r)
	return &BracketDelimited{regexpRule{name: "bracket:" + string(left) + string(right), re: re}}
}

// UnderscoreBlank matches runs of at least n underscores.
type UnderscoreBlank struct {
	regexpRule
}

func NewUnderscoreBlank(n int) *UnderscoreBlank {
	if n < 1 {
		n = 2
	}
	re := regexp.MustCompile(fmt.Sprintf(`_{%d,}`, n))
	return &UnderscoreBlank{regexpRule{name: "blank", re: re}}
}

// CheckboxPair matches the shortest span between two box glyphs.
type CheckboxPair struct {
	regexpRule
}

func NewCheckboxPair(glyph rune) *CheckboxPair {
	g := regexp.QuoteMeta(string(glyph))
	re := regexp.MustCompile(g + `.*?` + g)
	return &CheckboxPair{regexpRule{name: "checkbox", re: re}}
}

// LabelSpec describes an anchored label: a display name and an optional
// regexp used instead of the literal name.
type LabelSpec struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern,omitempty"`
}

// DefaultLabels is the built-in set of table field labels.
var DefaultLabels = []LabelSpec{
	{Name: "姓名"},
	{Name: "性别"},
	{Name: "出生年月", Pattern: `出生年月(?:\s*（[^）]*）)?`},
	{Name: "教师资格证种类及学科"},
	{Name: "身份证号码", Pattern: `身份证\s*号码`},
	{Name: "毕业院校"},
	{Name: "学历学位", Pattern: `学历\s*学位`},
	{Name: "所学专业"},
	{Name: "现工作单位"},
	{Name: "参加工作时间"},
	{Name: "任教学科"},
}

// BuildRules returns the anchored labels followed by the generic rules:
// {}, [], <>, underscore blanks and checkbox pairs.
func BuildRules(labels []LabelSpec) ([]Rule, error) {
	rules := make([]Rule, 0, len(labels)+5)
	for _, l := range labels {
		r, err := NewAnchoredLabel(l.Name, l.Pattern)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	rules = append(rules,
		NewBracketDelimited('{', '}'),
		NewBracketDelimited('[', ']'),
		NewBracketDelimited('<', '>'),
		NewUnderscoreBlank(2),
		NewCheckboxPair('□'),
	)
	return rules, nil
}

// DefaultRules is BuildRules(DefaultLabels).
func DefaultRules() []Rule {
	rules, err := BuildRules(DefaultLabels)
	if err != nil {
		panic(err)
	}
	return rules
}
