package parser

import (
	"slices"
	"strings"
	"testing"
)

func TestMarkdownParser_BlocksBecomeLines(t *testing.T) {
	input := `# 个人信息

姓名：张三
性别：男

- 职称：教授
- 联系电话：123
`
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "info.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Title != "info" {
		t.Errorf("expected title %q, got %q", "info", doc.Title)
	}
	want := []string{"个人信息", "姓名：张三", "性别：男", "职称：教授", "联系电话：123"}
	if !slices.Equal(doc.Paragraphs, want) {
		t.Errorf("expected %q, got %q", want, doc.Paragraphs)
	}
}

func TestMarkdownParser_CodeBlocksKeptVerbatim(t *testing.T) {
	input := "Intro.\n\n```\n姓名: 李四\n单位: X大学\n```\n"

	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "code.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"Intro.", "姓名: 李四", "单位: X大学"}
	if !slices.Equal(doc.Paragraphs, want) {
		t.Errorf("expected %q, got %q", want, doc.Paragraphs)
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Paragraphs) != 0 {
		t.Errorf("expected 0 paragraphs for empty input, got %d", len(doc.Paragraphs))
	}
}

func TestMarkdownParser_TitleStripping(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"readme.md", "readme"},
		{"notes.markdown", "notes"},
		{"dir/plain.md", "plain"},
	}
	p := &MarkdownParser{}
	for _, tt := range tests {
		doc, err := p.Parse(strings.NewReader("text"), tt.filename)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", tt.filename, err)
		}
		if doc.Title != tt.want {
			t.Errorf("filename=%q: expected title %q, got %q", tt.filename, tt.want, doc.Title)
		}
	}
}
