package parser

import (
	"strings"
	"testing"
)

func TestCSVParser_WholeFileIsOneTable(t *testing.T) {
	input := "姓名,张三\n性别, 男\n备注\n"
	p := &CSVParser{}
	doc, err := p.Parse(strings.NewReader(input), "info.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(doc.Tables))
	}
	rows := doc.Tables[0].Texts()
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[1][1] != "男" {
		t.Errorf("expected leading space trimmed, got %q", rows[1][1])
	}
	if len(rows[2]) != 1 {
		t.Errorf("expected ragged row of 1 cell, got %d", len(rows[2]))
	}
}

func TestCSVParser_Empty(t *testing.T) {
	p := &CSVParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Tables) != 0 {
		t.Errorf("expected no tables, got %d", len(doc.Tables))
	}
}
