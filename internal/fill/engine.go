package fill

import (
	"log/slog"

	"github.com/dgallion1/docfill/internal/alias"
	"github.com/dgallion1/docfill/internal/doctree"
	"github.com/dgallion1/docfill/internal/field"
)

// Write records one value written into a document.
type Write struct {
	Table int    `json:"table"`
	Row   int    `json:"row"`
	Cell  int    `json:"cell"`
	Label string `json:"label"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Report summarizes one Fill call.
type Report struct {
	Modified bool     `json:"modified"`
	Consumed []string `json:"consumed"`
	Writes   []Write  `json:"writes"`
	// Expected lists the labels the detector looks for. Set only when
	// nothing was modified.
	Expected []string `json:"expected,omitempty"`
}

// Engine writes resolved values into the cell following each label cell.
type Engine struct {
	detector *field.Detector
	log      *slog.Logger
}

func NewEngine(detector *field.Detector, log *slog.Logger) *Engine {
	if detector == nil {
		detector = field.NewDetector()
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Engine{detector: detector, log: log}
}

// Detector returns the engine's field detector.
func (e *Engine) Detector() *field.Detector { return e.detector }

// Fill scans every table of doc in order. For each cell, the first detected
// field that resolves against index and whose right-hand neighbour is blank
// gets its value written into that neighbour. Non-blank cells are never
// overwritten and the label cell itself is never written.
func (e *Engine) Fill(doc *doctree.Document, index *alias.Index) Report {
	var rep Report
	consumed := make(map[string]bool)

	for ti, table := range doc.Tables {
		for ri, row := range table.Rows {
			for ci, cell := range row.Cells {
				for m := range e.detector.Detect(cell.Text()) {
					key, value, ok := field.Resolve(m.Label, index)
					if !ok {
						continue
					}
					if ci+1 >= len(row.Cells) || !row.Cells[ci+1].IsBlank() {
						e.log.Debug("field resolved but no blank neighbour",
							"table", ti, "row", ri, "cell", ci, "label", m.Label, "key", key)
						continue
					}
					row.Cells[ci+1].SetText(value)
					rep.Modified = true
					rep.Writes = append(rep.Writes, Write{
						Table: ti, Row: ri, Cell: ci + 1,
						Label: m.Label, Key: key, Value: value,
					})
					if !consumed[key] {
						consumed[key] = true
						rep.Consumed = append(rep.Consumed, key)
					}
					e.log.Debug("filled cell", "table", ti, "row", ri, "cell", ci+1, "label", m.Label, "key", key)
					break
				}
			}
		}
	}

	if !rep.Modified {
		rep.Expected = e.detector.Labels()
	}
	return rep
}
