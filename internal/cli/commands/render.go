package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leaplineage/internal/analyzer"
	"github.com/leapstack-labs/leaplineage/internal/cli/output"
	"github.com/leapstack-labs/leaplineage/pkg/lineage"
)

// lineageOutput is the structured form of an analysis.
type lineageOutput struct {
	RunID      string            `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Summary    summaryOutput     `json:"summary" yaml:"summary"`
	Statements []analyzer.Record `json:"statements" yaml:"statements"`
}

type summaryOutput struct {
	Statements int `json:"statements" yaml:"statements"`
	Failed     int `json:"failed" yaml:"failed"`
}

func summarize(records []analyzer.Record) summaryOutput {
	s := summaryOutput{Statements: len(records)}
	for _, rec := range records {
		if rec.Failed() {
			s.Failed++
		}
	}
	return s
}

// renderRecords writes analysis records in the renderer's effective mode.
func renderRecords(r *output.Renderer, title, runID string, records []analyzer.Record) error {
	if handled, err := r.Data(lineageOutput{RunID: runID, Summary: summarize(records), Statements: nonNilRecords(records)}); handled {
		return err
	}

	if r.EffectiveMode() == output.ModeMarkdown {
		recordsMarkdown(r, title, runID, records)
	} else {
		recordsText(r, title, runID, records)
	}
	return nil
}

func nonNilRecords(records []analyzer.Record) []analyzer.Record {
	if records == nil {
		return []analyzer.Record{}
	}
	return records
}

// statementTitle names a statement by file and position.
func statementTitle(rec analyzer.Record) string {
	if rec.File == "" || rec.File == "-" {
		return fmt.Sprintf("Statement %d", rec.Index+1)
	}
	return fmt.Sprintf("%s #%d", rec.File, rec.Index+1)
}

func externalNames(exts []lineage.ExternalMeta) []string {
	names := make([]string, len(exts))
	for i, e := range exts {
		names[i] = e.Name
	}
	return names
}

// recordsText outputs records in styled text format.
func recordsText(r *output.Renderer, title, runID string, records []analyzer.Record) {
	styles := r.Styles()

	if title != "" {
		r.Header(1, title)
	}
	if runID != "" {
		r.Println(styles.Muted.Render("run ") + styles.ID.Render(runID))
	}

	for _, rec := range records {
		r.Println("")
		r.Println(styles.Header2.Render(statementTitle(rec)))
		r.Println("  " + styles.Muted.Render(oneLine(rec.SQL, 100)))

		if rec.Failed() {
			r.Println("  " + styles.Error.Render("error: "+rec.Error))
			continue
		}

		printList := func(label string, items []string) {
			if len(items) == 0 {
				return
			}
			styled := make([]string, len(items))
			for i, it := range items {
				styled[i] = styles.Table.Render(it)
			}
			r.Printf("  %s %s\n", styles.Bold.Render(label+":"), strings.Join(styled, ", "))
		}
		printList("inputs", rec.Inputs)
		printList("outputs", rec.Outputs)
		printList("external inputs", externalNames(rec.ExternalInputs))
		printList("external outputs", externalNames(rec.ExternalOutputs))

		for _, col := range rec.Columns {
			sources := make([]string, len(col.Sources))
			for i, s := range col.Sources {
				sources[i] = styles.Column.Render(s)
			}
			r.Printf("    %s <- %s\n", styles.Column.Render(col.Column), strings.Join(sources, ", "))
		}
	}

	s := summarize(records)
	r.Println("")
	r.Println(styles.Muted.Render(fmt.Sprintf("Total: %d statements, %d failed", s.Statements, s.Failed)))
}

// recordsMarkdown outputs records in markdown format.
func recordsMarkdown(r *output.Renderer, title, runID string, records []analyzer.Record) {
	if title != "" {
		r.Println(output.FormatHeader(1, title))
		r.Println("")
	}
	if runID != "" {
		r.Println(output.FormatKeyValue("Run", runID))
		r.Println("")
	}

	for _, rec := range records {
		r.Println(output.FormatHeader(2, statementTitle(rec)))
		r.Println("")
		r.Println(output.FormatCodeBlock("sql", rec.SQL))
		r.Println("")

		if rec.Failed() {
			r.Println(output.FormatKeyValue("Error", rec.Error))
			r.Println("")
			continue
		}

		kv := func(label string, items []string) {
			if len(items) > 0 {
				r.Println(output.FormatKeyValue(label, strings.Join(items, ", ")))
			}
		}
		kv("Inputs", rec.Inputs)
		kv("Outputs", rec.Outputs)
		kv("External inputs", externalNames(rec.ExternalInputs))
		kv("External outputs", externalNames(rec.ExternalOutputs))
		r.Println("")

		if len(rec.Columns) > 0 {
			rows := make([][]string, len(rec.Columns))
			for i, col := range rec.Columns {
				rows[i] = []string{col.Column, strings.Join(col.Sources, ", ")}
			}
			r.Table([]string{"Column", "Sources"}, rows)
			r.Println("")
		}
	}

	s := summarize(records)
	r.Println(output.FormatHeader(2, "Summary"))
	r.Println(output.FormatKeyValue("Statements", fmt.Sprintf("%d", s.Statements)))
	r.Println(output.FormatKeyValue("Failed", fmt.Sprintf("%d", s.Failed)))
}

// oneLine collapses whitespace and truncates to limit runes.
func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
