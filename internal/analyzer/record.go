package analyzer

import (
	"github.com/leapstack-labs/leaplineage/pkg/lineage"
)

// Record is the serializable form of a Result, used for JSON and YAML
// output and for persistence.
type Record struct {
	Index           int                    `json:"index" yaml:"index"`
	File            string                 `json:"file,omitempty" yaml:"file,omitempty"`
	SQL             string                 `json:"sql" yaml:"sql"`
	Error           string                 `json:"error,omitempty" yaml:"error,omitempty"`
	Inputs          []string               `json:"inputs" yaml:"inputs"`
	Outputs         []string               `json:"outputs" yaml:"outputs"`
	ExternalInputs  []lineage.ExternalMeta `json:"external_inputs,omitempty" yaml:"external_inputs,omitempty"`
	ExternalOutputs []lineage.ExternalMeta `json:"external_outputs,omitempty" yaml:"external_outputs,omitempty"`
	Columns         []ColumnEdge           `json:"columns,omitempty" yaml:"columns,omitempty"`
}

// ColumnEdge lists the source columns of one produced column.
type ColumnEdge struct {
	Column  string   `json:"column" yaml:"column"`
	Sources []string `json:"sources" yaml:"sources"`
}

// Failed reports whether the statement could not be analyzed.
func (r Record) Failed() bool { return r.Error != "" }

// Record flattens the result.
func (r Result) Record() Record {
	rec := Record{
		Index:   r.Index,
		File:    r.File,
		SQL:     r.SQL,
		Inputs:  []string{},
		Outputs: []string{},
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
		return rec
	}
	if r.Lineage == nil {
		return rec
	}

	l := r.Lineage
	rec.Inputs = l.InputNames()
	rec.Outputs = l.OutputNames()
	rec.ExternalInputs = l.ExternalInputs
	rec.ExternalOutputs = l.ExternalOutputs
	for _, col := range l.Columns {
		edge := ColumnEdge{Column: col.Descendant.String(), Sources: make([]string, 0, len(col.Ancestors))}
		for _, a := range col.Ancestors {
			edge.Sources = append(edge.Sources, a.String())
		}
		rec.Columns = append(rec.Columns, edge)
	}
	return rec
}

// Records flattens a list of results.
func Records(results []Result) []Record {
	out := make([]Record, 0, len(results))
	for _, r := range results {
		out = append(out, r.Record())
	}
	return out
}
