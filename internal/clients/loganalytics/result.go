package loganalytics

import (
	"bytes"
	"encoding/json"
	"io"

	"forwarder/internal/errors"
)

// Result is the decoded body of a successful query response. The tree is
// kept as generic JSON with numbers preserved as json.Number, so rows
// forward with the same textual form the service returned.
type Result struct {
	root any
}

// ParseResult decodes a query response body
func ParseResult(body []byte) (*Result, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, errors.Parse("query response is not valid JSON", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.Parse("query response has trailing data after the JSON document", err)
	}
	return &Result{root: root}, nil
}

// NewResult wraps an already decoded response tree
func NewResult(root any) *Result {
	return &Result{root: root}
}

// Rows returns tables[0].rows. A missing or malformed path yields nil,
// which callers treat as nothing to forward. Entries that are not arrays
// are skipped so the remaining rows still forward.
func (r *Result) Rows() [][]any {
	table := r.firstTable()
	if table == nil {
		return nil
	}
	raw, ok := table["rows"].([]any)
	if !ok {
		return nil
	}

	rows := make([][]any, 0, len(raw))
	for _, item := range raw {
		if row, ok := item.([]any); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

// Columns returns the column names of tables[0], or nil when absent
func (r *Result) Columns() []string {
	table := r.firstTable()
	if table == nil {
		return nil
	}
	raw, ok := table["columns"].([]any)
	if !ok {
		return nil
	}

	names := make([]string, 0, len(raw))
	for _, item := range raw {
		col, _ := item.(map[string]any)
		name, _ := col["name"].(string)
		names = append(names, name)
	}
	return names
}

func (r *Result) firstTable() map[string]any {
	if r == nil {
		return nil
	}
	obj, ok := r.root.(map[string]any)
	if !ok {
		return nil
	}
	tables, ok := obj["tables"].([]any)
	if !ok || len(tables) == 0 {
		return nil
	}
	table, _ := tables[0].(map[string]any)
	return table
}
