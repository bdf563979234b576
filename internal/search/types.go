package search

import "fmt"

// Field is one entry of an index mapping: a field name and its declared
// data type ("unknown" when the mapping declares none, e.g. object fields).
type Field struct {
	Name string `json:"field_name"`
	Type string `json:"data_type"`
}

// Table is the tabular result of a SQL query against the store.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// QueryError wraps failures of store round-trips (search, aggregation,
// SQL). Callers that tolerate per-field failures branch on this type.
type QueryError struct {
	Op    string
	Index string
	Err   error
}

func (e *QueryError) Error() string {
	if e.Index != "" {
		return fmt.Sprintf("%s on index %q: %v", e.Op, e.Index, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
