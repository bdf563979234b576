// Package dictionary builds and serves the metadata dictionary: one
// natural-language entry per field of every user index, generated from
// diverse sampled values.
package dictionary

import "encoding/json"

// Entry describes one field of one index. Fallback entries carry the raw
// model output as their description when the structured payload could not
// be recovered.
type Entry struct {
	FieldName   string `json:"field_name"`
	IndexName   string `json:"index_name"`
	DataType    string `json:"data_type"`
	Description string `json:"natural_language_description"`
	SampleValue any    `json:"sample_value"`
	Fallback    bool   `json:"fallback,omitempty"`
}

type Dictionary []Entry

// ForIndex returns the entries belonging to one index, preserving order.
func (d Dictionary) ForIndex(index string) Dictionary {
	var entries Dictionary
	for _, entry := range d {
		if entry.IndexName == index {
			entries = append(entries, entry)
		}
	}
	return entries
}

// Lookup finds the entry for a field within an index.
func (d Dictionary) Lookup(index, field string) (Entry, bool) {
	for _, entry := range d {
		if entry.IndexName == index && entry.FieldName == field {
			return entry, true
		}
	}
	return Entry{}, false
}

// Indices returns the distinct index names in first-seen order.
func (d Dictionary) Indices() []string {
	seen := make(map[string]struct{})
	var indices []string
	for _, entry := range d {
		if _, ok := seen[entry.IndexName]; ok {
			continue
		}
		seen[entry.IndexName] = struct{}{}
		indices = append(indices, entry.IndexName)
	}
	return indices
}

// JSON renders the dictionary as indented JSON, the form embedded into
// translation prompts and written to disk.
func (d Dictionary) JSON() (string, error) {
	raw, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
