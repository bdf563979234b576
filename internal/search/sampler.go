package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// rareTermsMaxDocCount bounds how common a term may be to still count as
// rare.
const rareTermsMaxDocCount = 5

// sampleHits is the number of raw documents fetched alongside the term
// aggregations, kept for qualitative inspection.
const sampleHits = 3

// SampleSet holds diverse representative values for one field.
type SampleSet struct {
	Frequent    []string
	Rare        []string
	Significant []string
	UniqueCount int64
	SampleDocs  []json.RawMessage
}

// Combined returns the deduplicated union of frequent, rare, and
// significant terms, preserving first-seen order and capped at limit.
func (s SampleSet) Combined(limit int) []string {
	seen := make(map[string]struct{})
	combined := make([]string, 0, limit)
	for _, group := range [][]string{s.Frequent, s.Rare, s.Significant} {
		for _, term := range group {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			combined = append(combined, term)
			if len(combined) >= limit {
				return combined
			}
		}
	}
	return combined
}

// Sampler retrieves diverse representative terms for a field through a
// single composite aggregation request.
type Sampler struct {
	Client *Client
}

// Sample aggregates over the field. Full-text fields cannot be aggregated
// directly, so text fields target the conventional exact-match sub-field
// (field + ".keyword").
func (s *Sampler) Sample(ctx context.Context, index string, field string, dataType string, size int) (SampleSet, error) {
	if size <= 0 {
		size = 10
	}
	aggField := field
	if dataType == "text" {
		aggField = field + ".keyword"
	}

	body, err := json.Marshal(map[string]any{
		"size": 0,
		"aggs": map[string]any{
			"frequent_terms": map[string]any{
				"terms": map[string]any{"field": aggField, "size": size},
			},
			"rare_terms": map[string]any{
				"rare_terms": map[string]any{"field": aggField, "max_doc_count": rareTermsMaxDocCount},
			},
			"significant_terms": map[string]any{
				"significant_terms": map[string]any{"field": aggField, "size": size},
			},
			"unique_count": map[string]any{
				"cardinality": map[string]any{"field": aggField},
			},
			"sample_docs": map[string]any{
				"top_hits": map[string]any{"size": sampleHits},
			},
		},
	})
	if err != nil {
		return SampleSet{}, &QueryError{Op: "sample terms", Index: index, Err: fmt.Errorf("marshal aggregation request: %w", err)}
	}

	raw, err := s.Client.search(ctx, index, body)
	if err != nil {
		return SampleSet{}, err
	}

	var parsed struct {
		Aggregations struct {
			FrequentTerms    termBuckets `json:"frequent_terms"`
			RareTerms        termBuckets `json:"rare_terms"`
			SignificantTerms termBuckets `json:"significant_terms"`
			UniqueCount      struct {
				Value int64 `json:"value"`
			} `json:"unique_count"`
			SampleDocs struct {
				Hits struct {
					Hits []json.RawMessage `json:"hits"`
				} `json:"hits"`
			} `json:"sample_docs"`
		} `json:"aggregations"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return SampleSet{}, &QueryError{Op: "sample terms", Index: index, Err: fmt.Errorf("decode aggregation response: %w", err)}
	}

	aggs := parsed.Aggregations
	return SampleSet{
		Frequent:    aggs.FrequentTerms.keys(),
		Rare:        aggs.RareTerms.keys(),
		Significant: aggs.SignificantTerms.keys(),
		UniqueCount: aggs.UniqueCount.Value,
		SampleDocs:  aggs.SampleDocs.Hits.Hits,
	}, nil
}

type termBuckets struct {
	Buckets []struct {
		Key         json.RawMessage `json:"key"`
		KeyAsString string          `json:"key_as_string"`
	} `json:"buckets"`
}

func (b termBuckets) keys() []string {
	keys := make([]string, 0, len(b.Buckets))
	for _, bucket := range b.Buckets {
		if bucket.KeyAsString != "" {
			keys = append(keys, bucket.KeyAsString)
			continue
		}
		keys = append(keys, bucketKey(bucket.Key))
	}
	return keys
}

// bucketKey stringifies an aggregation bucket key of any JSON type.
func bucketKey(raw json.RawMessage) string {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}
	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		if i, err := asNumber.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return asNumber.String()
	}
	var asBool bool
	if err := json.Unmarshal(raw, &asBool); err == nil {
		return strconv.FormatBool(asBool)
	}
	return string(raw)
}
