package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"testing"
)

const aggregationResponse = `{
	"aggregations": {
		"frequent_terms": {"buckets": [
			{"key": "Full-Time", "doc_count": 1800},
			{"key": "Part-Time", "doc_count": 900}
		]},
		"rare_terms": {"buckets": [
			{"key": "Seasonal", "doc_count": 3},
			{"key": "Part-Time", "doc_count": 4}
		]},
		"significant_terms": {"buckets": [
			{"key": "Contract", "doc_count": 120}
		]},
		"unique_count": {"value": 4},
		"sample_docs": {"hits": {"hits": [
			{"_source": {"EmployeeType": "Full-Time"}},
			{"_source": {"EmployeeType": "Contract"}}
		]}}
	}
}`

func TestSampleRewritesTextFieldsToKeyword(t *testing.T) {
	var capturedAggs map[string]any
	_, client := newTestCluster(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/employees/_search" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		_ = json.Unmarshal(body, &req)
		capturedAggs, _ = req["aggs"].(map[string]any)
		_, _ = w.Write([]byte(aggregationResponse))
	})
	sampler := &Sampler{Client: client}

	set, err := sampler.Sample(context.Background(), "employees", "EmployeeType", "text", 10)
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}

	terms, _ := capturedAggs["frequent_terms"].(map[string]any)["terms"].(map[string]any)
	if terms["field"] != "EmployeeType.keyword" {
		t.Fatalf("terms field = %v, want EmployeeType.keyword", terms["field"])
	}
	rare, _ := capturedAggs["rare_terms"].(map[string]any)["rare_terms"].(map[string]any)
	if rare["max_doc_count"] != float64(5) {
		t.Fatalf("max_doc_count = %v", rare["max_doc_count"])
	}

	if set.UniqueCount != 4 {
		t.Fatalf("UniqueCount = %d", set.UniqueCount)
	}
	if len(set.SampleDocs) != 2 {
		t.Fatalf("SampleDocs = %d", len(set.SampleDocs))
	}
	if !reflect.DeepEqual(set.Frequent, []string{"Full-Time", "Part-Time"}) {
		t.Fatalf("Frequent = %v", set.Frequent)
	}
}

func TestSampleKeepsKeywordFieldName(t *testing.T) {
	var capturedAggs map[string]any
	_, client := newTestCluster(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		_ = json.Unmarshal(body, &req)
		capturedAggs, _ = req["aggs"].(map[string]any)
		_, _ = w.Write([]byte(aggregationResponse))
	})
	sampler := &Sampler{Client: client}

	if _, err := sampler.Sample(context.Background(), "employees", "State", "keyword", 10); err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	terms, _ := capturedAggs["frequent_terms"].(map[string]any)["terms"].(map[string]any)
	if terms["field"] != "State" {
		t.Fatalf("terms field = %v, want State", terms["field"])
	}
}

func TestSampleStringifiesNonStringKeys(t *testing.T) {
	_, client := newTestCluster(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"aggregations":{
			"frequent_terms":{"buckets":[{"key":3},{"key":4.5},{"key":true}]},
			"rare_terms":{"buckets":[{"key":1737331200000,"key_as_string":"2025-01-20"}]},
			"significant_terms":{"buckets":[]},
			"unique_count":{"value":4},
			"sample_docs":{"hits":{"hits":[]}}
		}}`))
	})
	sampler := &Sampler{Client: client}

	set, err := sampler.Sample(context.Background(), "employees", "Rating", "long", 10)
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if !reflect.DeepEqual(set.Frequent, []string{"3", "4.5", "true"}) {
		t.Fatalf("Frequent = %v", set.Frequent)
	}
	if !reflect.DeepEqual(set.Rare, []string{"2025-01-20"}) {
		t.Fatalf("Rare = %v", set.Rare)
	}
}

func TestSampleFailureIsQueryError(t *testing.T) {
	_, client := newTestCluster(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"reason":"Fielddata is disabled on text fields"}}`))
	})
	sampler := &Sampler{Client: client}

	_, err := sampler.Sample(context.Background(), "employees", "Notes", "text", 10)
	var qerr *QueryError
	if !errors.As(err, &qerr) {
		t.Fatalf("Sample() error = %v, want *QueryError", err)
	}
	if qerr.Index != "employees" {
		t.Fatalf("Index = %q", qerr.Index)
	}
}

func TestCombinedDeduplicatesAndCaps(t *testing.T) {
	set := SampleSet{
		Frequent:    []string{"a", "b", "c"},
		Rare:        []string{"b", "d"},
		Significant: []string{"a", "e", "f"},
	}

	if got := set.Combined(20); !reflect.DeepEqual(got, []string{"a", "b", "c", "d", "e", "f"}) {
		t.Fatalf("Combined(20) = %v", got)
	}
	if got := set.Combined(4); !reflect.DeepEqual(got, []string{"a", "b", "c", "d"}) {
		t.Fatalf("Combined(4) = %v", got)
	}
	if got := (SampleSet{}).Combined(5); len(got) != 0 {
		t.Fatalf("Combined on empty set = %v", got)
	}
}
