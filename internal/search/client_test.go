package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

// newTestCluster wraps handler in the product header the client library
// verifies on every response.
func newTestCluster(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{URL: server.URL, FetchSize: 2})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return server, client
}

func TestNewClientRequiresURL(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("NewClient() without a url should fail")
	}
}

func TestIndicesSkipsSystemIndices(t *testing.T) {
	_, client := newTestCluster(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/_alias" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"employees":{"aliases":{}},".security-7":{"aliases":{}},"orders":{"aliases":{}}}`))
	})

	got, err := client.Indices(context.Background())
	if err != nil {
		t.Fatalf("Indices() error = %v", err)
	}
	want := []string{"employees", "orders"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Indices() = %v, want %v", got, want)
	}
}

func TestFieldsParsesMappingSorted(t *testing.T) {
	_, client := newTestCluster(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/employees/_mapping" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"employees":{"mappings":{"properties":{
			"Title":{"type":"text","fields":{"keyword":{"type":"keyword"}}},
			"Age":{"type":"long"},
			"Address":{"properties":{"city":{"type":"keyword"}}}
		}}}}`))
	})

	got, err := client.Fields(context.Background(), "employees")
	if err != nil {
		t.Fatalf("Fields() error = %v", err)
	}
	want := []Field{
		{Name: "Address", Type: "unknown"},
		{Name: "Age", Type: "long"},
		{Name: "Title", Type: "text"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Fields() = %v, want %v", got, want)
	}
}

func TestFieldsResolvesAlias(t *testing.T) {
	_, client := newTestCluster(t, func(w http.ResponseWriter, r *http.Request) {
		// The alias resolves to a differently named concrete index.
		_, _ = w.Write([]byte(`{"employees-000001":{"mappings":{"properties":{"Name":{"type":"keyword"}}}}}`))
	})

	got, err := client.Fields(context.Background(), "employees")
	if err != nil {
		t.Fatalf("Fields() error = %v", err)
	}
	if len(got) != 1 || got[0].Name != "Name" {
		t.Fatalf("Fields() = %v", got)
	}
}

func TestSQLQueryFollowsCursor(t *testing.T) {
	var requests []map[string]any
	_, client := newTestCluster(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/_sql" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		_ = json.Unmarshal(body, &req)
		requests = append(requests, req)

		if _, paging := req["cursor"]; !paging {
			_, _ = w.Write([]byte(`{"columns":[{"name":"FirstName","type":"text"},{"name":"Age","type":"long"}],"rows":[["Ada",36],["Grace",45]],"cursor":"page-2"}`))
			return
		}
		_, _ = w.Write([]byte(`{"rows":[["Edsger",72]]}`))
	})

	got, err := client.SQLQuery(context.Background(), `SELECT FirstName, Age FROM "employees"`)
	if err != nil {
		t.Fatalf("SQLQuery() error = %v", err)
	}
	want := Table{
		Columns: []string{"FirstName", "Age"},
		Rows:    [][]any{{"Ada", float64(36)}, {"Grace", float64(45)}, {"Edsger", float64(72)}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SQLQuery() = %+v, want %+v", got, want)
	}

	if len(requests) != 2 {
		t.Fatalf("sql requests = %d, want 2", len(requests))
	}
	if requests[0]["fetch_size"] != float64(2) {
		t.Fatalf("fetch_size = %v", requests[0]["fetch_size"])
	}
	if requests[1]["cursor"] != "page-2" {
		t.Fatalf("cursor = %v", requests[1]["cursor"])
	}
}

func TestSQLQueryNormalizesEmptyResult(t *testing.T) {
	_, client := newTestCluster(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"columns":[],"rows":[]}`))
	})

	got, err := client.SQLQuery(context.Background(), `SELECT * FROM "employees" WHERE Age > 200`)
	if err != nil {
		t.Fatalf("SQLQuery() error = %v", err)
	}
	if got.Columns == nil || got.Rows == nil {
		t.Fatalf("SQLQuery() returned nil slices: %+v", got)
	}
	if len(got.Rows) != 0 {
		t.Fatalf("rows = %v", got.Rows)
	}
}

func TestSQLQueryWrapsServiceErrors(t *testing.T) {
	_, client := newTestCluster(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"parsing_exception","reason":"line 1:8: mismatched input"}}`))
	})

	_, err := client.SQLQuery(context.Background(), "SELEC nonsense")
	var qerr *QueryError
	if !errors.As(err, &qerr) {
		t.Fatalf("SQLQuery() error = %v, want *QueryError", err)
	}
	if qerr.Op != "sql query" {
		t.Fatalf("Op = %q", qerr.Op)
	}
}

func TestBulkIndexCountsAccepted(t *testing.T) {
	var captured []byte
	_, client := newTestCluster(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/employees/_bulk" {
			http.NotFound(w, r)
			return
		}
		captured, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"errors":true,"items":[{"index":{"status":201}},{"index":{"status":400}},{"index":{"status":201}}]}`))
	})

	docs := []json.RawMessage{
		json.RawMessage(`{"FirstName":"Ada"}`),
		json.RawMessage(`{"FirstName":}`),
		json.RawMessage(`{"FirstName":"Grace"}`),
	}
	indexed, err := client.BulkIndex(context.Background(), "employees", docs)
	if err != nil {
		t.Fatalf("BulkIndex() error = %v", err)
	}
	if indexed != 2 {
		t.Fatalf("indexed = %d, want 2", indexed)
	}
	if want := "{\"index\":{}}\n{\"FirstName\":\"Ada\"}\n"; !strings.HasPrefix(string(captured), want) {
		t.Fatalf("bulk body = %q", captured)
	}
}

func TestBulkIndexAllRejected(t *testing.T) {
	_, client := newTestCluster(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":true,"items":[{"index":{"status":400}}]}`))
	})

	if _, err := client.BulkIndex(context.Background(), "employees", []json.RawMessage{json.RawMessage(`{}`)}); err == nil {
		t.Fatal("BulkIndex() with every document rejected should fail")
	}
}

func TestBulkIndexEmptyIsNoop(t *testing.T) {
	_, client := newTestCluster(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty batch")
	})

	indexed, err := client.BulkIndex(context.Background(), "employees", nil)
	if err != nil || indexed != 0 {
		t.Fatalf("BulkIndex() = %d, %v", indexed, err)
	}
}
