// Package search is the boundary to the Elasticsearch cluster: schema
// introspection, diverse-terms aggregation, SQL execution, and bulk writes.
package search

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

type Config struct {
	URL                string
	Username           string
	Password           string
	InsecureSkipVerify bool
	Timeout            time.Duration
	FetchSize          int
}

type Client struct {
	es        *elasticsearch.Client
	timeout   time.Duration
	fetchSize int
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("elasticsearch url is required")
	}
	esCfg := elasticsearch.Config{
		Addresses: []string{strings.TrimSpace(cfg.URL)},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}
	if cfg.InsecureSkipVerify {
		esCfg.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	fetchSize := cfg.FetchSize
	if fetchSize <= 0 {
		fetchSize = 1000
	}
	return &Client{es: es, timeout: cfg.Timeout, fetchSize: fetchSize}, nil
}

// HealthCheck pings the cluster info endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := c.callContext(ctx)
	defer cancel()
	res, err := c.es.Info(c.es.Info.WithContext(ctx))
	if err != nil {
		return &QueryError{Op: "cluster info", Err: err}
	}
	defer closeResponse(res)
	if res.IsError() {
		return &QueryError{Op: "cluster info", Err: fmt.Errorf("status %d", res.StatusCode)}
	}
	return nil
}

// Indices lists the cluster's index names, skipping system indices.
func (c *Client) Indices(ctx context.Context) ([]string, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()
	res, err := c.es.Indices.GetAlias(c.es.Indices.GetAlias.WithContext(ctx))
	if err != nil {
		return nil, &QueryError{Op: "list indices", Err: err}
	}
	defer closeResponse(res)
	if res.IsError() {
		return nil, &QueryError{Op: "list indices", Err: responseError(res)}
	}

	var aliases map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&aliases); err != nil {
		return nil, &QueryError{Op: "list indices", Err: fmt.Errorf("decode alias response: %w", err)}
	}
	indices := make([]string, 0, len(aliases))
	for name := range aliases {
		if strings.HasPrefix(name, ".") {
			continue
		}
		indices = append(indices, name)
	}
	sort.Strings(indices)
	return indices, nil
}

// Fields returns the mapping of one index as field descriptors, sorted by
// field name.
func (c *Client) Fields(ctx context.Context, index string) ([]Field, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()
	res, err := c.es.Indices.GetMapping(
		c.es.Indices.GetMapping.WithContext(ctx),
		c.es.Indices.GetMapping.WithIndex(index),
	)
	if err != nil {
		return nil, &QueryError{Op: "get mapping", Index: index, Err: err}
	}
	defer closeResponse(res)
	if res.IsError() {
		return nil, &QueryError{Op: "get mapping", Index: index, Err: responseError(res)}
	}

	var mapping map[string]struct {
		Mappings struct {
			Properties map[string]struct {
				Type string `json:"type"`
			} `json:"properties"`
		} `json:"mappings"`
	}
	if err := json.NewDecoder(res.Body).Decode(&mapping); err != nil {
		return nil, &QueryError{Op: "get mapping", Index: index, Err: fmt.Errorf("decode mapping response: %w", err)}
	}

	entry, ok := mapping[index]
	if !ok {
		// Aliased lookups come back keyed by the concrete index name.
		for _, candidate := range mapping {
			entry = candidate
			break
		}
	}

	fields := make([]Field, 0, len(entry.Mappings.Properties))
	for name, details := range entry.Mappings.Properties {
		dataType := details.Type
		if dataType == "" {
			dataType = "unknown"
		}
		fields = append(fields, Field{Name: name, Type: dataType})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	return fields, nil
}

// SQLQuery executes an Elasticsearch SQL statement and tabularizes the
// result, following the cursor until the result set is drained.
func (c *Client) SQLQuery(ctx context.Context, sql string) (Table, error) {
	body, err := json.Marshal(map[string]any{"query": sql, "fetch_size": c.fetchSize})
	if err != nil {
		return Table{}, &QueryError{Op: "sql query", Err: fmt.Errorf("marshal sql request: %w", err)}
	}

	var table Table
	cursor := ""
	for {
		page, err := c.sqlPage(ctx, body)
		if err != nil {
			return Table{}, err
		}
		if table.Columns == nil {
			for _, col := range page.Columns {
				table.Columns = append(table.Columns, col.Name)
			}
		}
		table.Rows = append(table.Rows, page.Rows...)
		cursor = page.Cursor
		if cursor == "" {
			break
		}
		body, err = json.Marshal(map[string]any{"cursor": cursor})
		if err != nil {
			return Table{}, &QueryError{Op: "sql query", Err: fmt.Errorf("marshal cursor request: %w", err)}
		}
	}
	if table.Columns == nil {
		table.Columns = []string{}
	}
	if table.Rows == nil {
		table.Rows = [][]any{}
	}
	return table, nil
}

type sqlPageResponse struct {
	Columns []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"columns"`
	Rows   [][]any `json:"rows"`
	Cursor string  `json:"cursor"`
}

func (c *Client) sqlPage(ctx context.Context, body []byte) (sqlPageResponse, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()
	res, err := c.es.SQL.Query(bytes.NewReader(body), c.es.SQL.Query.WithContext(callCtx))
	if err != nil {
		return sqlPageResponse{}, &QueryError{Op: "sql query", Err: err}
	}
	defer closeResponse(res)
	if res.IsError() {
		return sqlPageResponse{}, &QueryError{Op: "sql query", Err: responseError(res)}
	}
	var page sqlPageResponse
	if err := json.NewDecoder(res.Body).Decode(&page); err != nil {
		return sqlPageResponse{}, &QueryError{Op: "sql query", Err: fmt.Errorf("decode sql response: %w", err)}
	}
	return page, nil
}

// BulkIndex writes documents to an index through the bulk endpoint and
// returns the number of indexed documents.
func (c *Client) BulkIndex(ctx context.Context, index string, docs []json.RawMessage) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	var buf bytes.Buffer
	for _, doc := range docs {
		buf.WriteString(`{"index":{}}`)
		buf.WriteByte('\n')
		buf.Write(bytes.TrimSpace(doc))
		buf.WriteByte('\n')
	}

	ctx, cancel := c.callContext(ctx)
	defer cancel()
	res, err := c.es.Bulk(bytes.NewReader(buf.Bytes()),
		c.es.Bulk.WithContext(ctx),
		c.es.Bulk.WithIndex(index),
	)
	if err != nil {
		return 0, &QueryError{Op: "bulk index", Index: index, Err: err}
	}
	defer closeResponse(res)
	if res.IsError() {
		return 0, &QueryError{Op: "bulk index", Index: index, Err: responseError(res)}
	}

	var parsed struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, &QueryError{Op: "bulk index", Index: index, Err: fmt.Errorf("decode bulk response: %w", err)}
	}
	indexed := 0
	for _, item := range parsed.Items {
		for _, op := range item {
			if op.Status < 300 {
				indexed++
			}
		}
	}
	if parsed.Errors && indexed == 0 {
		return 0, &QueryError{Op: "bulk index", Index: index, Err: fmt.Errorf("all %d documents rejected", len(docs))}
	}
	return indexed, nil
}

func (c *Client) search(ctx context.Context, index string, body []byte) (json.RawMessage, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, &QueryError{Op: "search", Index: index, Err: err}
	}
	defer closeResponse(res)
	if res.IsError() {
		return nil, &QueryError{Op: "search", Index: index, Err: responseError(res)}
	}
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &QueryError{Op: "search", Index: index, Err: fmt.Errorf("read search response: %w", err)}
	}
	return raw, nil
}

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func closeResponse(res *esapi.Response) {
	if res != nil && res.Body != nil {
		_ = res.Body.Close()
	}
}

func responseError(res *esapi.Response) error {
	raw, _ := io.ReadAll(res.Body)
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return fmt.Errorf("status %d: %s", res.StatusCode, msg)
}
