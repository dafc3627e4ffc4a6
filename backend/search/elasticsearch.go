// Package search implements the search-cluster data backend
// (Elasticsearch), grounded on the original es.py backend: status derived
// from cluster health, streaming_bulk-style per-operation-type document
// building, and scan-based reads.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"

	"github.com/evalgo/ralph-go/backend"
	"github.com/evalgo/ralph-go/eveconfig"
	"github.com/evalgo/ralph-go/evelog"
	"github.com/evalgo/ralph-go/lrsquery"
	"github.com/evalgo/ralph-go/query"
	"github.com/evalgo/ralph-go/ralpherr"
)

const backendFamily = "DATA"
const backendName = "ES"

// Settings mirrors ESDataBackendSettings.
type Settings struct {
	Hosts            []string
	DefaultIndex     string
	LocaleEncoding   string
	DefaultChunkSize int
}

func FromEnv() Settings {
	ec := eveconfig.NewEnvConfig(backendFamily, backendName)
	return Settings{
		Hosts:            ec.GetStringSlice("HOSTS", []string{"http://localhost:9200"}),
		DefaultIndex:     ec.GetString("DEFAULT_INDEX", "statements"),
		LocaleEncoding:   ec.GetString("LOCALE_ENCODING", "utf8"),
		DefaultChunkSize: ec.GetInt("DEFAULT_CHUNK_SIZE", 500),
	}
}

// Backend is the Elasticsearch-backed data backend. The client is
// connection-pooled and safe for concurrent use (spec §5).
type Backend struct {
	settings Settings
	client   *elasticsearch.Client
}

func New(settings Settings) (*Backend, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: settings.Hosts})
	if err != nil {
		return nil, err
	}
	return &Backend{settings: settings, client: client}, nil
}

func (b *Backend) Name() string           { return "es" }
func (b *Backend) Policy() backend.Policy { return backend.SearchClusterPolicy }

// Status checks the cluster health; a connection failure maps to Away, a
// non-green cluster to Error (spec §4.8).
func (b *Backend) Status() backend.Status {
	res, err := b.client.Info()
	if err != nil {
		evelog.WithBackend(b.Name()).WithError(err).Error("failed to connect to Elasticsearch")
		return backend.Away
	}
	defer res.Body.Close()

	health, err := b.client.Cluster.Health()
	if err != nil {
		return backend.Away
	}
	defer health.Body.Close()
	body, _ := io.ReadAll(health.Body)
	if !strings.Contains(string(body), "green") {
		evelog.WithBackend(b.Name()).Error("cluster status is not green")
		return backend.Error
	}
	return backend.OK
}

// List returns the index/data-stream/alias names matching target (default
// "*", i.e. every index), per the original's indices.get-backed list().
func (b *Backend) List(ctx context.Context, target string) ([]string, error) {
	if target == "" {
		target = "*"
	}
	req := esapi.IndicesGetRequest{Index: []string{target}}
	res, err := req.Do(ctx, b.client)
	if err != nil {
		return nil, ralpherr.Wrap(ralpherr.TransportFailure, "failed to list indices", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, ralpherr.New(ralpherr.TransportFailure, fmt.Sprintf("failed to list indices: status %s", res.Status()))
	}

	var indices map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&indices); err != nil {
		return nil, ralpherr.Wrap(ralpherr.BadFormat, "failed to decode indices response", err)
	}
	names := make([]string, 0, len(indices))
	for name := range indices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Read runs a raw Query DSL search against target (default DefaultIndex)
// and returns the matching documents' _source, up to size results.
func (b *Backend) Read(ctx context.Context, target string, queryDSL map[string]interface{}, size int) ([]map[string]interface{}, error) {
	if target == "" {
		target = b.settings.DefaultIndex
	}
	if size <= 0 {
		size = b.settings.DefaultChunkSize
	}
	body := map[string]interface{}{"size": size}
	if queryDSL != nil {
		body["query"] = queryDSL
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, ralpherr.Wrap(ralpherr.BadFormat, "failed to encode search request", err)
	}

	req := esapi.SearchRequest{Index: []string{target}, Body: bytes.NewReader(payload)}
	res, err := req.Do(ctx, b.client)
	if err != nil {
		return nil, ralpherr.Wrap(ralpherr.TransportFailure, "search request failed", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, ralpherr.New(ralpherr.TransportFailure, fmt.Sprintf("search request returned status %s", res.Status()))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, ralpherr.Wrap(ralpherr.BadFormat, "failed to decode search response", err)
	}

	docs := make([]map[string]interface{}, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		docs = append(docs, h.Source)
	}
	return docs, nil
}

// timeRangeClause builds the timestamp range clause of params, or nil when
// neither Since nor Until is set.
func timeRangeClause(params query.Params) map[string]interface{} {
	rng := map[string]interface{}{}
	if !params.Since.IsZero() {
		rng["gt"] = params.Since.Format(time.RFC3339Nano)
	}
	if !params.Until.IsZero() {
		rng["lte"] = params.Until.Format(time.RFC3339Nano)
	}
	if len(rng) == 0 {
		return nil
	}
	return map[string]interface{}{"range": map[string]interface{}{"timestamp": rng}}
}

// QueryStatements implements lrsquery.Engine for Elasticsearch: params are
// translated into a bool/term query DSL, sorted by (timestamp, id) and
// paginated via search_after, grounded on the original's scan-based read
// and this spec's shared composite cursor.
func (b *Backend) QueryStatements(ctx context.Context, params query.Params) (query.Result, error) {
	if err := params.Validate(); err != nil {
		return query.Result{}, err
	}

	var must []map[string]interface{}
	if params.StatementID != "" {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"id": params.StatementID}})
	}
	if params.AgentAccountName != "" {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"actor.account.name": params.AgentAccountName}})
	}
	if params.Verb != "" {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"verb.id": params.Verb}})
	}
	if params.Activity != "" {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"object.objectType": "Activity"}})
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"object.id": params.Activity}})
	}
	if rng := timeRangeClause(params); rng != nil {
		must = append(must, rng)
	}

	body := map[string]interface{}{}
	if len(must) > 0 {
		body["query"] = map[string]interface{}{"bool": map[string]interface{}{"must": must}}
	}
	order := "desc"
	if params.Ascending {
		order = "asc"
	}
	body["sort"] = []map[string]interface{}{
		{"timestamp": order},
		{"id": order},
	}
	if params.Limit > 0 {
		body["size"] = params.Limit
	}
	if params.SearchAfter != "" {
		body["search_after"] = []interface{}{params.SearchAfter, params.PitID}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return query.Result{}, ralpherr.Wrap(ralpherr.BadFormat, "failed to encode query", err)
	}

	target := b.settings.DefaultIndex
	req := esapi.SearchRequest{Index: []string{target}, Body: bytes.NewReader(payload)}
	res, err := req.Do(ctx, b.client)
	if err != nil {
		return query.Result{}, ralpherr.Wrap(ralpherr.TransportFailure, "search request failed", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return query.Result{}, ralpherr.New(ralpherr.TransportFailure, fmt.Sprintf("search request returned status %s", res.Status()))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string                 `json:"_id"`
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return query.Result{}, ralpherr.Wrap(ralpherr.BadFormat, "failed to decode search response", err)
	}

	rows := make([]lrsquery.Row, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		var ts time.Time
		if raw, ok := h.Source["timestamp"].(string); ok {
			ts, _ = time.Parse(time.RFC3339Nano, raw)
		}
		rows = append(rows, lrsquery.Row{EventID: h.ID, EmissionTime: ts, Event: h.Source})
	}

	statements, err := lrsquery.DecodeStatements(rows)
	if err != nil {
		return query.Result{}, err
	}

	token, pit := lrsquery.ExtractCursor(rows)
	return query.Result{Statements: statements, ContinuationToken: token, PointInTime: pit}, nil
}

// toAction builds the bulk action line + (optional) source line for one
// document, per operation type, matching the source's to_documents table.
func toAction(index, id string, doc map[string]interface{}, op backend.OperationType) ([]byte, error) {
	var meta map[string]interface{}
	switch op {
	case backend.OperationUpdate:
		meta = map[string]interface{}{"update": map[string]interface{}{"_index": index, "_id": id}}
	case backend.OperationCreate, backend.OperationIndex:
		meta = map[string]interface{}{string(op): map[string]interface{}{"_index": index, "_id": id}}
	case backend.OperationDelete:
		meta = map[string]interface{}{"delete": map[string]interface{}{"_index": index, "_id": id}}
	default:
		return nil, ralpherr.New(ralpherr.NotSupported, fmt.Sprintf("%s operation_type is not supported", op))
	}
	metaLine, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Write(metaLine)
	buf.WriteByte('\n')
	if op != backend.OperationDelete {
		var srcLine []byte
		if op == backend.OperationUpdate {
			srcLine, err = json.Marshal(map[string]interface{}{"doc": doc})
		} else {
			srcLine, err = json.Marshal(doc)
		}
		if err != nil {
			return nil, err
		}
		buf.Write(srcLine)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Write bulk-indexes data into target. APPEND is rejected; every other
// operation type is supported (spec §4.3).
func (b *Backend) Write(ctx context.Context, records []backend.Record, opts backend.WriteOptions) (int, error) {
	if opts.OperationType == "" {
		opts.OperationType = backend.OperationIndex
	}
	if !b.Policy().Accepts(opts.OperationType) {
		return 0, ralpherr.New(ralpherr.NotSupported, "append operation_type is not supported")
	}

	target := opts.Target
	if target == "" {
		target = b.settings.DefaultIndex
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = b.settings.DefaultChunkSize
	}

	return backend.Chunk(records, backend.ChunkOptions{
		ChunkSize:    chunkSize,
		IgnoreErrors: opts.IgnoreErrors,
		OperationType: opts.OperationType,
	}, func(batch []backend.Tuple) (int, error) {
		var buf bytes.Buffer
		for _, t := range batch {
			line, err := toAction(target, t.EventID, t.Event, opts.OperationType)
			if err != nil {
				return 0, err
			}
			buf.Write(line)
		}
		req := esapi.BulkRequest{Body: bytes.NewReader(buf.Bytes()), Index: target}
		res, err := req.Do(ctx, b.client)
		if err != nil {
			return 0, ralpherr.Wrap(ralpherr.TransportFailure, "bulk request failed", err)
		}
		defer res.Body.Close()
		if res.IsError() {
			return 0, ralpherr.New(ralpherr.TransportFailure, fmt.Sprintf("bulk request returned status %s", res.Status()))
		}
		return len(batch), nil
	})
}
