// Package document implements the document-store data backend in two
// variants: a synchronous one over CouchDB (kivik), grounded on the
// teacher's db/repository/couchdb.go and storage/database.go, and a
// cooperative/async one over MongoDB (mongo-driver), grounded on the
// original async_mongo.py backend.
package document

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-kivik/kivik/v4/couchdb"
	kivik "github.com/go-kivik/kivik/v4"

	"github.com/evalgo/ralph-go/backend"
	"github.com/evalgo/ralph-go/eveconfig"
	"github.com/evalgo/ralph-go/evelog"
	"github.com/evalgo/ralph-go/lrsquery"
	"github.com/evalgo/ralph-go/query"
	"github.com/evalgo/ralph-go/ralpherr"
)

const backendFamily = "DATA"
const backendName = "COUCHDB"

// Settings mirrors a CouchDB connection: host, credentials and the
// default database storing statements.
type Settings struct {
	URL              string
	Username         string
	Password         string
	DefaultDatabase  string
	DefaultChunkSize int
}

func FromEnv() Settings {
	ec := eveconfig.NewEnvConfig(backendFamily, backendName)
	return Settings{
		URL:              ec.GetString("URL", "http://localhost:5984"),
		Username:         ec.GetString("USERNAME", ""),
		Password:         ec.GetString("PASSWORD", ""),
		DefaultDatabase:  ec.GetString("DEFAULT_DATABASE", "statements"),
		DefaultChunkSize: ec.GetInt("DEFAULT_CHUNK_SIZE", 500),
	}
}

// CouchDBBackend is the synchronous document-store variant. It is
// connection-pooled internally by kivik's HTTP client and safe for
// concurrent use (spec §5).
type CouchDBBackend struct {
	settings Settings
	client   *kivik.Client
}

func NewCouchDB(settings Settings) (*CouchDBBackend, error) {
	url := settings.URL
	client, err := kivik.New("couch", url)
	if err != nil {
		return nil, err
	}
	return &CouchDBBackend{settings: settings, client: client}, nil
}

func (b *CouchDBBackend) Name() string           { return "couchdb" }
func (b *CouchDBBackend) Policy() backend.Policy { return backend.DocumentStorePolicy }

func (b *CouchDBBackend) Status() backend.Status {
	ctx := context.Background()
	if err := b.client.Ping(ctx); err != nil {
		evelog.WithBackend(b.Name()).WithError(err).Error("failed to connect to CouchDB")
		return backend.Away
	}
	return backend.OK
}

func (b *CouchDBBackend) db(name string) *kivik.DB {
	if name == "" {
		name = b.settings.DefaultDatabase
	}
	return b.client.DB(name)
}

// Write bulk-saves data into target. CREATE/INDEX/UPDATE/DELETE are
// accepted (spec §4.3 document-store policy), and every accepted operation
// type is written the same way: each statement is saved as a full document
// under its event id. No _rev or _deleted field is set, so DELETE does not
// remove documents and UPDATE of an existing document is not applied.
func (b *CouchDBBackend) Write(ctx context.Context, records []backend.Record, opts backend.WriteOptions) (int, error) {
	if opts.OperationType == "" {
		opts.OperationType = backend.OperationCreate
	}
	if !b.Policy().Accepts(opts.OperationType) {
		return 0, ralpherr.New(ralpherr.NotSupported, fmt.Sprintf("%s operation_type is not allowed", opts.OperationType))
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = b.settings.DefaultChunkSize
	}
	database := b.db(opts.Target)

	return backend.Chunk(records, backend.ChunkOptions{
		ChunkSize:             chunkSize,
		IgnoreErrors:          opts.IgnoreErrors,
		OperationType:         opts.OperationType,
		RequireIDAndTimestamp: true,
	}, func(batch []backend.Tuple) (int, error) {
		docs := make([]interface{}, len(batch))
		for i, t := range batch {
			doc := make(map[string]interface{}, len(t.Event)+1)
			for k, v := range t.Event {
				doc[k] = v
			}
			doc["_id"] = t.EventID
			docs[i] = doc
		}
		results := database.BulkDocs(ctx, docs)
		defer results.Close()
		count := 0
		for results.Next() {
			if results.UpdateErr() == nil {
				count++
			}
		}
		if err := results.Err(); err != nil {
			return count, ralpherr.Wrap(ralpherr.TransportFailure, "bulk save failed", err)
		}
		return count, nil
	})
}

// Read fetches a single document by id.
func (b *CouchDBBackend) Read(ctx context.Context, target, id string) (map[string]interface{}, error) {
	row := b.db(target).Get(ctx, id)
	var doc map[string]interface{}
	if err := row.ScanDoc(&doc); err != nil {
		return nil, ralpherr.Wrap(ralpherr.TransportFailure, fmt.Sprintf("failed to read document %s", id), err)
	}
	return doc, nil
}

// List returns every document id in target (default DefaultDatabase), via
// CouchDB's built-in _all_docs view, the database-level analogue of the
// index/table listing every other backend's List exposes.
func (b *CouchDBBackend) List(ctx context.Context, target string) ([]string, error) {
	rows := b.db(target).AllDocs(ctx)
	defer rows.Close()

	var ids []string
	for rows.Next() {
		id, err := rows.ID()
		if err != nil {
			return nil, ralpherr.Wrap(ralpherr.TransportFailure, "failed to read document id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, ralpherr.Wrap(ralpherr.TransportFailure, "failed to list documents", err)
	}
	return ids, nil
}

// mangoSelector translates params into a Mango query selector, grounded on
// the teacher's CouchDBService.Find idiom (db/couchdb_query.go): the same
// predicate fields every other backend's QueryStatements checks, expressed
// as CouchDB's MongoDB-style operators.
func mangoSelector(params query.Params) map[string]interface{} {
	selector := map[string]interface{}{}
	if params.StatementID != "" {
		selector["id"] = params.StatementID
	}
	if params.AgentAccountName != "" {
		selector["actor.account.name"] = params.AgentAccountName
	}
	if params.Verb != "" {
		selector["verb.id"] = params.Verb
	}
	if params.Activity != "" {
		selector["object.objectType"] = "Activity"
		selector["object.id"] = params.Activity
	}
	timestamp := map[string]interface{}{}
	if !params.Since.IsZero() {
		timestamp["$gt"] = params.Since.Format(time.RFC3339Nano)
	}
	if !params.Until.IsZero() {
		timestamp["$lte"] = params.Until.Format(time.RFC3339Nano)
	}
	if len(timestamp) > 0 {
		selector["timestamp"] = timestamp
	}
	if params.SearchAfter != "" {
		op := "$lt"
		if params.Ascending {
			op = "$gt"
		}
		selector["$or"] = []map[string]interface{}{
			{"timestamp": map[string]interface{}{op: params.SearchAfter}},
			{
				"timestamp": params.SearchAfter,
				"id":        map[string]interface{}{op: params.PitID},
			},
		}
	}
	if len(selector) == 0 {
		selector["_id"] = map[string]interface{}{"$gt": nil}
	}
	return selector
}

// QueryStatements implements lrsquery.Engine for CouchDB via a Mango query:
// selector translation plus the shared (emission_time, event_id) sort and
// cursor, the same dialect every other backend's QueryStatements follows.
func (b *CouchDBBackend) QueryStatements(ctx context.Context, params query.Params) (query.Result, error) {
	if err := params.Validate(); err != nil {
		return query.Result{}, err
	}

	order := "desc"
	if params.Ascending {
		order = "asc"
	}
	selector := mangoSelector(params)
	opts := map[string]interface{}{
		"sort": []map[string]string{
			{"timestamp": order},
			{"id": order},
		},
	}
	if params.Limit > 0 {
		opts["limit"] = params.Limit
	}

	rows := b.db("").Find(ctx, selector, kivik.Params(opts))
	defer rows.Close()

	var lrsRows []lrsquery.Row
	for rows.Next() {
		var doc map[string]interface{}
		if err := rows.ScanDoc(&doc); err != nil {
			return query.Result{}, ralpherr.Wrap(ralpherr.TransportFailure, "failed to scan document", err)
		}
		id, _ := doc["id"].(string)
		var ts time.Time
		if raw, ok := doc["timestamp"].(string); ok {
			ts, _ = time.Parse(time.RFC3339Nano, raw)
		}
		lrsRows = append(lrsRows, lrsquery.Row{EventID: id, EmissionTime: ts, Event: doc})
	}
	if err := rows.Err(); err != nil {
		return query.Result{}, ralpherr.Wrap(ralpherr.TransportFailure, "mango query failed", err)
	}

	statements, err := lrsquery.DecodeStatements(lrsRows)
	if err != nil {
		return query.Result{}, err
	}

	token, pit := lrsquery.ExtractCursor(lrsRows)
	return query.Result{Statements: statements, ContinuationToken: token, PointInTime: pit}, nil
}
