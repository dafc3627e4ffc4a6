package document

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/evalgo/ralph-go/backend"
	"github.com/evalgo/ralph-go/eveconfig"
	"github.com/evalgo/ralph-go/evelog"
	"github.com/evalgo/ralph-go/lrsquery"
	"github.com/evalgo/ralph-go/query"
	"github.com/evalgo/ralph-go/ralpherr"
)

const mongoBackendFamily = "DATA"
const mongoBackendName = "MONGO"

// MongoSettings mirrors the async Mongo backend's connection settings.
type MongoSettings struct {
	ConnectionURI    string
	DefaultDatabase  string
	DefaultCollection string
	DefaultChunkSize int
}

func MongoFromEnv() MongoSettings {
	ec := eveconfig.NewEnvConfig(mongoBackendFamily, mongoBackendName)
	return MongoSettings{
		ConnectionURI:     ec.GetString("CONNECTION_URI", "mongodb://localhost:27017"),
		DefaultDatabase:   ec.GetString("DEFAULT_DATABASE", "statements"),
		DefaultCollection: ec.GetString("DEFAULT_COLLECTION", "marsha"),
		DefaultChunkSize:  ec.GetInt("DEFAULT_CHUNK_SIZE", 500),
	}
}

// AsyncMongoBackend is the cooperative/async document-store variant (spec
// §5): every operation suspends at I/O boundaries through context.Context
// and the driver's native cursor batching, rather than manual goroutines.
// Ordering guarantees are identical to CouchDBBackend; only the scheduling
// model differs.
type AsyncMongoBackend struct {
	settings MongoSettings
	client   *mongo.Client
}

func NewAsyncMongo(ctx context.Context, settings MongoSettings) (*AsyncMongoBackend, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(settings.ConnectionURI))
	if err != nil {
		return nil, err
	}
	return &AsyncMongoBackend{settings: settings, client: client}, nil
}

func (b *AsyncMongoBackend) Name() string           { return "async_mongo" }
func (b *AsyncMongoBackend) Policy() backend.Policy { return backend.DocumentStorePolicy }

func (b *AsyncMongoBackend) Status() backend.Status {
	ctx := context.Background()
	if err := b.client.Ping(ctx, nil); err != nil {
		evelog.WithBackend(b.Name()).WithError(err).Error("failed to connect to MongoDB")
		return backend.Away
	}
	return backend.OK
}

func (b *AsyncMongoBackend) collection(name string) *mongo.Collection {
	if name == "" {
		name = b.settings.DefaultCollection
	}
	return b.client.Database(b.settings.DefaultDatabase).Collection(name)
}

// Write inserts data into target via bulk_import semantics identical to
// the synchronous variant; only CREATE/INDEX/UPDATE/DELETE are permitted.
func (b *AsyncMongoBackend) Write(ctx context.Context, records []backend.Record, opts backend.WriteOptions) (int, error) {
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
	coll := b.collection(opts.Target)

	return backend.Chunk(records, backend.ChunkOptions{
		ChunkSize:             chunkSize,
		IgnoreErrors:          opts.IgnoreErrors,
		OperationType:         opts.OperationType,
		RequireIDAndTimestamp: true,
	}, func(batch []backend.Tuple) (int, error) {
		docs := make([]interface{}, len(batch))
		for i, t := range batch {
			source := bson.M{}
			for k, v := range t.Event {
				source[k] = v
			}
			// _id is left for Mongo to auto-assign an ObjectId; the
			// statement's own id lives under _source.id, matching the
			// original source's document shape exactly.
			docs[i] = bson.M{"_source": source}
		}
		res, err := coll.InsertMany(ctx, docs)
		if err != nil {
			return len(res.InsertedIDs), ralpherr.Wrap(ralpherr.TransportFailure, "bulk insert failed", err)
		}
		return len(res.InsertedIDs), nil
	})
}

// QueryStatements implements lrsquery.Engine for the Mongo variant. Unlike
// every other backend, Mongo's cursor is a single ObjectId taken from the
// document's own _id (not a composite emission_time/event_id pair): pit_id
// is always empty here, matching the original source exactly rather than
// forcing the shared composite shape onto a backend that never produces it.
func (b *AsyncMongoBackend) QueryStatements(ctx context.Context, params query.Params) (query.Result, error) {
	if err := params.Validate(); err != nil {
		return query.Result{}, err
	}

	filter := bson.M{}
	if params.StatementID != "" {
		filter["_source.id"] = params.StatementID
	}
	if params.AgentAccountName != "" {
		filter["_source.actor.account.name"] = params.AgentAccountName
	}
	if params.Verb != "" {
		filter["_source.verb.id"] = params.Verb
	}
	if params.Activity != "" {
		filter["_source.object.objectType"] = "Activity"
		filter["_source.object.id"] = params.Activity
	}
	if !params.Since.IsZero() {
		filter["_source.timestamp"] = bson.M{"$gt": params.Since}
	}
	if !params.Until.IsZero() {
		filter["_source.timestamp"] = bson.M{"$lte": params.Until}
	}
	if params.SearchAfter != "" {
		oid, err := primitive.ObjectIDFromHex(params.SearchAfter)
		if err != nil {
			return query.Result{}, ralpherr.New(ralpherr.BadParameter, "search_after is not a valid document id")
		}
		op := "$lt"
		if params.Ascending {
			op = "$gt"
		}
		filter["_id"] = bson.M{op: oid}
	}

	sortDir := -1
	if params.Ascending {
		sortDir = 1
	}
	findOpts := options.Find().SetSort(bson.D{{Key: "_source.timestamp", Value: sortDir}, {Key: "_id", Value: sortDir}})
	if params.Limit > 0 {
		findOpts.SetLimit(int64(params.Limit))
	}

	cur, err := b.collection("").Find(ctx, filter, findOpts)
	if err != nil {
		return query.Result{}, ralpherr.Wrap(ralpherr.TransportFailure, "mongo query failed", err)
	}
	defer cur.Close(ctx)

	var lastID string
	var sources []map[string]interface{}
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return query.Result{}, ralpherr.Wrap(ralpherr.TransportFailure, "failed to decode document", err)
		}
		if oid, ok := doc["_id"].(primitive.ObjectID); ok {
			lastID = oid.Hex()
		}
		source, _ := doc["_source"].(bson.M)
		sources = append(sources, map[string]interface{}(source))
	}
	if err := cur.Err(); err != nil {
		return query.Result{}, ralpherr.Wrap(ralpherr.TransportFailure, "mongo cursor iteration failed", err)
	}

	if len(sources) == 0 {
		return query.Result{}, nil
	}

	rows := make([]lrsquery.Row, len(sources))
	for i, source := range sources {
		rows[i] = lrsquery.Row{Event: source}
	}
	statements, err := lrsquery.DecodeStatements(rows)
	if err != nil {
		return query.Result{}, err
	}

	return query.Result{Statements: statements, ContinuationToken: lastID, PointInTime: ""}, nil
}
