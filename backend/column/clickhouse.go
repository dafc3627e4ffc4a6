// Package column implements the column-store data backend (ClickHouse),
// the canonical dialect the LRS query engine's predicate translation is
// specified against (spec §4.5). Every parameter is bound through the
// driver's placeholder mechanism; no query fragment is ever built by
// concatenating untrusted input.
package column

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	chsql "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/evalgo/ralph-go/backend"
	"github.com/evalgo/ralph-go/eveconfig"
	"github.com/evalgo/ralph-go/evelog"
	"github.com/evalgo/ralph-go/lrsquery"
	"github.com/evalgo/ralph-go/query"
	"github.com/evalgo/ralph-go/ralpherr"
)

const backendFamily = "DATA"
const backendName = "CLICKHOUSE"

// Settings mirrors ClickHouseDataBackendSettings: host/port/database/table,
// optional credentials, the locale encoding used when serializing raw
// output and the default chunk size. There is no free-form client options
// field.
type Settings struct {
	Host           string
	Port           int
	Database       string
	EventTableName string
	Username       string
	Password       string
	LocaleEncoding string
	DefaultChunkSize int
}

// FromEnv loads Settings from RALPH_BACKENDS__DATA__CLICKHOUSE__*.
func FromEnv() Settings {
	ec := eveconfig.NewEnvConfig(backendFamily, backendName)
	return Settings{
		Host:             ec.GetString("HOST", "localhost"),
		Port:             ec.GetInt("PORT", 8123),
		Database:         ec.GetString("DATABASE", "xapi"),
		EventTableName:   ec.GetString("EVENT_TABLE_NAME", "xapi_events_all"),
		Username:         ec.GetString("USERNAME", ""),
		Password:         ec.GetString("PASSWORD", ""),
		LocaleEncoding:   ec.GetString("LOCALE_ENCODING", "utf8"),
		DefaultChunkSize: ec.GetInt("DEFAULT_CHUNK_SIZE", 500),
	}
}

// Backend is the ClickHouse-backed data backend and lrsquery.Engine
// implementation. The underlying client is stateless HTTP, so it is safe
// for concurrent use across callers (spec §5).
type Backend struct {
	settings Settings
	db       *sql.DB
}

func New(settings Settings) *Backend {
	return &Backend{settings: settings}
}

func (b *Backend) Name() string      { return "clickhouse" }
func (b *Backend) Policy() backend.Policy { return backend.ColumnStorePolicy }

// client lazily opens the HTTP connection, matching the teacher's lazy
// client-property idiom (storage/database.go) so startup never blocks on
// an unreachable ClickHouse instance.
func (b *Backend) client() *sql.DB {
	if b.db == nil {
		opts := &chsql.Options{
			Addr:     []string{fmt.Sprintf("%s:%d", b.settings.Host, b.settings.Port)},
			Protocol: chsql.HTTP,
			Auth: chsql.Auth{
				Database: b.settings.Database,
				Username: b.settings.Username,
				Password: b.settings.Password,
			},
			Settings: chsql.Settings{
				"async_insert":            1,
				"wait_for_async_insert":   1,
				"date_time_input_format":  "best_effort",
			},
		}
		b.db = chsql.OpenDB(opts)
	}
	return b.db
}

// Status pings the server; a transport failure maps to Away, per spec §4.8.
func (b *Backend) Status() backend.Status {
	if err := b.client().PingContext(context.Background()); err != nil {
		evelog.WithBackend(b.Name()).WithError(err).Error("failed to connect to ClickHouse")
		return backend.Away
	}
	return backend.OK
}

// List returns the table names in the target database.
func (b *Backend) List(ctx context.Context, opts backend.ListOptions) ([]string, error) {
	rows, err := b.client().QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, ralpherr.Wrap(ralpherr.TransportFailure, "failed to list tables", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, ralpherr.Wrap(ralpherr.TransportFailure, "failed to scan table name", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Write folds data through the shared chunker and flushes each batch with
// BulkImport. Only CREATE is accepted; every other operation type is
// rejected before any data is touched (spec §4.3).
func (b *Backend) Write(ctx context.Context, records []backend.Record, opts backend.WriteOptions) (int, error) {
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
	target := opts.Target
	if target == "" {
		target = b.settings.EventTableName
	}

	return backend.Chunk(records, backend.ChunkOptions{
		ChunkSize:             chunkSize,
		IgnoreErrors:          opts.IgnoreErrors,
		OperationType:         opts.OperationType,
		RequireIDAndTimestamp: true,
	}, func(batch []backend.Tuple) (int, error) {
		return b.bulkImport(ctx, target, batch)
	})
}

// insertSQL builds the prepared INSERT statement text for table: four
// columns, four positional placeholders, nothing built from untrusted input.
func insertSQL(table string) string {
	return fmt.Sprintf(
		"INSERT INTO %s (event_id, emission_time, event, event_str) VALUES (?, ?, ?, ?)", table)
}

func (b *Backend) bulkImport(ctx context.Context, table string, batch []backend.Tuple) (int, error) {
	tx, err := b.client().BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL(table))
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	for _, t := range batch {
		if _, err := stmt.ExecContext(ctx, t.EventID, t.EmissionTime, t.Event, t.EventSerialized); err != nil {
			tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(batch), nil
}

// QueryStatements implements lrsquery.Engine for ClickHouse: the canonical
// predicate-translation dialect spec §4.5 is specified against, using
// positional placeholders bound through the driver, never string
// concatenation of untrusted input.
func (b *Backend) QueryStatements(ctx context.Context, params query.Params) (query.Result, error) {
	if err := params.Validate(); err != nil {
		return query.Result{}, err
	}

	var where []string
	var args []interface{}

	if params.StatementID != "" {
		where = append(where, "event_id = ?")
		args = append(args, params.StatementID)
	}
	if params.AgentAccountName != "" {
		where = append(where, "event.actor.account.name = ?")
		args = append(args, params.AgentAccountName)
	}
	if params.Verb != "" {
		where = append(where, "event.verb.id = ?")
		args = append(args, params.Verb)
	}
	if params.Activity != "" {
		where = append(where, "event.object.objectType = 'Activity'")
		where = append(where, "event.object.id = ?")
		args = append(args, params.Activity)
	}
	if !params.Since.IsZero() {
		where = append(where, "emission_time > ?")
		args = append(args, params.Since)
	}
	if !params.Until.IsZero() {
		where = append(where, "emission_time <= ?")
		args = append(args, params.Until)
	}
	if params.SearchAfter != "" {
		op := lrsquery.CompareOp(params.Ascending)
		where = append(where, fmt.Sprintf(
			"(emission_time %s ? OR (emission_time = ? AND event_id %s ?))", op, op))
		args = append(args, params.SearchAfter, params.SearchAfter, params.PitID)
	}

	order := "DESC"
	if params.Ascending {
		order = "ASC"
	}

	sqlText := fmt.Sprintf("SELECT event_id, emission_time, event FROM %s", b.settings.EventTableName)
	if len(where) > 0 {
		sqlText += " WHERE " + strings.Join(where, " AND ")
	}
	sqlText += fmt.Sprintf(" ORDER BY emission_time %s, event_id %s", order, order)
	if params.Limit > 0 {
		sqlText += fmt.Sprintf(" LIMIT %d", params.Limit)
	}

	rows, err := b.client().QueryContext(ctx, sqlText, args...)
	if err != nil {
		return query.Result{}, ralpherr.Wrap(ralpherr.TransportFailure, "clickhouse query failed", err)
	}
	defer rows.Close()

	var lrsRows []lrsquery.Row
	for rows.Next() {
		var r lrsquery.Row
		var ts time.Time
		var eventID string
		var event map[string]interface{}
		if err := rows.Scan(&eventID, &ts, &event); err != nil {
			return query.Result{}, ralpherr.Wrap(ralpherr.TransportFailure, "failed to scan row", err)
		}
		r.EventID = eventID
		r.EmissionTime = ts
		r.Event = event
		lrsRows = append(lrsRows, r)
	}

	if err := rows.Err(); err != nil {
		return query.Result{}, ralpherr.Wrap(ralpherr.TransportFailure, "clickhouse row iteration failed", err)
	}

	statements, err := lrsquery.DecodeStatements(lrsRows)
	if err != nil {
		return query.Result{}, err
	}

	token, pit := lrsquery.ExtractCursor(lrsRows)
	return query.Result{Statements: statements, ContinuationToken: token, PointInTime: pit}, nil
}
