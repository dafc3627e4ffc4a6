package backend

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/evalgo/ralph-go/evelog"
	"github.com/evalgo/ralph-go/ralpherr"
)

// Record is either raw bytes (one JSON statement per element) or an
// already-decoded statement map; the chunker normalizes either shape to
// Tuple before handing batches to a backend's BulkImport.
type Record struct {
	Bytes []byte
	Doc   map[string]interface{}
}

// BulkImportFunc performs one backend-specific bulk insert of a batch and
// returns how many rows were actually persisted.
type BulkImportFunc func(batch []Tuple) (int, error)

// ChunkOptions configures one Chunk call.
type ChunkOptions struct {
	ChunkSize     int
	IgnoreErrors  bool
	OperationType OperationType
	RequireIDAndTimestamp bool
}

// Chunk implements the shared ingestion pipeline (spec §4.4): peek the
// first element, decode bytes to maps if needed, fold into Tuple rejecting
// records missing id/timestamp, reject intra-batch duplicate ids, batch by
// ChunkSize, and flush sequentially through importFn. There is no internal
// fan-out — chunks are flushed one at a time, per spec §5.
func Chunk(records []Record, opts ChunkOptions, importFn BulkImportFunc) (int, error) {
	if len(records) == 0 {
		evelog.Logger.Info("data iterator is empty; skipping write to target")
		return 0, nil
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 500
	}

	success := 0
	batch := make([]Tuple, 0, chunkSize)
	seen := make(map[string]bool, chunkSize)

	flush := func() (bool, error) {
		if len(batch) == 0 {
			return true, nil
		}
		n, err := importFn(batch)
		batch = batch[:0]
		for k := range seen {
			delete(seen, k)
		}
		if err != nil {
			if opts.IgnoreErrors {
				evelog.Logger.WithError(err).Warn("bulk import failed for current chunk but ignore_errors is set")
				return true, nil
			}
			return false, ralpherr.Partial(success, "bulk import failed", err)
		}
		success += n
		return true, nil
	}

	for _, rec := range records {
		doc := rec.Doc
		if rec.Bytes != nil {
			if err := json.Unmarshal(rec.Bytes, &doc); err != nil {
				if opts.IgnoreErrors {
					evelog.Logger.WithError(err).Warn("failed to decode JSON line, skipping")
					continue
				}
				return success, ralpherr.Wrap(ralpherr.BadFormat, "failed to decode JSON line", err)
			}
		}

		tup, ferr := foldTuple(doc, opts)
		if ferr != nil {
			if opts.IgnoreErrors {
				evelog.Logger.WithError(ferr).Warn("statement has an invalid or missing id or timestamp field")
				continue
			}
			return success, ferr
		}

		if seen[tup.EventID] {
			err := ralpherr.New(ralpherr.BadFormat, fmt.Sprintf("duplicate id %q found in batch", tup.EventID))
			if opts.IgnoreErrors {
				// The whole batch accumulated so far is discarded, per
				// spec §4.4 point 6: duplicate rejection is batch-level.
				batch = batch[:0]
				for k := range seen {
					delete(seen, k)
				}
				evelog.Logger.WithError(err).Warn("duplicate ids found in batch; batch discarded")
				continue
			}
			return success, err
		}
		seen[tup.EventID] = true
		batch = append(batch, tup)

		if len(batch) >= chunkSize {
			ok, err := flush()
			if !ok {
				return success, err
			}
		}
	}

	ok, err := flush()
	if !ok {
		return success, err
	}
	return success, nil
}

func foldTuple(doc map[string]interface{}, opts ChunkOptions) (Tuple, error) {
	id, _ := doc["id"].(string)
	tsRaw, hasTS := doc["timestamp"]
	if opts.RequireIDAndTimestamp && (!hasTS || (opts.OperationType == OperationCreate && id == "")) {
		return Tuple{}, ralpherr.New(ralpherr.BadFormat, fmt.Sprintf("statement has an invalid or missing id or timestamp field: %v", doc))
	}

	var ts time.Time
	switch v := tsRaw.(type) {
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return Tuple{}, ralpherr.Wrap(ralpherr.BadFormat, "invalid timestamp", err)
		}
		ts = parsed
	case time.Time:
		ts = v
	}

	if id == "" {
		id = newUUIDFallback()
	}

	serialized, err := json.Marshal(doc)
	if err != nil {
		return Tuple{}, ralpherr.Wrap(ralpherr.BadFormat, "failed to serialize statement", err)
	}

	return Tuple{
		EventID:         id,
		EmissionTime:    ts,
		Event:           doc,
		EventSerialized: string(serialized),
	}, nil
}
