// Package cache provides a Redis-backed companion to the history journal:
// a distributed lock preventing two ingestion runs against the same
// backend from overlapping, a short-lived duplicate-id cache cheaper than
// re-scanning the journal file on every write, and a pub/sub fan-out used
// to notify readers when a document-store backend's change feed advances.
// Grounded on the teacher's db/repository/redis.go RedisRepository.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evalgo/ralph-go/eveconfig"
	"github.com/evalgo/ralph-go/ralpherr"
)

const backendFamily = "CACHE"
const backendName = "REDIS"

type Settings struct {
	URL       string
	LockTTL   time.Duration
	DedupeTTL time.Duration
}

func FromEnv() Settings {
	ec := eveconfig.NewEnvConfig(backendFamily, backendName)
	return Settings{
		URL:       ec.GetString("URL", "redis://localhost:6379/0"),
		LockTTL:   ec.GetDuration("LOCK_TTL", 5*time.Minute),
		DedupeTTL: ec.GetDuration("DEDUPE_TTL", 24*time.Hour),
	}
}

// Cache wraps a Redis client with the three concerns ingestion runs need:
// mutual exclusion across runs, a cheap id-seen check, and a change-feed
// signal for cooperative readers.
type Cache struct {
	settings Settings
	client   *redis.Client
}

func New(settings Settings) (*Cache, error) {
	opts, err := redis.ParseURL(settings.URL)
	if err != nil {
		return nil, ralpherr.Wrap(ralpherr.BadParameter, "failed to parse redis url", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, ralpherr.Wrap(ralpherr.TransportFailure, "failed to connect to redis", err)
	}
	return &Cache{settings: settings, client: client}, nil
}

// AcquireBackendLock prevents two ingestion runs from writing to the same
// named backend concurrently; callers must ReleaseBackendLock when done.
func (c *Cache) AcquireBackendLock(ctx context.Context, backendName string) (bool, error) {
	key := "lock:backend:" + backendName
	ok, err := c.client.SetNX(ctx, key, time.Now().Format(time.RFC3339), c.settings.LockTTL).Result()
	if err != nil {
		return false, ralpherr.Wrap(ralpherr.TransportFailure, "failed to acquire backend lock", err)
	}
	return ok, nil
}

func (c *Cache) ReleaseBackendLock(ctx context.Context, backendName string) error {
	key := "lock:backend:" + backendName
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return ralpherr.Wrap(ralpherr.TransportFailure, "failed to release backend lock", err)
	}
	return nil
}

// SeenEventID records eventID as already written for backendName and
// reports whether it had already been recorded, complementing the history
// journal's on-disk record with a fast in-memory check during a single
// ingestion run. This is a cache, not a source of truth: a cold cache
// false-negative simply falls through to the journal's FilterNew.
func (c *Cache) SeenEventID(ctx context.Context, backendName, eventID string) (alreadySeen bool, err error) {
	key := fmt.Sprintf("seen:%s:%s", backendName, eventID)
	ok, err := c.client.SetNX(ctx, key, 1, c.settings.DedupeTTL).Result()
	if err != nil {
		return false, ralpherr.Wrap(ralpherr.TransportFailure, "failed to check seen event id", err)
	}
	return !ok, nil
}

// PublishChangeFeed notifies subscribers that backendName's data advanced
// past cursor, for cooperative readers following a document-store backend
// without re-polling query_statements on a timer.
func (c *Cache) PublishChangeFeed(ctx context.Context, backendName, cursor string) error {
	payload, err := json.Marshal(map[string]string{"backend": backendName, "cursor": cursor})
	if err != nil {
		return err
	}
	if err := c.client.Publish(ctx, "changefeed:"+backendName, payload).Err(); err != nil {
		return ralpherr.Wrap(ralpherr.TransportFailure, "failed to publish change feed", err)
	}
	return nil
}

// SubscribeChangeFeed returns a channel of cursor strings published for
// backendName. The returned channel closes when ctx is canceled.
func (c *Cache) SubscribeChangeFeed(ctx context.Context, backendName string) (<-chan string, error) {
	pubsub := c.client.Subscribe(ctx, "changefeed:"+backendName)
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, ralpherr.Wrap(ralpherr.TransportFailure, "failed to subscribe to change feed", err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var payload struct {
					Cursor string `json:"cursor"`
				}
				if err := json.Unmarshal([]byte(msg.Payload), &payload); err == nil {
					out <- payload.Cursor
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}
