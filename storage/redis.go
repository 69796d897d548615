package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/richinex/dossier/cache"
)

const defaultRedisPrefix = "dossier:logs"

// RedisStore keeps one list per action type, newest record at the head.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

// OpenRedis connects to Redis. addr may be a redis:// URL or host:port.
func OpenRedis(ctx context.Context, addr, prefix string) (*RedisStore, error) {
	opt, err := redis.ParseURL(addr)
	if err != nil {
		opt = &redis.Options{Addr: addr}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStore(rdb, prefix), nil
}

// NewRedisStore wraps an existing client. An empty prefix uses "dossier:logs".
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix, now: time.Now}
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) listKey(action cache.ActionType) string {
	return s.prefix + ":" + string(action)
}

func (s *RedisStore) seqKey() string     { return s.prefix + ":seq" }
func (s *RedisStore) actionsKey() string { return s.prefix + ":actions" }

// Insert assigns the next sequence ID and pushes the record onto its list.
func (s *RedisStore) Insert(ctx context.Context, rec cache.Record) (int64, error) {
	id, err := s.rdb.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate record id: %w", err)
	}
	rec.ID = id
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("failed to encode record: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, s.listKey(rec.Action), payload)
		pipe.SAdd(ctx, s.actionsKey(), string(rec.Action))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to push record: %w", err)
	}
	return id, nil
}

// Recent returns up to limit records of the action, newest first.
func (s *RedisStore) Recent(ctx context.Context, action cache.ActionType, limit int) ([]cache.Record, error) {
	stop := int64(limit - 1)
	if limit <= 0 {
		stop = -1
	}

	raw, err := s.rdb.LRange(ctx, s.listKey(action), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	out := make([]cache.Record, 0, len(raw))
	for _, item := range raw {
		var rec cache.Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Clear drops every action list and the sequence counter.
func (s *RedisStore) Clear(ctx context.Context) error {
	actions, err := s.rdb.SMembers(ctx, s.actionsKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to list actions: %w", err)
	}

	keys := []string{s.actionsKey(), s.seqKey()}
	for _, a := range actions {
		keys = append(keys, s.listKey(cache.ActionType(a)))
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}
	return nil
}

var _ cache.Store = (*RedisStore)(nil)
