package slot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/satforge/exam-engine/internal/config"
)

// RedisStore persists slots as plain Redis keys. When archiving is enabled,
// every save is also queued for the snapshot archiver, which mirrors the
// payload into PostgreSQL in the background.
type RedisStore struct {
	rdb     *redis.Client
	archive bool
}

// NewRedisStore creates a Redis-backed slot store.
func NewRedisStore(rdb *redis.Client, archive bool) *RedisStore {
	return &RedisStore{rdb: rdb, archive: archive}
}

// ArchiveEntry is the queue payload consumed by the snapshot archiver.
type ArchiveEntry struct {
	Name    string `json:"name"`
	Payload []byte `json:"payload"`
}

func (s *RedisStore) Save(ctx context.Context, name string, payload []byte) error {
	if err := s.rdb.Set(ctx, name, payload, 0).Err(); err != nil {
		return fmt.Errorf("set slot: %w", err)
	}

	if s.archive {
		entry, err := json.Marshal(ArchiveEntry{Name: name, Payload: payload})
		if err == nil {
			// Best-effort: a full queue or Redis hiccup must not fail the save.
			_ = s.rdb.RPush(ctx, config.WorkerKey.ArchiveSnapshotsQueue, entry).Err()
		}
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, name string) ([]byte, error) {
	val, err := s.rdb.Get(ctx, name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	return val, nil
}

func (s *RedisStore) Delete(ctx context.Context, name string) error {
	if err := s.rdb.Del(ctx, name).Err(); err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	return nil
}
