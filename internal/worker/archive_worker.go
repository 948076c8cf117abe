package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/satforge/exam-engine/internal/config"
	"github.com/satforge/exam-engine/internal/slot"
)

// ArchiveWorker consumes archive_snapshots_queue and UPSERTs session
// snapshots into PostgreSQL. With the Redis slot backend this gives the
// session a second durable home that survives a Redis flush; the recovery
// guard and reload path still read Redis first.
type ArchiveWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewArchiveWorker creates a new ArchiveWorker.
func NewArchiveWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ArchiveWorker {
	return &ArchiveWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "archive_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *ArchiveWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *ArchiveWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or timeout (1 second).
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.ArchiveSnapshotsQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var entry slot.ArchiveEntry
	if err := json.Unmarshal([]byte(result[1]), &entry); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.persistSnapshot(ctx, &entry); err != nil {
		w.log.Error().Err(err).
			Str("slot", entry.Name).
			Msg("Persist error, retrying in 5s")
		// Push back to queue for retry.
		w.rdb.RPush(ctx, config.WorkerKey.ArchiveSnapshotsQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *ArchiveWorker) persistSnapshot(ctx context.Context, entry *slot.ArchiveEntry) error {
	// UPSERT the snapshot; creates or updates without locking.
	_, err := w.pool.Exec(ctx,
		`INSERT INTO session_slots (name, payload)
		 VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE
		 SET payload = EXCLUDED.payload, updated_at = NOW()`,
		entry.Name, entry.Payload,
	)
	return err
}

// drain processes all remaining items in the queue before shutdown.
func (w *ArchiveWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.ArchiveSnapshotsQueue).Result()
		if err != nil {
			break
		}

		var entry slot.ArchiveEntry
		if err := json.Unmarshal([]byte(result), &entry); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.persistSnapshot(ctx, &entry); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.ArchiveSnapshotsQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining snapshots")
	}
}
