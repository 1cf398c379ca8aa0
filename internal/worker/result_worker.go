package worker

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/repository"
)

const ResultPollTimeout = 1 * time.Second

// ResultStore is the persistence the worker flushes into.
type ResultStore interface {
	BulkInsert(ctx context.Context, records []model.ResultRecord) (int64, error)
	Insert(ctx context.Context, r *model.ResultRecord) error
}

// queued keeps the raw payload next to its row so a failed insert can be
// requeued unchanged.
type queued struct {
	raw string
	rec model.ResultRecord
}

// ResultWorker drains pushed session results from Redis into PostgreSQL.
type ResultWorker struct {
	repo      ResultStore
	rdb       *redis.Client
	batchSize int
	timeout   time.Duration
	log       zerolog.Logger
}

func NewResultWorker(repo ResultStore, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *ResultWorker {
	size := cfg.ResultBatchSize
	if size <= 0 {
		size = 50
	}
	timeout := cfg.ResultBatchTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ResultWorker{
		repo:      repo,
		rdb:       rdb,
		batchSize: size,
		timeout:   timeout,
		log:       log.With().Str("component", "result_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Int("batch_size", w.batchSize).Msg("ResultWorker started")

	batch := make([]queued, 0, w.batchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= w.batchSize || time.Since(lastFlush) >= w.timeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 {
				continue
			}

			rec, err := w.decode([]byte(item[1]))
			if err != nil {
				w.log.Error().Err(err).Msg("Undecodable result payload, moving to dead queue")
				w.rdb.RPush(context.WithoutCancel(ctx), config.WorkerKey.DeadResultsQueue, item[1])
				continue
			}
			batch = append(batch, queued{raw: item[1], rec: rec})
		}
	}
}

func (w *ResultWorker) decode(raw []byte) (model.ResultRecord, error) {
	var env model.ResultEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return model.ResultRecord{}, err
	}
	return repository.RecordFromEnvelope(&env)
}

// ----------------------------------------------------------------
// Bulk insert with per-row fallback
// ----------------------------------------------------------------

func (w *ResultWorker) flushSafe(ctx context.Context, batch []queued) {
	if len(batch) == 0 {
		return
	}

	records := make([]model.ResultRecord, len(batch))
	for i := range batch {
		records[i] = batch[i].rec
	}
	inserted, err := w.repo.BulkInsert(ctx, records)
	if err == nil {
		w.log.Debug().Int("batch", len(batch)).Int64("inserted", inserted).Msg("Results persisted")
		return
	}
	w.log.Warn().Err(err).Int("batch", len(batch)).Msg("bulk result insert failed, using fallback")

	for i := range batch {
		q := &batch[i]
		if err := w.repo.Insert(ctx, &q.rec); err != nil {
			w.log.Error().Err(err).Str("session_id", q.rec.SessionID).Msg("Insert failed, requeueing")
			if err := w.rdb.RPush(context.WithoutCancel(ctx), config.WorkerKey.PersistResultsQueue, q.raw).Err(); err != nil {
				w.log.Error().Err(err).Str("session_id", q.rec.SessionID).Msg("Requeue failed, result dropped")
			}
		}
	}
}
