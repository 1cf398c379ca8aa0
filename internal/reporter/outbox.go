package reporter

import (
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	pkgerrors "github.com/pkg/errors"

	"github.com/stemsi/exstem-quiz/internal/cloud"
	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/store"
)

// Backoff is the retry schedule for failed deliveries.
type Backoff struct {
	Initial    time.Duration
	Multiplier float64
	Max        time.Duration
	// Jitter is the randomization factor in [0, 1).
	Jitter float64
}

func DefaultBackoff() Backoff {
	return Backoff{Initial: 2 * time.Second, Multiplier: 2, Max: 5 * time.Minute, Jitter: 0.2}
}

// Delay returns the wait before the next try after attempt failures.
func (b Backoff) Delay(attempt int) time.Duration {
	exp := &backoff.ExponentialBackOff{
		InitialInterval:     b.Initial,
		RandomizationFactor: b.Jitter,
		Multiplier:          b.Multiplier,
		MaxInterval:         b.Max,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	exp.Reset()
	d := exp.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = exp.NextBackOff()
	}
	return d
}

// DrainStats summarizes one Drain pass.
type DrainStats struct {
	Delivered   int
	Rescheduled int
	Dead        int
}

// Drain tries every outbox entry that is due. Failures are rescheduled;
// entries that were rejected or ran out of attempts move to the dead
// letters. Nothing is ever dropped.
func (r *Reporter) Drain(ctx context.Context) (DrainStats, error) {
	var stats DrainStats
	if r.push == nil {
		return stats, nil
	}

	keys, err := r.store.List(ctx, config.StoreKey.OutboxPrefix())
	if err != nil {
		return stats, pkgerrors.Wrap(err, "list outbox")
	}

	for _, key := range keys {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		entry, err := r.load(ctx, key)
		if err != nil {
			r.log.Warn().Err(err).Str("key", key).Msg("Unreadable outbox entry, skipping")
			continue
		}
		if r.now().Before(entry.NextAttemptAt) {
			continue
		}

		pushErr := r.push.PushResult(ctx, entry.Target, &entry.Result)
		if pushErr == nil {
			if err := r.store.Apply(ctx, store.Del(key)); err != nil {
				return stats, pkgerrors.Wrapf(err, "clear delivered entry %s", key)
			}
			stats.Delivered++
			r.log.Info().Str("session_id", entry.Result.SessionID).Int("attempts", entry.Attempts+1).Msg("Result delivered")
			continue
		}

		entry.Attempts++
		entry.LastError = pushErr.Error()

		if errors.Is(pushErr, cloud.ErrRejected) || entry.Attempts >= r.maxAttempts {
			if err := r.bury(ctx, key, entry); err != nil {
				return stats, err
			}
			stats.Dead++
			r.log.Error().Err(pushErr).
				Str("session_id", entry.Result.SessionID).
				Int("attempts", entry.Attempts).
				Msg("Result delivery failed permanently, moved to dead letters")
			continue
		}

		wait := r.retry.Delay(entry.Attempts)
		entry.NextAttemptAt = r.now().Add(wait)
		raw, err := json.Marshal(entry)
		if err != nil {
			return stats, pkgerrors.Wrap(err, "encode outbox entry")
		}
		if err := r.store.Apply(ctx, store.Put(key, raw)); err != nil {
			return stats, pkgerrors.Wrapf(err, "reschedule entry %s", key)
		}
		stats.Rescheduled++
		r.log.Warn().Err(pushErr).
			Str("session_id", entry.Result.SessionID).
			Int("attempts", entry.Attempts).
			Dur("retry_in", wait).
			Msg("Result delivery failed, rescheduled")
	}
	return stats, nil
}

func (r *Reporter) bury(ctx context.Context, key string, entry *Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return pkgerrors.Wrap(err, "encode dead letter")
	}
	err = r.store.Apply(ctx,
		store.Put(config.StoreKey.DeadLetterKey(entry.Result.SessionID), raw),
		store.Del(key),
	)
	return pkgerrors.Wrapf(err, "move %s to dead letters", key)
}

func (r *Reporter) load(ctx context.Context, key string) (*Entry, error) {
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, pkgerrors.Wrap(err, "decode outbox entry")
	}
	return &e, nil
}

// Run drains the outbox on every interval and whenever Report queued
// something, until ctx is cancelled.
func (r *Reporter) Run(ctx context.Context) {
	r.log.Info().Dur("interval", r.interval).Msg("Outbox drain loop started")
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	drain := func() {
		stats, err := r.Drain(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			r.log.Error().Err(err).Msg("Outbox drain failed")
			return
		}
		if stats != (DrainStats{}) {
			r.log.Debug().
				Int("delivered", stats.Delivered).
				Int("rescheduled", stats.Rescheduled).
				Int("dead", stats.Dead).
				Msg("Outbox drained")
		}
	}

	drain()
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("Outbox drain loop stopped")
			return
		case <-ticker.C:
			drain()
		case <-r.kick:
			drain()
		}
	}
}

// Pending lists entries still waiting for delivery.
func (r *Reporter) Pending(ctx context.Context) ([]Entry, error) {
	return r.entries(ctx, config.StoreKey.OutboxPrefix())
}

// DeadLetters lists deliveries that will not be retried automatically.
func (r *Reporter) DeadLetters(ctx context.Context) ([]Entry, error) {
	return r.entries(ctx, config.StoreKey.DeadLetterPrefix())
}

func (r *Reporter) entries(ctx context.Context, prefix string) ([]Entry, error) {
	keys, err := r.store.List(ctx, prefix)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "list %s", prefix)
	}
	out := make([]Entry, 0, len(keys))
	for _, key := range keys {
		e, err := r.load(ctx, key)
		if err != nil {
			r.log.Warn().Err(err).Str("key", key).Msg("Skipping unreadable entry")
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ExportFailed writes every dead letter as a JSON array for manual upload.
func (r *Reporter) ExportFailed(ctx context.Context, w io.Writer) (int, error) {
	dead, err := r.DeadLetters(ctx)
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dead); err != nil {
		return 0, pkgerrors.Wrap(err, "write dead letters")
	}
	return len(dead), nil
}

// Requeue moves a dead letter back into the outbox for another round.
func (r *Reporter) Requeue(ctx context.Context, sessionID string) error {
	key := config.StoreKey.DeadLetterKey(sessionID)
	e, err := r.load(ctx, key)
	if err != nil {
		return err
	}
	e.Attempts = 0
	e.NextAttemptAt = r.now()
	raw, err := json.Marshal(e)
	if err != nil {
		return pkgerrors.Wrap(err, "encode outbox entry")
	}
	return r.store.Apply(ctx, store.Put(config.StoreKey.OutboxKey(sessionID), raw), store.Del(key))
}
