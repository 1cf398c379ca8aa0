// Package reporter finalizes session results: local persistence first, then
// best-effort delivery to the cloud folder through a durable outbox.
package reporter

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/store"
	"github.com/stemsi/exstem-quiz/internal/validator"
)

// Pusher delivers a result to a cloud folder. *cloud.Client satisfies it.
type Pusher interface {
	PushResult(ctx context.Context, target model.CloudConfig, res *model.SessionResult) error
}

// Entry is one pending (or dead) network delivery.
type Entry struct {
	Result        model.SessionResult `json:"result"`
	Target        model.CloudConfig   `json:"target"`
	Attempts      int                 `json:"attempts"`
	NextAttemptAt time.Time           `json:"nextAttemptAt"`
	LastError     string              `json:"lastError,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
}

type Reporter struct {
	store       store.Store
	push        Pusher
	log         zerolog.Logger
	now         func() time.Time
	maxAttempts int
	interval    time.Duration
	retry       Backoff
	kick        chan struct{}
}

type Option func(*Reporter)

// WithMaxAttempts sets how many deliveries are tried before an entry is
// moved to the dead letters.
func WithMaxAttempts(n int) Option {
	return func(r *Reporter) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithInterval sets how often Run drains the outbox.
func WithInterval(d time.Duration) Option {
	return func(r *Reporter) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBackoff(b Backoff) Option {
	return func(r *Reporter) { r.retry = b }
}

func WithClock(now func() time.Time) Option {
	return func(r *Reporter) { r.now = now }
}

// New creates a Reporter. push may be nil when the device never syncs.
func New(st store.Store, push Pusher, log zerolog.Logger, opts ...Option) *Reporter {
	r := &Reporter{
		store:       st,
		push:        push,
		log:         log.With().Str("component", "reporter").Logger(),
		now:         time.Now,
		maxAttempts: 8,
		interval:    5 * time.Second,
		retry:       DefaultBackoff(),
		kick:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ErrUnkeyedResult is returned for a result that cannot be stored because
// it has no artifact or session id.
var ErrUnkeyedResult = errors.New("session result needs an artifact and a session id")

// Report persists a finalized result. The result, the attempt marker, the
// outbox entry and the snapshot removal land in a single atomic write, so a
// crash can neither lose the result nor count the attempt twice. Network
// delivery happens later in Drain.
//
// Local persistence never depends on the result passing the folder
// endpoint's schema: a result the endpoint would refuse is stored, counted
// and parked in the dead letters for export instead of the outbox.
func (r *Reporter) Report(ctx context.Context, res *model.SessionResult, settings *model.QuizSettings) error {
	if res.ArtifactID == "" || res.SessionID == "" {
		return ErrUnkeyedResult
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return errors.Wrap(err, "encode session result")
	}

	ops := []store.Op{
		store.Put(config.StoreKey.ResultKey(res.ArtifactID, res.SessionID), raw),
		store.Del(config.StoreKey.SnapshotKey(res.ArtifactID)),
	}
	// Abandoned sessions never consume an attempt and are never sent.
	if res.Status != model.SessionStatusAbandoned {
		ops = append(ops, store.Put(config.StoreKey.AttemptKey(res.ArtifactID, res.SessionID), []byte(res.EndedAt.UTC().Format(time.RFC3339))))
	}

	queued := r.syncs(res, settings)
	if queued {
		entry := Entry{
			Result:        *res,
			Target:        settings.CloudConfig,
			NextAttemptAt: r.now(),
			CreatedAt:     r.now(),
		}
		key := config.StoreKey.OutboxKey(res.SessionID)
		if invalid := validator.Struct(res); invalid != nil {
			entry.LastError = invalid.Error()
			key = config.StoreKey.DeadLetterKey(res.SessionID)
			queued = false
			r.log.Warn().Err(invalid).Str("session_id", res.SessionID).Msg("Result would be refused by the folder, parked in dead letters")
		}
		rawEntry, err := json.Marshal(entry)
		if err != nil {
			return errors.Wrap(err, "encode outbox entry")
		}
		ops = append(ops, store.Put(key, rawEntry))
	}

	if err := r.store.Apply(ctx, ops...); err != nil {
		return errors.Wrapf(err, "persist result %s", res.SessionID)
	}

	r.log.Info().
		Str("session_id", res.SessionID).
		Str("status", string(res.Status)).
		Bool("queued", queued).
		Msg("Result persisted")

	if queued {
		select {
		case r.kick <- struct{}{}:
		default:
		}
	}
	return nil
}

func (r *Reporter) syncs(res *model.SessionResult, settings *model.QuizSettings) bool {
	if settings == nil || res.Status == model.SessionStatusAbandoned {
		return false
	}
	return !settings.OfflineMode && settings.CloudConfig.SyncGrades && settings.CloudConfig.Enabled()
}

// Result loads a persisted result.
func (r *Reporter) Result(ctx context.Context, artifactID, sessionID string) (*model.SessionResult, error) {
	raw, err := r.store.Get(ctx, config.StoreKey.ResultKey(artifactID, sessionID))
	if err != nil {
		return nil, err
	}
	var res model.SessionResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, errors.Wrapf(err, "decode result %s", sessionID)
	}
	return &res, nil
}
