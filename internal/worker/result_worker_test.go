package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/model"
)

type fakeResults struct {
	bulkErr  error
	bulk     [][]model.ResultRecord
	inserted []string
}

func (f *fakeResults) BulkInsert(_ context.Context, records []model.ResultRecord) (int64, error) {
	f.bulk = append(f.bulk, records)
	if f.bulkErr != nil {
		return 0, f.bulkErr
	}
	return int64(len(records)), nil
}

func (f *fakeResults) Insert(_ context.Context, r *model.ResultRecord) error {
	f.inserted = append(f.inserted, r.SessionID)
	return nil
}

func envelope(session string) []byte {
	at := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	raw, _ := json.Marshal(&model.ResultEnvelope{
		Folder: "grade5",
		Result: model.SessionResult{
			ArtifactID: "art",
			SessionID:  session,
			Score:      8,
			MaxScore:   10,
			Percent:    80,
			Tier:       model.TierVeryGood,
			Status:     model.SessionStatusCompleted,
			Strikes:    []model.Strike{{Kind: model.StrikeFocusLost, At: at, Reaction: "warn"}},
			StartedAt:  at,
			EndedAt:    at.Add(5 * time.Minute),
		},
		ReceivedAt: at.Add(6 * time.Minute),
	})
	return raw
}

func newTestWorker(repo ResultStore) *ResultWorker {
	return NewResultWorker(repo, nil, &config.Config{}, zerolog.Nop())
}

func TestResultWorkerDefaults(t *testing.T) {
	w := newTestWorker(&fakeResults{})
	assert.Equal(t, 50, w.batchSize)
	assert.Equal(t, 2*time.Second, w.timeout)
}

func TestResultWorkerDecodesEnvelope(t *testing.T) {
	w := newTestWorker(&fakeResults{})

	rec, err := w.decode(envelope("s1"))
	require.NoError(t, err)
	assert.Equal(t, "grade5", rec.Folder)
	assert.Equal(t, "s1", rec.SessionID)
	assert.Equal(t, 1, rec.StrikeCount)
	assert.JSONEq(t, `[]`, string(rec.AnswersJSON))
	assert.NotEmpty(t, rec.StrikesJSON)

	_, err = w.decode([]byte("{not json"))
	assert.Error(t, err)
}

func TestResultWorkerFlushesInOneStatement(t *testing.T) {
	repo := &fakeResults{}
	w := newTestWorker(repo)

	batch := make([]queued, 0, 2)
	for _, s := range []string{"s1", "s2"} {
		raw := envelope(s)
		rec, err := w.decode(raw)
		require.NoError(t, err)
		batch = append(batch, queued{raw: string(raw), rec: rec})
	}

	w.flushSafe(context.Background(), batch)
	require.Len(t, repo.bulk, 1)
	assert.Len(t, repo.bulk[0], 2)
	assert.Empty(t, repo.inserted)
}

func TestResultWorkerFallsBackToSingleInserts(t *testing.T) {
	repo := &fakeResults{bulkErr: errors.New("connection reset")}
	w := newTestWorker(repo)

	raw := envelope("s1")
	rec, err := w.decode(raw)
	require.NoError(t, err)

	w.flushSafe(context.Background(), []queued{{raw: string(raw), rec: rec}})
	assert.Equal(t, []string{"s1"}, repo.inserted)
}

func TestResultWorkerIgnoresEmptyBatch(t *testing.T) {
	repo := &fakeResults{}
	newTestWorker(repo).flushSafe(context.Background(), nil)
	assert.Empty(t, repo.bulk)
}
