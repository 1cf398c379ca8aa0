package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jinzhu/copier"
	"github.com/stemsi/exstem-quiz/internal/model"
)

// ResultRepository handles reported session results.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// RecordFromEnvelope flattens a queued result into its table row.
func RecordFromEnvelope(env *model.ResultEnvelope) (model.ResultRecord, error) {
	var rec model.ResultRecord
	if err := copier.Copy(&rec, &env.Result); err != nil {
		return rec, fmt.Errorf("copy result: %w", err)
	}
	rec.Folder = env.Folder
	rec.ReceivedAt = env.ReceivedAt
	rec.StrikeCount = len(env.Result.Strikes)
	if rec.ManualReview == nil {
		rec.ManualReview = []string{}
	}

	answers := env.Result.Answers
	if answers == nil {
		answers = []model.AnswerRecord{}
	}
	strikes := env.Result.Strikes
	if strikes == nil {
		strikes = []model.Strike{}
	}
	var err error
	if rec.AnswersJSON, err = json.Marshal(answers); err != nil {
		return rec, fmt.Errorf("encode answers: %w", err)
	}
	if rec.StrikesJSON, err = json.Marshal(strikes); err != nil {
		return rec, fmt.Errorf("encode strikes: %w", err)
	}
	return rec, nil
}

// BulkInsert writes many results in one statement. Sessions already stored
// are skipped; the number of new rows is returned.
func (r *ResultRepository) BulkInsert(ctx context.Context, records []model.ResultRecord) (int64, error) {
	n := len(records)
	if n == 0 {
		return 0, nil
	}

	var (
		folders     = make([]string, n)
		artifacts   = make([]string, n)
		sessions    = make([]string, n)
		devices     = make([]string, n)
		titles      = make([]string, n)
		classes     = make([]string, n)
		subjects    = make([]string, n)
		takers      = make([]string, n)
		scores      = make([]float64, n)
		maxScores   = make([]float64, n)
		percents    = make([]float64, n)
		tiers       = make([]string, n)
		statuses    = make([]string, n)
		attempts    = make([]int32, n)
		strikeCount = make([]int32, n)
		answers     = make([]string, n)
		strikes     = make([]string, n)
		startedAts  = make([]*time.Time, n)
		endedAts    = make([]*time.Time, n)
		receivedAts = make([]time.Time, n)
	)
	for i, rec := range records {
		folders[i] = rec.Folder
		artifacts[i] = rec.ArtifactID
		sessions[i] = rec.SessionID
		devices[i] = rec.DeviceID
		titles[i] = rec.Title
		classes[i] = rec.ClassName
		subjects[i] = rec.Subject
		takers[i] = rec.TakerName
		scores[i] = rec.Score
		maxScores[i] = rec.MaxScore
		percents[i] = rec.Percent
		tiers[i] = string(rec.Tier)
		statuses[i] = string(rec.Status)
		attempts[i] = int32(rec.AttemptIndex)
		strikeCount[i] = int32(rec.StrikeCount)
		answers[i] = string(rec.AnswersJSON)
		strikes[i] = string(rec.StrikesJSON)
		startedAts[i] = optionalTime(rec.StartedAt)
		endedAts[i] = optionalTime(rec.EndedAt)
		receivedAts[i] = rec.ReceivedAt
	}

	// manual_review is a TEXT[] per row; arrays of arrays cannot be
	// unnested, so it is filled by a second statement.
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO session_results (
			folder, artifact_id, session_id, device_id, title, class_name, subject,
			taker_name, score, max_score, percent, tier, status, attempt_index,
			strike_count, answers, strikes, started_at, ended_at, received_at
		)
		SELECT u.folder, u.artifact_id, u.session_id, u.device_id, u.title, u.class_name, u.subject,
		       u.taker_name, u.score, u.max_score, u.percent, u.tier, u.status, u.attempt_index,
		       u.strike_count, u.answers::jsonb, u.strikes::jsonb, u.started_at, u.ended_at, u.received_at
		FROM UNNEST(
			$1::text[], $2::text[], $3::text[], $4::text[], $5::text[], $6::text[], $7::text[],
			$8::text[], $9::float8[], $10::float8[], $11::float8[], $12::text[], $13::text[], $14::int[],
			$15::int[], $16::text[], $17::text[], $18::timestamptz[], $19::timestamptz[], $20::timestamptz[]
		) AS u (
			folder, artifact_id, session_id, device_id, title, class_name, subject,
			taker_name, score, max_score, percent, tier, status, attempt_index,
			strike_count, answers, strikes, started_at, ended_at, received_at
		)
		ON CONFLICT (session_id) DO NOTHING`,
		folders, artifacts, sessions, devices, titles, classes, subjects,
		takers, scores, maxScores, percents, tiers, statuses, attempts,
		strikeCount, answers, strikes, startedAts, endedAts, receivedAts,
	)
	if err != nil {
		return 0, err
	}

	for _, rec := range records {
		if len(rec.ManualReview) == 0 {
			continue
		}
		if _, err := r.pool.Exec(ctx,
			`UPDATE session_results SET manual_review = $1 WHERE session_id = $2`,
			rec.ManualReview, rec.SessionID); err != nil {
			return tag.RowsAffected(), err
		}
	}
	return tag.RowsAffected(), nil
}

// Insert writes a single result; used as the fallback when a batch fails.
func (r *ResultRepository) Insert(ctx context.Context, rec *model.ResultRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO session_results (
			folder, artifact_id, session_id, device_id, title, class_name, subject,
			taker_name, score, max_score, percent, tier, status, attempt_index,
			strike_count, manual_review, answers, strikes, started_at, ended_at, received_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (session_id) DO NOTHING`,
		rec.Folder, rec.ArtifactID, rec.SessionID, rec.DeviceID, rec.Title, rec.ClassName, rec.Subject,
		rec.TakerName, rec.Score, rec.MaxScore, rec.Percent, rec.Tier, rec.Status, rec.AttemptIndex,
		rec.StrikeCount, rec.ManualReview, rec.AnswersJSON, rec.StrikesJSON,
		optionalTime(rec.StartedAt), optionalTime(rec.EndedAt), rec.ReceivedAt,
	)
	return err
}

// ListByFolder returns a page of results for a folder, newest first.
func (r *ResultRepository) ListByFolder(ctx context.Context, folder string, limit, offset int) ([]model.ResultRecord, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM session_results WHERE folder = $1`, folder,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, folder, artifact_id, session_id, device_id, title, class_name, subject,
		        taker_name, score, max_score, percent, tier, status, attempt_index,
		        strike_count, manual_review, answers, strikes, started_at, ended_at, received_at
		 FROM session_results
		 WHERE folder = $1
		 ORDER BY received_at DESC, id DESC
		 LIMIT $2 OFFSET $3`, folder, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.ResultRecord
	for rows.Next() {
		var (
			rec            model.ResultRecord
			started, ended *time.Time
		)
		if err := rows.Scan(&rec.ID, &rec.Folder, &rec.ArtifactID, &rec.SessionID, &rec.DeviceID,
			&rec.Title, &rec.ClassName, &rec.Subject, &rec.TakerName, &rec.Score, &rec.MaxScore,
			&rec.Percent, &rec.Tier, &rec.Status, &rec.AttemptIndex, &rec.StrikeCount,
			&rec.ManualReview, &rec.AnswersJSON, &rec.StrikesJSON,
			&started, &ended, &rec.ReceivedAt); err != nil {
			return nil, 0, err
		}
		if started != nil {
			rec.StartedAt = *started
		}
		if ended != nil {
			rec.EndedAt = *ended
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
