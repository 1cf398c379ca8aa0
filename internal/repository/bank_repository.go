package repository

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-quiz/internal/model"
)

// BankRepository handles the per-folder shared question bank.
type BankRepository struct {
	pool *pgxpool.Pool
}

// NewBankRepository creates a new BankRepository.
func NewBankRepository(pool *pgxpool.Pool) *BankRepository {
	return &BankRepository{pool: pool}
}

// BankFilter narrows a bank listing. Empty fields match everything.
type BankFilter struct {
	Stage    string
	Grade    string
	Subject  string
	Semester string
}

// Upsert inserts or replaces questions by id in one batch.
func (r *BankRepository) Upsert(ctx context.Context, folder string, questions []model.Question) error {
	batch := &pgx.Batch{}
	for _, q := range questions {
		doc, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("encode question %s: %w", q.ID, err)
		}
		batch.Queue(
			`INSERT INTO bank_questions (folder, question_id, type, stage, grade, subject, semester, question, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
			 ON CONFLICT (folder, question_id) DO UPDATE
			 SET type = EXCLUDED.type, stage = EXCLUDED.stage, grade = EXCLUDED.grade,
			     subject = EXCLUDED.subject, semester = EXCLUDED.semester,
			     question = EXCLUDED.question, updated_at = NOW()`,
			folder, q.ID, q.Type, q.Stage, q.Grade, q.Subject, q.Semester, doc,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range questions {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// List returns the bank questions of a folder matching filter.
func (r *BankRepository) List(ctx context.Context, folder string, filter BankFilter) ([]model.BankQuestion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT folder, question, updated_at
		 FROM bank_questions
		 WHERE folder = $1
		   AND ($2 = '' OR stage = $2)
		   AND ($3 = '' OR grade = $3)
		   AND ($4 = '' OR subject = $4)
		   AND ($5 = '' OR semester = $5)
		 ORDER BY updated_at DESC, question_id`,
		folder, filter.Stage, filter.Grade, filter.Subject, filter.Semester)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BankQuestion
	for rows.Next() {
		var (
			bq  model.BankQuestion
			doc []byte
		)
		if err := rows.Scan(&bq.Folder, &doc, &bq.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(doc, &bq.Question); err != nil {
			return nil, fmt.Errorf("decode bank question: %w", err)
		}
		out = append(out, bq)
	}
	return out, rows.Err()
}
