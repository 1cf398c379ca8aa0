package repository

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-quiz/internal/model"
)

// LibraryRepository handles saved quizzes in a folder library.
type LibraryRepository struct {
	pool *pgxpool.Pool
}

// NewLibraryRepository creates a new LibraryRepository.
func NewLibraryRepository(pool *pgxpool.Pool) *LibraryRepository {
	return &LibraryRepository{pool: pool}
}

// Save inserts or replaces a library entry.
func (r *LibraryRepository) Save(ctx context.Context, q *model.SavedQuiz) error {
	id, err := uuid.Parse(q.ID)
	if err != nil {
		return fmt.Errorf("library id: %w", err)
	}
	doc, err := json.Marshal(q.Data)
	if err != nil {
		return fmt.Errorf("encode quiz: %w", err)
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO library_tests (id, folder, title, data, saved_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (id) DO UPDATE
		 SET folder = EXCLUDED.folder, title = EXCLUDED.title, data = EXCLUDED.data, saved_at = NOW()
		 RETURNING saved_at`,
		id, q.Folder, q.Title, doc,
	).Scan(&q.SavedAt)
}

// Get retrieves one library entry of a folder.
func (r *LibraryRepository) Get(ctx context.Context, folder string, id uuid.UUID) (*model.SavedQuiz, error) {
	q := &model.SavedQuiz{}
	var (
		rowID uuid.UUID
		doc   []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, folder, title, data, saved_at FROM library_tests WHERE folder = $1 AND id = $2`,
		folder, id,
	).Scan(&rowID, &q.Folder, &q.Title, &doc, &q.SavedAt)
	if err != nil {
		return nil, err
	}
	q.ID = rowID.String()
	if err := json.Unmarshal(doc, &q.Data); err != nil {
		return nil, fmt.Errorf("decode quiz: %w", err)
	}
	return q, nil
}

// ListByFolder returns library entries without their quiz data, newest first.
func (r *LibraryRepository) ListByFolder(ctx context.Context, folder string, limit, offset int) ([]model.SavedQuiz, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM library_tests WHERE folder = $1`, folder,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, folder, title, saved_at FROM library_tests
		 WHERE folder = $1 ORDER BY saved_at DESC LIMIT $2 OFFSET $3`,
		folder, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.SavedQuiz
	for rows.Next() {
		var (
			q     model.SavedQuiz
			rowID uuid.UUID
		)
		if err := rows.Scan(&rowID, &q.Folder, &q.Title, &q.SavedAt); err != nil {
			return nil, 0, err
		}
		q.ID = rowID.String()
		out = append(out, q)
	}
	return out, total, rows.Err()
}
