package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-quiz/internal/model"
)

// ArtifactRepository handles compiled artifact storage.
type ArtifactRepository struct {
	pool *pgxpool.Pool
}

// NewArtifactRepository creates a new ArtifactRepository.
func NewArtifactRepository(pool *pgxpool.Pool) *ArtifactRepository {
	return &ArtifactRepository{pool: pool}
}

// Create stores an artifact. Artifact ids are content hashes, so storing the
// same quiz twice keeps the first row and returns its creation time.
func (r *ArtifactRepository) Create(ctx context.Context, a *model.Artifact, payload []byte) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO artifacts (id, title, file_name, question_count, size_bytes, html, payload)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		 RETURNING created_at`,
		a.ID, a.Title, a.FileName, a.QuestionCount, a.SizeBytes, a.HTML, payload,
	).Scan(&a.CreatedAt)
}

// GetHTML returns the compiled document bytes.
func (r *ArtifactRepository) GetHTML(ctx context.Context, id string) ([]byte, error) {
	var html []byte
	err := r.pool.QueryRow(ctx, `SELECT html FROM artifacts WHERE id = $1`, id).Scan(&html)
	if err != nil {
		return nil, err
	}
	return html, nil
}
