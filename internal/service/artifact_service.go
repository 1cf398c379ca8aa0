package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/compiler"
	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/repository"
)

// Domain Errors
var (
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrQuizTooLarge     = errors.New("compiled quiz exceeds the size limit")
)

// ArtifactService compiles quizzes and serves the resulting documents.
// Compiled HTML lives in PostgreSQL and is cached in Redis.
type ArtifactService struct {
	repo     *repository.ArtifactRepository
	rdb      *redis.Client
	ttl      time.Duration
	maxBytes int64
	log      zerolog.Logger
}

// NewArtifactService creates a new ArtifactService.
func NewArtifactService(
	repo *repository.ArtifactRepository,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *ArtifactService {
	return &ArtifactService{
		repo:     repo,
		rdb:      rdb,
		ttl:      cfg.ArtifactCacheTTL,
		maxBytes: cfg.MaxQuizBytes,
		log:      log.With().Str("component", "artifact_service").Logger(),
	}
}

// Compile builds and stores an artifact. A *compiler.ValidationError is
// returned untouched so handlers can list the offending questions.
func (s *ArtifactService) Compile(ctx context.Context, data model.QuizData) (*model.Artifact, error) {
	doc, err := compiler.Compile(data, compiler.Options{})
	if err != nil {
		return nil, err
	}
	if s.maxBytes > 0 && int64(len(doc.HTML)) > s.maxBytes {
		return nil, ErrQuizTooLarge
	}

	a := &model.Artifact{
		ID:            doc.ArtifactID,
		Title:         doc.Quiz.Settings.Title,
		FileName:      doc.FileName,
		QuestionCount: len(doc.Quiz.Questions),
		SizeBytes:     len(doc.HTML),
		HTML:          doc.HTML,
	}
	if err := s.repo.Create(ctx, a, doc.Payload); err != nil {
		return nil, fmt.Errorf("store artifact: %w", err)
	}
	if err := s.cache(ctx, a, summarize(a.ID, doc)); err != nil {
		// The artifact is stored; the next read rewarms the cache.
		s.log.Warn().Err(err).Str("artifact_id", a.ID).Msg("Artifact cache write failed")
	}

	s.log.Info().
		Str("artifact_id", a.ID).
		Int("questions", a.QuestionCount).
		Int("bytes", a.SizeBytes).
		Msg("Artifact compiled")
	return a, nil
}

// GetHTML returns the compiled document, from Redis when cached.
func (s *ArtifactService) GetHTML(ctx context.Context, id string) ([]byte, error) {
	html, err := s.rdb.Get(ctx, config.CacheKey.ArtifactHTMLKey(id)).Bytes()
	if err == nil {
		return html, nil
	}
	if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Str("artifact_id", id).Msg("Artifact cache read failed")
	}

	html, err = s.repo.GetHTML(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact: %w", err)
	}

	if err := s.rdb.Set(ctx, config.CacheKey.ArtifactHTMLKey(id), html, s.ttl).Err(); err != nil {
		s.log.Warn().Err(err).Str("artifact_id", id).Msg("Artifact cache rewarm failed")
	}
	return html, nil
}

// Preview summarizes an artifact by reading back its embedded payload.
func (s *ArtifactService) Preview(ctx context.Context, id string) (*model.ArtifactSummary, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.ArtifactMetaKey(id)).Bytes()
	if err == nil {
		var sum model.ArtifactSummary
		if json.Unmarshal(raw, &sum) == nil {
			return &sum, nil
		}
	}

	html, err := s.GetHTML(ctx, id)
	if err != nil {
		return nil, err
	}
	sum, err := Inspect(html)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(sum); err == nil {
		s.rdb.Set(ctx, config.CacheKey.ArtifactMetaKey(id), raw, s.ttl)
	}
	return sum, nil
}

// Inspect reads any compiled document, stored here or not.
func Inspect(html []byte) (*model.ArtifactSummary, error) {
	doc, err := compiler.ReadDocument(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}
	return summarize(doc.ArtifactID, doc), nil
}

func (s *ArtifactService) cache(ctx context.Context, a *model.Artifact, sum *model.ArtifactSummary) error {
	meta, err := json.Marshal(sum)
	if err != nil {
		return err
	}
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.ArtifactHTMLKey(a.ID), a.HTML, s.ttl)
	pipe.Set(ctx, config.CacheKey.ArtifactMetaKey(a.ID), meta, s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func summarize(id string, doc *compiler.Document) *model.ArtifactSummary {
	cfg := doc.Quiz.Settings
	sum := &model.ArtifactSummary{
		ID:            id,
		Title:         cfg.Title,
		FileName:      doc.FileName,
		QuestionCount: len(doc.Quiz.Questions),
		TimerEnabled:  cfg.TimerEnabled,
		MaxAttempts:   cfg.MaxAttempts,
		Language:      cfg.Language,
		Offline:       cfg.OfflineMode,
	}
	if cfg.TimerEnabled {
		sum.TimerMode = string(cfg.TimerMode)
		sum.TimerSeconds = cfg.TimerSeconds
	}
	return sum
}
