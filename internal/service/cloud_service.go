package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/cloud"
	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/repository"
	"github.com/stemsi/exstem-quiz/internal/response"
	"github.com/stemsi/exstem-quiz/internal/validator"
)

// Domain Errors
var (
	ErrInvalidFolder   = errors.New("invalid folder name")
	ErrDuplicateResult = errors.New("result already received")
	ErrTestNotFound    = errors.New("library entry not found")
)

var folderPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// seenTTL bounds the duplicate-push guard; the table's unique session_id
// catches anything older.
const seenTTL = 7 * 24 * time.Hour

// CloudService is the optional endpoint runtimes report to: results are
// queued for the result worker, library and bank writes go straight to
// PostgreSQL.
type CloudService struct {
	results *repository.ResultRepository
	library *repository.LibraryRepository
	bank    *repository.BankRepository
	rdb     *redis.Client
	now     func() time.Time
	log     zerolog.Logger
}

// NewCloudService creates a new CloudService.
func NewCloudService(
	results *repository.ResultRepository,
	library *repository.LibraryRepository,
	bank *repository.BankRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *CloudService {
	return &CloudService{
		results: results,
		library: library,
		bank:    bank,
		rdb:     rdb,
		now:     time.Now,
		log:     log.With().Str("component", "cloud_service").Logger(),
	}
}

// ValidFolder reports whether a folder name is acceptable in keys and URLs.
func ValidFolder(folder string) bool {
	return folderPattern.MatchString(folder)
}

// SubmitResult enqueues a pushed result. A session already accepted is
// reported as ErrDuplicateResult so the runtime can stop retrying it.
func (s *CloudService) SubmitResult(ctx context.Context, folder string, res *model.SessionResult) error {
	if !ValidFolder(folder) {
		return ErrInvalidFolder
	}
	if err := validator.Struct(res); err != nil {
		return err
	}

	seenKey := config.CacheKey.FolderResultSeenKey(folder)
	added, err := s.rdb.SAdd(ctx, seenKey, res.SessionID).Result()
	if err != nil {
		return fmt.Errorf("mark result seen: %w", err)
	}
	if added == 0 {
		return ErrDuplicateResult
	}

	raw, err := json.Marshal(&model.ResultEnvelope{Folder: folder, Result: *res, ReceivedAt: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Expire(ctx, seenKey, seenTTL)
	pipe.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw)
	if _, err := pipe.Exec(ctx); err != nil {
		// Let the runtime retry instead of losing the push.
		s.rdb.SRem(context.WithoutCancel(ctx), seenKey, res.SessionID)
		return fmt.Errorf("enqueue result: %w", err)
	}

	s.log.Debug().
		Str("folder", folder).
		Str("session_id", res.SessionID).
		Str("status", string(res.Status)).
		Msg("Result queued")
	return nil
}

// ListResults returns a page of stored results for a folder.
func (s *CloudService) ListResults(ctx context.Context, folder string, page, perPage int) ([]model.ResultRecord, *response.Pagination, error) {
	if !ValidFolder(folder) {
		return nil, nil, ErrInvalidFolder
	}
	page, perPage = clampPage(page, perPage)

	records, total, err := s.results.ListByFolder(ctx, folder, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, fmt.Errorf("list results: %w", err)
	}
	if records == nil {
		records = []model.ResultRecord{}
	}
	return records, response.NewPagination(page, perPage, total), nil
}

// SaveTest stores a quiz in the folder library.
func (s *CloudService) SaveTest(ctx context.Context, folder string, req *model.PushTestRequest) (*model.SavedQuiz, error) {
	if !ValidFolder(folder) {
		return nil, ErrInvalidFolder
	}
	entry := cloud.LibraryEntry(req.ID, &req.Data)
	saved := &model.SavedQuiz{
		ID:     entry.ID,
		Folder: folder,
		Title:  entry.Data.Settings.Title,
		Data:   entry.Data,
	}
	if err := s.library.Save(ctx, saved); err != nil {
		return nil, fmt.Errorf("save test: %w", err)
	}
	s.log.Info().Str("folder", folder).Str("test_id", saved.ID).Msg("Library entry saved")
	return saved, nil
}

// GetTest returns one library entry.
func (s *CloudService) GetTest(ctx context.Context, folder string, id uuid.UUID) (*model.SavedQuiz, error) {
	if !ValidFolder(folder) {
		return nil, ErrInvalidFolder
	}
	q, err := s.library.Get(ctx, folder, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTestNotFound
	}
	return q, err
}

// ListTests returns a page of library entries without quiz data.
func (s *CloudService) ListTests(ctx context.Context, folder string, page, perPage int) ([]model.SavedQuiz, *response.Pagination, error) {
	if !ValidFolder(folder) {
		return nil, nil, ErrInvalidFolder
	}
	page, perPage = clampPage(page, perPage)

	tests, total, err := s.library.ListByFolder(ctx, folder, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, fmt.Errorf("list tests: %w", err)
	}
	if tests == nil {
		tests = []model.SavedQuiz{}
	}
	return tests, response.NewPagination(page, perPage, total), nil
}

// PushBank upserts questions into the folder bank.
func (s *CloudService) PushBank(ctx context.Context, folder string, questions []model.Question) error {
	if !ValidFolder(folder) {
		return ErrInvalidFolder
	}
	if err := s.bank.Upsert(ctx, folder, questions); err != nil {
		return fmt.Errorf("upsert bank: %w", err)
	}
	s.log.Info().Str("folder", folder).Int("questions", len(questions)).Msg("Bank updated")
	return nil
}

// ListBank returns the bank questions of a folder.
func (s *CloudService) ListBank(ctx context.Context, folder string, filter repository.BankFilter) ([]model.BankQuestion, error) {
	if !ValidFolder(folder) {
		return nil, ErrInvalidFolder
	}
	out, err := s.bank.List(ctx, folder, filter)
	if err != nil {
		return nil, fmt.Errorf("list bank: %w", err)
	}
	if out == nil {
		out = []model.BankQuestion{}
	}
	return out, nil
}

func clampPage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}
