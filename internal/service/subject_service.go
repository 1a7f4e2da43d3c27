package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/archihub/archihub-api/internal/models"
	"github.com/archihub/archihub-api/pkg/database"
	appErrors "github.com/archihub/archihub-api/pkg/errors"
)

const (
	catalogCacheKeyAll  = "catalog:subjects:all"
	catalogCacheKeyYear = "catalog:subjects:year:%d"
)

type subjectCatalogRepo interface {
	ListAll(ctx context.Context) ([]models.Subject, error)
	ListByYear(ctx context.Context, year int) ([]models.Subject, error)
	FindByID(ctx context.Context, id int64) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
}

type catedraCatalogRepo interface {
	ListBySubject(ctx context.Context, subjectID int64) ([]models.Catedra, error)
	FindByID(ctx context.Context, id int64) (*models.Catedra, error)
	Create(ctx context.Context, catedra *models.Catedra) error
}

type tpCatalogRepo interface {
	ListBySubject(ctx context.Context, subjectID int64) ([]models.TP, error)
	Create(ctx context.Context, tp *models.TP) error
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// SubjectService serves the academic catalog: subjects, their catedras and
// their TPs. Subject lists are cached; the cache never holds derived data
// such as progress ratios or rating averages.
type SubjectService struct {
	subjects subjectCatalogRepo
	catedras catedraCatalogRepo
	tps      tpCatalogRepo
	cache    catalogCache
	cacheTTL time.Duration
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewSubjectService constructs SubjectService. cache may be nil to disable
// catalog caching.
func NewSubjectService(subjects subjectCatalogRepo, catedras catedraCatalogRepo, tps tpCatalogRepo, cache catalogCache, cacheTTL time.Duration, logger *zap.Logger) *SubjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &SubjectService{subjects: subjects, catedras: catedras, tps: tps, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// SetMetrics wires cache lookup instrumentation.
func (s *SubjectService) SetMetrics(m *MetricsService) {
	s.metrics = m
}

// ListSubjects returns every subject, cache first.
func (s *SubjectService) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	if s.cache != nil {
		var cached []models.Subject
		if err := s.cache.Get(ctx, catalogCacheKeyAll, &cached); err == nil {
			s.metrics.RecordCacheLookup(true)
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("catalog cache read failed", zap.Error(err))
		}
		s.metrics.RecordCacheLookup(false)
	}

	subjects, err := s.subjects.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, catalogCacheKeyAll, subjects, s.cacheTTL); err != nil {
			s.logger.Warn("catalog cache write failed", zap.Error(err))
		}
	}
	return subjects, nil
}

// ListSubjectsByYear returns the subjects of one study year, cache first.
func (s *SubjectService) ListSubjectsByYear(ctx context.Context, year int) ([]models.Subject, error) {
	if year < 1 || year > 6 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year must be between 1 and 6")
	}

	key := fmt.Sprintf(catalogCacheKeyYear, year)
	if s.cache != nil {
		var cached []models.Subject
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheLookup(true)
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("catalog cache read failed", zap.Error(err))
		}
		s.metrics.RecordCacheLookup(false)
	}

	subjects, err := s.subjects.ListByYear(ctx, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, subjects, s.cacheTTL); err != nil {
			s.logger.Warn("catalog cache write failed", zap.Error(err))
		}
	}
	return subjects, nil
}

// GetSubject returns one subject by id.
func (s *SubjectService) GetSubject(ctx context.Context, id int64) (*models.Subject, error) {
	subject, err := s.subjects.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

// ListCatedras returns the catedras of a subject.
func (s *SubjectService) ListCatedras(ctx context.Context, subjectID int64) ([]models.Catedra, error) {
	if _, err := s.GetSubject(ctx, subjectID); err != nil {
		return nil, err
	}
	catedras, err := s.catedras.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list catedras")
	}
	return catedras, nil
}

// ListTPs returns the TPs of a subject ordered by position.
func (s *SubjectService) ListTPs(ctx context.Context, subjectID int64) ([]models.TP, error) {
	if _, err := s.GetSubject(ctx, subjectID); err != nil {
		return nil, err
	}
	tps, err := s.tps.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tps")
	}
	return tps, nil
}

// CreateSubject adds a subject to the catalog and invalidates the cache.
func (s *SubjectService) CreateSubject(ctx context.Context, name string, year int) (*models.Subject, error) {
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject name required")
	}
	if year < 1 || year > 6 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year must be between 1 and 6")
	}

	subject := &models.Subject{Name: name, Year: year}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	s.invalidateCatalog(ctx)
	return subject, nil
}

// CreateCatedra adds a catedra to a subject.
func (s *SubjectService) CreateCatedra(ctx context.Context, subjectID int64, name string) (*models.Catedra, error) {
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "catedra name required")
	}
	if _, err := s.GetSubject(ctx, subjectID); err != nil {
		return nil, err
	}

	catedra := &models.Catedra{SubjectID: subjectID, Name: name}
	if err := s.catedras.Create(ctx, catedra); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create catedra")
	}
	return catedra, nil
}

// CreateTP appends a TP to a subject. Position collisions surface as a
// conflict through the unique constraint.
func (s *SubjectService) CreateTP(ctx context.Context, subjectID int64, name string, position int) (*models.TP, error) {
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tp name required")
	}
	if position < 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "position must be positive")
	}
	if _, err := s.GetSubject(ctx, subjectID); err != nil {
		return nil, err
	}

	tp := &models.TP{SubjectID: subjectID, Name: name, Position: position}
	if err := s.tps.Create(ctx, tp); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "position already taken in this subject")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create tp")
	}
	return tp, nil
}

func (s *SubjectService) invalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "catalog:subjects:*"); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}
