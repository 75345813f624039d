package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/driveadmin/autoescola-api/internal/models"
	appErrors "github.com/driveadmin/autoescola-api/pkg/errors"
)

type schoolSummaryReader interface {
	SchoolSummary(ctx context.Context, schoolID int64) (*models.SchoolFinancialSummary, error)
}

// DashboardService serves cached per-school financial aggregates. Summaries
// are derived data, so a short TTL is acceptable; payment application
// invalidates the school's entry eagerly.
type DashboardService struct {
	enrollments schoolSummaryReader
	schools     schoolReader
	cache       *CacheService
	ttl         time.Duration
	logger      *zap.Logger
}

// NewDashboardService constructs DashboardService.
func NewDashboardService(enrollments schoolSummaryReader, schools schoolReader, cache *CacheService, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{enrollments: enrollments, schools: schools, cache: cache, ttl: ttl, logger: logger}
}

// SchoolSummary aggregates the ledger position across all enrollments of a
// school. Returns cache information via the second value.
func (s *DashboardService) SchoolSummary(ctx context.Context, schoolID int64) (*models.SchoolFinancialSummary, bool, error) {
	key := fmt.Sprintf("dashboard:school:%d:summary", schoolID)

	var cached models.SchoolFinancialSummary
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	if _, err := s.schools.FindByID(ctx, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load school")
	}

	summary, err := s.enrollments.SchoolSummary(ctx, schoolID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to aggregate school summary")
	}
	summary.PendingCents = summary.TotalCents - summary.PaidCents
	if summary.TotalCents > 0 {
		summary.PercentPaid = float64(summary.PaidCents) / float64(summary.TotalCents)
	}

	if err := s.cache.Set(ctx, key, summary, s.ttl); err != nil {
		s.logger.Warn("failed to cache school summary", zap.Int64("school_id", schoolID), zap.Error(err))
	}
	return summary, false, nil
}
