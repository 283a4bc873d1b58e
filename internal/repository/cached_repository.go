package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/robotarm/armsuite/internal/cache"
	"github.com/robotarm/armsuite/internal/suite"
)

// CachedReportRepository wraps a ReportRepository with write-through caching
// of reports and the latest-run pointer.
type CachedReportRepository struct {
	repo  ReportRepository
	cache *cache.ReportCache
}

// NewCachedReportRepository creates a cached report repository.
func NewCachedReportRepository(repo ReportRepository, reportCache *cache.ReportCache) *CachedReportRepository {
	return &CachedReportRepository{repo: repo, cache: reportCache}
}

// Save stores the report and then caches it. Cache errors are not fatal.
func (c *CachedReportRepository) Save(ctx context.Context, report *suite.Report) error {
	if err := c.repo.Save(ctx, report); err != nil {
		return err
	}
	_ = c.cache.Set(ctx, report)
	return nil
}

// Get checks the cache first, then falls back to the repository.
func (c *CachedReportRepository) Get(ctx context.Context, id uuid.UUID) (*suite.Report, error) {
	if report, err := c.cache.Get(ctx, id.String()); err == nil {
		return report, nil
	}
	return c.repo.Get(ctx, id)
}

// Latest checks the cache first, then falls back to the repository.
func (c *CachedReportRepository) Latest(ctx context.Context) (*suite.Report, error) {
	if report, err := c.cache.Latest(ctx); err == nil {
		return report, nil
	}

	report, err := c.repo.Latest(ctx)
	if err != nil {
		return nil, err
	}
	_ = c.cache.Set(ctx, report)
	return report, nil
}

// List always reads from the repository.
func (c *CachedReportRepository) List(ctx context.Context, limit int) ([]Summary, error) {
	return c.repo.List(ctx, limit)
}

// HealthCheck checks both cache and repository health.
func (c *CachedReportRepository) HealthCheck(ctx context.Context) error {
	if err := c.cache.Ping(ctx); err != nil {
		return err
	}
	return c.repo.HealthCheck(ctx)
}
