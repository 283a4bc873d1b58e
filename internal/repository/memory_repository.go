package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/robotarm/armsuite/internal/suite"
)

// MemoryReportRepository keeps reports in process memory.
type MemoryReportRepository struct {
	mu      sync.RWMutex
	reports map[uuid.UUID]*suite.Report
}

// NewMemoryReportRepository creates an empty in-memory repository.
func NewMemoryReportRepository() *MemoryReportRepository {
	return &MemoryReportRepository{reports: make(map[uuid.UUID]*suite.Report)}
}

// Save stores a copy of the report.
func (r *MemoryReportRepository) Save(_ context.Context, report *suite.Report) error {
	if report == nil {
		return ErrNilReport
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reports[report.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateReport, report.ID)
	}
	r.reports[report.ID] = clone(report)
	return nil
}

// Get retrieves a report by ID.
func (r *MemoryReportRepository) Get(_ context.Context, id uuid.UUID) (*suite.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report, ok := r.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(report), nil
}

// Latest retrieves the most recent report.
func (r *MemoryReportRepository) Latest(_ context.Context) (*suite.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sorted := r.sorted()
	if len(sorted) == 0 {
		return nil, ErrNotFound
	}
	return clone(sorted[0]), nil
}

// List returns report summaries, newest first.
func (r *MemoryReportRepository) List(_ context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	sorted := r.sorted()
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	out := make([]Summary, 0, len(sorted))
	for _, report := range sorted {
		out = append(out, SummaryOf(report))
	}
	return out, nil
}

// HealthCheck always succeeds.
func (r *MemoryReportRepository) HealthCheck(context.Context) error {
	return nil
}

// sorted returns reports newest first. Callers hold the lock.
func (r *MemoryReportRepository) sorted() []*suite.Report {
	out := make([]*suite.Report, 0, len(r.reports))
	for _, report := range r.reports {
		out = append(out, report)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

func clone(r *suite.Report) *suite.Report {
	out := *r
	out.Results = make([]suite.Result, len(r.Results))
	for i, res := range r.Results {
		res.Failures = append([]suite.Assertion(nil), res.Failures...)
		res.Logs = append([]string(nil), res.Logs...)
		out.Results[i] = res
	}
	return &out
}
