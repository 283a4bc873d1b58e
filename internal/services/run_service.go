// Package services contains business logic shared by the CLI and the HTTP API.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/robotarm/armsuite/internal/metrics"
	"github.com/robotarm/armsuite/internal/repository"
	"github.com/robotarm/armsuite/internal/suite"
	"github.com/robotarm/armsuite/pkg/logger"
)

// ErrInvalidRequest is returned for run requests with out-of-range values.
var ErrInvalidRequest = errors.New("invalid run request")

// ErrHistoryDisabled is returned by history lookups when no repository is set.
var ErrHistoryDisabled = errors.New("run history disabled")

// RunRequest selects and configures one suite run.
type RunRequest struct {
	Filter      string
	Parallelism int
	Timeout     time.Duration
	NoHistory   bool
}

// RunService defines the operations on suite runs.
type RunService interface {
	Cases() []suite.Case
	Run(ctx context.Context, req RunRequest) (*suite.Report, error)
	Get(ctx context.Context, id uuid.UUID) (*suite.Report, error)
	Latest(ctx context.Context) (*suite.Report, error)
	List(ctx context.Context, limit int) ([]repository.Summary, error)
}

// RunServiceConfig wires a RunServiceImpl.
type RunServiceConfig struct {
	// Library is stamped on every report.
	Library  string
	Registry *suite.Registry
	// Repository stores reports. Nil disables history.
	Repository repository.ReportRepository
	// Backend labels history write metrics.
	Backend string
	Metrics *metrics.Metrics
	Logger  *logger.Logger
}

// RunServiceImpl implements RunService.
type RunServiceImpl struct {
	library  string
	registry *suite.Registry
	repo     repository.ReportRepository
	backend  string
	metrics  *metrics.Metrics
	log      *logger.Logger
}

// NewRunService creates a new RunService instance.
func NewRunService(cfg RunServiceConfig) *RunServiceImpl {
	s := &RunServiceImpl{
		library:  cfg.Library,
		registry: cfg.Registry,
		repo:     cfg.Repository,
		backend:  cfg.Backend,
		metrics:  cfg.Metrics,
		log:      cfg.Logger,
	}
	if s.registry == nil {
		s.registry = suite.NewRegistry()
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	return s
}

// Cases returns the registered cases in registration order.
func (s *RunServiceImpl) Cases() []suite.Case {
	return s.registry.Cases()
}

// Run executes the selected cases and stores the report. A storage failure is
// logged and counted but does not fail the run.
func (s *RunServiceImpl) Run(ctx context.Context, req RunRequest) (*suite.Report, error) {
	if req.Parallelism < 0 {
		return nil, fmt.Errorf("%w: parallelism must not be negative", ErrInvalidRequest)
	}
	if req.Timeout < 0 {
		return nil, fmt.Errorf("%w: timeout must not be negative", ErrInvalidRequest)
	}

	cases, err := s.registry.Filter(req.Filter)
	if err != nil {
		return nil, err
	}

	runCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	runner := &suite.Runner{
		Library:     s.library,
		Parallelism: req.Parallelism,
		Logger:      s.log,
		Recorder:    s.metrics,
	}
	report := runner.Run(runCtx, cases)
	s.metrics.ObserveRun()

	if !req.NoHistory {
		s.save(ctx, report)
	}

	return report, nil
}

func (s *RunServiceImpl) save(ctx context.Context, report *suite.Report) {
	if s.repo == nil {
		return
	}

	err := s.repo.Save(ctx, report)
	s.metrics.ObserveHistoryWrite(s.backend, err)
	if err != nil {
		s.log.Warn("report not stored", "run_id", report.ID.String(), "error", err)
		return
	}
	s.log.Debug("report stored", "run_id", report.ID.String(), "backend", s.backend)
}

// Get returns a stored report by ID.
func (s *RunServiceImpl) Get(ctx context.Context, id uuid.UUID) (*suite.Report, error) {
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}
	return s.repo.Get(ctx, id)
}

// Latest returns the most recently started stored report.
func (s *RunServiceImpl) Latest(ctx context.Context) (*suite.Report, error) {
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}
	return s.repo.Latest(ctx)
}

// List returns summaries of stored runs, newest first.
func (s *RunServiceImpl) List(ctx context.Context, limit int) ([]repository.Summary, error) {
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}
	return s.repo.List(ctx, limit)
}
