// Package repository handles persistence of suite run reports.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/robotarm/armsuite/internal/database"
	"github.com/robotarm/armsuite/internal/suite"
)

// Common errors.
var (
	ErrNotFound        = errors.New("report not found")
	ErrDuplicateReport = errors.New("report already stored")
	ErrNilReport       = errors.New("report is nil")
)

// DefaultListLimit caps List when no positive limit is given.
const DefaultListLimit = 20

// Summary is the list view of a stored report.
type Summary struct {
	ID        uuid.UUID     `json:"id"`
	Library   string        `json:"library,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Passed    bool          `json:"passed"`
	Total     int           `json:"total"`
	Failed    int           `json:"failed"`
}

// SummaryOf builds the list view of a report.
func SummaryOf(r *suite.Report) Summary {
	counts := r.Counts()
	return Summary{
		ID:        r.ID,
		Library:   r.Library,
		StartedAt: r.StartedAt,
		Duration:  r.Duration,
		Passed:    r.Passed(),
		Total:     counts.Total,
		Failed:    counts.Failed,
	}
}

// ReportRepository defines persistence operations for run reports.
type ReportRepository interface {
	// Save stores a report. IDs are unique.
	Save(ctx context.Context, report *suite.Report) error

	// Get retrieves a report by ID.
	Get(ctx context.Context, id uuid.UUID) (*suite.Report, error)

	// Latest retrieves the report with the most recent start time.
	Latest(ctx context.Context) (*suite.Report, error)

	// List returns summaries, newest first.
	List(ctx context.Context, limit int) ([]Summary, error)

	// HealthCheck verifies the repository is healthy.
	HealthCheck(ctx context.Context) error
}

// PostgresReportRepository implements ReportRepository using PostgreSQL.
type PostgresReportRepository struct {
	pool *database.Pool
}

// NewPostgresReportRepository creates a PostgreSQL-backed report repository.
func NewPostgresReportRepository(pool *database.Pool) *PostgresReportRepository {
	return &PostgresReportRepository{pool: pool}
}

// Save stores a report.
func (r *PostgresReportRepository) Save(ctx context.Context, report *suite.Report) error {
	if report == nil {
		return ErrNilReport
	}

	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	s := SummaryOf(report)
	_, err = r.pool.Exec(ctx, `
		INSERT INTO reports (id, library, started_at, duration_ns, passed, total, failed, body)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.ID, s.Library, s.StartedAt, int64(s.Duration), s.Passed, s.Total, s.Failed, body)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateReport, report.ID)
		}
		return fmt.Errorf("failed to save report: %w", err)
	}

	return nil
}

// Get retrieves a report by ID.
func (r *PostgresReportRepository) Get(ctx context.Context, id uuid.UUID) (*suite.Report, error) {
	return r.queryOne(ctx, `SELECT body FROM reports WHERE id = $1`, id)
}

// Latest retrieves the most recent report.
func (r *PostgresReportRepository) Latest(ctx context.Context) (*suite.Report, error) {
	return r.queryOne(ctx, `SELECT body FROM reports ORDER BY started_at DESC LIMIT 1`)
}

func (r *PostgresReportRepository) queryOne(ctx context.Context, query string, args ...any) (*suite.Report, error) {
	var body []byte
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report suite.Report
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// List returns report summaries, newest first.
func (r *PostgresReportRepository) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, library, started_at, duration_ns, passed, total, failed
		FROM reports
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		var durationNS int64
		if err := rows.Scan(&s.ID, &s.Library, &s.StartedAt, &durationNS, &s.Passed, &s.Total, &s.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		s.Duration = time.Duration(durationNS)
		out = append(out, s)
	}

	return out, rows.Err()
}

// HealthCheck verifies the database is reachable.
func (r *PostgresReportRepository) HealthCheck(ctx context.Context) error {
	return r.pool.HealthCheck(ctx)
}

// isDuplicateKeyError reports a PostgreSQL unique violation (23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
