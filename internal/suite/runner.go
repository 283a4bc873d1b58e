package suite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/robotarm/armsuite/pkg/logger"
)

// Recorder receives per-case observations, typically for metrics.
type Recorder interface {
	ObserveCase(outcome string, duration time.Duration)
	ObserveAssertion(kind string)
}

// Runner executes cases and builds a Report.
type Runner struct {
	// Library names the library under test in the report.
	Library string

	// Parallelism bounds how many cases run at once. Values below 2 run
	// cases sequentially.
	Parallelism int

	Logger   *logger.Logger
	Recorder Recorder
}

// Run executes cases and returns their report. Results follow the order of
// cases regardless of scheduling. Cases not started before ctx is done are
// reported as skipped.
func (r *Runner) Run(ctx context.Context, cases []Case) *Report {
	log := r.Logger
	if log == nil {
		log = logger.Nop()
	}

	report := &Report{
		ID:        uuid.New(),
		Library:   r.Library,
		StartedAt: time.Now().UTC(),
		Results:   make([]Result, len(cases)),
	}
	log = log.With("run_id", report.ID.String())
	log.Info("suite run started", "cases", len(cases), "parallelism", r.Parallelism)

	start := time.Now()
	if r.Parallelism < 2 {
		for i, c := range cases {
			report.Results[i] = r.runCase(ctx, log, c)
		}
	} else {
		g := new(errgroup.Group)
		g.SetLimit(r.Parallelism)
		for i, c := range cases {
			g.Go(func() error {
				report.Results[i] = r.runCase(ctx, log, c)
				return nil
			})
		}
		_ = g.Wait()
	}
	report.Duration = time.Since(start)

	counts := report.Counts()
	log.Info("suite run finished",
		"passed", counts.Passed,
		"failed", counts.Failed,
		"skipped", counts.Skipped,
		"duration", report.Duration,
	)

	return report
}

// runCase runs one case on its own goroutine so that Require can stop it
// with runtime.Goexit and a panic is confined to that case.
func (r *Runner) runCase(ctx context.Context, log *logger.Logger, c Case) Result {
	id := c.ID()
	if err := ctx.Err(); err != nil {
		r.observe(OutcomeSkipped, 0, nil)
		return Result{Case: id, Outcome: OutcomeSkipped, Logs: []string{err.Error()}}
	}

	log.Debug("case started", "case", id)

	t := newT(ctx, id)
	done := make(chan struct{})
	start := time.Now()

	go func() {
		defer close(done)
		defer func() {
			if rec := recover(); rec != nil {
				t.recordKind(KindPanic, fmt.Sprintf("panic: %v", rec), true)
			}
		}()
		c.Func(t)
	}()
	<-done

	elapsed := time.Since(start)
	failures, logs := t.snapshot()

	outcome := OutcomePassed
	if len(failures) > 0 {
		outcome = OutcomeFailed
		for _, f := range failures {
			log.Warn("assertion failed", "case", id, "kind", string(f.Kind), "fatal", f.Fatal, "error", f.Message)
		}
	}
	r.observe(outcome, elapsed, failures)
	log.Debug("case finished", "case", id, "outcome", string(outcome), "duration", elapsed)

	return Result{
		Case:     id,
		Outcome:  outcome,
		Duration: elapsed,
		Failures: failures,
		Logs:     logs,
	}
}

func (r *Runner) observe(outcome Outcome, elapsed time.Duration, failures []Assertion) {
	if r.Recorder == nil {
		return
	}
	r.Recorder.ObserveCase(string(outcome), elapsed)
	for _, f := range failures {
		r.Recorder.ObserveAssertion(string(f.Kind))
	}
}
