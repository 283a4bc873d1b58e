package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/robotarm/armsuite/internal/cache"
	"github.com/robotarm/armsuite/internal/config"
	"github.com/robotarm/armsuite/internal/database"
	"github.com/robotarm/armsuite/internal/examples"
	"github.com/robotarm/armsuite/internal/metrics"
	"github.com/robotarm/armsuite/internal/repository"
	"github.com/robotarm/armsuite/internal/server"
	"github.com/robotarm/armsuite/internal/services"
	"github.com/robotarm/armsuite/internal/suite"
	"github.com/robotarm/armsuite/pkg/logger"
)

// app holds what every subcommand shares.
type app struct {
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer

	logLevel string
	log      *logger.Logger
	logFile  io.WriteCloser
	metrics  *metrics.Metrics
	registry *suite.Registry
}

// newRootCmd builds the command tree. The returned func flushes and closes
// log outputs and must run after Execute, whatever its result.
func newRootCmd(cfg *config.Config, stdout, stderr io.Writer) (*cobra.Command, func()) {
	a := &app{
		cfg:      cfg,
		stdout:   stdout,
		stderr:   stderr,
		logLevel: cfg.App.LogLevel,
		metrics:  metrics.New(),
		registry: suite.NewRegistry(),
	}

	root := &cobra.Command{
		Use:           "armsuite",
		Short:         "Run the robot-arm library example suite",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			out := a.stderr
			if a.cfg.App.LogFile != "" {
				a.logFile = logger.RotatingFile(a.cfg.App.LogFile)
				out = io.MultiWriter(a.stderr, a.logFile)
			}
			a.log = logger.New(out, a.logLevel).With("library", libraryName)
			return examples.Register(a.registry, examples.DefaultDeps())
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", a.logLevel, "log level (debug, info, warn, error)")

	root.AddCommand(
		a.newRunCmd(),
		a.newListCmd(),
		a.newHistoryCmd(),
		a.newMigrateCmd(),
		a.newServeCmd(),
	)
	return root, a.close
}

func (a *app) close() {
	if a.log != nil {
		_ = a.log.Sync()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

func (a *app) newRunCmd() *cobra.Command {
	var (
		filter      = a.cfg.Suite.Filter
		parallelism = a.cfg.Suite.Parallelism
		format      = a.cfg.Suite.Format
		timeout     = a.cfg.Suite.Timeout
		metricsFile string
		noHistory   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the suite and exit non-zero if any case fails",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := suite.ParseFormat(format)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			var repo repository.ReportRepository
			if !noHistory && !a.historyPersists() {
				a.log.Debug("history backend does not outlive the process, report not stored",
					"backend", a.cfg.History.Backend)
				noHistory = true
			}
			if !noHistory {
				var closeRepo func()
				repo, closeRepo, err = a.openHistory(ctx)
				if err != nil {
					a.metrics.ObserveHistoryWrite(a.cfg.History.Backend, err)
					a.log.Warn("report will not be stored", "error", err)
				} else {
					defer closeRepo()
				}
			}

			svc := a.newRunService(repo)
			report, err := svc.Run(ctx, services.RunRequest{
				Filter:      filter,
				Parallelism: parallelism,
				Timeout:     timeout,
				NoHistory:   noHistory,
			})
			if err != nil {
				return err
			}

			if err := report.Encode(a.stdout, f); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}

			if metricsFile != "" {
				if err := a.writeMetrics(metricsFile); err != nil {
					return err
				}
			}

			if code := report.ExitCode(); code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&filter, "filter", filter, "regular expression selecting case IDs")
	flags.IntVar(&parallelism, "parallel", parallelism, "maximum cases run at once")
	flags.StringVar(&format, "format", format, "report format (text, json, yaml)")
	flags.DurationVar(&timeout, "timeout", timeout, "stop starting new cases after this long")
	flags.StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file")
	flags.BoolVar(&noHistory, "no-history", false, "do not store the report")

	return cmd
}

func (a *app) newServeCmd() *cobra.Command {
	var (
		host = a.cfg.Server.Host
		port = a.cfg.Server.Port
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve health, metrics, and on-demand runs over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a.cfg.Server.Host = host
			a.cfg.Server.Port = port

			repo, closeRepo, err := a.openHistory(ctx)
			if err != nil {
				return err
			}
			defer closeRepo()

			srv := server.New(a.cfg, a.log, a.metrics, a.newRunService(repo))
			srv.HealthHandler().AddCheck("history", repo.HealthCheck)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to shut down: %w", err)
			}
			return <-errCh
		},
	}

	cmd.Flags().StringVar(&host, "host", host, "listen host")
	cmd.Flags().IntVar(&port, "port", port, "listen port")

	return cmd
}

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered cases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, c := range a.registry.Cases() {
				if _, err := fmt.Fprintln(a.stdout, c.ID()); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (a *app) newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.historyPersists() {
				return fmt.Errorf("%w: history requires HISTORY_BACKEND=%s, got %q",
					errHistoryNotPersistent, config.BackendPostgres, a.cfg.History.Backend)
			}

			ctx := cmd.Context()
			repo, closeRepo, err := a.openHistory(ctx)
			if err != nil {
				return err
			}
			defer closeRepo()

			summaries, err := repo.List(ctx, limit)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				_, err := fmt.Fprintln(a.stdout, "no runs recorded")
				return err
			}

			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tRESULT\tCASES\tFAILED\tDURATION")
			for _, s := range summaries {
				result := "PASS"
				if !s.Passed {
					result = "FAIL"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
					s.ID, s.StartedAt.Format(time.RFC3339), result, s.Total, s.Failed, s.Duration.Round(time.Microsecond))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", repository.DefaultListLimit, "maximum runs to show")

	return cmd
}

func (a *app) newMigrateCmd() *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply (or roll back one) history schema migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := database.NewPool(ctx, &a.cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator, err := database.NewMigrator(pool)
			if err != nil {
				return err
			}

			if down {
				if err := migrator.Down(ctx); err != nil {
					return err
				}
			} else {
				applied, err := migrator.Up(ctx)
				if err != nil {
					return err
				}
				a.log.Info("migrations applied", "count", applied)
			}

			version, err := migrator.CurrentVersion(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.stdout, "schema version %d\n", version)
			return err
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back the last migration")

	return cmd
}

// errHistoryNotPersistent rejects history reads from a one-shot process whose
// backend starts empty.
var errHistoryNotPersistent = errors.New("history backend is not persistent")

// historyPersists reports whether reports outlive this process. The memory
// backend only serves within a long-running serve process.
func (a *app) historyPersists() bool {
	return a.cfg.History.Backend != config.BackendMemory
}

// openHistory builds the configured report repository. The returned func
// releases its connections.
func (a *app) openHistory(ctx context.Context) (repository.ReportRepository, func(), error) {
	var (
		repo    repository.ReportRepository
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch a.cfg.History.Backend {
	case config.BackendPostgres:
		pool, err := database.NewPool(ctx, &a.cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, pool.Close)
		repo = repository.NewPostgresReportRepository(pool)
	default:
		repo = repository.NewMemoryReportRepository()
	}

	if a.cfg.History.Cache {
		var c cache.Cache
		if a.cfg.RedisEnabled() {
			redisCache, err := cache.NewRedisCache(ctx, &a.cfg.Redis)
			if err != nil {
				a.log.Warn("redis history cache unavailable, using in-process cache", "error", err)
			} else {
				closers = append(closers, func() { _ = redisCache.Close() })
				c = redisCache
			}
		}
		if c == nil {
			c = cache.NewMemoryCache()
		}
		repo = repository.NewCachedReportRepository(repo,
			cache.NewReportCache(c, "", a.cfg.History.CacheTTL))
	}

	return repo, closeAll, nil
}

func (a *app) newRunService(repo repository.ReportRepository) *services.RunServiceImpl {
	return services.NewRunService(services.RunServiceConfig{
		Library:    libraryName,
		Registry:   a.registry,
		Repository: repo,
		Backend:    a.cfg.History.Backend,
		Metrics:    a.metrics,
		Logger:     a.log,
	})
}

func (a *app) writeMetrics(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}
	if err := a.metrics.WriteText(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close metrics file: %w", err)
	}
	return nil
}
