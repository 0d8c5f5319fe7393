package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/dashprobe/internal/config"
	"github.com/xkilldash9x/dashprobe/internal/observability"
	"github.com/xkilldash9x/dashprobe/internal/pagemodel"
	"github.com/xkilldash9x/dashprobe/internal/reporting"
	"github.com/xkilldash9x/dashprobe/internal/worker"
)

// Replaced in tests to run suites against an in-memory page.
var sessionFactory worker.SessionFactory

func newRunCmd() *cobra.Command {
	var (
		titles   []string
		jsonPath string
		headed   bool
		parallel int
		report   string
		baseURL  string
		seed     uint64
	)

	cmd := &cobra.Command{
		Use:   "run [pages...]",
		Short: "Run the suites of the given page files, or of every page in suite.pages_dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("headed") {
				cfg.SetBrowserHeadless(!headed)
			}
			if flags.Changed("parallel") {
				cfg.SetSuiteParallel(parallel)
			}
			if flags.Changed("report-dir") {
				cfg.SetSuiteReportDir(report)
			}
			if flags.Changed("base-url") {
				cfg.SetTargetBaseURL(baseURL)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid flags: %w", err)
			}

			logger := observability.GetLogger()
			paths, err := resolvePages(args, cfg.Suite().PagesDir)
			if err != nil {
				return err
			}
			jobs, err := loadJobs(paths, titles)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				return errors.New("no page matched")
			}

			opts := runOptions{runID: uuid.NewString(), jsonPath: jsonPath}
			if flags.Changed("seed") {
				opts.seed = &seed
			}
			summary, err := runSuites(ctx, cfg, jobs, opts, logger)
			return outcome(summary, err)
		},
	}

	cmd.Flags().StringSliceVarP(&titles, "page", "p", nil, "only run pages whose title contains this text (repeatable)")
	cmd.Flags().StringVar(&jsonPath, "json", "", "also write a JSON report to this path (\"stdout\" for the console)")
	cmd.Flags().BoolVar(&headed, "headed", false, "show the browser window")
	cmd.Flags().IntVar(&parallel, "parallel", 1, "number of pages run at once")
	cmd.Flags().StringVar(&report, "report-dir", "", "directory for reports and artifacts")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "dashboard address page urls are appended to")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed for random option picks, for reproducing a run")
	return cmd
}

// resolvePages expands the arguments into page files. Directories contribute
// the page files directly inside them; no arguments means dir.
func resolvePages(args []string, dir string) ([]string, error) {
	if len(args) == 0 {
		args = []string{dir}
	}
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("page path: %w", err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		found, err := pagemodel.Discover(arg)
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}
	return paths, nil
}

// loadJobs parses every page file and keeps those whose title contains one
// of titles, compared case-insensitively. An empty titles keeps all.
func loadJobs(paths, titles []string) ([]worker.Job, error) {
	var (
		jobs []worker.Job
		errs []error
	)
	for _, path := range paths {
		page, err := pagemodel.Load(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if matchesTitle(page.Title, titles) {
			jobs = append(jobs, worker.Job{Path: path, Page: page})
		}
	}
	return jobs, errors.Join(errs...)
}

func matchesTitle(title string, filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	title = strings.ToLower(title)
	for _, f := range filters {
		if strings.Contains(title, strings.ToLower(f)) {
			return true
		}
	}
	return false
}

type runOptions struct {
	runID    string
	jsonPath string
	seed     *uint64
}

// runSuites runs every job through the pool and records each report in the
// run summary and the configured reporters.
func runSuites(ctx context.Context, cfg config.Interface, jobs []worker.Job, opts runOptions, logger *zap.Logger) (*reporting.Summary, error) {
	logger = logger.With(zap.String("run_id", opts.runID))
	summary := &reporting.Summary{RunID: opts.runID, DefaultDate: cfg.Target().DefaultDate}

	dir, err := reporting.RunDir(cfg.Suite().ReportDir, opts.runID)
	if err != nil {
		return summary, err
	}

	var reporters []reporting.Reporter
	if cfg.Suite().JUnit {
		r, err := reporting.New(reporting.FormatJUnit, filepath.Join(dir, "junit.xml"), opts.runID)
		if err != nil {
			return summary, err
		}
		reporters = append(reporters, r)
	}
	if opts.jsonPath != "" {
		r, err := reporting.New(reporting.FormatJSON, opts.jsonPath, opts.runID)
		if err != nil {
			closeReporters(reporters, logger)
			return summary, err
		}
		reporters = append(reporters, r)
	}

	workerOpts := []worker.Option{worker.WithArtifactDir(dir), worker.WithVersion(Version)}
	if opts.seed != nil {
		workerOpts = append(workerOpts, worker.WithSeed(*opts.seed))
		logger.Info("Random option picks are seeded.", zap.Uint64("seed", *opts.seed))
	}
	if sessionFactory != nil {
		workerOpts = append(workerOpts, worker.WithSessionFactory(sessionFactory))
	}
	w, err := worker.NewPageWorker(cfg, logger, workerOpts...)
	if err != nil {
		closeReporters(reporters, logger)
		return summary, err
	}

	logger.Info("Starting run.", zap.Int("pages", len(jobs)), zap.String("report_dir", dir))

	var mu sync.Mutex
	runErr := worker.NewPool(cfg.Suite(), logger).Run(ctx, jobs, func(ctx context.Context, job worker.Job) error {
		report, err := w.ProcessPage(ctx, job)

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			summary.AddError(job.Page.Title, err)
			return err
		}
		summary.Add(report)
		for _, r := range reporters {
			if err := r.Write(report); err != nil {
				logger.Warn("Failed to record report.", zap.String("page", report.Suite), zap.Error(err))
			}
		}
		return nil
	})

	closeReporters(reporters, logger)
	summary.Log(logger)
	return summary, runErr
}

func closeReporters(reporters []reporting.Reporter, logger *zap.Logger) {
	for _, r := range reporters {
		if err := r.Close(); err != nil {
			logger.Error("Failed to write report.", zap.Error(err))
		}
	}
}

// outcome turns a finished run into the command result.
func outcome(summary *reporting.Summary, err error) error {
	if err != nil {
		return &ExitError{Code: ExitRuntime, Err: err}
	}
	if summary.Failed() {
		return &ExitError{Code: ExitScenariosFailed, Err: ErrScenariosFailed}
	}
	return nil
}
