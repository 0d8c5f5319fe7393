package worker

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"sync"

	"github.com/pb33f/harhar"
	"go.uber.org/zap"

	"github.com/xkilldash9x/dashprobe/internal/browser"
	"github.com/xkilldash9x/dashprobe/internal/config"
	"github.com/xkilldash9x/dashprobe/internal/orchestrator"
	"github.com/xkilldash9x/dashprobe/internal/pagemodel"
	"github.com/xkilldash9x/dashprobe/internal/reporting"
	"github.com/xkilldash9x/dashprobe/internal/scenario"
)

// Session is a browser tab owned by one page suite.
type Session interface {
	orchestrator.Session
	Close() error
}

// SessionFactory opens a fresh session for a page suite.
type SessionFactory func(ctx context.Context) (Session, error)

type screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

type harSource interface {
	HAR() []harhar.Entry
}

// Job is one page declaration to run.
type Job struct {
	Path string
	Page *pagemodel.Page
}

// PageWorker runs page suites in-process, one browser session per suite.
type PageWorker struct {
	cfg         config.Interface
	logger      *zap.Logger
	newSession  SessionFactory
	artifactDir string
	version     string
	seed        uint64
	seeded      bool
}

// Option is a function that configures a PageWorker.
type Option func(*PageWorker)

// WithSessionFactory replaces the Chrome session, primarily for tests.
func WithSessionFactory(f SessionFactory) Option {
	return func(w *PageWorker) {
		w.newSession = f
	}
}

// WithArtifactDir sets where HAR files and screenshots are written. Without
// it no artifacts are produced.
func WithArtifactDir(dir string) Option {
	return func(w *PageWorker) {
		w.artifactDir = dir
	}
}

// WithVersion sets the creator version stamped into HAR files.
func WithVersion(v string) Option {
	return func(w *PageWorker) {
		w.version = v
	}
}

// WithSeed makes random option picks reproducible. Each page gets its own
// generator derived from seed and the page title.
func WithSeed(seed uint64) Option {
	return func(w *PageWorker) {
		w.seed = seed
		w.seeded = true
	}
}

// NewPageWorker initializes a worker. By default each suite gets its own
// Chrome instance configured from cfg.
func NewPageWorker(cfg config.Interface, logger *zap.Logger, opts ...Option) (*PageWorker, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("cannot initialize page worker with nil dependencies")
	}
	w := &PageWorker{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "worker")),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.newSession == nil {
		w.newSession = func(ctx context.Context) (Session, error) {
			s, err := browser.NewSession(ctx, cfg.Browser(), cfg.Timing().NavigationTimeout, w.logger)
			if err != nil {
				return nil, err
			}
			return s, nil
		}
	}
	return w, nil
}

// ProcessPage runs the whole suite for one page and returns its report. An
// error means the suite could not run at all; failed cases are only in the report.
func (w *PageWorker) ProcessPage(ctx context.Context, job Job) (scenario.Report, error) {
	if job.Page == nil {
		return scenario.Report{}, fmt.Errorf("job %s has no page", job.Path)
	}
	logger := w.logger.With(zap.String("page", job.Page.Title), zap.String("file", job.Path))

	sess, err := w.newSession(ctx)
	if err != nil {
		return scenario.Report{}, fmt.Errorf("page %q: %w", job.Page.Title, err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("Error closing browser session.", zap.Error(err))
		}
	}()

	var handlerOpts []orchestrator.Option
	if w.seeded {
		handlerOpts = append(handlerOpts, orchestrator.WithRand(pageRand(w.seed, job.Page.Title)))
	}
	handler, err := orchestrator.New(job.Page, sess, w.cfg, logger, handlerOpts...)
	if err != nil {
		return scenario.Report{}, fmt.Errorf("page %q: %w", job.Page.Title, err)
	}

	runner := scenario.NewRunner(logger, scenario.WithFailureHook(w.screenshotOnce(sess, job.Page.Title, logger)))
	report := runner.Run(ctx, job.Page.Title, handler.Build())

	w.writeHAR(sess, job.Page.Title, logger)
	return report, nil
}

// screenshotOnce captures the page after its first failed case.
func (w *PageWorker) screenshotOnce(sess Session, title string, logger *zap.Logger) scenario.FailureHook {
	shooter, ok := sess.(screenshotter)
	if !ok || w.artifactDir == "" || !w.cfg.Browser().ScreenshotOnFailure {
		return nil
	}
	var once sync.Once
	return func(ctx context.Context, res scenario.Result) {
		once.Do(func() {
			png, err := shooter.Screenshot(ctx)
			if err != nil {
				logger.Warn("Could not capture failure screenshot.", zap.Error(err))
				return
			}
			path, err := reporting.WriteScreenshot(w.artifactDir, title, png)
			if err != nil {
				logger.Warn("Could not store failure screenshot.", zap.Error(err))
				return
			}
			logger.Info("Saved failure screenshot.", zap.String("case", res.FullName()), zap.String("path", path))
		})
	}
}

func pageRand(seed uint64, title string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(title))
	return rand.New(rand.NewPCG(seed, h.Sum64()))
}

func (w *PageWorker) writeHAR(sess Session, title string, logger *zap.Logger) {
	src, ok := sess.(harSource)
	if !ok || w.artifactDir == "" || !w.cfg.Suite().HAR {
		return
	}
	path := reporting.HARPath(w.artifactDir, title)
	if err := reporting.WriteHARFile(path, src.HAR(), w.version); err != nil {
		logger.Warn("Could not write HAR.", zap.Error(err))
		return
	}
	logger.Debug("Wrote HAR.", zap.String("path", path))
}
