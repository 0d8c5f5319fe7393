package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/dashprobe/internal/config"
)

// JobFunc runs one job. A returned error is collected, it does not stop the
// other jobs.
type JobFunc func(ctx context.Context, job Job) error

// Pool runs jobs with bounded parallelism and staggers their start so
// browsers do not launch all at once.
type Pool struct {
	parallel int
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewPool builds a pool from the suite settings. parallel below 1 means 1; a
// zero launch interval disables staggering.
func NewPool(suite config.SuiteConfig, logger *zap.Logger) *Pool {
	parallel := suite.Parallel
	if parallel < 1 {
		parallel = 1
	}
	return &Pool{
		parallel: parallel,
		limiter:  newLaunchLimiter(suite.LaunchInterval),
		logger:   logger.Named("pool"),
	}
}

func newLaunchLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// Run executes fn for every job and returns the joined job errors. Once ctx
// is done no further job starts, and the wait error is included once.
func (p *Pool) Run(ctx context.Context, jobs []Job, fn JobFunc) error {
	var (
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	g := new(errgroup.Group)
	g.SetLimit(p.parallel)

	var stopped bool
	for _, job := range jobs {
		if err := p.limiter.Wait(ctx); err != nil {
			record(err)
			stopped = true
			break
		}
		g.Go(func() error {
			p.logger.Debug("Starting job.", zap.String("file", job.Path))
			if err := fn(ctx, job); err != nil {
				record(err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if stopped {
		p.logger.Warn("Run interrupted before every page started.", zap.Int("jobs", len(jobs)))
	}
	return errors.Join(errs...)
}
