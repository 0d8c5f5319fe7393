package scenario

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

// Status is the outcome of a case.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// PathSeparator joins group and case names in a result path.
const PathSeparator = " > "

// Result is the outcome of one case.
type Result struct {
	Path     []string      `json:"path"`
	Status   Status        `json:"status"`
	Duration time.Duration `json:"duration"`
	Messages []string      `json:"messages,omitempty"`
}

// Name returns the case's own name.
func (r Result) Name() string {
	if len(r.Path) == 0 {
		return ""
	}
	return r.Path[len(r.Path)-1]
}

// Group returns the names of the enclosing groups, joined.
func (r Result) Group() string {
	if len(r.Path) < 2 {
		return ""
	}
	return strings.Join(r.Path[:len(r.Path)-1], PathSeparator)
}

// FullName returns the whole path, joined.
func (r Result) FullName() string {
	return strings.Join(r.Path, PathSeparator)
}

// Report collects the results of one run, in execution order.
type Report struct {
	Suite    string        `json:"suite"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Results  []Result      `json:"results"`
}

// Count returns how many results have status s.
func (r Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Failed reports whether any case failed.
func (r Report) Failed() bool {
	return r.Count(StatusFailed) > 0
}

// FailureHook runs after a case fails, before the next case starts.
type FailureHook func(ctx context.Context, res Result)

// Runner executes a tree sequentially in declaration order.
type Runner struct {
	logger    *zap.Logger
	onFailure FailureHook
	now       func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithFailureHook registers fn to run after each failed case.
func WithFailureHook(fn FailureHook) Option {
	return func(r *Runner) {
		r.onFailure = fn
	}
}

// WithClock replaces time.Now, for deterministic durations in tests.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner creates a runner.
func NewRunner(logger *zap.Logger, opts ...Option) *Runner {
	r := &Runner{
		logger: logger.Named("scenario"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes every case under root. Once ctx is done the remaining cases
// are reported as skipped.
func (r *Runner) Run(ctx context.Context, suite string, root Node) Report {
	report := Report{Suite: suite, Started: r.now(), Results: make([]Result, 0, CountCases(root))}
	r.walk(ctx, root, nil, "", &report)
	report.Duration = r.now().Sub(report.Started)
	r.logger.Info("Suite finished.",
		zap.String("suite", suite),
		zap.Int("passed", report.Count(StatusPassed)),
		zap.Int("failed", report.Count(StatusFailed)),
		zap.Int("skipped", report.Count(StatusSkipped)),
		zap.Duration("duration", report.Duration))
	return report
}

func (r *Runner) walk(ctx context.Context, n Node, parent []string, skip string, report *Report) {
	path := append(append([]string(nil), parent...), n.Title())

	switch v := n.(type) {
	case *Group:
		if skip == "" {
			skip = v.Skip
		}
		for _, child := range v.Children {
			r.walk(ctx, child, path, skip, report)
		}
	case *Case:
		if skip == "" {
			skip = v.Skip
		}
		report.Results = append(report.Results, r.runCase(ctx, v, path, skip))
	}
}

func (r *Runner) runCase(ctx context.Context, c *Case, path []string, skip string) Result {
	res := Result{Path: path}
	if skip == "" && ctx.Err() != nil {
		skip = ctx.Err().Error()
	}
	if skip != "" {
		res.Status = StatusSkipped
		res.Messages = []string{skip}
		return res
	}

	t := newT(strings.Join(path, PathSeparator))
	start := r.now()
	if c.Run != nil {
		t.run(ctx, c.Run)
	}
	res.Duration = r.now().Sub(start)

	t.mu.Lock()
	res.Messages = append([]string(nil), t.messages...)
	switch {
	case t.failed:
		res.Status = StatusFailed
	case t.skipped:
		res.Status = StatusSkipped
		res.Messages = append(res.Messages, t.reason)
	default:
		res.Status = StatusPassed
	}
	t.mu.Unlock()

	logger := r.logger.With(zap.String("case", t.Name()), zap.Duration("duration", res.Duration))
	switch res.Status {
	case StatusFailed:
		logger.Error("Case failed.", zap.Strings("messages", res.Messages))
		if r.onFailure != nil {
			r.onFailure(ctx, res)
		}
	case StatusSkipped:
		logger.Info("Case skipped.", zap.Strings("messages", res.Messages))
	default:
		logger.Info("Case passed.")
	}
	return res
}

// RunT maps the tree onto Go subtests so a suite can run under go test.
func RunT(t *testing.T, root Node) {
	t.Helper()
	runT(t, root, "")
}

func runT(t *testing.T, n Node, skip string) {
	switch v := n.(type) {
	case *Group:
		t.Run(v.Name, func(t *testing.T) {
			if skip == "" {
				skip = v.Skip
			}
			for _, child := range v.Children {
				runT(t, child, skip)
			}
		})
	case *Case:
		t.Run(v.Name, func(t *testing.T) {
			if skip == "" {
				skip = v.Skip
			}
			if skip != "" {
				t.Skip(skip)
			}
			st := newT(t.Name())
			if v.Run != nil {
				st.run(t.Context(), v.Run)
			}
			for _, msg := range st.messages {
				t.Log(msg)
			}
			if st.failed {
				t.FailNow()
			}
			if st.skipped {
				t.Skip(st.reason)
			}
		})
	}
}
