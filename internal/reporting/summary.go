// internal/reporting/summary.go
package reporting

import (
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/dashprobe/internal/scenario"
)

// PageSummary totals one page suite.
type PageSummary struct {
	Page     string
	Passed   int
	Failed   int
	Skipped  int
	Duration time.Duration
	// Err is set when the suite could not run at all.
	Err error
}

// Summary totals a whole run.
type Summary struct {
	RunID       string
	DefaultDate string
	Pages       []PageSummary
}

// Add records a finished suite.
func (s *Summary) Add(report scenario.Report) {
	s.Pages = append(s.Pages, PageSummary{
		Page:     report.Suite,
		Passed:   report.Count(scenario.StatusPassed),
		Failed:   report.Count(scenario.StatusFailed),
		Skipped:  report.Count(scenario.StatusSkipped),
		Duration: report.Duration,
	})
}

// AddError records a suite that aborted before producing a report.
func (s *Summary) AddError(page string, err error) {
	s.Pages = append(s.Pages, PageSummary{Page: page, Err: err})
}

// Failed reports whether any case failed.
func (s *Summary) Failed() bool {
	for _, p := range s.Pages {
		if p.Failed > 0 {
			return true
		}
	}
	return false
}

// Errored reports whether any suite aborted.
func (s *Summary) Errored() bool {
	for _, p := range s.Pages {
		if p.Err != nil {
			return true
		}
	}
	return false
}

// Log writes one line per page and a closing total.
func (s *Summary) Log(logger *zap.Logger) {
	var passed, failed, skipped, errored int
	for _, p := range s.Pages {
		if p.Err != nil {
			errored++
			logger.Error("Page suite aborted.", zap.String("page", p.Page), zap.Error(p.Err))
			continue
		}
		passed += p.Passed
		failed += p.Failed
		skipped += p.Skipped
		logger.Info("Page suite result.",
			zap.String("page", p.Page),
			zap.Int("passed", p.Passed),
			zap.Int("failed", p.Failed),
			zap.Int("skipped", p.Skipped),
			zap.Duration("duration", p.Duration))
	}
	logger.Info("Run finished.",
		zap.String("run_id", s.RunID),
		zap.String("default_date", s.DefaultDate),
		zap.Int("pages", len(s.Pages)),
		zap.Int("passed", passed),
		zap.Int("failed", failed),
		zap.Int("skipped", skipped),
		zap.Int("aborted", errored))
}
