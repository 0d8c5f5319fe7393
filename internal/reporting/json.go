// internal/reporting/json.go
package reporting

import (
	"fmt"
	"io"
	"sync"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/dashprobe/internal/scenario"
)

// JSONRun is the document written by JSONReporter.
type JSONRun struct {
	RunID   string            `json:"run_id"`
	Reports []scenario.Report `json:"reports"`
}

// JSONReporter buffers reports and writes them as one indented document on Close.
type JSONReporter struct {
	writer io.WriteCloser

	mu     sync.Mutex
	run    JSONRun
	closed bool
}

// NewJSONReporter takes ownership of w.
func NewJSONReporter(w io.WriteCloser, runID string) *JSONReporter {
	return &JSONReporter{
		writer: w,
		run:    JSONRun{RunID: runID, Reports: []scenario.Report{}},
	}
}

func (r *JSONReporter) Write(report scenario.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("json reporter is closed")
	}
	r.run.Reports = append(r.run.Reports, report)
	return nil
}

func (r *JSONReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	data, err := json.MarshalIndent(r.run, "", "  ")
	if err != nil {
		r.writer.Close()
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if _, err := r.writer.Write(append(data, '\n')); err != nil {
		r.writer.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return r.writer.Close()
}
