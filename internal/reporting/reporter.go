// internal/reporting/reporter.go
package reporting

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/xkilldash9x/dashprobe/internal/scenario"
)

// Output formats accepted by New.
const (
	FormatJUnit = "junit"
	FormatJSON  = "json"
)

// ErrUnsupportedFormat is returned by New for an unknown format name.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Reporter collects page suite reports and writes them out on Close.
type Reporter interface {
	// Write records the report of one page suite.
	Write(report scenario.Report) error
	// Close finalizes the output and closes any underlying resources.
	Close() error
}

var formats = map[string]func(w io.WriteCloser, runID string) Reporter{
	FormatJUnit: func(w io.WriteCloser, runID string) Reporter { return NewJUnitReporter(w, runID) },
	FormatJSON:  func(w io.WriteCloser, runID string) Reporter { return NewJSONReporter(w, runID) },
}

// New creates a reporter for format writing to outputPath, or to stdout when
// the path is empty or "stdout". runID is stamped into the output. An unknown
// format is rejected before any file is created.
func New(format, outputPath, runID string) (Reporter, error) {
	build, ok := formats[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	w, err := openOutput(outputPath)
	if err != nil {
		return nil, err
	}
	return build(w, runID), nil
}

// stdout must outlive the reporter.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "stdout" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", path, err)
	}
	return f, nil
}
