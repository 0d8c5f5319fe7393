// internal/reporting/junit.go
package reporting

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/beevik/etree"

	"github.com/xkilldash9x/dashprobe/internal/scenario"
)

// JUnitReporter collects one <testsuite> per page report and writes the
// <testsuites> document on Close. It is safe for concurrent use.
type JUnitReporter struct {
	writer io.WriteCloser
	runID  string

	mu      sync.Mutex
	reports []scenario.Report
	closed  bool
}

// NewJUnitReporter takes ownership of w.
func NewJUnitReporter(w io.WriteCloser, runID string) *JUnitReporter {
	return &JUnitReporter{writer: w, runID: runID}
}

func (r *JUnitReporter) Write(report scenario.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("junit reporter is closed")
	}
	r.reports = append(r.reports, report)
	return nil
}

func (r *JUnitReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	doc := BuildJUnit(r.runID, r.reports)
	if _, err := doc.WriteTo(r.writer); err != nil {
		r.writer.Close()
		return fmt.Errorf("failed to write junit report: %w", err)
	}
	return r.writer.Close()
}

// BuildJUnit renders reports as a JUnit XML document. Groups become the
// classname of their cases.
func BuildJUnit(runID string, reports []scenario.Report) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("testsuites")
	root.CreateAttr("name", "dashprobe")
	if runID != "" {
		root.CreateAttr("id", runID)
	}

	var tests, failures, skipped int
	var total time.Duration
	for _, rep := range reports {
		writeSuite(root, rep)
		tests += len(rep.Results)
		failures += rep.Count(scenario.StatusFailed)
		skipped += rep.Count(scenario.StatusSkipped)
		total += rep.Duration
	}
	root.CreateAttr("tests", strconv.Itoa(tests))
	root.CreateAttr("failures", strconv.Itoa(failures))
	root.CreateAttr("skipped", strconv.Itoa(skipped))
	root.CreateAttr("time", seconds(total))

	doc.Indent(2)
	return doc
}

func writeSuite(parent *etree.Element, rep scenario.Report) {
	suite := parent.CreateElement("testsuite")
	suite.CreateAttr("name", rep.Suite)
	suite.CreateAttr("tests", strconv.Itoa(len(rep.Results)))
	suite.CreateAttr("failures", strconv.Itoa(rep.Count(scenario.StatusFailed)))
	suite.CreateAttr("errors", "0")
	suite.CreateAttr("skipped", strconv.Itoa(rep.Count(scenario.StatusSkipped)))
	suite.CreateAttr("time", seconds(rep.Duration))
	if !rep.Started.IsZero() {
		suite.CreateAttr("timestamp", rep.Started.UTC().Format("2006-01-02T15:04:05"))
	}

	for _, res := range rep.Results {
		tc := suite.CreateElement("testcase")
		tc.CreateAttr("name", res.Name())
		tc.CreateAttr("classname", res.Group())
		tc.CreateAttr("time", seconds(res.Duration))

		switch res.Status {
		case scenario.StatusFailed:
			f := tc.CreateElement("failure")
			f.CreateAttr("message", firstLine(res.Messages))
			f.CreateAttr("type", "AssertionError")
			f.SetText(strings.Join(res.Messages, "\n"))
		case scenario.StatusSkipped:
			s := tc.CreateElement("skipped")
			s.CreateAttr("message", firstLine(res.Messages))
		default:
			if len(res.Messages) > 0 {
				tc.CreateElement("system-out").SetText(strings.Join(res.Messages, "\n"))
			}
		}
	}
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func firstLine(messages []string) string {
	if len(messages) == 0 {
		return ""
	}
	line, _, _ := strings.Cut(messages[0], "\n")
	return line
}
