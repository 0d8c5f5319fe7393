// Package checks holds the pass/fail rules applied to captured requests and
// console output.
package checks

import (
	"strings"

	"github.com/xkilldash9x/dashprobe/internal/capture"
)

// BadRequestMarker is what the browser prints for a failed dashboard call.
const BadRequestMarker = "400 (Bad Request)"

// RequestsExistence reports whether every required URL was captured. An
// empty requirement list always passes. It also returns the missing URLs.
func RequestsExistence(captured []capture.Request, required []string) (bool, []string) {
	if len(required) == 0 {
		return true, nil
	}
	seen := make(map[string]struct{}, len(captured))
	for _, r := range captured {
		seen[r.URL] = struct{}{}
	}
	var missing []string
	for _, u := range required {
		if _, ok := seen[u]; !ok {
			missing = append(missing, u)
		}
	}
	return len(missing) == 0, missing
}

// RequestsStatuses reports whether every captured response was a 200, and
// returns the offending requests otherwise.
func RequestsStatuses(captured []capture.Request) (bool, []capture.Request) {
	var bad []capture.Request
	for _, r := range captured {
		if r.Status != 200 {
			bad = append(bad, r)
		}
	}
	return len(bad) == 0, bad
}

// RequestsConsoleLogs fails when any severe entry carries the bad request marker.
func RequestsConsoleLogs(entries []capture.ConsoleEntry) (bool, []capture.ConsoleEntry) {
	return noneContaining(entries, BadRequestMarker)
}

// WidgetConsoleLogs fails when any severe entry mentions the widget key. No
// severe output at all counts as a pass.
func WidgetConsoleLogs(entries []capture.ConsoleEntry, widgetKey string) (bool, []capture.ConsoleEntry) {
	return noneContaining(entries, widgetKey)
}

func noneContaining(entries []capture.ConsoleEntry, needle string) (bool, []capture.ConsoleEntry) {
	var hits []capture.ConsoleEntry
	for _, e := range capture.BySeverity(entries, capture.SeveritySevere) {
		if strings.Contains(e.Text, needle) {
			hits = append(hits, e)
		}
	}
	return len(hits) == 0, hits
}
