// Package capture holds the records a browser session collects while a page
// suite runs: dashboard responses and console output.
package capture

import (
	"strings"
	"time"
)

// Severity levels follow the browser logging contract the dashboard is tested against.
const (
	SeveritySevere  = "SEVERE"
	SeverityWarning = "WARNING"
	SeverityInfo    = "INFO"
)

// Request is one observed network response.
type Request struct {
	URL    string `json:"url"`
	Status int    `json:"status"`
}

// ConsoleEntry is one browser console or log-domain message.
type ConsoleEntry struct {
	Level     string    `json:"level"`
	Text      string    `json:"text"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	// Args keeps the raw JSON value of each console argument, when the entry
	// came from the console API.
	Args []string `json:"args,omitempty"`
}

// Source is anything that can report what the browser has seen so far.
type Source interface {
	Requests() []Request
	ConsoleEntries() []ConsoleEntry
}

// FilterPrefixes keeps the requests whose URL starts with any of prefixes.
// An empty prefix list keeps everything.
func FilterPrefixes(reqs []Request, prefixes []string) []Request {
	out := make([]Request, 0, len(reqs))
	for _, r := range reqs {
		if len(prefixes) == 0 {
			out = append(out, r)
			continue
		}
		for _, p := range prefixes {
			if strings.HasPrefix(r.URL, p) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// BySeverity returns the entries at the given level, in capture order.
func BySeverity(entries []ConsoleEntry, level string) []ConsoleEntry {
	out := make([]ConsoleEntry, 0)
	for _, e := range entries {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}
