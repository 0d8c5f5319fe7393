// internal/reporting/har.go
package reporting

import (
	"fmt"
	"os"

	json "github.com/json-iterator/go"
	"github.com/pb33f/harhar"
)

// HARVersion is the archive format version written.
const HARVersion = "1.2"

// HARLog is a HAR 1.2 archive.
type HARLog struct {
	Log HARLogInner `json:"log"`
}

// HARLogInner holds the archive body.
type HARLogInner struct {
	Version string         `json:"version"`
	Creator harhar.Creator `json:"creator"`
	Entries []harhar.Entry `json:"entries"`
}

// NewHARLog wraps entries in an archive credited to dashprobe at version.
func NewHARLog(entries []harhar.Entry, version string) HARLog {
	if entries == nil {
		entries = []harhar.Entry{}
	}
	return HARLog{
		Log: HARLogInner{
			Version: HARVersion,
			Creator: harhar.Creator{Name: "dashprobe", Version: version},
			Entries: entries,
		},
	}
}

// WriteHARFile writes entries as a HAR archive to path.
func WriteHARFile(path string, entries []harhar.Entry, version string) error {
	data, err := json.MarshalIndent(NewHARLog(entries, version), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal HAR: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write HAR %s: %w", path, err)
	}
	return nil
}
