// internal/reporting/artifacts.go
package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// slugSanitizer collapses runs of characters unsafe in file names. Letters of
// any script are kept so Cyrillic page titles stay readable.
var slugSanitizer = regexp.MustCompile(`[^\p{L}\p{N}_.]+`)

// Slug turns a page title into a file name stem.
func Slug(title string) string {
	s := strings.Trim(slugSanitizer.ReplaceAllString(title, "-"), "-.")
	if s == "" {
		return "page"
	}
	return s
}

// RunDir returns and creates <reportDir>/<runID>.
func RunDir(reportDir, runID string) (string, error) {
	dir := filepath.Join(reportDir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory %s: %w", dir, err)
	}
	return dir, nil
}

// WriteScreenshot stores a PNG for the page in dir and returns its path.
func WriteScreenshot(dir, title string, png []byte) (string, error) {
	path := filepath.Join(dir, Slug(title)+".png")
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("failed to write screenshot %s: %w", path, err)
	}
	return path, nil
}

// HARPath returns where the page's archive goes in dir.
func HARPath(dir, title string) string {
	return filepath.Join(dir, Slug(title)+".har")
}
