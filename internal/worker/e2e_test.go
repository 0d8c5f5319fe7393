package worker_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/dashprobe/internal/config"
	"github.com/xkilldash9x/dashprobe/internal/pagemodel"
	"github.com/xkilldash9x/dashprobe/internal/worker"
)

// TestLiveDashboard runs the shipped pages against a real dashboard with
// Chrome. Set DASHPROBE_E2E_BASE_URL to enable it.
func TestLiveDashboard(t *testing.T) {
	base := os.Getenv("DASHPROBE_E2E_BASE_URL")
	if base == "" {
		t.Skip("DASHPROBE_E2E_BASE_URL not set")
	}

	cfg := config.NewDefaultConfig()
	cfg.SetTargetBaseURL(base)
	require.NoError(t, cfg.Validate())

	paths, err := pagemodel.Discover(filepath.Join("..", "..", "pages"))
	require.NoError(t, err)

	w, err := worker.NewPageWorker(cfg, zaptest.NewLogger(t), worker.WithArtifactDir(t.TempDir()))
	require.NoError(t, err)

	for _, path := range paths {
		page, err := pagemodel.Load(path)
		require.NoError(t, err)

		report, err := w.ProcessPage(context.Background(), worker.Job{Path: path, Page: page})
		require.NoError(t, err, path)
		for _, res := range report.Results {
			t.Logf("%-7s %s", res.Status, res.FullName())
		}
		if report.Failed() {
			t.Errorf("page %q has failed cases", page.Title)
		}
	}
}
