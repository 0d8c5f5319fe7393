package cmd

import (
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/dashprobe/internal/observability"
	"github.com/xkilldash9x/dashprobe/internal/pagemodel"
	"github.com/xkilldash9x/dashprobe/internal/worker"
)

func newWatchCmd() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch <page>",
		Short: "Run a page suite and run it again every time the file is saved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			logger := observability.GetLogger().Named("watch")
			path := args[0]

			rerun := func(page *pagemodel.Page, err error) {
				if err != nil {
					logger.Error("Page file not usable, waiting for the next save.", zap.String("file", path), zap.Error(err))
					return
				}
				jobs := []worker.Job{{Path: path, Page: page}}
				if _, err := runSuites(ctx, cfg, jobs, runOptions{runID: uuid.NewString()}, logger); err != nil {
					logger.Error("Run failed.", zap.Error(err))
				}
			}

			rerun(pagemodel.Load(path))
			logger.Info("Watching for changes.", zap.String("file", path))
			return pagemodel.Watch(ctx, path, debounce, rerun)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 300*time.Millisecond, "quiet period after a save before re-running")
	return cmd
}
