package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/dashprobe/internal/pagemodel"
)

// ErrInvalidPages reports that at least one page file failed to load.
var ErrInvalidPages = errors.New("invalid page files")

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [pages...]",
		Short: "Check page files without starting a browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			paths, err := resolvePages(args, cfg.Suite().PagesDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			invalid := 0
			for _, path := range paths {
				page, err := pagemodel.Load(path)
				if err != nil {
					invalid++
					fmt.Fprintf(out, "FAIL %s\n  %v\n", path, err)
					continue
				}
				fmt.Fprintf(out, "ok   %s (%s)\n", path, page.Title)
				for _, w := range pagemodel.Warnings(page) {
					fmt.Fprintf(out, "  warning: %s\n", w)
				}
			}

			if invalid > 0 {
				return fmt.Errorf("%w: %d of %d", ErrInvalidPages, invalid, len(paths))
			}
			return nil
		},
	}
}
