package actions

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/dashprobe/internal/pagemodel"
)

// Custom select component hooks.
const (
	selPreview = ".custom-select-component__preview-text-block"
	selBlock   = ".custom-select-component__block"
	selOption  = ".custom-select-component__option"
	selOverlay = ".custom-select-component__overlay"
)

// ResolveOption maps a select index onto one of n options. An explicit
// position is matched first, then first and last, all in a single scan; random
// is only consulted once the scan found nothing, and then draws uniformly from
// all n options.
func ResolveOption(n int, idx pagemodel.SelectIndex, rng *rand.Rand) (int, bool) {
	for i := 0; i < n; i++ {
		if idx.IsNumeric() && i == idx.Pos {
			return i, true
		}
		if idx.Keyword == pagemodel.IndexFirst && i == 0 {
			return i, true
		}
		if idx.Keyword == pagemodel.IndexLast && i == n-1 {
			return i, true
		}
	}
	if idx.Keyword == pagemodel.IndexRandom && n > 0 {
		return rng.IntN(n), true
	}
	return -1, false
}

// optionPicker runs the shared part of a select interaction: pick, commit,
// optionally dismiss the overlay and read the result back.
type optionPicker struct {
	driver Driver
	commit time.Duration
	rng    *rand.Rand
	logger *zap.Logger
}

// pick chooses an option under scope. settle is slept after the overlay step
// and before the result is read.
func (p *optionPicker) pick(ctx context.Context, scope string, action pagemodel.SelectAction, settle time.Duration) (string, string, error) {
	optionSel := within(scope, selOption)
	options, err := p.driver.Query(ctx, optionSel)
	if err != nil {
		return "", "", fmt.Errorf("list options: %w", err)
	}

	i, ok := ResolveOption(len(options), action.SelectIndex, p.rng)
	if !ok {
		return "", "", fmt.Errorf("%w: index %s over %d options", ErrNoOption, action.SelectIndex, len(options))
	}
	text, value := options[i].Attr("select-text"), options[i].Attr("select-value")
	p.logger.Debug("Selecting option.",
		zap.String("scope", scope),
		zap.Int("index", i),
		zap.String("text", text),
		zap.String("value", value))

	if err := p.driver.ClickNth(ctx, optionSel, i); err != nil {
		return "", "", fmt.Errorf("click option %d: %w", i, err)
	}
	if err := p.driver.Sleep(ctx, p.commit); err != nil {
		return "", "", err
	}

	if action.CloseOverlay {
		if err := p.driver.ClickNth(ctx, within(scope, selOverlay), 0); err != nil {
			return "", "", fmt.Errorf("close overlay: %w", err)
		}
	}
	if err := p.driver.Sleep(ctx, settle); err != nil {
		return "", "", err
	}

	if action.MultiSelect {
		agg, err := queryOne(ctx, p.driver, scope)
		if err != nil {
			return "", "", err
		}
		return agg.Attr("test-value-text"), agg.Attr("test-value"), nil
	}
	return text, value, nil
}
