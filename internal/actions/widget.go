package actions

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/xkilldash9x/dashprobe/internal/cache"
	"github.com/xkilldash9x/dashprobe/internal/capture"
	"github.com/xkilldash9x/dashprobe/internal/config"
	"github.com/xkilldash9x/dashprobe/internal/pagemodel"
)

// Modal is an opened widget filter dialog.
type Modal struct {
	Widget string
	Root   string
}

// WidgetHandler reads and drives report panels and their modal filters.
type WidgetHandler struct {
	driver  Driver
	timing  config.TimingConfig
	options *optionPicker
	picker  *datepicker
	logger  *zap.Logger
}

// NewWidgetHandler builds a handler. rng drives random option selection.
func NewWidgetHandler(d Driver, timing config.TimingConfig, rng *rand.Rand, logger *zap.Logger) *WidgetHandler {
	logger = logger.Named("widgets")
	return &WidgetHandler{
		driver: d,
		timing: timing,
		options: &optionPicker{
			driver: d,
			commit: timing.OptionCommit,
			rng:    rng,
			logger: logger,
		},
		picker: &datepicker{
			driver: d,
			commit: timing.OptionCommit,
			settle: timing.ClickSettle,
			logger: logger,
		},
		logger: logger,
	}
}

// Selector returns the CSS selector of the widget's article.
func (h *WidgetHandler) Selector(key string) string {
	return "article" + attrSel("widget-key", key)
}

// Locate finds the widget with the given key.
func (h *WidgetHandler) Locate(ctx context.Context, key string) (Element, error) {
	return queryOne(ctx, h.driver, h.Selector(key))
}

// GoTo scrolls the widget into view and lets it settle.
func (h *WidgetHandler) GoTo(ctx context.Context, key string) error {
	if _, err := h.Locate(ctx, key); err != nil {
		return err
	}
	if err := h.driver.ScrollNth(ctx, h.Selector(key), 0); err != nil {
		return fmt.Errorf("scroll to widget %s: %w", key, err)
	}
	return h.driver.Sleep(ctx, h.timing.ClickSettle)
}

// ReadTitle reports whether the widget is rendered, with its header text.
func (h *WidgetHandler) ReadTitle(ctx context.Context, key string) (bool, string, error) {
	if _, err := h.Locate(ctx, key); err != nil {
		if errors.Is(err, ErrElementNotFound) {
			return false, "", nil
		}
		return false, "", err
	}
	titles, err := h.driver.QueryIn(ctx, h.Selector(key), 0, "h3.card__header")
	if err != nil {
		return false, "", err
	}
	if len(titles) == 0 {
		return true, "", nil
	}
	return true, titles[0].Text, nil
}

// ReadFilterExistence reports whether the widget renders the filter block,
// with its title and display value.
func (h *WidgetHandler) ReadFilterExistence(ctx context.Context, widgetKey, filterKey string) (bool, string, string, error) {
	el, err := queryOne(ctx, h.driver, within(h.Selector(widgetKey), attrSel("test-block-name", filterKey)))
	if errors.Is(err, ErrElementNotFound) {
		return false, "", "", nil
	}
	if err != nil {
		return false, "", "", err
	}
	return true, el.Attr("test-block-title"), el.Attr("test-block-value"), nil
}

// OpenFilterModal hovers and clicks the widget's modal opener and returns the dialog.
func (h *WidgetHandler) OpenFilterModal(ctx context.Context, widgetKey string) (Modal, error) {
	scope := attrSel("widget-key", widgetKey)
	opener := within(scope, `[test-modal-opener="btn"]`)
	if _, err := queryOne(ctx, h.driver, opener); err != nil {
		return Modal{}, err
	}
	if err := h.driver.HoverNth(ctx, opener, 0); err != nil {
		return Modal{}, fmt.Errorf("hover modal opener: %w", err)
	}
	if err := h.driver.Sleep(ctx, h.timing.ClickSettle); err != nil {
		return Modal{}, err
	}
	if err := h.driver.ClickNth(ctx, opener, 0); err != nil {
		return Modal{}, fmt.Errorf("click modal opener: %w", err)
	}
	if err := h.driver.Sleep(ctx, h.timing.ModalSettle); err != nil {
		return Modal{}, err
	}

	root := within(scope, ".modal-wrapper")
	if _, err := queryOne(ctx, h.driver, root); err != nil {
		return Modal{}, err
	}
	return Modal{Widget: widgetKey, Root: root}, nil
}

// ApplyInModal dispatches on the action variant, scoped to the dialog.
func (h *WidgetHandler) ApplyInModal(ctx context.Context, m Modal, action pagemodel.Action) (string, string, error) {
	switch a := action.(type) {
	case pagemodel.SelectAction:
		return h.ApplySelectInModal(ctx, m, a)
	case pagemodel.DatepickerAction:
		return h.ApplyDatepickerInModal(ctx, m, a)
	}
	return "", "", fmt.Errorf("%w %T", pagemodel.ErrUnknownAction, action)
}

// ApplySelectInModal opens the dropdown labelled action.Label inside the
// dialog and picks an option with the same policy as top filters.
func (h *WidgetHandler) ApplySelectInModal(ctx context.Context, m Modal, action pagemodel.SelectAction) (string, string, error) {
	scope := within(m.Root, attrSel("test-label", action.Label))
	block := within(scope, selBlock)
	if _, err := queryOne(ctx, h.driver, block); err != nil {
		return "", "", err
	}
	if err := h.driver.ClickNth(ctx, block, 0); err != nil {
		return "", "", fmt.Errorf("open modal select %q: %w", action.Label, err)
	}
	if err := h.driver.Sleep(ctx, h.timing.ClickSettle); err != nil {
		return "", "", err
	}

	valueText, value, err := h.options.pick(ctx, scope, action, action.WaitTime.Std())
	if err != nil {
		return "", "", fmt.Errorf("modal select %q: %w", action.Label, err)
	}
	h.logger.Info("Applied modal select.",
		zap.String("widget", m.Widget),
		zap.String("label", action.Label),
		zap.String("value_text", valueText),
		zap.String("value", value))
	return valueText, value, nil
}

// ApplyDatepickerInModal runs the calendar steps against the picker labelled action.Label.
func (h *WidgetHandler) ApplyDatepickerInModal(ctx context.Context, m Modal, action pagemodel.DatepickerAction) (string, string, error) {
	scope := within(m.Root, attrSel("test-label", action.Label))
	valueText, value, err := h.picker.run(ctx, scope, action)
	if err != nil {
		return "", "", fmt.Errorf("modal datepicker %q: %w", action.Label, err)
	}
	return valueText, value, nil
}

// ReadWidgetCache parses the widgetParams payloads out of the captured console output.
func (h *WidgetHandler) ReadWidgetCache(entries []capture.ConsoleEntry) []cache.ReserveWidgetItem {
	return ParseWidgetParams(entries, h.logger)
}
