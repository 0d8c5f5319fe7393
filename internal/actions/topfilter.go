package actions

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/xkilldash9x/dashprobe/internal/cache"
	"github.com/xkilldash9x/dashprobe/internal/config"
	"github.com/xkilldash9x/dashprobe/internal/pagemodel"
	"github.com/xkilldash9x/dashprobe/internal/urlparams"
)

const topFilterRegion = ".header-filter"

// TopFilterHandler reads and drives the page-level filters. It keeps no state
// between calls; every method works on a freshly located element.
type TopFilterHandler struct {
	driver  Driver
	timing  config.TimingConfig
	options *optionPicker
	picker  *datepicker
	logger  *zap.Logger
}

// NewTopFilterHandler builds a handler. rng drives random option selection.
func NewTopFilterHandler(d Driver, timing config.TimingConfig, rng *rand.Rand, logger *zap.Logger) *TopFilterHandler {
	logger = logger.Named("top_filters")
	return &TopFilterHandler{
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

// Selector returns the CSS selector of the filter tagged with key.
func (h *TopFilterHandler) Selector(key string) string {
	return within(topFilterRegion, attrSel("test-key", key))
}

// Locate finds the filter tagged with key.
func (h *TopFilterHandler) Locate(ctx context.Context, key string) (Element, error) {
	return queryOne(ctx, h.driver, h.Selector(key))
}

// ReadExistence reports whether the filter is rendered, with its label and display text.
func (h *TopFilterHandler) ReadExistence(ctx context.Context, key string) (bool, string, string, error) {
	el, err := h.Locate(ctx, key)
	if errors.Is(err, ErrElementNotFound) {
		return false, "", "", nil
	}
	if err != nil {
		return false, "", "", err
	}
	return true, el.Attr("test-label"), el.Attr("test-value-text"), nil
}

// ReadValue reports whether the filter is rendered, with its raw value.
func (h *TopFilterHandler) ReadValue(ctx context.Context, key string) (bool, string, error) {
	el, err := h.Locate(ctx, key)
	if errors.Is(err, ErrElementNotFound) {
		return false, "", nil
	}
	if err != nil {
		return false, "", err
	}
	return true, el.Attr("test-value"), nil
}

// ReadURLBinding returns the filter's value in the current address, if bound.
func (h *TopFilterHandler) ReadURLBinding(ctx context.Context, key string) (string, bool, error) {
	current, err := h.driver.CurrentURL(ctx)
	if err != nil {
		return "", false, fmt.Errorf("read current url: %w", err)
	}
	v, ok := urlparams.Lookup(urlparams.Decode(current), key)
	return v, ok, nil
}

// Snapshot reads every rendered filter and its URL binding.
func (h *TopFilterHandler) Snapshot(ctx context.Context) ([]cache.ReserveItem, error) {
	els, err := h.driver.Query(ctx, within(topFilterRegion, "[test-key]"))
	if err != nil {
		return nil, fmt.Errorf("list top filters: %w", err)
	}
	current, err := h.driver.CurrentURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("read current url: %w", err)
	}
	params := urlparams.Decode(current)

	items := make([]cache.ReserveItem, 0, len(els))
	for _, el := range els {
		key := el.Attr("test-key")
		item := cache.ReserveItem{
			Key:       key,
			Label:     el.Attr("test-label"),
			ValueText: el.Attr("test-value-text"),
			Value:     el.Attr("test-value"),
		}
		if v, ok := urlparams.Lookup(params, key); ok {
			item.URL = &v
		}
		items = append(items, item)
	}
	return items, nil
}

// Apply dispatches on the action variant.
func (h *TopFilterHandler) Apply(ctx context.Context, item pagemodel.TopFilterItem, action pagemodel.Action) (string, string, error) {
	switch a := action.(type) {
	case pagemodel.SelectAction:
		return h.ApplySelect(ctx, item, a)
	case pagemodel.DatepickerAction:
		return h.ApplyDatepicker(ctx, item, a)
	}
	return "", "", fmt.Errorf("%w %T", pagemodel.ErrUnknownAction, action)
}

// ApplySelect opens the dropdown, picks the option the action resolves to and
// returns the new display text and value.
func (h *TopFilterHandler) ApplySelect(ctx context.Context, item pagemodel.TopFilterItem, action pagemodel.SelectAction) (string, string, error) {
	scope := h.Selector(item.Key)
	if _, err := h.Locate(ctx, item.Key); err != nil {
		return "", "", err
	}

	preview := within(scope, selPreview)
	if err := h.driver.ScrollNth(ctx, preview, 0); err != nil {
		return "", "", fmt.Errorf("open select %s: %w", item.Key, err)
	}
	if err := h.driver.ClickNth(ctx, preview, 0); err != nil {
		return "", "", fmt.Errorf("open select %s: %w", item.Key, err)
	}
	if err := h.driver.Sleep(ctx, h.timing.OptionCommit); err != nil {
		return "", "", err
	}

	valueText, value, err := h.options.pick(ctx, scope, action, action.WaitTime.Std())
	if err != nil {
		return "", "", fmt.Errorf("select %s: %w", item.Key, err)
	}
	h.logger.Info("Applied select filter.",
		zap.String("key", item.Key),
		zap.Stringer("index", action.SelectIndex),
		zap.String("value_text", valueText),
		zap.String("value", value))
	return valueText, value, nil
}

// ApplyDatepicker walks the calendar and returns the picked date as
// display text and value.
func (h *TopFilterHandler) ApplyDatepicker(ctx context.Context, item pagemodel.TopFilterItem, action pagemodel.DatepickerAction) (string, string, error) {
	if _, err := h.Locate(ctx, item.Key); err != nil {
		return "", "", err
	}
	valueText, value, err := h.picker.run(ctx, h.Selector(item.Key), action)
	if err != nil {
		return "", "", fmt.Errorf("datepicker %s: %w", item.Key, err)
	}
	h.logger.Info("Applied datepicker filter.",
		zap.String("key", item.Key),
		zap.String("value_text", valueText),
		zap.String("value", value))
	return valueText, value, nil
}
