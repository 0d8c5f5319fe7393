package orchestrator

import (
	"context"
	"fmt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/dashprobe/internal/pagemodel"
	"github.com/xkilldash9x/dashprobe/internal/predicate"
	"github.com/xkilldash9x/dashprobe/internal/scenario"
)

func (h *PageHandler) topFiltersGroup() *scenario.Group {
	g := scenario.Describe("Running the NAVIGATION FILTERS")
	for _, item := range h.page.TopFilters.Items {
		g.Add(h.topFilterItemGroup(item))
	}
	for _, act := range h.page.TopFilters.Actions {
		g.Add(h.topFilterActionGroup(act))
	}
	return g
}

func (h *PageHandler) topFilterItemGroup(item pagemodel.TopFilterItem) *scenario.Group {
	label := displayLabel(item.Label)
	g := scenario.Describe(fmt.Sprintf(`Initializing the "%s => (%s)"`, label, item.Key))

	if predicate.IsEnabled(item, ".", pagemodel.CheckLabel) {
		g.Add(scenario.It(fmt.Sprintf(`Validating the existence of the "%s"`, label), func(ctx context.Context, t *scenario.T) {
			found, rendered, _, err := h.topFilters.ReadExistence(ctx, item.Key)
			require.NoError(t, err)
			require.True(t, found, "top filter %q is not rendered", item.Key)
			assert.Equal(t, item.Label, rendered)
		}))
	}
	if predicate.IsEnabled(item, ".", pagemodel.CheckValue) {
		g.Add(scenario.It(fmt.Sprintf(`Validating the values of the "%s"`, label), func(ctx context.Context, t *scenario.T) {
			found, value, err := h.topFilters.ReadValue(ctx, item.Key)
			require.NoError(t, err)
			require.True(t, found, "top filter %q is not rendered", item.Key)
			assert.Equal(t, item.Value, value)
		}))
	}
	if item.URL != nil && predicate.IsEnabled(item, ".", pagemodel.CheckURL) {
		want := *item.URL
		g.Add(scenario.It(fmt.Sprintf(`Validating the urls of the "%s"`, label), func(ctx context.Context, t *scenario.T) {
			got, ok, err := h.topFilters.ReadURLBinding(ctx, item.Key)
			require.NoError(t, err)
			require.True(t, ok, "%q is missing from the address", item.Key)
			assert.Equal(t, want, got)
		}))
	}
	return g
}

func (h *PageHandler) topFilterActionGroup(act pagemodel.TopFilterAction) *scenario.Group {
	item, ok := h.page.TopFilter(act.Key)
	if !ok {
		h.logger.Warn("Action refers to an undeclared top filter, skipping.", zap.String("key", act.Key))
		return &scenario.Group{
			Name: fmt.Sprintf(`Handling actions the "%s"`, act.Key),
			Skip: fmt.Sprintf("no top filter declared with key %q", act.Key),
			Children: []scenario.Node{
				scenario.It(fmt.Sprintf("(%s) New action item", act.Action.Kind()), nil),
			},
		}
	}

	label := displayLabel(item.Label)
	name := fmt.Sprintf(`(%s) New action item to "%s"`, act.Action.Kind(), label)
	return scenario.Describe(fmt.Sprintf(`Handling actions the "%s => (%s)"`, label, item.Key),
		scenario.It(name, func(ctx context.Context, t *scenario.T) {
			newText, newValue, err := h.topFilters.Apply(ctx, item, act.Action)
			require.NoError(t, err)

			_, _, valueText, err := h.topFilters.ReadExistence(ctx, item.Key)
			require.NoError(t, err)
			_, value, err := h.topFilters.ReadValue(ctx, item.Key)
			require.NoError(t, err)
			url, _, err := h.topFilters.ReadURLBinding(ctx, item.Key)
			require.NoError(t, err)

			h.assertAppliedState(t, act.Action, newText, newValue, valueText, value, url)

			require.NoError(t, h.cacheItems(ctx, slotTopFilters))
			h.crossCheckTargets(ctx, t, act.Action.Targets())
		}),
	)
}

// assertAppliedState compares what the handler reported picking with what the
// filter now shows.
func (h *PageHandler) assertAppliedState(t *scenario.T, action pagemodel.Action, newText, newValue, valueText, value, url string) {
	switch a := action.(type) {
	case pagemodel.SelectAction:
		assert.NotEmpty(t, newValue, "select returned no value")
		assert.Equal(t, newValue, value, "filter value")
		assert.Equal(t, newValue, url, "address value")
		if a.MultiSelect {
			assert.Contains(t, newText, valueText, "filter text")
		} else {
			assert.Equal(t, newText, valueText, "filter text")
		}
	case pagemodel.DatepickerAction:
		assert.Equal(t, newValue, value, "filter value")
		assert.Equal(t, newValue, url, "address value")
		assert.Equal(t, newText, valueText, "filter text")
	}
}

// crossCheckTargets compares every named top filter's live state with the
// freshly cached one.
func (h *PageHandler) crossCheckTargets(ctx context.Context, t *scenario.T, targets []pagemodel.ValidateTarget) {
	for _, target := range targets {
		if target.IsWidget {
			continue
		}
		cached, ok := h.cache.TopFilter(target.Key)
		if !ok {
			h.logger.Warn("Validate target is not a rendered top filter.", zap.String("key", target.Key))
			continue
		}
		_, _, valueText, err := h.topFilters.ReadExistence(ctx, target.Key)
		require.NoError(t, err)
		_, value, err := h.topFilters.ReadValue(ctx, target.Key)
		require.NoError(t, err)
		url, bound, err := h.topFilters.ReadURLBinding(ctx, target.Key)
		require.NoError(t, err)

		assert.Contains(t, cached.ValueText, valueText, "%s text", target.Key)
		assert.Equal(t, cached.Value, value, "%s value", target.Key)
		if cached.URL != nil || bound {
			assert.Equal(t, cached.URL, ptr(url, bound), "%s address value", target.Key)
		}
	}
}

func ptr(s string, ok bool) *string {
	if !ok {
		return nil
	}
	return &s
}
