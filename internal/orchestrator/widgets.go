package orchestrator

import (
	"context"
	"fmt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/dashprobe/internal/checks"
	"github.com/xkilldash9x/dashprobe/internal/pagemodel"
	"github.com/xkilldash9x/dashprobe/internal/predicate"
	"github.com/xkilldash9x/dashprobe/internal/scenario"
)

func (h *PageHandler) widgetsGroup() *scenario.Group {
	g := scenario.Describe("Running the WIDGET-s")
	for _, w := range h.page.Widgets.Items {
		g.Add(h.widgetGroup(w))
	}
	return g
}

func (h *PageHandler) widgetGroup(w pagemodel.Widget) *scenario.Group {
	validate := h.page.Widgets.Validate
	g := scenario.Describe(fmt.Sprintf(`Initializing/Validating the "%s => (%s)"`, w.Title, w.Key))

	if predicate.Enabled(validate, pagemodel.CheckExistence) {
		g.Add(scenario.Describe(fmt.Sprintf(`Validating the existence of the "%s"`, w.Title),
			scenario.It("Checking the existence of the widget", func(ctx context.Context, t *scenario.T) {
				require.NoError(t, h.widgets.GoTo(ctx, w.Key), "widget %q", w.Key)
				found, title, err := h.widgets.ReadTitle(ctx, w.Key)
				require.NoError(t, err)
				require.True(t, found, "widget %q is not rendered", w.Key)
				assert.Equal(t, w.Title, title)
			}),
		))
	}
	if predicate.Enabled(validate, pagemodel.CheckLog) {
		g.Add(scenario.Describe(fmt.Sprintf(`Validating the logs of the "%s"`, w.Title),
			scenario.It("Checking the logs of the widget", func(ctx context.Context, t *scenario.T) {
				ok, hits := checks.WidgetConsoleLogs(h.session.ConsoleEntries(), w.Key)
				assert.True(t, ok, "severe console output mentions %q: %v", w.Key, texts(hits))
			}),
		))
	}
	if predicate.Enabled(validate, pagemodel.CheckFilters) && len(w.Filters) > 0 {
		fg := scenario.Describe(fmt.Sprintf(`Validating the filters of the "%s"`, w.Title))
		for _, f := range w.Filters {
			fg.Add(h.widgetFilterGroup(w, f))
		}
		g.Add(fg)
	}
	return g
}

func (h *PageHandler) widgetFilterGroup(w pagemodel.Widget, f pagemodel.WidgetFilter) *scenario.Group {
	g := scenario.Describe(fmt.Sprintf(`Validating & Handling action of the filter "%s"`, f.Key),
		scenario.It("Checking the existence of the filter", func(ctx context.Context, t *scenario.T) {
			cached, ok := h.cache.Widget(w.Key)
			if !ok {
				t.Skipf("widget %q reported no params", w.Key)
			}
			cachedFilter, ok := cached.Filter(f.Key)
			if !ok {
				t.Skipf("widget %q reported no filter %q", w.Key, f.Key)
			}

			found, title, value, err := h.widgets.ReadFilterExistence(ctx, w.Key, f.Key)
			require.NoError(t, err)
			require.True(t, found, "filter %q is not rendered in widget %q", f.Key, w.Key)
			assert.Contains(t, title, cachedFilter.Title)
			assert.Contains(t, value, cachedFilter.ValueText)
		}),
	)

	g.Add(scenario.It(fmt.Sprintf(`Handling the actions of the filter "%s"`, f.Key), func(ctx context.Context, t *scenario.T) {
		modal, err := h.widgets.OpenFilterModal(ctx, w.Key)
		require.NoError(t, err)

		for _, action := range f.Actions {
			valueText, value, err := h.widgets.ApplyInModal(ctx, modal, action)
			if err != nil {
				h.logger.Warn("Widget filter action did not apply.",
					zap.String("widget", w.Key), zap.String("filter", f.Key), zap.Error(err))
				t.Logf("action %s on %q did not apply: %v", action.Kind(), f.Key, err)
				continue
			}
			h.logger.Info("Widget filter action applied.",
				zap.String("widget", w.Key),
				zap.String("filter", f.Key),
				zap.String("value_text", valueText),
				zap.String("value", value))
			t.Logf("%s picked %q (%s)", f.Key, valueText, value)
		}
	}))
	return g
}
