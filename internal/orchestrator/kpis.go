package orchestrator

import (
	"context"
	"strings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/dashprobe/internal/actions"
	"github.com/xkilldash9x/dashprobe/internal/pagemodel"
	"github.com/xkilldash9x/dashprobe/internal/predicate"
	"github.com/xkilldash9x/dashprobe/internal/scenario"
)

// compareYearsKey is the top filter whose value lists the years KPI units compare against.
const compareYearsKey = "compareYears"

func (h *PageHandler) kpisGroup() *scenario.Group {
	g := scenario.Describe("Running the TOP KPI-s")
	kpis := h.page.KPIs

	if predicate.Enabled(kpis.Validate, pagemodel.CheckExistence) {
		g.Add(scenario.It("Validating the existence of the KPIs", func(ctx context.Context, t *scenario.T) {
			live, err := actions.ReadKPIs(ctx, h.session)
			require.NoError(t, err)
			titles := make([]string, len(live))
			for i, k := range live {
				titles[i] = k.Title
			}
			for _, want := range kpis.Items {
				assert.Contains(t, titles, want, "kpi %q is not rendered", want)
			}
		}))
	}
	if predicate.Enabled(kpis.Validate, pagemodel.CheckUnits) {
		g.Add(scenario.It("Validating the compare units of the KPIs", func(ctx context.Context, t *scenario.T) {
			// Without the filter nothing is comparable; only a shown unit fails.
			var years []string
			if cached, ok := h.cache.TopFilter(compareYearsKey); ok {
				years = strings.Split(cached.Value, ",")
			}

			live, err := actions.ReadKPIs(ctx, h.session)
			require.NoError(t, err)
			for _, k := range live {
				if !declared(kpis.Items, k.Title) {
					continue
				}
				for _, unit := range k.Units {
					assert.Contains(t, years, unit, "kpi %q compares against %q", k.Title, unit)
				}
			}
		}))
	}
	return g
}

func declared(items []string, title string) bool {
	for _, it := range items {
		if it == title {
			return true
		}
	}
	return false
}
