package actions_test

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/dashprobe/internal/actions"
	"github.com/xkilldash9x/dashprobe/internal/browser/browsertest"
	"github.com/xkilldash9x/dashprobe/internal/capture"
	"github.com/xkilldash9x/dashprobe/internal/pagemodel"
)

const widgetHTML = `<html><body>
<div class="small-kpi">
  <div class="small-kpi__title">Расходы</div>
  <span class="ps-1">к 2022</span>
  <span class="ps-1">к 2021</span>
</div>
<div class="small-kpi">
  <div class="small-kpi__title">Доходы</div>
</div>
<article widget-key="w1">
  <h3 class="card__header"> Исполнение бюджета </h3>
  <div test-block-name="period" test-block-title="Период" test-block-value="2023"></div>
  <button test-modal-opener="btn"></button>
  <div class="modal-wrapper">
    <div test-label="Период" test-value="2023" test-value-text="2023">
      <div class="custom-select-component__block"></div>
      <div class="custom-select-component__option" select-text="2022 год" select-value="2022"></div>
      <div class="custom-select-component__option" select-text="2023 год" select-value="2023"></div>
      <div class="custom-select-component__overlay"></div>
    </div>
  </div>
</article>
</body></html>`

const modalScope = `[widget-key="w1"] .modal-wrapper [test-label="Период"]`

func newWidgets(t *testing.T, page *browsertest.Page) *actions.WidgetHandler {
	t.Helper()
	return actions.NewWidgetHandler(page, testTiming(), rand.New(rand.NewPCG(3, 3)), zaptest.NewLogger(t))
}

func TestWidgetReads(t *testing.T) {
	page := browsertest.New(t, widgetHTML)
	h := newWidgets(t, page)
	ctx := context.Background()

	require.NoError(t, h.GoTo(ctx, "w1"))
	assert.Equal(t, []browsertest.Interaction{{Kind: "scroll", Selector: `article[widget-key="w1"]`}}, page.Interactions())

	found, title, err := h.ReadTitle(ctx, "w1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Исполнение бюджета", title)

	found, _, err = h.ReadTitle(ctx, "w2")
	require.NoError(t, err)
	assert.False(t, found)
	assert.ErrorIs(t, h.GoTo(ctx, "w2"), actions.ErrElementNotFound)

	found, label, value, err := h.ReadFilterExistence(ctx, "w1", "period")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Период", label)
	assert.Equal(t, "2023", value)

	found, _, _, err = h.ReadFilterExistence(ctx, "w1", "region")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestWidgetModalSelect(t *testing.T) {
	page := browsertest.New(t, widgetHTML)
	h := newWidgets(t, page)
	ctx := context.Background()

	modal, err := h.OpenFilterModal(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, "w1", modal.Widget)

	valueText, value, err := h.ApplyInModal(ctx, modal, pagemodel.SelectAction{
		Label:        "Период",
		SelectIndex:  pagemodel.Keyword(pagemodel.IndexFirst),
		CloseOverlay: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "2022 год", valueText)
	assert.Equal(t, "2022", value)

	want := []browsertest.Interaction{
		{Kind: "hover", Selector: `[widget-key="w1"] [test-modal-opener="btn"]`},
		{Kind: "click", Selector: `[widget-key="w1"] [test-modal-opener="btn"]`},
		{Kind: "click", Selector: modalScope + " .custom-select-component__block"},
		{Kind: "click", Selector: modalScope + " .custom-select-component__option", N: 0},
		{Kind: "click", Selector: modalScope + " .custom-select-component__overlay"},
	}
	assert.Equal(t, want, page.Interactions())
}

func TestWidgetModal_MissingLabel(t *testing.T) {
	page := browsertest.New(t, widgetHTML)
	h := newWidgets(t, page)
	ctx := context.Background()

	modal, err := h.OpenFilterModal(ctx, "w1")
	require.NoError(t, err)

	_, _, err = h.ApplySelectInModal(ctx, modal, pagemodel.SelectAction{Label: "Регион", SelectIndex: pagemodel.Index(0)})
	assert.ErrorIs(t, err, actions.ErrElementNotFound)

	_, err = h.OpenFilterModal(ctx, "w9")
	assert.ErrorIs(t, err, actions.ErrElementNotFound)
}

func TestReadKPIs(t *testing.T) {
	page := browsertest.New(t, widgetHTML)

	kpis, err := actions.ReadKPIs(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, []actions.KPI{
		{Title: "Расходы", Units: []string{"2022", "2021"}},
		{Title: "Доходы", Units: []string{}},
	}, kpis)
}

func TestParseWidgetParams(t *testing.T) {
	entries := []capture.ConsoleEntry{
		{
			Level: capture.SeverityInfo,
			Text:  `app.js 10:2 "widgetParams" "{...}"`,
			Args: []string{
				`"widgetParams"`,
				`"{\"widget\":\"w1\",\"key\":\"k1\",\"value\":2023,\"url\":null,\"filters\":[{\"key\":\"period\",\"title\":\"Период\",\"valueText\":\"2023\",\"value\":2023}]}"`,
			},
		},
		{
			Level: capture.SeverityInfo,
			Text:  `app.js 10:2 "widgetParams" "{\"widget\":\"w2\",\"url\":\"x=1\"}"`,
		},
		{
			Level: capture.SeveritySevere,
			Text:  `app.js 1:1 "widgetParams" "{\"widget\":\"w9\"}"`,
		},
		{
			Level: capture.SeverityInfo,
			Text:  `app.js 1:1 widgetParams not-json`,
		},
		{
			Level: capture.SeverityInfo,
			Text:  `app.js 1:1 {"widgetParams":{"widget":"w3"}}`,
			Args:  []string{`{"widgetParams":{"widget":"w3"}}`},
		},
		{
			Level: capture.SeverityInfo,
			Text:  `app.js 1:1 "unrelated" "{\"widget\":\"w4\"}"`,
		},
	}

	items := actions.ParseWidgetParams(entries, zaptest.NewLogger(t))
	require.Len(t, items, 3)

	assert.Equal(t, "w1", items[0].Widget)
	assert.Equal(t, "k1", items[0].Key)
	assert.Equal(t, "2023", items[0].Value)
	assert.Nil(t, items[0].URL)
	f, ok := items[0].Filter("period")
	require.True(t, ok)
	assert.Equal(t, "Период", f.Title)
	assert.Equal(t, "2023", f.Value)

	assert.Equal(t, "w2", items[1].Widget)
	require.NotNil(t, items[1].URL)
	assert.Equal(t, "x=1", *items[1].URL)
	assert.Empty(t, items[1].Filters)

	assert.Equal(t, "w3", items[2].Widget)
}

func TestParseWidgetParams_Empty(t *testing.T) {
	items := actions.ParseWidgetParams(nil, zaptest.NewLogger(t))
	assert.NotNil(t, items)
	assert.Empty(t, items)
}
