package actions_test

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/dashprobe/internal/actions"
	"github.com/xkilldash9x/dashprobe/internal/browser/browsertest"
	"github.com/xkilldash9x/dashprobe/internal/config"
	"github.com/xkilldash9x/dashprobe/internal/pagemodel"
)

const headerHTML = `<html><body>
<div class="header-filter">
  <div test-key="year" test-label="Год:" test-value="2023" test-value-text="2023">
    <div class="custom-select-component__preview-text-block">2023</div>
    <div class="custom-select-component__option" select-text="2021" select-value="2021"></div>
    <div class="custom-select-component__option" select-text="2022" select-value="2022"></div>
    <div class="custom-select-component__option" select-text="2023" select-value="2023"></div>
    <div class="custom-select-component__overlay"></div>
  </div>
  <div test-key="date" test-label="Дата:" test-value="2023-09-30" test-value-text="30.09.2023">
    <div class="vuejs3-datepicker__value">30.09.2023</div>
    <div class="vuejs3-datepicker__calendar">
      <span class="prev">&lt;</span>
      <span class="day__month_btn">Ноя. 2023</span>
      <span class="next">&gt;</span>
      <span class="cell">1</span>
      <span class="cell">30</span>
      <span class="cell">31</span>
    </div>
  </div>
</div>
</body></html>`

const (
	yearScope   = `.header-filter [test-key="year"]`
	yearOptions = yearScope + ` .custom-select-component__option`
	dateScope   = `.header-filter [test-key="date"]`
)

func testTiming() config.TimingConfig {
	return config.TimingConfig{
		ClickSettle:       500 * time.Millisecond,
		OptionCommit:      time.Second,
		ModalSettle:       500 * time.Millisecond,
		NavigationTimeout: time.Minute,
	}
}

func newTopFilters(t *testing.T, page *browsertest.Page, seed uint64) *actions.TopFilterHandler {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed))
	return actions.NewTopFilterHandler(page, testTiming(), rng, zaptest.NewLogger(t))
}

// commitOption mirrors what the dashboard does when an option is clicked.
func commitOption(scope string) browsertest.ClickHook {
	return func(p *browsertest.Page, n int) {
		opt := p.Doc().Find(scope + " .custom-select-component__option").Eq(n)
		text, _ := opt.Attr("select-text")
		value, _ := opt.Attr("select-value")
		p.SetAttr(scope, "test-value-text", text)
		p.SetAttr(scope, "test-value", value)
	}
}

func TestResolveOption(t *testing.T) {
	tests := []struct {
		name   string
		n      int
		idx    pagemodel.SelectIndex
		want   int
		wantOK bool
	}{
		{"numeric in range", 3, pagemodel.Index(1), 1, true},
		{"numeric out of range", 3, pagemodel.Index(5), -1, false},
		{"first", 3, pagemodel.Keyword(pagemodel.IndexFirst), 0, true},
		{"last", 3, pagemodel.Keyword(pagemodel.IndexLast), 2, true},
		{"last of one", 1, pagemodel.Keyword(pagemodel.IndexLast), 0, true},
		{"first of none", 0, pagemodel.Keyword(pagemodel.IndexFirst), -1, false},
		{"random of none", 0, pagemodel.Keyword(pagemodel.IndexRandom), -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := actions.ResolveOption(tt.n, tt.idx, rand.New(rand.NewPCG(1, 1)))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveOption_RandomStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 200; i++ {
		got, ok := actions.ResolveOption(4, pagemodel.Keyword(pagemodel.IndexRandom), rng)
		require.True(t, ok)
		require.GreaterOrEqual(t, got, 0)
		require.Less(t, got, 4)
	}
}

func TestResolveOption_RandomIsUniform(t *testing.T) {
	const (
		options = 5
		draws   = 10000
	)
	rng := rand.New(rand.NewPCG(42, 1024))
	counts := make([]int, options)
	for i := 0; i < draws; i++ {
		got, ok := actions.ResolveOption(options, pagemodel.Keyword(pagemodel.IndexRandom), rng)
		require.True(t, ok)
		counts[got]++
	}
	for i, c := range counts {
		assert.InDelta(t, draws/options, c, draws/options*0.1, "option %d picked %d times", i, c)
	}
}

func TestApplySelect_ByIndex(t *testing.T) {
	page := browsertest.New(t, headerHTML)
	page.OnClick(yearOptions, commitOption(yearScope))
	h := newTopFilters(t, page, 1)

	item := pagemodel.TopFilterItem{Key: "year", Type: pagemodel.FilterSelect}
	action := pagemodel.SelectAction{
		SelectIndex: pagemodel.Index(1),
		WaitTime:    pagemodel.Duration(2 * time.Second),
	}

	valueText, value, err := h.Apply(context.Background(), item, action)
	require.NoError(t, err)
	assert.Equal(t, "2022", valueText)
	assert.Equal(t, "2022", value)

	found, live, err := h.ReadValue(context.Background(), "year")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "2022", live)

	clicks := page.Clicks()
	require.Len(t, clicks, 2)
	assert.Equal(t, yearScope+" .custom-select-component__preview-text-block", clicks[0].Selector)
	assert.Equal(t, browsertest.Interaction{Kind: "click", Selector: yearOptions, N: 1}, clicks[1])

	// open commit, option commit, then the action's own wait
	assert.Equal(t, []time.Duration{time.Second, time.Second, 2 * time.Second}, page.Sleeps())
}

func TestApplySelect_RandomUsesInjectedSource(t *testing.T) {
	want, ok := actions.ResolveOption(3, pagemodel.Keyword(pagemodel.IndexRandom), rand.New(rand.NewPCG(42, 42)))
	require.True(t, ok)

	page := browsertest.New(t, headerHTML)
	page.OnClick(yearOptions, commitOption(yearScope))
	h := newTopFilters(t, page, 42)

	_, _, err := h.ApplySelect(context.Background(),
		pagemodel.TopFilterItem{Key: "year"},
		pagemodel.SelectAction{SelectIndex: pagemodel.Keyword(pagemodel.IndexRandom)})
	require.NoError(t, err)

	clicks := page.Clicks()
	require.Len(t, clicks, 2)
	assert.Equal(t, want, clicks[1].N)
}

func TestApplySelect_CloseOverlay(t *testing.T) {
	page := browsertest.New(t, headerHTML)
	h := newTopFilters(t, page, 1)

	_, _, err := h.ApplySelect(context.Background(),
		pagemodel.TopFilterItem{Key: "year"},
		pagemodel.SelectAction{SelectIndex: pagemodel.Keyword(pagemodel.IndexLast), CloseOverlay: true})
	require.NoError(t, err)

	clicks := page.Clicks()
	require.Len(t, clicks, 3)
	assert.Equal(t, yearScope+" .custom-select-component__overlay", clicks[2].Selector)
}

func TestApplySelect_MultiSelectReadsAggregate(t *testing.T) {
	page := browsertest.New(t, headerHTML)
	page.OnClick(yearOptions, func(p *browsertest.Page, n int) {
		p.SetAttr(yearScope, "test-value-text", "2021, 2023")
		p.SetAttr(yearScope, "test-value", "2021,2023")
	})
	h := newTopFilters(t, page, 1)

	valueText, value, err := h.ApplySelect(context.Background(),
		pagemodel.TopFilterItem{Key: "year"},
		pagemodel.SelectAction{SelectIndex: pagemodel.Keyword(pagemodel.IndexFirst), MultiSelect: true})
	require.NoError(t, err)
	assert.Equal(t, "2021, 2023", valueText)
	assert.Equal(t, "2021,2023", value)
}

func TestApplySelect_Errors(t *testing.T) {
	page := browsertest.New(t, headerHTML)
	h := newTopFilters(t, page, 1)
	ctx := context.Background()

	_, _, err := h.ApplySelect(ctx, pagemodel.TopFilterItem{Key: "missing"}, pagemodel.SelectAction{SelectIndex: pagemodel.Index(0)})
	assert.ErrorIs(t, err, actions.ErrElementNotFound)

	_, _, err = h.ApplySelect(ctx, pagemodel.TopFilterItem{Key: "year"}, pagemodel.SelectAction{SelectIndex: pagemodel.Index(9)})
	assert.ErrorIs(t, err, actions.ErrNoOption)
}

func TestApplyDatepicker(t *testing.T) {
	page := browsertest.New(t, headerHTML)
	page.OnClick(dateScope+" .vuejs3-datepicker__calendar .next", func(p *browsertest.Page, _ int) {
		p.SetText(dateScope+" .day__month_btn", "Дек. 2023")
	})
	h := newTopFilters(t, page, 1)

	action := pagemodel.DatepickerAction{
		Picker: []pagemodel.PickerStep{
			{Action: pagemodel.StepNext},
			{Action: pagemodel.StepSelect, Day: "31"},
		},
	}
	valueText, value, err := h.Apply(context.Background(), pagemodel.TopFilterItem{Key: "date", Type: pagemodel.FilterDatepicker}, action)
	require.NoError(t, err)
	assert.Equal(t, "31.12.2023", valueText)
	assert.Equal(t, "2023-12-31", value)

	clicks := page.Clicks()
	require.Len(t, clicks, 3)
	assert.Equal(t, browsertest.Interaction{Kind: "click", Selector: dateScope + " .vuejs3-datepicker__calendar .cell", N: 2}, clicks[2])
}

func TestApplyDatepicker_NoMatchingDay(t *testing.T) {
	page := browsertest.New(t, headerHTML)
	h := newTopFilters(t, page, 1)

	valueText, value, err := h.ApplyDatepicker(context.Background(),
		pagemodel.TopFilterItem{Key: "date"},
		pagemodel.DatepickerAction{Picker: []pagemodel.PickerStep{{Action: pagemodel.StepSelect, Day: "15"}}})
	require.NoError(t, err)
	assert.Empty(t, valueText)
	assert.Empty(t, value)
}

func TestFormatDate(t *testing.T) {
	valueText, value, err := actions.FormatDate("31", "Дек. 2023")
	require.NoError(t, err)
	assert.Equal(t, "31.12.2023", valueText)
	assert.Equal(t, "2023-12-31", value)

	valueText, value, err = actions.FormatDate("5", "Янв. 2024")
	require.NoError(t, err)
	assert.Equal(t, "05.01.2024", valueText)
	assert.Equal(t, "2024-01-05", value)

	_, _, err = actions.FormatDate("5", "January 2024")
	assert.ErrorIs(t, err, actions.ErrUnknownMonth)
	_, _, err = actions.FormatDate("5", "Foo. 2024")
	assert.ErrorIs(t, err, actions.ErrUnknownMonth)
}

func TestTopFilterReads(t *testing.T) {
	page := browsertest.New(t, headerHTML)
	page.SetURL("http://localhost:5173/#/expenses?year=2023&region=")
	h := newTopFilters(t, page, 1)
	ctx := context.Background()

	found, label, valueText, err := h.ReadExistence(ctx, "year")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Год:", label)
	assert.Equal(t, "2023", valueText)

	found, _, _, err = h.ReadExistence(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, found)

	v, ok, err := h.ReadURLBinding(ctx, "year")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2023", v)

	_, ok, err = h.ReadURLBinding(ctx, "region")
	require.NoError(t, err)
	assert.False(t, ok, "empty values count as unbound")

	items, err := h.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "year", items[0].Key)
	require.NotNil(t, items[0].URL)
	assert.Equal(t, "2023", *items[0].URL)
	assert.Equal(t, "date", items[1].Key)
	assert.Equal(t, "30.09.2023", items[1].ValueText)
	assert.Nil(t, items[1].URL)
}
