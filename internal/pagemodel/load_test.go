package pagemodel

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const expensesYAML = `
title: "Расходы => Главная"
url: expenses
urlParams:
  - { key: autotests, value: "on" }
requests:
  timeForRequestLoading: 20000
  requests: []
  validate: [log, status, existence]
topFilters:
  items:
    - key: currentUnit
      type: select
      label: "Единицы измерения:"
      value: "0"
      url: "0"
      validate: [label, value, url]
    - key: date
      type: datepicker
      label: "Дата:"
      value: "2023-09-30"
      validate: [label, value]
  actions:
    - key: currentUnit
      action: set-select-filter
      selectIndex: 2
      multiSelect: false
      waitTime: 2s
      validate:
        - { key: currentUnit, isWidget: false }
    - key: date
      action: set-datepicker-filter
      picker:
        - { action: next }
        - { action: select, select_date_index: "31" }
      waitTime: 1000
kpis:
  items: ["Расходы"]
  validate: [existence, units]
widgets:
  items:
    - key: NewExpensesTable
      title: "Исполнение бюджета по расходам"
      filters:
        - key: grbsFilter
          label: "ГРБС: "
          actions:
            - action: set-select-filter
              label: "ГРБС:"
              selectIndex: random
              multiSelect: false
              waitTime: 1000
  validate: [existence, log, filters]
`

func TestParseYAML(t *testing.T) {
	page, err := Parse([]byte(expensesYAML), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "expenses", page.URL)
	assert.Equal(t, []Param{{Key: "autotests", Value: "on"}}, page.URLParams)
	assert.Equal(t, 20*time.Second, page.Requests.TimeForRequestLoading.Std())

	require.Len(t, page.TopFilters.Items, 2)
	require.NotNil(t, page.TopFilters.Items[0].URL)
	assert.Equal(t, "0", *page.TopFilters.Items[0].URL)
	assert.Nil(t, page.TopFilters.Items[1].URL)

	require.Len(t, page.TopFilters.Actions, 2)
	sel, ok := page.TopFilters.Actions[0].Action.(SelectAction)
	require.True(t, ok, "first action should decode as a select")
	assert.Equal(t, "currentUnit", page.TopFilters.Actions[0].Key)
	assert.Equal(t, Index(2), sel.SelectIndex)
	assert.Equal(t, 2*time.Second, sel.WaitTime.Std())
	assert.Equal(t, []ValidateTarget{{Key: "currentUnit"}}, sel.Targets())

	dp, ok := page.TopFilters.Actions[1].Action.(DatepickerAction)
	require.True(t, ok, "second action should decode as a datepicker")
	assert.Equal(t, []PickerStep{{Action: StepNext}, {Action: StepSelect, Day: "31"}}, dp.Picker)
	assert.Equal(t, time.Second, dp.WaitTime.Std())

	require.Len(t, page.Widgets.Items, 1)
	wsel, ok := page.Widgets.Items[0].Filters[0].Actions[0].(SelectAction)
	require.True(t, ok)
	assert.Equal(t, Keyword(IndexRandom), wsel.SelectIndex)
	assert.Equal(t, "ГРБС:", wsel.Label)
}

func TestParseTOMLAndJSONAgree(t *testing.T) {
	tomlDoc := `
title = "Sample => ГРБС"
url = "expenses/ppp"
urlParams = []

[requests]
timeForRequestLoading = 20000
requests = []
validate = ["log", "status", "existence"]

[[topFilters.items]]
key = "currentUnit"
type = "select"
label = "Единицы измерения:"
value = "0"
url = "0"
validate = ["label", "value", "url"]

[[topFilters.actions]]
key = "currentUnit"
action = "set-select-filter"
selectIndex = 2
multiSelect = false
waitTime = 2000
validate = []
`
	jsonDoc := `{
  "title": "Sample => ГРБС",
  "url": "expenses/ppp",
  "urlParams": [],
  "requests": {"timeForRequestLoading": 20000, "requests": [], "validate": ["log", "status", "existence"]},
  "topFilters": {
    "items": [{"key": "currentUnit", "type": "select", "label": "Единицы измерения:", "value": "0", "url": "0", "validate": ["label", "value", "url"]}],
    "actions": [{"key": "currentUnit", "action": "set-select-filter", "selectIndex": 2, "multiSelect": false, "waitTime": 2000, "validate": []}]
  },
  "kpis": {"items": [], "validate": []},
  "widgets": {"items": [], "validate": []}
}`

	fromTOML, err := Parse([]byte(tomlDoc), FormatTOML)
	require.NoError(t, err)
	fromJSON, err := Parse([]byte(jsonDoc), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, fromJSON.Title, fromTOML.Title)
	assert.Equal(t, fromJSON.TopFilters.Items, fromTOML.TopFilters.Items)
	assert.Equal(t, fromJSON.TopFilters.Actions[0].Action, fromTOML.TopFilters.Actions[0].Action)
	assert.Equal(t, 20*time.Second, fromTOML.Requests.TimeForRequestLoading.Std())
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "missing title",
			doc:  `{"url": "expenses"}`,
			want: "Title",
		},
		{
			name: "unknown filter type",
			doc:  `{"title": "t", "url": "u", "topFilters": {"items": [{"key": "k", "type": "slider"}]}}`,
			want: "Type",
		},
		{
			name: "unknown action",
			doc:  `{"title": "t", "url": "u", "topFilters": {"actions": [{"key": "k", "action": "set-slider"}]}}`,
			want: "unknown action",
		},
		{
			name: "bad select index",
			doc:  `{"title": "t", "url": "u", "topFilters": {"actions": [{"key": "k", "action": "set-select-filter", "selectIndex": "middle"}]}}`,
			want: "selectIndex",
		},
		{
			name: "select step without day",
			doc:  `{"title": "t", "url": "u", "topFilters": {"actions": [{"key": "k", "action": "set-datepicker-filter", "picker": [{"action": "select"}]}]}}`,
			want: "select_date_index",
		},
		{
			name: "unknown validation",
			doc:  `{"title": "t", "url": "u", "requests": {"validate": ["speed"]}}`,
			want: "Validate",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc), FormatJSON)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestWarnings(t *testing.T) {
	doc := `{
  "title": "t", "url": "u",
  "topFilters": {
    "items": [{"key": "currentUnit", "type": "select"}],
    "actions": [
      {"key": "currentUnt", "action": "set-select-filter", "selectIndex": "first"},
      {"key": "currentUnit", "action": "set-select-filter", "selectIndex": "last",
       "validate": [{"key": "compareYears", "isWidget": false}, {"key": "x", "isWidget": true, "widget": "w"}]}
    ]
  }
}`
	page, err := Parse([]byte(doc), FormatJSON)
	require.NoError(t, err)

	warnings := Warnings(page)
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], `"currentUnt"`)
	assert.Contains(t, warnings[1], `"compareYears"`)
}

func TestLoadAndDiscover(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(expensesYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(`{"title": "a", "url": "a"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# notes"), 0o644))

	paths, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.json"), filepath.Join(dir, "b.yaml")}, paths)

	page, err := Load(paths[1])
	require.NoError(t, err)
	assert.Equal(t, "expenses", page.URL)

	_, err = Load(filepath.Join(dir, "notes.md"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestTopFilterActionRoundTripKeepsFlatShape(t *testing.T) {
	in := TopFilterAction{Key: "compareYears", Action: SelectAction{SelectIndex: Keyword(IndexRandom), MultiSelect: true, CloseOverlay: true}}
	b, err := in.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"action":"set-select-filter"`)
	assert.Contains(t, string(b), `"key":"compareYears"`)

	var out TopFilterAction
	require.NoError(t, out.UnmarshalJSON(b))
	assert.Equal(t, in, out)
}

func TestShippedPages(t *testing.T) {
	paths, err := Discover(filepath.Join("..", "..", "pages"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		page, err := Load(path)
		require.NoError(t, err, path)
		assert.Empty(t, Warnings(page), path)
	}
}
