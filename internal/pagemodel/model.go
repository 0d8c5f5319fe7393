// Package pagemodel describes a dashboard page under test: its top filters,
// KPIs, widgets and the validations and actions to run against them.
//
// Page declarations are authored as YAML, TOML or JSON files and are never
// mutated once loaded.
package pagemodel

// Validation names accepted in the various validate lists.
const (
	CheckExistence = "existence"
	CheckStatus    = "status"
	CheckLog       = "log"
	CheckLabel     = "label"
	CheckValue     = "value"
	CheckURL       = "url"
	CheckUnits     = "units"
	CheckFilters   = "filters"
)

// Filter types.
const (
	FilterSelect     = "select"
	FilterDatepicker = "datepicker"
)

// Page is the declaration of one dashboard page.
type Page struct {
	Title      string     `json:"title" validate:"required"`
	URL        string     `json:"url" validate:"required"`
	URLParams  []Param    `json:"urlParams" validate:"dive"`
	Requests   Requests   `json:"requests"`
	TopFilters TopFilters `json:"topFilters"`
	KPIs       KPIs       `json:"kpis"`
	Widgets    Widgets    `json:"widgets"`
}

// Param is a fixed query parameter appended to the page address.
type Param struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value"`
}

// Requests declares the network responses expected after the page loads.
type Requests struct {
	TimeForRequestLoading Duration `json:"timeForRequestLoading"`
	Requests              []string `json:"requests"`
	Validate              []string `json:"validate" validate:"dive,oneof=existence status log"`
}

// TopFilters lists the page-level filters and the actions to run on them.
type TopFilters struct {
	Items   []TopFilterItem   `json:"items" validate:"dive"`
	Actions []TopFilterAction `json:"actions"`
}

// TopFilterItem is the expected initial state of one page-level filter.
type TopFilterItem struct {
	Key   string `json:"key" validate:"required"`
	Type  string `json:"type" validate:"required,oneof=select datepicker"`
	Label string `json:"label"`
	Value string `json:"value"`
	// URL is the expected query parameter value; nil when the filter is not bound to the URL.
	URL      *string  `json:"url,omitempty"`
	Validate []string `json:"validate" validate:"dive,oneof=label value url"`
}

// KPIs declares the expected KPI tiles.
type KPIs struct {
	Items    []string `json:"items"`
	Validate []string `json:"validate" validate:"dive,oneof=existence units"`
}

// Widgets declares the expected report panels.
type Widgets struct {
	Items    []Widget `json:"items" validate:"dive"`
	Validate []string `json:"validate" validate:"dive,oneof=existence log filters"`
}

// Widget is a single report panel.
type Widget struct {
	Key     string         `json:"key" validate:"required"`
	Title   string         `json:"title"`
	Filters []WidgetFilter `json:"filters" validate:"dive"`
}

// WidgetFilter is a filter living inside a widget's modal dialog.
type WidgetFilter struct {
	Key     string     `json:"key" validate:"required"`
	Label   string     `json:"label"`
	Actions ActionList `json:"actions"`
}

// ValidateTarget names a filter whose state must be re-checked after an action.
type ValidateTarget struct {
	Key      string `json:"key"`
	IsWidget bool   `json:"isWidget"`
	Widget   string `json:"widget,omitempty"`
}

// TopFilter returns the declared item with the given key.
func (p *Page) TopFilter(key string) (TopFilterItem, bool) {
	for _, it := range p.TopFilters.Items {
		if it.Key == key {
			return it, true
		}
	}
	return TopFilterItem{}, false
}
