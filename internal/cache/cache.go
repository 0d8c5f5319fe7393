// Package cache keeps the orchestrator's snapshot of what the page last
// showed: captured requests, the rendered top filters and the widget state
// the dashboard logged. Every refresh replaces a slot wholesale.
package cache

import "github.com/xkilldash9x/dashprobe/internal/capture"

// ReserveItem is the live state of one top filter.
type ReserveItem struct {
	Key       string  `json:"key"`
	Label     string  `json:"label"`
	ValueText string  `json:"valueText"`
	Value     string  `json:"value"`
	URL       *string `json:"url"`
}

// ReserveWidgetFilter is a widget filter as reported by the dashboard's own log output.
type ReserveWidgetFilter struct {
	Key       string `json:"key"`
	Title     string `json:"title"`
	ValueText string `json:"valueText"`
	Value     string `json:"value"`
}

// ReserveWidgetItem is one widgetParams payload.
type ReserveWidgetItem struct {
	ReserveItem
	Widget  string                `json:"widget"`
	Filters []ReserveWidgetFilter `json:"filters"`
}

// Filter returns the reported filter with the given key.
func (w ReserveWidgetItem) Filter(key string) (ReserveWidgetFilter, bool) {
	for _, f := range w.Filters {
		if f.Key == key {
			return f, true
		}
	}
	return ReserveWidgetFilter{}, false
}

// Cache is owned by a single orchestrator and is only touched from its
// sequential steps, so it carries no lock.
type Cache struct {
	Requests   []capture.Request
	TopFilters []ReserveItem
	Widgets    []ReserveWidgetItem
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{
		Requests:   []capture.Request{},
		TopFilters: []ReserveItem{},
		Widgets:    []ReserveWidgetItem{},
	}
}

// ReplaceRequests overwrites the request slot.
func (c *Cache) ReplaceRequests(reqs []capture.Request) {
	c.Requests = append([]capture.Request{}, reqs...)
}

// ReplaceTopFilters overwrites the top filter slot.
func (c *Cache) ReplaceTopFilters(items []ReserveItem) {
	c.TopFilters = append([]ReserveItem{}, items...)
}

// ReplaceWidgets overwrites the widget slot. Several payloads for the same
// widget collapse to the last one logged, kept at the position where that
// widget first appeared.
func (c *Cache) ReplaceWidgets(items []ReserveWidgetItem) {
	out := make([]ReserveWidgetItem, 0, len(items))
	pos := make(map[string]int, len(items))
	for _, it := range items {
		if i, ok := pos[it.Widget]; ok {
			out[i] = it
			continue
		}
		pos[it.Widget] = len(out)
		out = append(out, it)
	}
	c.Widgets = out
}

// TopFilter returns the cached state of the top filter with the given key.
func (c *Cache) TopFilter(key string) (ReserveItem, bool) {
	for _, it := range c.TopFilters {
		if it.Key == key {
			return it, true
		}
	}
	return ReserveItem{}, false
}

// Widget returns the cached payload for the given widget key.
func (c *Cache) Widget(key string) (ReserveWidgetItem, bool) {
	for _, it := range c.Widgets {
		if it.Widget == key {
			return it, true
		}
	}
	return ReserveWidgetItem{}, false
}
