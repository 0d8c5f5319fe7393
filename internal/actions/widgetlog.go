package actions

import (
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/xkilldash9x/dashprobe/internal/cache"
	"github.com/xkilldash9x/dashprobe/internal/capture"
)

// WidgetParamsMarker tags the console lines the dashboard emits with a
// widget's reported state.
const WidgetParamsMarker = "widgetParams"

// payloads may be JSON encoded as a string, sometimes twice.
const maxStringLayers = 3

// ParseWidgetParams extracts one item per INFO entry carrying the marker.
// Entries whose payload cannot be read are skipped.
func ParseWidgetParams(entries []capture.ConsoleEntry, logger *zap.Logger) []cache.ReserveWidgetItem {
	items := make([]cache.ReserveWidgetItem, 0)
	for _, e := range entries {
		if e.Level != capture.SeverityInfo || !strings.Contains(e.Text, WidgetParamsMarker) {
			continue
		}
		payload, ok := findPayload(e)
		if !ok {
			logger.Debug("Skipping widgetParams entry without a readable payload.", zap.String("text", e.Text))
			continue
		}
		items = append(items, widgetItemFrom(payload))
	}
	return items
}

func findPayload(e capture.ConsoleEntry) (gjson.Result, bool) {
	for i := len(e.Args) - 1; i >= 0; i-- {
		if r, ok := unwrapObject(e.Args[i]); ok {
			return r, true
		}
	}
	// Fall back to the rendered message, e.g.
	//   app.js 10:2 "widgetParams" "{\"widget\":\"w1\"}"
	for i := 0; i < len(e.Text); i++ {
		if e.Text[i] != '"' && e.Text[i] != '{' {
			continue
		}
		if r, ok := unwrapObject(leadingValue(e.Text[i:])); ok {
			return r, true
		}
	}
	return gjson.Result{}, false
}

// leadingValue returns the JSON value at the start of s, or "" if s does not
// start with one.
func leadingValue(s string) string {
	r := gjson.Parse(s)
	if r.Raw == "" || !gjson.Valid(r.Raw) {
		return ""
	}
	return r.Raw
}

// unwrapObject peels string layers until it reaches an object with a widget
// key, directly or under widgetParams.
func unwrapObject(raw string) (gjson.Result, bool) {
	if raw == "" || !gjson.Valid(raw) {
		return gjson.Result{}, false
	}
	r := gjson.Parse(raw)
	for layer := 0; r.Type == gjson.String && layer < maxStringLayers; layer++ {
		if !gjson.Valid(r.Str) {
			return gjson.Result{}, false
		}
		r = gjson.Parse(r.Str)
	}
	if !r.IsObject() {
		return gjson.Result{}, false
	}
	if nested := r.Get(WidgetParamsMarker); nested.IsObject() {
		r = nested
	}
	if !r.Get("widget").Exists() {
		return gjson.Result{}, false
	}
	return r, true
}

func widgetItemFrom(r gjson.Result) cache.ReserveWidgetItem {
	item := cache.ReserveWidgetItem{
		ReserveItem: cache.ReserveItem{
			Key:       r.Get("key").String(),
			Label:     r.Get("label").String(),
			ValueText: r.Get("valueText").String(),
			Value:     r.Get("value").String(),
		},
		Widget:  r.Get("widget").String(),
		Filters: []cache.ReserveWidgetFilter{},
	}
	if u := r.Get("url"); u.Exists() && u.Type != gjson.Null {
		s := u.String()
		item.URL = &s
	}
	r.Get("filters").ForEach(func(_, f gjson.Result) bool {
		item.Filters = append(item.Filters, cache.ReserveWidgetFilter{
			Key:       f.Get("key").String(),
			Title:     f.Get("title").String(),
			ValueText: f.Get("valueText").String(),
			Value:     f.Get("value").String(),
		})
		return true
	})
	return item
}
