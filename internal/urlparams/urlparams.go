// Package urlparams builds and reads the query strings the dashboard keeps its
// filter state in. Values are written and read verbatim: no escaping is applied
// in either direction, matching how the dashboard itself formats its URLs.
package urlparams

import (
	"strings"

	"github.com/xkilldash9x/dashprobe/internal/pagemodel"
)

// Encode renders the page's fixed params followed by every top filter that
// declares a URL binding, in declaration order.
func Encode(page *pagemodel.Page) string {
	pairs := make([]string, 0, len(page.URLParams)+len(page.TopFilters.Items))
	for _, p := range page.URLParams {
		pairs = append(pairs, p.Key+"="+p.Value)
	}
	for _, it := range page.TopFilters.Items {
		if it.URL != nil && *it.URL != "" {
			pairs = append(pairs, it.Key+"="+*it.URL)
		}
	}
	return strings.Join(pairs, "&")
}

// Address joins the base URL, the page path and the encoded params.
func Address(baseURL string, page *pagemodel.Page) string {
	return baseURL + page.URL + "?" + Encode(page)
}

// Decode reads the query string of a live address into a map. Everything
// after the first '?' is split on '&' and then on '='. A later duplicate key
// overwrites an earlier one. A pair without '=' maps to the empty string.
// Input without '?' is read as a bare query when it looks like one
// ("x=1&y=2"); an address or path without a query yields an empty map.
func Decode(currentURL string) map[string]string {
	params := make(map[string]string)
	_, query, found := strings.Cut(currentURL, "?")
	if !found {
		if !strings.Contains(currentURL, "=") || strings.Contains(currentURL, "/") {
			return params
		}
		query = currentURL
	}
	if query == "" {
		return params
	}
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		// "a=b=c" keeps only "b", as the dashboard's own parser does.
		value, _, _ = strings.Cut(value, "=")
		params[key] = value
	}
	return params
}

// Lookup returns the bound value for key, treating an empty value as absent.
func Lookup(params map[string]string, key string) (string, bool) {
	v, ok := params[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
