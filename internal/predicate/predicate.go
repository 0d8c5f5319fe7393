// Package predicate answers whether a named validation is switched on for a
// page or one of its parts.
package predicate

import (
	"strings"

	json "github.com/json-iterator/go"
	"github.com/tidwall/gjson"
)

// IsEnabled walks entity along dottedPath and reports whether name is a
// member of the list found there. Empty and "." segments are ignored, so "."
// addresses the entity itself; when the path lands on an object its
// "validate" list is used. A path that does not resolve to a list means the
// validation is not configured and yields false.
func IsEnabled(entity any, dottedPath, name string) bool {
	raw, err := json.Marshal(entity)
	if err != nil {
		return false
	}

	node := gjson.ParseBytes(raw)
	if p := gjsonPath(dottedPath); p != "" {
		node = node.Get(p)
	}
	if node.IsObject() {
		node = node.Get("validate")
	}
	if !node.IsArray() {
		return false
	}

	found := false
	node.ForEach(func(_, v gjson.Result) bool {
		if v.Type == gjson.String && v.Str == name {
			found = true
			return false
		}
		return true
	})
	return found
}

// Enabled is the typed form used once a validate list has already been reached.
func Enabled(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}

// gjsonPath drops empty segments and escapes gjson's wildcard and modifier
// characters so field names are matched literally.
func gjsonPath(dotted string) string {
	var parts []string
	for _, seg := range strings.Split(dotted, ".") {
		if seg == "" {
			continue
		}
		parts = append(parts, escape(seg))
	}
	return strings.Join(parts, ".")
}

func escape(seg string) string {
	var b strings.Builder
	for _, r := range seg {
		switch r {
		case '*', '?', '|', '#', '@', '!', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
