// Package actions turns declared filter actions into browser interactions and
// reads back the state the dashboard renders.
package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrElementNotFound is returned when a required element is absent from the page.
var ErrElementNotFound = errors.New("element not found")

// ErrNoOption is returned when a select action cannot resolve to any option.
var ErrNoOption = errors.New("no option matches the select index")

// Element is a snapshot of a DOM element: its visible text and attributes.
type Element struct {
	Text  string
	Attrs map[string]string
}

// Attr returns the attribute value, or "" when absent.
func (e Element) Attr(name string) string {
	return e.Attrs[name]
}

// Driver is the browser surface the handlers need. Elements are addressed by
// CSS selector plus a zero-based index into the document-ordered matches.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	Query(ctx context.Context, selector string) ([]Element, error)
	// QueryIn matches selector inside the n-th element matched by scope.
	QueryIn(ctx context.Context, scope string, n int, selector string) ([]Element, error)
	ClickNth(ctx context.Context, selector string, n int) error
	HoverNth(ctx context.Context, selector string, n int) error
	ScrollNth(ctx context.Context, selector string, n int) error
	Sleep(ctx context.Context, d time.Duration) error
}

// queryOne returns the first match, or ErrElementNotFound.
func queryOne(ctx context.Context, d Driver, selector string) (Element, error) {
	els, err := d.Query(ctx, selector)
	if err != nil {
		return Element{}, fmt.Errorf("query %s: %w", selector, err)
	}
	if len(els) == 0 {
		return Element{}, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return els[0], nil
}

// attrSel renders [name="value"] with the value quoted for CSS.
func attrSel(name, value string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return fmt.Sprintf(`[%s="%s"]`, name, r.Replace(value))
}

func within(scope, selector string) string {
	return scope + " " + selector
}
