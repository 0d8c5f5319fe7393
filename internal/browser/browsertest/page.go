// Package browsertest provides an in-memory dashboard page that satisfies the
// driver and capture interfaces, so handlers and suites can be exercised
// without a browser. Selectors are evaluated by goquery against a static
// document that tests mutate from click hooks.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/dashprobe/internal/actions"
	"github.com/xkilldash9x/dashprobe/internal/capture"
)

// Interaction records one pointer action issued against the page.
type Interaction struct {
	Kind     string
	Selector string
	N        int
}

// ClickHook runs after a click on a selector matched by OnClick.
type ClickHook func(p *Page, n int)

// Page is a fake browser tab. It is safe for concurrent use.
type Page struct {
	mu           sync.Mutex
	doc          *goquery.Document
	url          string
	requests     []capture.Request
	console      []capture.ConsoleEntry
	hooks        map[string][]ClickHook
	onNavigate   func(p *Page, url string)
	interactions []Interaction
	sleeps       []time.Duration
	navigations  []string
}

var _ actions.Driver = (*Page)(nil)
var _ capture.Source = (*Page)(nil)

// New parses html into a page. It fails the test on malformed input.
func New(t testing.TB, html string) *Page {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err, "parse fake page")
	return &Page{
		doc:   doc,
		hooks: make(map[string][]ClickHook),
	}
}

// Doc exposes the document for hooks that re-render parts of the page.
func (p *Page) Doc() *goquery.Document {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc
}

// SetURL replaces the address the page reports.
func (p *Page) SetURL(url string) {
	p.mu.Lock()
	p.url = url
	p.mu.Unlock()
}

// AddRequest records a response as if the page had fetched url.
func (p *Page) AddRequest(url string, status int) {
	p.mu.Lock()
	p.requests = append(p.requests, capture.Request{URL: url, Status: status})
	p.mu.Unlock()
}

// AddConsole records a console entry.
func (p *Page) AddConsole(e capture.ConsoleEntry) {
	p.mu.Lock()
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	p.console = append(p.console, e)
	p.mu.Unlock()
}

// OnClick registers fn to run after any click whose selector equals selector.
func (p *Page) OnClick(selector string, fn ClickHook) {
	p.mu.Lock()
	p.hooks[selector] = append(p.hooks[selector], fn)
	p.mu.Unlock()
}

// OnNavigate registers fn to run after each navigation.
func (p *Page) OnNavigate(fn func(p *Page, url string)) {
	p.mu.Lock()
	p.onNavigate = fn
	p.mu.Unlock()
}

// Interactions returns the pointer actions issued so far.
func (p *Page) Interactions() []Interaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Interaction(nil), p.interactions...)
}

// Clicks returns only the click interactions.
func (p *Page) Clicks() []Interaction {
	var out []Interaction
	for _, in := range p.Interactions() {
		if in.Kind == "click" {
			out = append(out, in)
		}
	}
	return out
}

// Sleeps returns every requested pause.
func (p *Page) Sleeps() []time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]time.Duration(nil), p.sleeps...)
}

// Navigations returns the addresses passed to Navigate.
func (p *Page) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.url = url
	p.navigations = append(p.navigations, url)
	hook := p.onNavigate
	p.mu.Unlock()
	if hook != nil {
		hook(p, url)
	}
	return nil
}

func (p *Page) CurrentURL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, ctx.Err()
}

func (p *Page) Query(ctx context.Context, selector string) ([]actions.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return elements(p.doc.Find(selector)), nil
}

func (p *Page) QueryIn(ctx context.Context, scope string, n int, selector string) ([]actions.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	scoped := p.doc.Find(scope)
	if n < 0 || n >= scoped.Length() {
		return nil, fmt.Errorf("%w: %s[%d]", actions.ErrElementNotFound, scope, n)
	}
	return elements(scoped.Eq(n).Find(selector)), nil
}

func (p *Page) ClickNth(ctx context.Context, selector string, n int) error {
	if err := p.record(ctx, "click", selector, n); err != nil {
		return err
	}
	p.mu.Lock()
	hooks := append([]ClickHook(nil), p.hooks[selector]...)
	p.mu.Unlock()
	for _, h := range hooks {
		h(p, n)
	}
	return nil
}

func (p *Page) HoverNth(ctx context.Context, selector string, n int) error {
	return p.record(ctx, "hover", selector, n)
}

func (p *Page) ScrollNth(ctx context.Context, selector string, n int) error {
	return p.record(ctx, "scroll", selector, n)
}

// Sleep records d and returns immediately.
func (p *Page) Sleep(ctx context.Context, d time.Duration) error {
	p.mu.Lock()
	p.sleeps = append(p.sleeps, d)
	p.mu.Unlock()
	return ctx.Err()
}

func (p *Page) Requests() []capture.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]capture.Request(nil), p.requests...)
}

func (p *Page) ConsoleEntries() []capture.ConsoleEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]capture.ConsoleEntry(nil), p.console...)
}

func (p *Page) record(ctx context.Context, kind, selector string, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if n < 0 || n >= p.doc.Find(selector).Length() {
		return fmt.Errorf("%w: %s[%d]", actions.ErrElementNotFound, selector, n)
	}
	p.interactions = append(p.interactions, Interaction{Kind: kind, Selector: selector, N: n})
	return nil
}

func elements(sel *goquery.Selection) []actions.Element {
	out := make([]actions.Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		attrs := make(map[string]string)
		for _, a := range s.Nodes[0].Attr {
			attrs[a.Key] = a.Val
		}
		out = append(out, actions.Element{
			Text:  strings.TrimSpace(s.Text()),
			Attrs: attrs,
		})
	})
	return out
}

// SetAttr sets name=value on every element matching selector.
func (p *Page) SetAttr(selector, name, value string) {
	p.mu.Lock()
	p.doc.Find(selector).SetAttr(name, value)
	p.mu.Unlock()
}

// SetText replaces the text of every element matching selector.
func (p *Page) SetText(selector, text string) {
	p.mu.Lock()
	p.doc.Find(selector).SetText(text)
	p.mu.Unlock()
}
