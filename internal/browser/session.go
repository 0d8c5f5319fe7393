// internal/browser/session.go
// Package browser drives a real Chrome tab over CDP for the dashboard suites.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"github.com/pb33f/harhar"
	"go.uber.org/zap"

	"github.com/xkilldash9x/dashprobe/internal/actions"
	"github.com/xkilldash9x/dashprobe/internal/capture"
	"github.com/xkilldash9x/dashprobe/internal/config"
)

// ErrSessionStart is returned when Chrome cannot be launched or attached to.
var ErrSessionStart = errors.New("browser session failed to start")

// Session is one browser tab. It implements actions.Driver and capture.Source.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	navTimeout time.Duration
	harvester  *Harvester

	mu       sync.Mutex
	isClosed bool
}

var _ actions.Driver = (*Session)(nil)
var _ capture.Source = (*Session)(nil)

// NewSession launches a browser with its own allocator and opens one tab.
// The tab lives until Close or until ctx is canceled.
func NewSession(ctx context.Context, cfg config.BrowserConfig, navTimeout time.Duration, logger *zap.Logger) (*Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, DefaultAllocatorOptions(cfg)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	id := uuid.New().String()
	s := &Session{
		id:  id,
		ctx: tabCtx,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
		logger:     logger.With(zap.String("session_id", id)),
		navTimeout: navTimeout,
	}

	// The first Run starts the browser process and attaches to the tab.
	if err := chromedp.Run(tabCtx); err != nil {
		s.cancel()
		return nil, fmt.Errorf("%w: %v", ErrSessionStart, err)
	}

	s.harvester = NewHarvester(tabCtx, s.logger)
	if err := s.harvester.Start(ctx); err != nil {
		s.cancel()
		return nil, fmt.Errorf("%w: harvester: %v", ErrSessionStart, err)
	}

	s.logger.Debug("Browser session started.")
	return s, nil
}

// ID returns the unique identifier for the session.
func (s *Session) ID() string {
	return s.id
}

// Close stops harvesting and shuts the browser down.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	s.mu.Unlock()

	s.logger.Debug("Closing browser session.")
	if s.harvester != nil {
		s.harvester.Stop()
	}
	s.cancel()
	return nil
}

// Navigate loads url and waits for the body to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating to URL", zap.String("url", url))

	opCtx, opCancel := CombineContext(s.ctx, ctx)
	defer opCancel()

	navTimeout := s.navTimeout
	if navTimeout <= 0 {
		navTimeout = 60 * time.Second
	}
	navCtx, navCancel := context.WithTimeout(opCtx, navTimeout)
	defer navCancel()

	if err := chromedp.Run(navCtx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		if errors.Is(navCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("navigation timed out after %s: %w", navTimeout, err)
		}
		if opCtx.Err() != nil {
			return fmt.Errorf("navigation canceled: %w", opCtx.Err())
		}
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// WaitNetworkIdle blocks until the tab has had no requests in flight for quietPeriod.
func (s *Session) WaitNetworkIdle(ctx context.Context, quietPeriod time.Duration) error {
	return s.harvester.WaitNetworkIdle(ctx, quietPeriod)
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.runActions(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return url, nil
}

// queryScript collects text and attributes for every match of sel, optionally
// inside the n-th match of scope. It yields null when the scope is missing.
const queryScript = `(function(scope, n, sel) {
	let root = document;
	if (scope !== null) {
		const scoped = document.querySelectorAll(scope);
		if (n < 0 || n >= scoped.length) { return null; }
		root = scoped[n];
	}
	return Array.from(root.querySelectorAll(sel)).map(function(el) {
		const attrs = {};
		for (const a of el.attributes) { attrs[a.name] = a.value; }
		return { text: (el.innerText || el.textContent || '').trim(), attrs: attrs };
	});
})(%s, %d, %s)`

type queriedElement struct {
	Text  string            `json:"text"`
	Attrs map[string]string `json:"attrs"`
}

func (s *Session) Query(ctx context.Context, selector string) ([]actions.Element, error) {
	return s.query(ctx, nil, 0, selector)
}

func (s *Session) QueryIn(ctx context.Context, scope string, n int, selector string) ([]actions.Element, error) {
	return s.query(ctx, &scope, n, selector)
}

func (s *Session) query(ctx context.Context, scope *string, n int, selector string) ([]actions.Element, error) {
	scopeJS, err := json.Marshal(scope)
	if err != nil {
		return nil, err
	}
	selJS, err := json.Marshal(selector)
	if err != nil {
		return nil, err
	}

	var raw []byte
	script := fmt.Sprintf(queryScript, scopeJS, n, selJS)
	if err := s.runActions(ctx, chromedp.Evaluate(script, &raw)); err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}

	var found []queriedElement
	if err := json.Unmarshal(raw, &found); err != nil {
		return nil, fmt.Errorf("decode query result: %w", err)
	}
	if found == nil && scope != nil {
		return nil, fmt.Errorf("%w: %s[%d]", actions.ErrElementNotFound, *scope, n)
	}

	out := make([]actions.Element, len(found))
	for i, el := range found {
		out[i] = actions.Element{Text: el.Text, Attrs: el.Attrs}
	}
	return out, nil
}

// nthNode resolves the n-th match of selector without waiting for it to appear.
func nthNode(ctx context.Context, selector string, n int) (*cdp.Node, error) {
	var nodes []*cdp.Node
	if err := chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)).Do(ctx); err != nil {
		return nil, err
	}
	if n < 0 || n >= len(nodes) {
		return nil, fmt.Errorf("%w: %s[%d]", actions.ErrElementNotFound, selector, n)
	}
	return nodes[n], nil
}

func (s *Session) ClickNth(ctx context.Context, selector string, n int) error {
	s.logger.Debug("Clicking element", zap.String("selector", selector), zap.Int("n", n))
	err := s.runActions(ctx, chromedp.ActionFunc(func(c context.Context) error {
		node, err := nthNode(c, selector, n)
		if err != nil {
			return err
		}
		return chromedp.MouseClickNode(node).Do(c)
	}))
	if err != nil {
		return fmt.Errorf("click %s[%d]: %w", selector, n, err)
	}
	return nil
}

func (s *Session) HoverNth(ctx context.Context, selector string, n int) error {
	err := s.runActions(ctx, chromedp.ActionFunc(func(c context.Context) error {
		node, err := nthNode(c, selector, n)
		if err != nil {
			return err
		}
		return hoverNode(c, node)
	}))
	if err != nil {
		return fmt.Errorf("hover %s[%d]: %w", selector, n, err)
	}
	return nil
}

const scrollScript = `(function(sel, n) {
	const el = document.querySelectorAll(sel)[n];
	if (!el) { return false; }
	el.scrollIntoView();
	return true;
})(%s, %d)`

func (s *Session) ScrollNth(ctx context.Context, selector string, n int) error {
	selJS, err := json.Marshal(selector)
	if err != nil {
		return err
	}
	var ok bool
	if err := s.runActions(ctx, chromedp.Evaluate(fmt.Sprintf(scrollScript, selJS, n), &ok)); err != nil {
		return fmt.Errorf("scroll %s[%d]: %w", selector, n, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s[%d]", actions.ErrElementNotFound, selector, n)
	}
	return nil
}

// Sleep pauses for d, returning early if ctx or the session ends.
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	return s.runActions(ctx, chromedp.Sleep(d))
}

func (s *Session) Requests() []capture.Request {
	return s.harvester.Requests()
}

func (s *Session) ConsoleEntries() []capture.ConsoleEntry {
	return s.harvester.ConsoleEntries()
}

// HAR returns the network archive entries collected so far.
func (s *Session) HAR() []harhar.Entry {
	return s.harvester.HAR()
}

// Screenshot captures the full page as a PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.runActions(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}

// runActions executes actions bounded by both the session and ctx.
func (s *Session) runActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}
