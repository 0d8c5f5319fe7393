// File: internal/orchestrator/orchestrator.go
// Description: Builds the scenario tree for one declared page and owns the
// page's browser session and cache while that tree runs.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/dashprobe/internal/actions"
	"github.com/xkilldash9x/dashprobe/internal/cache"
	"github.com/xkilldash9x/dashprobe/internal/capture"
	"github.com/xkilldash9x/dashprobe/internal/config"
	"github.com/xkilldash9x/dashprobe/internal/pagemodel"
	"github.com/xkilldash9x/dashprobe/internal/scenario"
	"github.com/xkilldash9x/dashprobe/internal/urlparams"
)

// Session is the browser tab a page suite drives and reads back from.
type Session interface {
	actions.Driver
	capture.Source
}

// PageHandler turns a page declaration into a scenario tree. The cache it
// owns is only touched from the tree's cases, which run one at a time.
type PageHandler struct {
	page    *pagemodel.Page
	session Session
	target  config.TargetConfig
	timing  config.TimingConfig
	logger  *zap.Logger

	cache      *cache.Cache
	topFilters *actions.TopFilterHandler
	widgets    *actions.WidgetHandler
	rng        *rand.Rand
}

// Option configures a PageHandler.
type Option func(*PageHandler)

// WithRand fixes the source used for random option selection.
func WithRand(rng *rand.Rand) Option {
	return func(h *PageHandler) {
		h.rng = rng
	}
}

// New creates a handler for page, bound to session.
func New(page *pagemodel.Page, session Session, cfg config.Interface, logger *zap.Logger, opts ...Option) (*PageHandler, error) {
	if page == nil || session == nil || cfg == nil || logger == nil {
		return nil, errors.New("cannot initialize page handler with nil dependencies")
	}
	h := &PageHandler{
		page:    page,
		session: session,
		target:  cfg.Target(),
		timing:  cfg.Timing(),
		logger:  logger.Named("page").With(zap.String("page", page.Title)),
		cache:   cache.New(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.rng == nil {
		h.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	h.topFilters = actions.NewTopFilterHandler(session, h.timing, h.rng, h.logger)
	h.widgets = actions.NewWidgetHandler(session, h.timing, h.rng, h.logger)
	return h, nil
}

// Cache exposes the handler's cache, mainly for reports and tests.
func (h *PageHandler) Cache() *cache.Cache {
	return h.cache
}

// Build returns the full scenario tree for the page.
func (h *PageHandler) Build() *scenario.Group {
	return scenario.Describe(fmt.Sprintf(`"%s" is running`, h.page.Title),
		h.launchCase(),
		h.requestsGroup(),
		h.topFiltersGroup(),
		h.kpisGroup(),
		h.widgetsGroup(),
	)
}

func (h *PageHandler) launchCase() *scenario.Case {
	return scenario.It("Launching the driver", func(ctx context.Context, t *scenario.T) {
		address := h.address()
		h.logger.Info("Opening page.", zap.String("url", address))
		if err := h.session.Navigate(ctx, address); err != nil {
			t.Fatalf("navigate to %s: %v", address, err)
		}
	})
}

func (h *PageHandler) address() string {
	return urlparams.Address(h.target.BaseURL, h.page)
}

// cacheSlot names one part of the cache.
type cacheSlot int

const (
	slotRequests cacheSlot = iota
	slotTopFilters
	slotWidgets
)

// cacheItems refreshes the named slots, or all of them when none are given.
func (h *PageHandler) cacheItems(ctx context.Context, slots ...cacheSlot) error {
	if len(slots) == 0 {
		slots = []cacheSlot{slotRequests, slotTopFilters, slotWidgets}
	}
	for _, slot := range slots {
		switch slot {
		case slotRequests:
			h.cache.ReplaceRequests(capture.FilterPrefixes(h.session.Requests(), h.target.RequestPrefixes))
		case slotTopFilters:
			items, err := h.topFilters.Snapshot(ctx)
			if err != nil {
				return fmt.Errorf("cache top filters: %w", err)
			}
			h.cache.ReplaceTopFilters(items)
		case slotWidgets:
			h.cache.ReplaceWidgets(h.widgets.ReadWidgetCache(h.session.ConsoleEntries()))
		}
	}
	h.logger.Debug("Cache refreshed.",
		zap.Int("requests", len(h.cache.Requests)),
		zap.Int("top_filters", len(h.cache.TopFilters)),
		zap.Int("widgets", len(h.cache.Widgets)))
	return nil
}

// displayLabel is the label as it appears in case names, without its first colon.
func displayLabel(label string) string {
	return strings.Replace(label, ":", "", 1)
}
