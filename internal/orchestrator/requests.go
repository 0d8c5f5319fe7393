package orchestrator

import (
	"context"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/xkilldash9x/dashprobe/internal/capture"
	"github.com/xkilldash9x/dashprobe/internal/checks"
	"github.com/xkilldash9x/dashprobe/internal/predicate"
	"github.com/xkilldash9x/dashprobe/internal/scenario"
)

func (h *PageHandler) requestsGroup() *scenario.Group {
	return scenario.Describe("Running the requests and validations",
		scenario.It("Waiting for till requests are loaded", func(ctx context.Context, t *scenario.T) {
			wait := h.page.Requests.TimeForRequestLoading.Std()
			h.logger.Info("Waiting for requests to load.", zap.Duration("wait", wait))
			if err := h.session.Sleep(ctx, wait); err != nil {
				t.Fatalf("wait for requests: %v", err)
			}
			if err := h.cacheItems(ctx); err != nil {
				t.Fatalf("%v", err)
			}
		}),
		scenario.Describe("Validating the requests",
			h.requestsExistenceCase(),
			h.requestsStatusCase(),
			h.requestsLogCase(),
		),
	)
}

func (h *PageHandler) requestsExistenceCase() *scenario.Case {
	if !predicate.IsEnabled(h.page, "requests.validate", "existence") {
		return nil
	}
	return scenario.It("Validating the existence of the requests", func(ctx context.Context, t *scenario.T) {
		ok, missing := checks.RequestsExistence(h.cache.Requests, h.page.Requests.Requests)
		assert.True(t, ok, "requests never observed: %v", missing)
	})
}

func (h *PageHandler) requestsStatusCase() *scenario.Case {
	if !predicate.IsEnabled(h.page, "requests.validate", "status") {
		return nil
	}
	return scenario.It("Validating the statuses of the requests", func(ctx context.Context, t *scenario.T) {
		ok, bad := checks.RequestsStatuses(h.cache.Requests)
		assert.True(t, ok, "requests with a non-200 status: %v", bad)
	})
}

func (h *PageHandler) requestsLogCase() *scenario.Case {
	if !predicate.IsEnabled(h.page, "requests.validate", "log") {
		return nil
	}
	return scenario.It("Validating the logs of the requests", func(ctx context.Context, t *scenario.T) {
		ok, hits := checks.RequestsConsoleLogs(h.session.ConsoleEntries())
		assert.True(t, ok, "bad request errors in the console: %v", texts(hits))
	})
}

func texts(entries []capture.ConsoleEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Text
	}
	return out
}
