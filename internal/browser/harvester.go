// internal/browser/harvester.go
package browser

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	json "github.com/json-iterator/go"
	"github.com/pb33f/harhar"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/dashprobe/internal/capture"
	"github.com/xkilldash9x/dashprobe/internal/observability"
)

// requestState tracks one network request from send to finish.
type requestState struct {
	Request    *network.Request
	Response   *network.Response
	StartTS    *cdp.TimeSinceEpoch
	SentAt     *cdp.MonotonicTime
	EndTS      *cdp.MonotonicTime
	IsComplete bool
}

// Harvester listens to a tab's CDP events and keeps the responses and
// console output the suite validates against.
type Harvester struct {
	logger *zap.Logger
	// console output mirrored into our log, without stack traces
	mirror *zap.Logger

	sessionCtx     context.Context
	listenerCtx    context.Context
	cancelListener context.CancelFunc

	requests         map[network.RequestID]*requestState
	redirected       []*requestState
	responses        []capture.Request
	inflightRequests map[network.RequestID]bool
	console          []capture.ConsoleEntry
	lock             sync.RWMutex

	isStarted bool
}

// NewHarvester creates a harvester for the tab carried by sessionCtx.
func NewHarvester(sessionCtx context.Context, logger *zap.Logger) *Harvester {
	return &Harvester{
		sessionCtx:       sessionCtx,
		logger:           logger.Named("harvester"),
		mirror:           logger.Named("console").WithOptions(zap.AddStacktrace(zapcore.FatalLevel)),
		requests:         make(map[network.RequestID]*requestState),
		inflightRequests: make(map[network.RequestID]bool),
		responses:        make([]capture.Request, 0),
		console:          make([]capture.ConsoleEntry, 0),
	}
}

// Start enables the network, runtime and log domains and begins listening.
func (h *Harvester) Start(ctx context.Context) error {
	h.lock.Lock()
	defer h.lock.Unlock()

	if h.isStarted {
		return nil
	}

	h.listenerCtx, h.cancelListener = context.WithCancel(h.sessionCtx)
	chromedp.ListenTarget(h.listenerCtx, h.dispatch)

	runCtx, cancel := CombineContext(h.sessionCtx, ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, network.Enable(), runtime.Enable(), log.Enable()); err != nil {
		h.cancelListener()
		return err
	}

	h.isStarted = true
	h.logger.Debug("Harvester started and listening for events.")
	return nil
}

func (h *Harvester) dispatch(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		h.handleRequestWillBeSent(e)
	case *network.EventResponseReceived:
		h.handleResponseReceived(e)
	case *network.EventLoadingFinished:
		h.handleLoadingFinished(e.RequestID, e.Timestamp)
	case *network.EventLoadingFailed:
		h.handleLoadingFinished(e.RequestID, e.Timestamp)
	case *runtime.EventConsoleAPICalled:
		h.handleConsoleAPICalled(e)
	case *log.EventEntryAdded:
		h.handleLogEntryAdded(e)
	case *runtime.EventExceptionThrown:
		h.handleExceptionThrown(e)
	}
}

// Stop detaches the listener. Collected data stays readable.
func (h *Harvester) Stop() {
	h.lock.Lock()
	defer h.lock.Unlock()
	if !h.isStarted {
		return
	}
	if h.cancelListener != nil {
		h.cancelListener()
		h.cancelListener = nil
	}
	h.isStarted = false
	h.logger.Debug("Harvester stopped.")
}

// WaitNetworkIdle polls until no request has been in flight for quietPeriod.
func (h *Harvester) WaitNetworkIdle(ctx context.Context, quietPeriod time.Duration) error {
	tick := quietPeriod / 2
	if tick <= 0 {
		tick = 50 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	lastActivity := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.lock.RLock()
			inflight := len(h.inflightRequests)
			h.lock.RUnlock()

			if inflight > 0 {
				lastActivity = time.Now()
				h.logger.Debug("Waiting for network idle...", zap.Int("inflight_requests", inflight))
			} else if time.Since(lastActivity) >= quietPeriod {
				return nil
			}
		}
	}
}

// Requests returns every response seen so far, in arrival order.
func (h *Harvester) Requests() []capture.Request {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return append([]capture.Request(nil), h.responses...)
}

// ConsoleEntries returns every console and log entry seen so far.
func (h *Harvester) ConsoleEntries() []capture.ConsoleEntry {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return append([]capture.ConsoleEntry(nil), h.console...)
}

func (h *Harvester) handleRequestWillBeSent(e *network.EventRequestWillBeSent) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.inflightRequests[e.RequestID] = true

	// A redirect reuses the request ID, so the previous leg is finished here.
	if e.RedirectResponse != nil {
		if prev, ok := h.requests[e.RequestID]; ok && !prev.IsComplete {
			prev.Response = e.RedirectResponse
			prev.EndTS = e.Timestamp
			prev.IsComplete = true
			h.redirected = append(h.redirected, prev)
			h.responses = append(h.responses, capture.Request{URL: prev.Request.URL, Status: int(e.RedirectResponse.Status)})
		}
	}

	h.requests[e.RequestID] = &requestState{
		Request: e.Request,
		StartTS: e.WallTime,
		SentAt:  e.Timestamp,
	}
}

func (h *Harvester) handleResponseReceived(e *network.EventResponseReceived) {
	h.lock.Lock()
	defer h.lock.Unlock()

	if e.Response == nil {
		return
	}
	if state, ok := h.requests[e.RequestID]; ok {
		state.Response = e.Response
	}
	h.responses = append(h.responses, capture.Request{URL: e.Response.URL, Status: int(e.Response.Status)})
}

func (h *Harvester) handleLoadingFinished(id network.RequestID, ts *cdp.MonotonicTime) {
	h.lock.Lock()
	defer h.lock.Unlock()

	delete(h.inflightRequests, id)
	if state, ok := h.requests[id]; ok {
		state.EndTS = ts
		state.IsComplete = true
	}
}

// consoleSeverity maps the console API call type onto the browser log levels.
func consoleSeverity(t runtime.APIType) string {
	switch t {
	case runtime.APITypeError, runtime.APITypeAssert:
		return capture.SeveritySevere
	case runtime.APITypeWarning:
		return capture.SeverityWarning
	}
	return capture.SeverityInfo
}

func logSeverity(l log.Level) string {
	switch l {
	case log.LevelError:
		return capture.SeveritySevere
	case log.LevelWarning:
		return capture.SeverityWarning
	}
	return capture.SeverityInfo
}

// handleConsoleAPICalled renders the entry the way browser logs do:
// "<script> <line>:<col> <arg> <arg>...", with each argument as JSON.
func (h *Harvester) handleConsoleAPICalled(e *runtime.EventConsoleAPICalled) {
	args := make([]string, 0, len(e.Args))
	for _, arg := range e.Args {
		switch {
		case len(arg.Value) > 0:
			args = append(args, string(arg.Value))
		case arg.Description != "":
			raw, _ := json.Marshal(arg.Description)
			args = append(args, string(raw))
		default:
			args = append(args, fmt.Sprintf("[%s]", arg.Type))
		}
	}

	var parts []string
	source := "console-api"
	if e.StackTrace != nil && len(e.StackTrace.CallFrames) > 0 {
		frame := e.StackTrace.CallFrames[0]
		source = frame.URL
		parts = append(parts, frame.URL, fmt.Sprintf("%d:%d", frame.LineNumber, frame.ColumnNumber))
	}
	parts = append(parts, args...)

	entry := capture.ConsoleEntry{
		Level:  consoleSeverity(e.Type),
		Text:   strings.Join(parts, " "),
		Source: source,
		Args:   args,
	}
	if e.Timestamp != nil {
		entry.Timestamp = e.Timestamp.Time()
	}
	h.appendConsole(entry)
}

func (h *Harvester) handleLogEntryAdded(e *log.EventEntryAdded) {
	if e.Entry == nil {
		return
	}
	text := e.Entry.Text
	if e.Entry.URL != "" {
		text = e.Entry.URL + " - " + text
	}
	entry := capture.ConsoleEntry{
		Level:  logSeverity(e.Entry.Level),
		Text:   text,
		Source: string(e.Entry.Source),
	}
	if e.Entry.Timestamp != nil {
		entry.Timestamp = e.Entry.Timestamp.Time()
	}
	h.appendConsole(entry)
}

func (h *Harvester) handleExceptionThrown(e *runtime.EventExceptionThrown) {
	if e.ExceptionDetails == nil {
		return
	}
	text := e.ExceptionDetails.Text
	if e.ExceptionDetails.Exception != nil && e.ExceptionDetails.Exception.Description != "" {
		text = e.ExceptionDetails.Exception.Description
	}
	entry := capture.ConsoleEntry{
		Level:  capture.SeveritySevere,
		Text:   text,
		Source: "runtime",
	}
	if e.Timestamp != nil {
		entry.Timestamp = e.Timestamp.Time()
	}
	h.appendConsole(entry)
}

func (h *Harvester) appendConsole(entry capture.ConsoleEntry) {
	if ce := h.mirror.Check(observability.ConsoleLevel(entry.Level), entry.Text); ce != nil {
		ce.Write(zap.String("source", entry.Source))
	}

	h.lock.Lock()
	defer h.lock.Unlock()
	h.console = append(h.console, entry)
}

// HAR returns the completed requests as archive entries, oldest first.
func (h *Harvester) HAR() []harhar.Entry {
	h.lock.RLock()
	defer h.lock.RUnlock()

	type dated struct {
		at    time.Time
		entry harhar.Entry
	}
	states := make([]*requestState, 0, len(h.requests)+len(h.redirected))
	states = append(states, h.redirected...)
	for _, state := range h.requests {
		states = append(states, state)
	}

	collected := make([]dated, 0, len(states))
	for _, state := range states {
		if !state.IsComplete || state.Request == nil || state.StartTS == nil {
			continue
		}
		start := state.StartTS.Time()
		elapsed := float64(0)
		if state.EndTS != nil && state.SentAt != nil {
			elapsed = float64(state.EndTS.Time().Sub(state.SentAt.Time()).Milliseconds())
		}
		collected = append(collected, dated{
			at: start,
			entry: harhar.Entry{
				Start:    start.Format(time.RFC3339Nano),
				Time:     elapsed,
				Request:  convertRequest(state.Request),
				Response: convertResponse(state.Response),
			},
		})
	}

	sort.SliceStable(collected, func(i, j int) bool {
		return collected[i].at.Before(collected[j].at)
	})
	entries := make([]harhar.Entry, len(collected))
	for i, d := range collected {
		entries[i] = d.entry
	}
	return entries
}

func convertRequest(req *network.Request) harhar.Request {
	return harhar.Request{
		Method:      req.Method,
		URL:         req.URL,
		HTTPVersion: "HTTP/1.1",
		Headers:     convertHeaders(req.Headers),
	}
}

func convertResponse(resp *network.Response) harhar.Response {
	if resp == nil {
		return harhar.Response{StatusText: "Failed (No Response)"}
	}
	version := resp.Protocol
	if version == "" {
		version = "HTTP/1.1"
	}
	return harhar.Response{
		StatusCode:  int(resp.Status),
		StatusText:  resp.StatusText,
		HTTPVersion: version,
		Headers:     convertHeaders(resp.Headers),
	}
}

func convertHeaders(headers network.Headers) []harhar.NameValuePair {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	nvps := make([]harhar.NameValuePair, 0, len(headers))
	for _, name := range names {
		valStr, ok := headers[name].(string)
		if !ok {
			continue
		}
		// CDP joins repeated headers with newlines.
		for _, v := range strings.Split(valStr, "\n") {
			nvps = append(nvps, harhar.NameValuePair{Name: name, Value: v})
		}
	}
	return nvps
}
