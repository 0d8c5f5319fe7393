// Package scenario runs a named tree of groups and cases the way a test
// framework would, but inside the tool: every case gets its own recorder, a
// failing assertion stops only that case, and the outcome of each case lands
// in a report.
package scenario

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Func is the body of a case. Assertions go through t, typically with testify's
// assert and require packages.
type Func func(ctx context.Context, t *T)

// Node is a Group or a Case.
type Node interface {
	node()
	Title() string
}

// Group is a named, ordered list of children. A non-empty Skip reason skips
// every case underneath.
type Group struct {
	Name     string
	Children []Node
	Skip     string
}

// Case is a single check.
type Case struct {
	Name string
	Run  Func
	Skip string
}

func (*Group) node() {}
func (*Case) node()  {}

func (g *Group) Title() string { return g.Name }
func (c *Case) Title() string  { return c.Name }

// Describe builds a group from its children, dropping nil entries so builders
// can omit disabled checks inline.
func Describe(name string, children ...Node) *Group {
	g := &Group{Name: name}
	g.Add(children...)
	return g
}

// It builds a case.
func It(name string, fn Func) *Case {
	return &Case{Name: name, Run: fn}
}

// Add appends the non-nil children.
func (g *Group) Add(children ...Node) {
	for _, c := range children {
		if c == nil {
			continue
		}
		switch v := c.(type) {
		case *Group:
			if v == nil {
				continue
			}
		case *Case:
			if v == nil {
				continue
			}
		}
		g.Children = append(g.Children, c)
	}
}

// CountCases returns the number of cases under n.
func CountCases(n Node) int {
	switch v := n.(type) {
	case *Case:
		return 1
	case *Group:
		total := 0
		for _, c := range v.Children {
			total += CountCases(c)
		}
		return total
	}
	return 0
}

type failNow struct{}
type skipNow struct{}

// T records the outcome of one case. It satisfies testify's TestingT, so
// require stops the case and assert records and continues.
type T struct {
	name string

	mu       sync.Mutex
	failed   bool
	skipped  bool
	reason   string
	messages []string
}

func newT(name string) *T {
	return &T{name: name}
}

// Name returns the full path of the case, joined with " > ".
func (t *T) Name() string { return t.name }

// Helper is a no-op; it lets testify treat T as a helper-aware TestingT.
func (t *T) Helper() {}

// Errorf records a failure and lets the case continue.
func (t *T) Errorf(format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failed = true
	t.messages = append(t.messages, strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Logf records a note without failing.
func (t *T) Logf(format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, fmt.Sprintf(format, args...))
}

// Fail marks the case failed.
func (t *T) Fail() {
	t.mu.Lock()
	t.failed = true
	t.mu.Unlock()
}

// FailNow marks the case failed and stops it.
func (t *T) FailNow() {
	t.Fail()
	panic(failNow{})
}

// Fatalf is Errorf followed by FailNow.
func (t *T) Fatalf(format string, args ...interface{}) {
	t.Errorf(format, args...)
	t.FailNow()
}

// Skipf marks the case skipped with a reason and stops it.
func (t *T) Skipf(format string, args ...interface{}) {
	t.mu.Lock()
	t.skipped = true
	t.reason = fmt.Sprintf(format, args...)
	t.mu.Unlock()
	panic(skipNow{})
}

// Failed reports whether the case has failed so far.
func (t *T) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failed
}

// run executes fn and converts the stop sentinels and stray panics into state.
func (t *T) run(ctx context.Context, fn Func) {
	defer func() {
		r := recover()
		switch r.(type) {
		case nil, failNow, skipNow:
		default:
			t.Errorf("panic: %v", r)
		}
	}()
	fn(ctx, t)
}
