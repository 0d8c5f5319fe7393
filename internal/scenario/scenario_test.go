package scenario_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/dashprobe/internal/scenario"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fixedClock() func() time.Time {
	now := time.Date(2023, 9, 30, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func TestRunner_IsolatesFailures(t *testing.T) {
	var ran []string
	tree := scenario.Describe("page",
		scenario.It("fails with require", func(ctx context.Context, st *scenario.T) {
			ran = append(ran, "require")
			require.Equal(st, 1, 2)
			ran = append(ran, "unreachable")
		}),
		scenario.It("fails with assert and continues", func(ctx context.Context, st *scenario.T) {
			assert.True(st, false, "first")
			assert.True(st, false, "second")
			ran = append(ran, "assert")
		}),
		scenario.It("panics", func(ctx context.Context, st *scenario.T) {
			panic("boom")
		}),
		scenario.It("passes", func(ctx context.Context, st *scenario.T) {
			ran = append(ran, "pass")
		}),
	)

	report := scenario.NewRunner(zaptest.NewLogger(t), scenario.WithClock(fixedClock())).Run(context.Background(), "expenses", tree)

	assert.Equal(t, []string{"require", "assert", "pass"}, ran)
	require.Len(t, report.Results, 4)
	assert.Equal(t, scenario.StatusFailed, report.Results[0].Status)
	assert.Equal(t, scenario.StatusFailed, report.Results[1].Status)
	assert.Len(t, report.Results[1].Messages, 2)
	assert.Equal(t, scenario.StatusFailed, report.Results[2].Status)
	assert.Contains(t, report.Results[2].Messages[0], "panic: boom")
	assert.Equal(t, scenario.StatusPassed, report.Results[3].Status)

	assert.Equal(t, 3, report.Count(scenario.StatusFailed))
	assert.True(t, report.Failed())
	assert.Equal(t, "expenses", report.Suite)
	assert.Equal(t, time.Second, report.Results[3].Duration)
}

func TestRunner_PathsAndSkips(t *testing.T) {
	var hooked []string
	tree := scenario.Describe(`"Расходы" is running`,
		scenario.Describe("Running the TOP KPI-s",
			scenario.It("Validating the existence of the KPIs", func(ctx context.Context, st *scenario.T) {
				st.Skipf("no kpis declared")
			}),
		),
		&scenario.Group{
			Name: "Running the WIDGET-s",
			Skip: "widgets disabled",
			Children: []scenario.Node{
				scenario.It("never runs", func(ctx context.Context, st *scenario.T) {
					st.Errorf("should not run")
				}),
			},
		},
		scenario.It("fails", func(ctx context.Context, st *scenario.T) {
			st.Errorf("value mismatch")
		}),
	)

	runner := scenario.NewRunner(zaptest.NewLogger(t), scenario.WithFailureHook(func(ctx context.Context, res scenario.Result) {
		hooked = append(hooked, res.Name())
	}))
	report := runner.Run(context.Background(), "expenses", tree)

	require.Len(t, report.Results, 3)
	first := report.Results[0]
	assert.Equal(t, []string{`"Расходы" is running`, "Running the TOP KPI-s", "Validating the existence of the KPIs"}, first.Path)
	assert.Equal(t, `"Расходы" is running > Running the TOP KPI-s`, first.Group())
	assert.Equal(t, scenario.StatusSkipped, first.Status)
	assert.Equal(t, []string{"no kpis declared"}, first.Messages)

	assert.Equal(t, scenario.StatusSkipped, report.Results[1].Status)
	assert.Equal(t, []string{"widgets disabled"}, report.Results[1].Messages)

	assert.Equal(t, scenario.StatusFailed, report.Results[2].Status)
	assert.Equal(t, []string{"fails"}, hooked)
}

func TestRunner_CanceledContextSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tree := scenario.Describe("page",
		scenario.It("cancels", func(ctx context.Context, st *scenario.T) {
			cancel()
		}),
		scenario.It("after", func(ctx context.Context, st *scenario.T) {
			st.Errorf("should not run")
		}),
	)

	report := scenario.NewRunner(zaptest.NewLogger(t)).Run(ctx, "page", tree)
	require.Len(t, report.Results, 2)
	assert.Equal(t, scenario.StatusPassed, report.Results[0].Status)
	assert.Equal(t, scenario.StatusSkipped, report.Results[1].Status)
	assert.Equal(t, []string{context.Canceled.Error()}, report.Results[1].Messages)
}

func TestDescribe_DropsNilChildren(t *testing.T) {
	var disabled *scenario.Case
	var disabledGroup *scenario.Group
	g := scenario.Describe("root", disabled, disabledGroup, scenario.It("kept", nil), nil)
	require.Len(t, g.Children, 1)
	assert.Equal(t, "kept", g.Children[0].Title())
	assert.Equal(t, 1, scenario.CountCases(g))
}

func TestRunT(t *testing.T) {
	scenario.RunT(t, scenario.Describe("suite",
		scenario.It("passes", func(ctx context.Context, st *scenario.T) {
			assert.NotNil(st, ctx)
			st.Logf("visited")
		}),
		scenario.It("skips", func(ctx context.Context, st *scenario.T) {
			st.Skipf("not applicable")
		}),
	))
}
