// Package telemetry records pipeline metrics: run counts and durations,
// token usage per model, and tool invocations. All methods are safe on a
// nil receiver so callers can wire telemetry optionally.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Telemetry aggregates prometheus metrics plus an in-process cost tracker.
type Telemetry struct {
	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	llmTokens       *prometheus.CounterVec
	toolInvocations *prometheus.CounterVec

	mu        sync.Mutex
	totalCost float64
	runCount  int64
}

// New registers the metric set on the given registerer. Passing nil uses the
// default registerer. Re-registration (tests constructing several instances)
// reuses the already-registered collectors.
func New(reg prometheus.Registerer) *Telemetry {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	t := &Telemetry{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wikigen_runs_total",
			Help: "Completed article generation runs by status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wikigen_run_duration_seconds",
			Help:    "Wall-clock duration of article generation runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wikigen_llm_tokens_total",
			Help: "LLM tokens consumed by stage, model and direction.",
		}, []string{"stage", "model", "direction"}),
		toolInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wikigen_tool_invocations_total",
			Help: "Research tool invocations by tool name.",
		}, []string{"tool"}),
	}
	t.runsTotal = registerCounterVec(reg, t.runsTotal)
	t.runDuration = registerHistogram(reg, t.runDuration)
	t.llmTokens = registerCounterVec(reg, t.llmTokens)
	t.toolInvocations = registerCounterVec(reg, t.toolInvocations)
	return t
}

// RecordRun observes one finished run.
func (t *Telemetry) RecordRun(status string, seconds float64) {
	if t == nil {
		return
	}
	t.runsTotal.WithLabelValues(status).Inc()
	t.runDuration.Observe(seconds)
	t.mu.Lock()
	t.runCount++
	t.mu.Unlock()
}

// RecordTokens observes one LLM call's token usage and cost.
func (t *Telemetry) RecordTokens(stage, model string, inputTokens, outputTokens int64, cost float64) {
	if t == nil {
		return
	}
	t.llmTokens.WithLabelValues(stage, model, "input").Add(float64(inputTokens))
	t.llmTokens.WithLabelValues(stage, model, "output").Add(float64(outputTokens))
	t.mu.Lock()
	t.totalCost += cost
	t.mu.Unlock()
}

// RecordTool observes one tool invocation.
func (t *Telemetry) RecordTool(name string) {
	if t == nil {
		return
	}
	t.toolInvocations.WithLabelValues(name).Inc()
}

// Snapshot is a point-in-time view of the aggregate counters.
type Snapshot struct {
	Runs      int64   `json:"runs"`
	TotalCost float64 `json:"total_cost"`
}

// Snapshot returns current aggregates.
func (t *Telemetry) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{Runs: t.runCount, TotalCost: t.totalCost}
}

func registerCounterVec(reg prometheus.Registerer, cv *prometheus.CounterVec) *prometheus.CounterVec {
	if err := reg.Register(cv); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec)
		}
	}
	return cv
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram) prometheus.Histogram {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(prometheus.Histogram)
		}
	}
	return h
}
