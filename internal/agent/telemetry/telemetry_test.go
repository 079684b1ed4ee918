package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNilReceiverIsSafe(t *testing.T) {
	var tele *Telemetry
	tele.RecordRun("success", 1.5)
	tele.RecordTokens("research", "gpt-4o", 10, 20, 0.01)
	tele.RecordTool("wikipedia_search")
	if snap := tele.Snapshot(); snap.Runs != 0 || snap.TotalCost != 0 {
		t.Fatalf("nil telemetry should report zeros, got %+v", snap)
	}
}

func TestSnapshotAggregates(t *testing.T) {
	tele := New(prometheus.NewRegistry())
	tele.RecordRun("success", 2)
	tele.RecordRun("error", 1)
	tele.RecordTokens("writing", "gpt-4o-mini", 100, 200, 0.05)
	tele.RecordTokens("editing", "gpt-4o-mini", 50, 80, 0.02)

	snap := tele.Snapshot()
	if snap.Runs != 2 {
		t.Fatalf("runs: %d", snap.Runs)
	}
	if snap.TotalCost < 0.069 || snap.TotalCost > 0.071 {
		t.Fatalf("total cost: %f", snap.TotalCost)
	}
}

func TestDoubleRegistrationReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(reg)
	b := New(reg)
	a.RecordRun("success", 1)
	b.RecordRun("success", 1)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() == "wikigen_runs_total" {
			if got := fam.GetMetric()[0].GetCounter().GetValue(); got != 2 {
				t.Fatalf("both instances should share one counter, got %f", got)
			}
			return
		}
	}
	t.Fatal("wikigen_runs_total not gathered")
}
