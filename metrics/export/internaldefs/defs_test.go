package internaldefs

import (
	"strings"
	"testing"

	"github.com/MrEthical07/forumauth"
)

func TestDefsCoverEveryMetricOnce(t *testing.T) {
	seen := map[forumauth.MetricID]string{}
	names := map[string]bool{}
	for _, d := range CounterDefs {
		if prev, ok := seen[d.ID]; ok {
			t.Fatalf("metric %d defined twice (%s, %s)", d.ID, prev, d.Name)
		}
		seen[d.ID] = d.Name
		if !strings.HasSuffix(d.Name, "_total") {
			t.Fatalf("counter %s must end in _total", d.Name)
		}
		names[d.Name] = true
	}
	for _, d := range HistogramDefs {
		if _, ok := seen[d.ID]; ok {
			t.Fatalf("histogram %s reuses a counter id", d.Name)
		}
		seen[d.ID] = d.Name
		names[d.Name] = true
	}
	if len(names) != len(seen) {
		t.Fatalf("duplicate metric names: %d names for %d ids", len(names), len(seen))
	}
	if len(seen) != int(forumauth.MetricHashLatency)+1 {
		t.Fatalf("expected every metric id to be exported, got %d", len(seen))
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if len(HistogramBounds) != 8 || len(HistogramBoundSuffix) != 8 {
		t.Fatal("bounds must match the eight engine buckets")
	}
}
