package prometheus

import (
	"strings"
	"testing"
)

func gatherCounter(t *testing.T, s *Sink, metricFamily, label string) float64 {
	t.Helper()
	families, err := s.registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if !strings.HasSuffix(mf.GetName(), metricFamily) {
			continue
		}
		for _, m := range mf.Metric {
			for _, lp := range m.Label {
				if lp.GetName() == "metric" && lp.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestSinkAddCountIncrementsLabeledCounter(t *testing.T) {
	s := New("pocketetl_test", nil)
	s.AddCount("stage.recordsProcessed", 3)
	s.AddCount("stage.recordsProcessed", 2)

	if got := gatherCounter(t, s, "records_total", "stage.recordsProcessed"); got != 5 {
		t.Fatalf("expected counter value 5, got %v", got)
	}
}

func TestSinkChildSharesParentRegistry(t *testing.T) {
	s := New("pocketetl_test2", nil)
	child := s.CreateChildMetrics()
	child.AddCount("stage.recordsProcessed", 1)

	if got := gatherCounter(t, s, "records_total", "stage.recordsProcessed"); got != 1 {
		t.Fatalf("expected child's metric visible on parent's registry with value 1, got %v", got)
	}
}

func TestSinkCloseDoesNotPanic(t *testing.T) {
	s := New("pocketetl_test3", nil)
	s.Close()
}
