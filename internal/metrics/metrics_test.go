package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveMutation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveMutation("set_father", "")
	m.ObserveMutation("set_father", "")
	m.ObserveMutation("set_father", "cycle_rejected")
	m.ObserveMutation("set_spouse", "incest_rejected")

	if got := testutil.ToFloat64(m.Mutations.WithLabelValues("set_father", "ok")); got != 2 {
		t.Errorf("set_father ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Mutations.WithLabelValues("set_father", "rejected")); got != 1 {
		t.Errorf("set_father rejected = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Rejections.WithLabelValues("incest_rejected")); got != 1 {
		t.Errorf("incest_rejected = %v, want 1", got)
	}
}

func TestObserveMutation_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveMutation("set_mother", "") // must not panic
}
