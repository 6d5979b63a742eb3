package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())

	r.RecordRows("predictions", 42)
	r.RecordMissing("price_chart")
	r.RecordMissing("price_chart")
	r.RecordError("load")
	r.WSConnected()
	r.WSConnected()
	r.WSDisconnected()

	if got := testutil.ToFloat64(r.rows.WithLabelValues("predictions")); got != 42 {
		t.Fatalf("rows gauge = %v", got)
	}
	if got := testutil.ToFloat64(r.missing.WithLabelValues("price_chart")); got != 2 {
		t.Fatalf("missing counter = %v", got)
	}
	if got := testutil.ToFloat64(r.errorsTotal.WithLabelValues("load")); got != 1 {
		t.Fatalf("errors counter = %v", got)
	}
	if got := testutil.ToFloat64(r.wsClients); got != 1 {
		t.Fatalf("ws gauge = %v", got)
	}
}
