package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAlert(t *testing.T) {
	before := testutil.ToFloat64(AlertsTotal.WithLabelValues("dispatched"))

	RecordAlert("dispatched")
	RecordAlert("dispatched")

	if got := testutil.ToFloat64(AlertsTotal.WithLabelValues("dispatched")) - before; got != 2 {
		t.Errorf("dispatched delta = %v, want 2", got)
	}
}

func TestRecordExtraction(t *testing.T) {
	before := testutil.ToFloat64(ExtractionsTotal.WithLabelValues("meta", "partial"))

	RecordExtraction("meta", true)

	if got := testutil.ToFloat64(ExtractionsTotal.WithLabelValues("meta", "partial")) - before; got != 1 {
		t.Errorf("partial delta = %v, want 1", got)
	}
}

func TestSetPending(t *testing.T) {
	SetPending(3)

	if got := testutil.ToFloat64(PendingAlerts); got != 3 {
		t.Errorf("pending = %v, want 3", got)
	}
}
