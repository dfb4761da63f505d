package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMessagesSentCountsByResult(t *testing.T) {
	before := testutil.ToFloat64(MessagesSent.WithLabelValues(ResultError))

	MessagesSent.WithLabelValues(Result(errors.New("boom"))).Inc()

	if got := testutil.ToFloat64(MessagesSent.WithLabelValues(ResultError)); got != before+1 {
		t.Fatalf("expected %v, got %v", before+1, got)
	}
	if Result(nil) != ResultOK {
		t.Fatalf("expected ok label for nil error")
	}
}
