package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetupTracingDisabled(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), "", "modgraph")
	if err != nil {
		t.Fatalf("SetupTracing failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	_, span := Tracer.Start(context.Background(), "noop")
	span.End()
}

func TestObserveTask(t *testing.T) {
	before := testutil.CollectAndCount(AnalysisDuration)
	ObserveTask("unit-test", time.Now())
	after := testutil.CollectAndCount(AnalysisDuration)
	if after < before || after == 0 {
		t.Errorf("expected histogram series to be recorded, before=%d after=%d", before, after)
	}
}
