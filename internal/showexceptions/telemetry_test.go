package showexceptions_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jsamuelsen11/showexceptions/internal/pipeline"
	"github.com/jsamuelsen11/showexceptions/internal/pipeline/pipelinetest"
	"github.com/jsamuelsen11/showexceptions/internal/showexceptions"
)

func TestNew_CountsFaultsByKind(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	counter, err := mp.Meter("test").Int64Counter("showexceptions.faults")
	if err != nil {
		t.Fatalf("creating counter: %v", err)
	}
	mw := showexceptions.New(showexceptions.WithFaultCounter(counter))

	pipelinetest.Call(t, mw(pipelinetest.FailingApp(errors.New("a"))), "/")
	pipelinetest.Call(t, mw(pipelinetest.FailingApp(errors.New("b"))), "/")
	pipelinetest.Call(t, mw(&pipelinetest.App{
		Headers: pipeline.Headers{pipeline.ContentType: "text/plain"},
		Body:    pipelinetest.FailingBody(errors.New("c"), "x"),
	}), "/")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collecting metrics: %v", err)
	}

	got := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				kind, _ := dp.Attributes.Value(showexceptions.AttrFaultKind)
				got[kind.AsString()] += dp.Value
			}
		}
	}

	if got[string(showexceptions.KindPreResponse)] != 2 {
		t.Errorf("pre_response = %d, want 2", got[string(showexceptions.KindPreResponse)])
	}
	if got[string(showexceptions.KindMidStream)] != 1 {
		t.Errorf("mid_stream = %d, want 1", got[string(showexceptions.KindMidStream)])
	}
}

func TestNew_RecordsFaultOnRequestSpan(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "request")
	h := showexceptions.New()(pipelinetest.FailingApp(errors.New("Kaboom")))
	pipelinetest.Call(t, h, "/", pipelinetest.WithEnv(pipeline.KeyContext, ctx))
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(ended))
	}
	if ended[0].Status().Code != codes.Error {
		t.Errorf("span status = %v, want Error", ended[0].Status().Code)
	}

	found := false
	for _, ev := range ended[0].Events() {
		if ev.Name == "exception" {
			found = true
		}
	}
	if !found {
		t.Error("span has no exception event")
	}
}
