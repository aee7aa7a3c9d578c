package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/Swind/go-monitors/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsExporter_RecordMethods(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("monitors", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	exporter.RecordWait("buffer", "put", 250*time.Millisecond)
	exporter.RecordCancellation("bridge", "enter_left")
	exporter.RecordTransition("table", "eating")
	exporter.RecordTransition("table", "eating")
	exporter.RecordOccupancy("buffer", 7)

	if got := testutil.ToFloat64(exporter.cancellationsTotal.WithLabelValues("bridge", "enter_left")); got != 1 {
		t.Fatalf("cancellations total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.transitionsTotal.WithLabelValues("table", "eating")); got != 2 {
		t.Fatalf("transitions total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(exporter.occupancy.WithLabelValues("buffer")); got != 7 {
		t.Fatalf("occupancy = %v, want 7", got)
	}

	histCount, err := histogramSampleCount(exporter.waitSeconds.WithLabelValues("buffer", "put"))
	if err != nil {
		t.Fatalf("histogramSampleCount failed: %v", err)
	}
	if histCount != 1 {
		t.Fatalf("wait sample count = %d, want 1", histCount)
	}
}

func TestMetricsExporter_EmptyLabelsFallBack(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	exporter.RecordCancellation("", "")

	if got := testutil.ToFloat64(exporter.cancellationsTotal.WithLabelValues("unknown", "unknown")); got != 1 {
		t.Fatalf("fallback cancellations = %v, want 1", got)
	}
}

func TestMetricsExporter_AlreadyRegisteredReuse(t *testing.T) {
	reg := prom.NewRegistry()
	first, err := NewMetricsExporter("monitors", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("first NewMetricsExporter failed: %v", err)
	}
	second, err := NewMetricsExporter("monitors", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("second NewMetricsExporter failed: %v", err)
	}

	first.RecordCancellation("buffer", "get")
	second.RecordCancellation("buffer", "get")

	got := testutil.ToFloat64(first.cancellationsTotal.WithLabelValues("buffer", "get"))
	if got != 2 {
		t.Fatalf("shared cancellation counter = %v, want 2", got)
	}
}

// TestMetricsExporter_WiredIntoBuffer verifies a monitor reports through the exporter
// Given: a buffer of capacity 1 using the exporter
// When: a Put blocks on the full buffer and is then canceled
// Then: occupancy and the cancellation counter reflect it
func TestMetricsExporter_WiredIntoBuffer(t *testing.T) {
	// Arrange
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("monitors", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}
	buf, err := core.NewBoundedBuffer[int](1)
	if err != nil {
		t.Fatalf("NewBoundedBuffer failed: %v", err)
	}
	buf.SetName("handout")
	buf.SetMetrics(exporter)

	// Act
	if err := buf.Put(context.Background(), 1); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = buf.Put(ctx, 2)

	// Assert
	if !core.IsCanceled(err) {
		t.Fatalf("blocked Put = %v, want cancellation", err)
	}
	if got := testutil.ToFloat64(exporter.occupancy.WithLabelValues("handout")); got != 1 {
		t.Errorf("occupancy = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.cancellationsTotal.WithLabelValues("handout", "put")); got != 1 {
		t.Errorf("cancellations = %v, want 1", got)
	}
}

func histogramSampleCount(observer prom.Observer) (uint64, error) {
	collector, ok := observer.(prom.Collector)
	if !ok {
		return 0, nil
	}

	metricCh := make(chan prom.Metric, 1)
	collector.Collect(metricCh)
	close(metricCh)
	for metric := range metricCh {
		msg := &dto.Metric{}
		if err := metric.Write(msg); err != nil {
			return 0, err
		}
		if msg.Histogram != nil {
			return msg.Histogram.GetSampleCount(), nil
		}
	}
	return 0, nil
}
