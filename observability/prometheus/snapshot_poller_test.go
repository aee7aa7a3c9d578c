package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/Swind/go-monitors/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type bridgeStub struct {
	stats core.BridgeStats
}

func (s bridgeStub) Stats() core.BridgeStats { return s.stats }

type tableStub struct {
	stats core.TableStats
}

func (s tableStub) Stats() core.TableStats { return s.stats }

type hostStub struct {
	stats core.HostStats
}

func (s hostStub) Stats() core.HostStats { return s.stats }

func TestSnapshotPoller_CollectsMonitorStats(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	buf, err := core.NewBoundedBuffer[int](4)
	if err != nil {
		t.Fatalf("NewBoundedBuffer failed: %v", err)
	}
	buf.TryPut(1)
	buf.TryPut(2)
	light := core.NewTrafficLight()

	poller.AddBuffer("buffer-a", buf)
	poller.AddLight("light-a", light)
	poller.AddBridge("bridge-a", bridgeStub{stats: core.BridgeStats{
		Occupied:      true,
		WaitingRight:  3,
		CrossingsLeft: 5,
	}})
	poller.AddTable("table-a", tableStub{stats: core.TableStats{
		Hungry:     5,
		HoldingOne: 5,
		Deadlocked: true,
		HeldForks:  5,
	}})
	poller.AddHost("host-a", hostStub{stats: core.HostStats{
		Active:  2,
		Failed:  1,
		Running: true,
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	assertEventually(t, 2*time.Second, func() bool {
		size := testutil.ToFloat64(poller.bufferSize.WithLabelValues("buffer-a"))
		active := testutil.ToFloat64(poller.hostActive.WithLabelValues("host-a"))
		return size == 2 && active == 2
	})

	checks := []struct {
		name  string
		gauge prom.Gauge
		want  float64
	}{
		{"buffer capacity", poller.bufferCapacity.WithLabelValues("buffer-a"), 4},
		{"bridge occupied", poller.bridgeOccupied.WithLabelValues("bridge-a"), 1},
		{"bridge waiting right", poller.bridgeWaiting.WithLabelValues("bridge-a", "right"), 3},
		{"bridge crossings left", poller.bridgeCrossings.WithLabelValues("bridge-a", "left"), 5},
		{"table hungry", poller.tablePhilosophers.WithLabelValues("table-a", "hungry"), 5},
		{"table deadlocked", poller.tableDeadlocked.WithLabelValues("table-a"), 1},
		{"table held forks", poller.tableHeldForks.WithLabelValues("table-a"), 5},
		{"light red", poller.lightRed.WithLabelValues("light-a"), 1},
		{"host failed", poller.hostFailed.WithLabelValues("host-a"), 1},
		{"host running", poller.hostRunning.WithLabelValues("host-a"), 1},
	}
	for _, c := range checks {
		if got := testutil.ToFloat64(c.gauge); got != c.want {
			t.Errorf("%s gauge = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestSnapshotPoller_SharedRegistry(t *testing.T) {
	reg := prom.NewRegistry()
	if _, err := NewSnapshotPoller(reg, time.Second); err != nil {
		t.Fatalf("first NewSnapshotPoller failed: %v", err)
	}
	if _, err := NewSnapshotPoller(reg, time.Second); err != nil {
		t.Fatalf("second NewSnapshotPoller failed: %v", err)
	}
}

func TestSnapshotPoller_StartStop_Idempotent(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller.Start(ctx)
	poller.Start(ctx)
	poller.Stop()
	poller.Stop()
}

func assertEventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
