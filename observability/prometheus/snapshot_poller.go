package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-monitors/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// BufferSnapshotProvider provides current buffer stats snapshots.
type BufferSnapshotProvider interface {
	Stats() core.BufferStats
}

// BridgeSnapshotProvider provides current bridge stats snapshots.
type BridgeSnapshotProvider interface {
	Stats() core.BridgeStats
}

// TableSnapshotProvider provides current philosopher table stats snapshots.
type TableSnapshotProvider interface {
	Stats() core.TableStats
}

// LightSnapshotProvider provides current traffic light stats snapshots.
type LightSnapshotProvider interface {
	Stats() core.LightStats
}

// HostSnapshotProvider provides current actor host stats snapshots.
type HostSnapshotProvider interface {
	Stats() core.HostStats
}

// SnapshotPoller periodically exports monitor Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	providersMu sync.RWMutex
	buffers     map[string]BufferSnapshotProvider
	bridges     map[string]BridgeSnapshotProvider
	tables      map[string]TableSnapshotProvider
	lights      map[string]LightSnapshotProvider
	hosts       map[string]HostSnapshotProvider

	bufferSize     *prom.GaugeVec
	bufferCapacity *prom.GaugeVec
	bufferWaiting  *prom.GaugeVec

	bridgeOccupied  *prom.GaugeVec
	bridgeWaiting   *prom.GaugeVec
	bridgeCrossings *prom.GaugeVec

	tablePhilosophers *prom.GaugeVec
	tableViolations   *prom.GaugeVec
	tableDeadlocked   *prom.GaugeVec
	tableHeldForks    *prom.GaugeVec

	lightRed     *prom.GaugeVec
	lightWaiting *prom.GaugeVec

	hostActive  *prom.GaugeVec
	hostFailed  *prom.GaugeVec
	hostRunning *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func newGauge(name, help string, labels ...string) *prom.GaugeVec {
	return prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "monitors",
		Name:      name,
		Help:      help,
	}, labels)
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	p := &SnapshotPoller{
		interval: interval,
		buffers:  make(map[string]BufferSnapshotProvider),
		bridges:  make(map[string]BridgeSnapshotProvider),
		tables:   make(map[string]TableSnapshotProvider),
		lights:   make(map[string]LightSnapshotProvider),
		hosts:    make(map[string]HostSnapshotProvider),

		bufferSize:     newGauge("buffer_size", "Items currently held per buffer.", "buffer"),
		bufferCapacity: newGauge("buffer_capacity", "Capacity per buffer.", "buffer"),
		bufferWaiting:  newGauge("buffer_waiting", "Producers and consumers blocked per buffer.", "buffer"),

		bridgeOccupied:  newGauge("bridge_occupied", "Bridge occupied state (1=occupied, 0=free).", "bridge"),
		bridgeWaiting:   newGauge("bridge_waiting", "Cars waiting per bridge and direction.", "bridge", "direction"),
		bridgeCrossings: newGauge("bridge_crossings_total", "Bridge crossing count snapshot.", "bridge", "direction"),

		tablePhilosophers: newGauge("table_philosophers", "Philosophers per table and state.", "table", "state"),
		tableViolations:   newGauge("table_violations_total", "Neighbours seen eating together.", "table"),
		tableDeadlocked:   newGauge("table_deadlocked", "Table deadlock state (1=deadlocked, 0=live).", "table"),
		tableHeldForks:    newGauge("table_held_forks", "Forks currently held per table.", "table"),

		lightRed:     newGauge("light_red", "Traffic light state (1=red, 0=green).", "light"),
		lightWaiting: newGauge("light_waiting", "Cars waiting per traffic light.", "light"),

		hostActive:  newGauge("host_active", "Actors currently running per host.", "host"),
		hostFailed:  newGauge("host_failed", "Actors that failed per host.", "host"),
		hostRunning: newGauge("host_running", "Host running state (1=running, 0=stopped).", "host"),
	}

	for _, g := range []**prom.GaugeVec{
		&p.bufferSize, &p.bufferCapacity, &p.bufferWaiting,
		&p.bridgeOccupied, &p.bridgeWaiting, &p.bridgeCrossings,
		&p.tablePhilosophers, &p.tableViolations, &p.tableDeadlocked, &p.tableHeldForks,
		&p.lightRed, &p.lightWaiting,
		&p.hostActive, &p.hostFailed, &p.hostRunning,
	} {
		registered, err := registerCollector(reg, *g)
		if err != nil {
			return nil, err
		}
		*g = registered
	}

	return p, nil
}

// AddBuffer adds or replaces a buffer snapshot provider by name.
func (p *SnapshotPoller) AddBuffer(name string, provider BufferSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	p.providersMu.Lock()
	p.buffers[normalizeLabel(name, "buffer")] = provider
	p.providersMu.Unlock()
}

// AddBridge adds or replaces a bridge snapshot provider by name.
func (p *SnapshotPoller) AddBridge(name string, provider BridgeSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	p.providersMu.Lock()
	p.bridges[normalizeLabel(name, "bridge")] = provider
	p.providersMu.Unlock()
}

// AddTable adds or replaces a table snapshot provider by name.
func (p *SnapshotPoller) AddTable(name string, provider TableSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	p.providersMu.Lock()
	p.tables[normalizeLabel(name, "table")] = provider
	p.providersMu.Unlock()
}

// AddLight adds or replaces a traffic light snapshot provider by name.
func (p *SnapshotPoller) AddLight(name string, provider LightSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	p.providersMu.Lock()
	p.lights[normalizeLabel(name, "light")] = provider
	p.providersMu.Unlock()
}

// AddHost adds or replaces a host snapshot provider by name.
func (p *SnapshotPoller) AddHost(name string, provider HostSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	p.providersMu.Lock()
	p.hosts[normalizeLabel(name, "host")] = provider
	p.providersMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	done := p.done
	p.stateMu.Unlock()

	go p.loop(pollCtx, done)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.providersMu.RLock()
	defer p.providersMu.RUnlock()

	for name, provider := range p.buffers {
		stats := provider.Stats()
		p.bufferSize.WithLabelValues(name).Set(float64(stats.Size))
		p.bufferCapacity.WithLabelValues(name).Set(float64(stats.Capacity))
		p.bufferWaiting.WithLabelValues(name).Set(float64(stats.Waiting))
	}

	for name, provider := range p.bridges {
		stats := provider.Stats()
		p.bridgeOccupied.WithLabelValues(name).Set(boolGauge(stats.Occupied))
		p.bridgeWaiting.WithLabelValues(name, core.Left.String()).Set(float64(stats.WaitingLeft))
		p.bridgeWaiting.WithLabelValues(name, core.Right.String()).Set(float64(stats.WaitingRight))
		p.bridgeCrossings.WithLabelValues(name, core.Left.String()).Set(float64(stats.CrossingsLeft))
		p.bridgeCrossings.WithLabelValues(name, core.Right.String()).Set(float64(stats.CrossingsRight))
	}

	for name, provider := range p.tables {
		stats := provider.Stats()
		p.tablePhilosophers.WithLabelValues(name, core.Thinking.String()).Set(float64(stats.Thinking))
		p.tablePhilosophers.WithLabelValues(name, core.Hungry.String()).Set(float64(stats.Hungry))
		p.tablePhilosophers.WithLabelValues(name, core.Eating.String()).Set(float64(stats.Eating))
		p.tableViolations.WithLabelValues(name).Set(float64(stats.Violations))
		p.tableDeadlocked.WithLabelValues(name).Set(boolGauge(stats.Deadlocked))
		p.tableHeldForks.WithLabelValues(name).Set(float64(stats.HeldForks))
	}

	for name, provider := range p.lights {
		stats := provider.Stats()
		p.lightRed.WithLabelValues(name).Set(boolGauge(stats.Red))
		p.lightWaiting.WithLabelValues(name).Set(float64(stats.Waiting))
	}

	for name, provider := range p.hosts {
		stats := provider.Stats()
		p.hostActive.WithLabelValues(name).Set(float64(stats.Active))
		p.hostFailed.WithLabelValues(name).Set(float64(stats.Failed))
		p.hostRunning.WithLabelValues(name).Set(boolGauge(stats.Running))
	}
}
