// Package monitors provides the classic monitor-based coordination problems as
// reusable Go building blocks.
//
// Every coordinator is a monitor: one mutex guarding shared state plus one or
// more condition variables. Blocking operations take a context.Context and
// give up with an error wrapping ErrCanceled when it is done, leaving the
// monitor exactly as it was.
//
// # Coordinators
//
// BoundedBuffer: a fixed-capacity FIFO. Put blocks while full, Get blocks while
// empty. Producers and consumers share one condition, so every change
// broadcasts.
//
// BridgeArbiter: a single-lane bridge admitting one car at a time. Each
// direction has its own wait set; a leaving car wakes one waiter, preferring
// its own direction.
//
// ForkManager and Table: the dining philosophers. Each fork has its own wait
// set and a release wakes exactly one waiter. OrderOwnFirst reproduces the
// circular wait; OrderAsymmetric breaks it.
//
// TrafficLight: cars wait while red, and switching to green releases all of
// them at once.
//
// # Running actors
//
// ActorHost runs producers, cars and philosophers on their own goroutines and
// stops them together:
//
//	table, _ := monitors.NewTable(cfg.Table)
//	host := monitors.NewActorHost("dinner")
//	for _, p := range table.Philosophers() {
//		host.Add(fmt.Sprintf("philosopher-%d", p.ID()), p)
//	}
//	host.Start(ctx)
//	defer host.Stop()
//
// # Observability
//
// Every monitor accepts a core.Logger and a core.Metrics. The
// observability/prometheus package provides a Prometheus-backed Metrics and a
// poller exporting Stats snapshots.
package monitors
