package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	monitors "github.com/Swind/go-monitors"
	"github.com/Swind/go-monitors/core"
	obs "github.com/Swind/go-monitors/observability/prometheus"
)

// env is what every subcommand needs: the loaded configuration, a logger and
// the metrics plumbing.
type env struct {
	cfg     core.Config
	logger  core.Logger
	metrics core.Metrics
	poller  *obs.SnapshotPoller
	reg     *prom.Registry
	addr    string
}

func newEnv(c *cli.Context) (*env, error) {
	level, err := parseLogLevel(c.String("log-level"))
	if err != nil {
		return nil, cli.Exit(err.Error(), 2)
	}
	cfg, err := loadConfig(c.Path("config"))
	if err != nil {
		return nil, cli.Exit(err.Error(), 2)
	}

	e := &env{
		cfg:     cfg,
		logger:  core.NewDefaultLogger(level),
		metrics: &core.NilMetrics{},
		addr:    c.String("metrics-addr"),
	}
	if e.addr == "" {
		return e, nil
	}

	e.reg = prom.NewRegistry()
	exporter, err := obs.NewMetricsExporter("monitors", e.reg, obs.ExporterOptions{})
	if err != nil {
		return nil, err
	}
	e.metrics = exporter
	if e.poller, err = obs.NewSnapshotPoller(e.reg, 250*time.Millisecond); err != nil {
		return nil, err
	}
	return e, nil
}

// serveMetrics exposes /metrics until ctx is done.
func (e *env) serveMetrics(ctx context.Context) {
	if e.reg == nil {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: e.addr, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error("metrics server failed", core.F("addr", e.addr), core.F("error", err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	e.poller.Start(ctx)
	e.logger.Info("serving metrics", core.F("addr", e.addr))
}

// run starts host and prints a status line every --report-every until the
// actors finish, --duration elapses or the process is interrupted. A report
// returning an error stops the host and that error is returned.
func (e *env) run(c *cli.Context, host *monitors.ActorHost, report func() error) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if d := c.Duration("duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	host.SetLogger(e.logger)
	if e.poller != nil {
		e.poller.AddHost(host.ID(), host)
		defer e.poller.Stop()
	}
	e.serveMetrics(ctx)

	host.Start(ctx)
	done := make(chan error, 1)
	go func() {
		done <- host.Wait()
	}()

	every := c.Duration("report-every")
	if every <= 0 {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			_ = report()
			return err
		case <-ticker.C:
			if err := report(); err != nil {
				_ = host.Stop()
				return err
			}
		}
	}
}
