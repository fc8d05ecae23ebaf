// Package metrics exposes prometheus instrumentation for the download
// command synchronization.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	resultLabel = "result"

	// ResultApplied marks an update that was fully applied.
	ResultApplied = "applied"
	// ResultIgnored marks an event for a ref other than the config ref.
	ResultIgnored = "ignored"
	// ResultFailed marks an update aborted by a read or registry error.
	ResultFailed = "failed"
)

// Sync holds the counters updated by the sync worker. A nil *Sync is valid
// and records nothing.
type Sync struct {
	events         *prometheus.CounterVec
	seededProjects prometheus.Counter
	commands       prometheus.Gauge
}

// NewSync creates the sync metrics and registers them with reg.
func NewSync(reg prometheus.Registerer) (*Sync, error) {
	s := &Sync{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dlcmd_sync_events_total",
			Help: "Count of ref-updated events handled by the sync worker, by result",
		}, []string{resultLabel}),
		seededProjects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dlcmd_seeded_projects_total",
			Help: "Count of projects read while seeding the registry",
		}),
		commands: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dlcmd_registered_commands",
			Help: "Number of download command names currently registered",
		}),
	}

	for _, c := range []prometheus.Collector{s.events, s.seededProjects, s.commands} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering sync metrics: %w", err)
		}
	}
	return s, nil
}

// Event counts one handled event with the given result.
func (s *Sync) Event(result string) {
	if s == nil {
		return
	}
	s.events.WithLabelValues(result).Inc()
}

// ProjectSeeded counts one project read during seeding.
func (s *Sync) ProjectSeeded() {
	if s == nil {
		return
	}
	s.seededProjects.Inc()
}

// SetCommands records the number of registered command names.
func (s *Sync) SetCommands(n int) {
	if s == nil {
		return
	}
	s.commands.Set(float64(n))
}

// Serve exposes gatherer on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving metrics on %s: %w", addr, err)
	}
}
