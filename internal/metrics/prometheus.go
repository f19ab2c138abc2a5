// Package metrics exposes engine activity in Prometheus format.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"autosaver/internal/saver"
)

const namespace = "autosaver"

// Registry holds the engine metrics on a private Prometheus registry.
type Registry struct {
	registry *prometheus.Registry

	Ticks              prometheus.Counter
	BackupsCreated     prometheus.Counter
	BackupsFailed      prometheus.Counter
	BackupsDeferred    prometheus.Counter
	SnapshotsApplied   prometheus.Counter
	SnapshotsRenamed   prometheus.Counter
	Unavailable        prometheus.Counter
	Snapshots          prometheus.Gauge
	LastBackupUnixTime prometheus.Gauge
}

var _ saver.Metrics = (*Registry)(nil)

// NewRegistry creates and registers every metric, plus the Go runtime
// collectors.
func NewRegistry() *Registry {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}

	r := &Registry{
		registry:           prometheus.NewRegistry(),
		Ticks:              counter("ticks_total", "Stability checks performed."),
		BackupsCreated:     counter("backups_created_total", "Snapshots written to the destination directory."),
		BackupsFailed:      counter("backups_failed_total", "Snapshot copies that failed and will be retried."),
		BackupsDeferred:    counter("backups_deferred_total", "Stable writes deferred by the grace window."),
		SnapshotsApplied:   counter("snapshots_applied_total", "Snapshots restored onto the live save file."),
		SnapshotsRenamed:   counter("snapshots_renamed_total", "Snapshot labels changed."),
		Unavailable:        counter("source_unavailable_total", "Ticks that found the source missing or unreadable."),
		Snapshots:          gauge("snapshots", "Snapshots currently in the destination directory."),
		LastBackupUnixTime: gauge("last_backup_timestamp_seconds", "Unix time of the most recent backup."),
	}

	r.registry.MustRegister(
		r.Ticks, r.BackupsCreated, r.BackupsFailed, r.BackupsDeferred,
		r.SnapshotsApplied, r.SnapshotsRenamed, r.Unavailable,
		r.Snapshots, r.LastBackupUnixTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Registry) TickObserved()      { r.Ticks.Inc() }
func (r *Registry) BackupFailed()      { r.BackupsFailed.Inc() }
func (r *Registry) BackupDeferred()    { r.BackupsDeferred.Inc() }
func (r *Registry) SnapshotApplied()   { r.SnapshotsApplied.Inc() }
func (r *Registry) SnapshotRenamed()   { r.SnapshotsRenamed.Inc() }
func (r *Registry) SourceUnavailable() { r.Unavailable.Inc() }

func (r *Registry) BackupCreated() {
	r.BackupsCreated.Inc()
	r.LastBackupUnixTime.SetToCurrentTime()
}

func (r *Registry) SnapshotsKnown(n int) { r.Snapshots.Set(float64(n)) }

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Registry) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
