package metrics

import (
	"net/http"

	"github.com/hylla/projboard/internal/app"
	"github.com/hylla/projboard/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ app.StoreObserver = (*Metrics)(nil)

// Metrics provides observability for the project store.
// Tracks adds, moves, notification passes and listener failures on a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	ProjectsAdded    prometheus.Counter
	ProjectMoves     *prometheus.CounterVec
	Projects         *prometheus.GaugeVec
	Notifications    prometheus.Counter
	ListenerFailures prometheus.Counter
}

// New creates a new Metrics instance with all store metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)
	m := &Metrics{
		registry: registry,
		ProjectsAdded: factory.NewCounter(prometheus.CounterOpts{
			Name: "projboard_projects_added_total",
			Help: "Total number of projects added to the store",
		}),
		ProjectMoves: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "projboard_project_moves_total",
			Help: "Total number of project status changes",
		}, []string{"from", "to"}),
		Projects: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "projboard_projects",
			Help: "Current number of projects per status",
		}, []string{"status"}),
		Notifications: factory.NewCounter(prometheus.CounterOpts{
			Name: "projboard_notifications_total",
			Help: "Total number of snapshots published to store listeners",
		}),
		ListenerFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "projboard_listener_failures_total",
			Help: "Total number of store listeners that panicked",
		}),
	}
	for _, status := range domain.ProjectStatuses() {
		m.Projects.WithLabelValues(string(status)).Set(0)
	}
	return m
}

// Registry returns the dedicated registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ProjectAdded records a successful add.
func (m *Metrics) ProjectAdded(domain.Project) {
	m.ProjectsAdded.Inc()
}

// ProjectMoved records one status transition.
func (m *Metrics) ProjectMoved(project domain.Project, from domain.ProjectStatus) {
	m.ProjectMoves.WithLabelValues(string(from), string(project.Status)).Inc()
}

// SnapshotPublished refreshes the per-status gauge from a published snapshot.
func (m *Metrics) SnapshotPublished(snapshot []domain.Project, _ int) {
	m.Notifications.Inc()
	counts := map[domain.ProjectStatus]int{}
	for _, project := range snapshot {
		counts[project.Status]++
	}
	for _, status := range domain.ProjectStatuses() {
		m.Projects.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}

// ListenerFailed records a recovered listener panic.
func (m *Metrics) ListenerFailed() {
	m.ListenerFailures.Inc()
}
