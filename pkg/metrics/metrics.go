package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors for searches, the ledger and notifications.
type Metrics struct {
	RunsStarted       prometheus.Counter
	RunsFinished      *prometheus.CounterVec
	Tasks             *prometheus.CounterVec
	TaskDuration      *prometheus.HistogramVec
	LedgerImprovement prometheus.Counter
	Notifications     *prometheus.CounterVec
}

// New registers the collectors on the default registry.
func New(namespace string) *Metrics {
	return NewWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors on reg. Tests pass a fresh prometheus.NewRegistry().
func NewWithRegistry(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "The total number of search runs started",
		}),
		RunsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_finished_total",
			Help:      "The total number of search runs by terminal status",
		}, []string{"status"}),
		Tasks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_tasks_total",
			Help:      "The total number of candidate searches by source and outcome",
		}, []string{"source", "outcome"}),
		TaskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_task_duration_seconds",
			Help:      "Time taken by a single candidate search",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		LedgerImprovement: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_improvements_total",
			Help:      "The total number of observations that set or lowered a best price",
		}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "The total number of report notifications by channel and outcome",
		}, []string{"channel", "outcome"}),
	}
}
