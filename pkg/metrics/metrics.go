package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "disquick"

	labelStage   = "stage"
	labelOutcome = "outcome"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name:      name,
		Help:      help,
		Namespace: namespace,
	})
}

var (
	DeploySuccessful    = counter("deploy_successful", "number of successful deployments")
	DeployFailed        = counter("deploy_failed", "number of failed deployments")
	ManifestRetargeted  = counter("manifest_retargeted", "number of recorded manifests rebuilt for a different target")
	GenerationsDeleted  = counter("generations_deleted", "number of coordinator profile generations deleted")
	GarbageCollectorRun = counter("garbage_collector_runs", "number of garbage collections triggered on targets")

	stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:      "stage_duration_seconds",
		Help:      "time spent in each deployment stage",
		Namespace: namespace,
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
	},
		[]string{
			labelStage,
			labelOutcome,
		},
	)

	registry = prometheus.NewRegistry()
)

func init() {
	registry.MustRegister(DeploySuccessful)
	registry.MustRegister(DeployFailed)
	registry.MustRegister(ManifestRetargeted)
	registry.MustRegister(GenerationsDeleted)
	registry.MustRegister(GarbageCollectorRun)
	registry.MustRegister(stageDuration)
}

func ObserveStage(stage string, duration time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	stageDuration.With(prometheus.Labels{
		labelStage:   stage,
		labelOutcome: outcome,
	}).Observe(duration.Seconds())
}

func Registry() *prometheus.Registry {
	return registry
}

// WriteTextfile writes all metrics in the Prometheus text format, suitable for the
// node exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, registry)
}
