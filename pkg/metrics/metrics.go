package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	uploader = "uploader"

	// Upload metrics
	uploadsTotal = "uploads_total"

	// Definition metrics
	definitionsTotal = "definitions_total"

	// Labels
	channelLabel = "channel"
	statusLabel  = "status"
	stateLabel   = "state"
)

var uploadsTotalLabels = []string{
	channelLabel,
	statusLabel,
}

var definitionsTotalLabels = []string{
	stateLabel,
}

// registry is private to the process so the counters only ever describe upload runs.
var registry = prometheus.NewRegistry()

/**
* Metrics definition
**/
var uploadsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: uploader,
		Name:      uploadsTotal,
		Help:      "number of upload jobs by channel and outcome",
	},
	uploadsTotalLabels,
)

var definitionsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: uploader,
		Name:      definitionsTotal,
		Help:      "number of definition files processed by terminal state",
	},
	definitionsTotalLabels,
)

func IncreaseUploadsTotalMetric(channel, status string) {
	labels := prometheus.Labels{
		channelLabel: channel,
		statusLabel:  status,
	}
	uploadsTotalMetric.With(labels).Inc()
}

func IncreaseDefinitionsTotalMetric(state string) {
	labels := prometheus.Labels{
		stateLabel: state,
	}
	definitionsTotalMetric.With(labels).Inc()
}

// Gatherer exposes the registry holding the uploader metrics.
func Gatherer() prometheus.Gatherer {
	return registry
}

// WriteToTextfile dumps the current metric values in the Prometheus text format,
// suitable for the node-exporter textfile collector.
func WriteToTextfile(filename string) error {
	return prometheus.WriteToTextfile(filename, Gatherer())
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	registry.MustRegister(uploadsTotalMetric)
	registry.MustRegister(definitionsTotalMetric)
}
