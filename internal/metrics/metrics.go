// Package metrics provides Prometheus metrics for endpoint writes and
// indicator updates.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	endpointWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledhal",
		Subsystem: "endpoint",
		Name:      "writes_total",
		Help:      "Control endpoint writes by result",
	}, []string{"endpoint", "result"})

	indicatorUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledhal",
		Subsystem: "indicator",
		Name:      "updates_total",
		Help:      "Logical light updates received per indicator",
	}, []string{"indicator"})

	speakerOwner = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ledhal",
		Subsystem: "speaker",
		Name:      "owner",
		Help:      "1 for the indicator currently driving the RGB cluster",
	}, []string{"indicator"})
)

// EndpointWrite counts one write attempt.
func EndpointWrite(endpoint string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	endpointWrites.WithLabelValues(endpoint, result).Inc()
}

// IndicatorUpdate counts one update of an indicator.
func IndicatorUpdate(indicator string) {
	indicatorUpdates.WithLabelValues(indicator).Inc()
}

// SpeakerOwner marks owner as the indicator driving the cluster.
func SpeakerOwner(owner string, candidates []string) {
	for _, c := range candidates {
		v := 0.0
		if c == owner {
			v = 1
		}
		speakerOwner.WithLabelValues(c).Set(v)
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
