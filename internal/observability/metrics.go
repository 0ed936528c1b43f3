package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler exposes a ready-to-use /metrics endpoint for the given gatherer,
// defaulting to the global Prometheus registry when gatherer is nil. A
// controller run mounts this once, then lets stats.Collector register its
// own vectors against the matching Registerer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
