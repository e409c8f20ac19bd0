// Package metrics exposes Prometheus instrumentation for backend dispatch.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/datastack-labs/fedsql/pkg/resultset"
)

// HandlerQuerySeconds observes connector dispatch latency, labeled by the
// connector engine and the kind of result it produced.
var HandlerQuerySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name: "fedsql_handler_query_seconds",
	Help: "Time spent dispatching a statement to a backend connector.",
}, []string{"handler", "result_kind"})

// Register must be called once from main. Components observe metrics
// whether or not registration happened; an unregistered metric is simply
// never scraped.
func Register() {
	prometheus.MustRegister(HandlerQuerySeconds)
}

// HTTPHandler returns the scrape endpoint handler.
func HTTPHandler() http.Handler { return promhttp.Handler() }

// ObserveQuery records one dispatch duration.
func ObserveQuery(handlerKind string, kind resultset.Kind, elapsed time.Duration) {
	HandlerQuerySeconds.WithLabelValues(handlerKind, string(kind)).Observe(elapsed.Seconds())
}
