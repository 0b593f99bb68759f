package retrieval

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Backend errors are swallowed on the query path (callers only observe
// emptiness), so they are counted here to keep "no data" and "backend down"
// distinguishable operationally.
var (
	backendErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retrieval_backend_errors_total",
		Help: "Backend calls that failed and were converted to empty results.",
	}, []string{"backend", "operation"})

	searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retrieval_searches_total",
		Help: "Search calls served, by effective strategy.",
	}, []string{"strategy"})

	upsertPartialFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retrieval_upsert_partial_failures_total",
		Help: "UpsertChunks calls that left the backends inconsistent.",
	}, []string{"backend"})
)
