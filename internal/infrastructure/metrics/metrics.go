// Package metrics holds the Prometheus collectors the resolver exposes.
// None of them influence resolution; they exist purely for operators to
// scrape via an optional /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueriesTotal counts client queries the handler has answered, by
	// requested type and the rescode returned.
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recurdns_queries_total",
		Help: "Total number of client DNS queries answered, by qtype and rescode",
	}, []string{"qtype", "rescode"})

	// QueryDuration measures wall-clock time from datagram receipt to
	// response send for one client query, including every upstream
	// exchange the resolver performed along the way.
	QueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recurdns_query_duration_seconds",
		Help:    "Client query handling duration, end to end",
		Buckets: prometheus.DefBuckets,
	})

	// ResolverExchangesTotal counts upstream UDP exchanges the iterative
	// resolver performed, a proxy for delegation-chain depth.
	ResolverExchangesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recurdns_resolver_exchanges_total",
		Help: "Total number of upstream UDP exchanges performed while resolving",
	})

	// ResolverUpstreamErrorsTotal counts failed upstream exchanges by
	// reason (timeout vs. other transport failure).
	ResolverUpstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recurdns_resolver_upstream_errors_total",
		Help: "Total number of upstream exchange failures, by reason",
	}, []string{"reason"})
)
