// Package metrics exposes prometheus counters for long-running watch mode.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ChecksTotal counts probes by outcome (available, registered, unknown).
	ChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rdapwatch",
		Name:      "checks_total",
		Help:      "Domain availability checks by outcome.",
	}, []string{"outcome"})

	// NoCoverageTotal counts domains skipped because their TLD has no RDAP
	// endpoint.
	NoCoverageTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rdapwatch",
		Name:      "no_coverage_total",
		Help:      "Domains skipped for lack of RDAP coverage.",
	})

	// ProbeDuration observes how long registry queries take.
	ProbeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "rdapwatch",
		Name:      "probe_duration_seconds",
		Help:      "Registry probe latency.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})
)

func init() {
	prometheus.MustRegister(ChecksTotal, NoCoverageTotal, ProbeDuration)
}

// Serve exposes /metrics on addr. Blocks, so run it in a goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
