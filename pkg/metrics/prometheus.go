package metrics

import (
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
)

// Metrics tracks benchmark execution statistics: how many trials ran and
// how they ended, how many rounds were played, how often an ensure op
// had to retry, and how many tokens the judge gateway consumed.
type Metrics struct {
	TrialsTotal     int64
	TrialsOK        int64
	TrialsErrored   int64
	TrialsCancelled int64
	TrialsStuck     int64
	RoundsPlayed    int64
	EnsureRetries   int64
	TokensConsumed  int64
}

// AddTrial records one finished trial under the given terminal status
// ("ok", "errored", "cancelled", "stuck").
func (m *Metrics) AddTrial(status string) {
	atomic.AddInt64(&m.TrialsTotal, 1)
	switch status {
	case "ok":
		atomic.AddInt64(&m.TrialsOK, 1)
	case "errored":
		atomic.AddInt64(&m.TrialsErrored, 1)
	case "cancelled":
		atomic.AddInt64(&m.TrialsCancelled, 1)
	case "stuck":
		atomic.AddInt64(&m.TrialsStuck, 1)
	}
}

func (m *Metrics) AddRounds(n int64)        { atomic.AddInt64(&m.RoundsPlayed, n) }
func (m *Metrics) AddEnsureRetries(n int64) { atomic.AddInt64(&m.EnsureRetries, n) }
func (m *Metrics) AddTokens(n int64)        { atomic.AddInt64(&m.TokensConsumed, n) }

// PrometheusExporter exports metrics in Prometheus text format
type PrometheusExporter struct {
	metrics *Metrics
}

// NewPrometheusExporter creates a new Prometheus exporter
func NewPrometheusExporter(m *Metrics) *PrometheusExporter {
	return &PrometheusExporter{
		metrics: m,
	}
}

// Export returns metrics in Prometheus text format
func (e *PrometheusExporter) Export() string {
	var b strings.Builder

	// Read metrics atomically to avoid race conditions
	trialsTotal := atomic.LoadInt64(&e.metrics.TrialsTotal)
	trialsOK := atomic.LoadInt64(&e.metrics.TrialsOK)
	trialsErrored := atomic.LoadInt64(&e.metrics.TrialsErrored)
	trialsCancelled := atomic.LoadInt64(&e.metrics.TrialsCancelled)
	trialsStuck := atomic.LoadInt64(&e.metrics.TrialsStuck)
	roundsPlayed := atomic.LoadInt64(&e.metrics.RoundsPlayed)
	ensureRetries := atomic.LoadInt64(&e.metrics.EnsureRetries)
	tokensConsumed := atomic.LoadInt64(&e.metrics.TokensConsumed)

	// xent_trials_total with status labels
	fmt.Fprintf(&b, "xent_trials_total{status=\"ok\"} %d\n", trialsOK)
	fmt.Fprintf(&b, "xent_trials_total{status=\"errored\"} %d\n", trialsErrored)
	fmt.Fprintf(&b, "xent_trials_total{status=\"cancelled\"} %d\n", trialsCancelled)
	fmt.Fprintf(&b, "xent_trials_total{status=\"stuck\"} %d\n", trialsStuck)

	// xent_trials_total (aggregate)
	fmt.Fprintf(&b, "xent_trials_total %d\n", trialsTotal)

	// xent_rounds_played_total
	fmt.Fprintf(&b, "xent_rounds_played_total %d\n", roundsPlayed)

	// xent_ensure_retries_total
	fmt.Fprintf(&b, "xent_ensure_retries_total %d\n", ensureRetries)

	// xent_tokens_consumed_total
	fmt.Fprintf(&b, "xent_tokens_consumed_total %d\n", tokensConsumed)

	// xent_trial_failure_rate (calculated metric)
	var failureRate float64
	if trialsTotal > 0 {
		failureRate = float64(trialsTotal-trialsOK) / float64(trialsTotal)
	}
	fmt.Fprintf(&b, "xent_trial_failure_rate %s\n", formatFloat(failureRate))

	return b.String()
}

// Handler returns an HTTP handler for the /metrics endpoint
func (e *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, e.Export())
	})
}

// formatFloat formats a float64 for Prometheus (removes trailing zeros)
func formatFloat(f float64) string {
	if f == 0.0 {
		return "0"
	}
	// Format to 2 decimal places, then trim trailing zeros
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}
