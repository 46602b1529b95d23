package observability

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Scope decision outcomes.
const (
	ScopeAll      = "all"
	ScopeFiltered = "filtered"
	ScopeDenied   = "denied"
)

var (
	scopeMetricsMu          sync.Mutex
	scopeMetricsInitialized bool
	scopeMetricsError       error

	scopeDecisionCounter *prometheus.CounterVec
)

// SetupScopeMetrics registers the scope decision counter once.
func SetupScopeMetrics(reg prometheus.Registerer) error {
	scopeMetricsMu.Lock()
	defer scopeMetricsMu.Unlock()
	if scopeMetricsInitialized {
		return scopeMetricsError
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flockwatch_scope_decisions_total",
		Help: "Scope filter decisions by outcome.",
	}, []string{"kind", "outcome"})
	if err := reg.Register(counter); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			scopeMetricsError = err
			scopeMetricsInitialized = true
			return err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			scopeMetricsError = fmt.Errorf("scope metrics: unexpected collector type %T", already.ExistingCollector)
			scopeMetricsInitialized = true
			return scopeMetricsError
		}
		counter = existing
	}
	scopeDecisionCounter = counter
	scopeMetricsInitialized = true
	return nil
}

// RecordScopeDecision counts one scope decision. kind is "list" or "single".
func RecordScopeDecision(kind, outcome string) {
	if scopeDecisionCounter == nil {
		return
	}
	scopeDecisionCounter.WithLabelValues(kind, outcome).Inc()
}
