package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector records webhook and provider-exchange outcomes.
type Collector struct {
	eventsProcessed *prometheus.CounterVec
	eventsRejected  prometheus.Counter
	eventsUnknown   prometheus.Counter
	exchanges       *prometheus.CounterVec
}

// NewCollector registers the collector's metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		eventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docusign_events_processed_total",
			Help: "Authenticated webhook events routed, by event kind.",
		}, []string{"event"}),
		eventsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docusign_events_rejected_total",
			Help: "Webhook deliveries rejected by signature verification.",
		}),
		eventsUnknown: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docusign_events_unknown_envelope_total",
			Help: "Authenticated events referencing no locally tracked envelope.",
		}),
		exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docusign_token_exchanges_total",
			Help: "Provider token exchanges, by grant and outcome.",
		}, []string{"grant", "outcome"}),
	}

	reg.MustRegister(
		c.eventsProcessed,
		c.eventsRejected,
		c.eventsUnknown,
		c.exchanges,
	)

	return c
}

// RecordEvent counts a routed webhook event.
func (c *Collector) RecordEvent(kind string) {
	if c == nil {
		return
	}
	if kind == "" {
		kind = "unrecognized"
	}
	c.eventsProcessed.WithLabelValues(kind).Inc()
}

// RecordRejected counts a signature-verification failure.
func (c *Collector) RecordRejected() {
	if c == nil {
		return
	}
	c.eventsRejected.Inc()
}

// RecordUnknownEnvelope counts an event for a foreign envelope.
func (c *Collector) RecordUnknownEnvelope() {
	if c == nil {
		return
	}
	c.eventsUnknown.Inc()
}

// RecordExchange counts a token exchange attempt.
func (c *Collector) RecordExchange(grant string, success bool) {
	if c == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	c.exchanges.WithLabelValues(grant, outcome).Inc()
}
