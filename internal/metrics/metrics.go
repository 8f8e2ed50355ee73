// Package metrics exposes the overlay service's prometheus collectors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "floatoverlay"

// Metrics holds the service collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	State          *prometheus.GaugeVec
	Transitions    *prometheus.CounterVec
	AttachAttempts *prometheus.CounterVec
	Failures       *prometheus.CounterVec
	Taps           prometheus.Counter
	DragUpdates    prometheus.Counter
	DroppedEvents  prometheus.Counter
}

// New creates and registers the service metrics on the given registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		State: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "state",
			Help:      "1 for the current service state, 0 for the others.",
		}, []string{"state"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "transitions_total",
			Help:      "Total number of service state transitions, by target state.",
		}, []string{"to"}),
		AttachAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "window",
			Name:      "attach_attempts_total",
			Help:      "Total number of window attach attempts, by result.",
		}, []string{"result"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "failures_total",
			Help:      "Total number of failures reported to the supervisor, by kind.",
		}, []string{"kind"}),
		Taps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "input",
			Name:      "taps_total",
			Help:      "Total number of taps dispatched.",
		}),
		DragUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "input",
			Name:      "drag_updates_total",
			Help:      "Total number of window position updates caused by dragging.",
		}),
		DroppedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "dropped_events_total",
			Help:      "Total number of pointer events dropped because the queue was full.",
		}),
	}

	reg.MustRegister(m.State, m.Transitions, m.AttachAttempts, m.Failures, m.Taps, m.DragUpdates, m.DroppedEvents)
	return m
}

// SetState marks state as current among all.
func (m *Metrics) SetState(state string, all []string) {
	if m == nil {
		return
	}
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		m.State.WithLabelValues(s).Set(v)
	}
	m.Transitions.WithLabelValues(state).Inc()
}

func (m *Metrics) AttachResult(result string) {
	if m == nil {
		return
	}
	m.AttachAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) Failure(kind string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(kind).Inc()
}

func (m *Metrics) Tap() {
	if m == nil {
		return
	}
	m.Taps.Inc()
}

func (m *Metrics) DragUpdate() {
	if m == nil {
		return
	}
	m.DragUpdates.Inc()
}

func (m *Metrics) Dropped() {
	if m == nil {
		return
	}
	m.DroppedEvents.Inc()
}
