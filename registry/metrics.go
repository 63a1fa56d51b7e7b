package registry

import "github.com/prometheus/client_golang/prometheus"

/*
Counters tracking the health of the watch loop.
A nil *Metrics disables all counting.
*/
type Metrics struct {
	eventsApplied  *prometheus.CounterVec
	eventsDropped  prometheus.Counter
	watchFaults    prometheus.Counter
	listenerPanics prometheus.Counter
}

/*
Create the registry metrics, registering them on the given registerer if it is not nil.
*/
func NewMetrics(reg prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		eventsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etcd_registry_events_applied_total",
			Help: "Change events applied to the registry, by kind",
		}, []string{"kind"}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "etcd_registry_events_dropped_total",
			Help: "Change events dropped for protocol anomalies",
		}),
		watchFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "etcd_registry_watch_faults_total",
			Help: "Faults that terminated the watch loop",
		}),
		listenerPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "etcd_registry_listener_panics_total",
			Help: "Listener invocations that panicked during dispatch",
		}),
	}

	if reg != nil {
		reg.MustRegister(metrics.eventsApplied, metrics.eventsDropped, metrics.watchFaults, metrics.listenerPanics)
	}

	return metrics
}

func (metrics *Metrics) incApplied(kind string) {
	if metrics == nil {
		return
	}
	metrics.eventsApplied.WithLabelValues(kind).Inc()
}

func (metrics *Metrics) incDropped() {
	if metrics == nil {
		return
	}
	metrics.eventsDropped.Inc()
}

func (metrics *Metrics) incWatchFaults() {
	if metrics == nil {
		return
	}
	metrics.watchFaults.Inc()
}

func (metrics *Metrics) incListenerPanics() {
	if metrics == nil {
		return
	}
	metrics.listenerPanics.Inc()
}
