package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"TurtleControl/internal/taskq"
)

// Collector bundles the Prometheus metrics for the session core and wires
// live gauges to the registry and task queues.
type Collector struct {
	gatherer prometheus.Gatherer

	MessagesProcessed *prometheus.CounterVec
	Unauthorized      prometheus.Counter
	Broadcasts        *prometheus.CounterVec
}

// NewCollector registers the metrics against reg, defaulting to the global
// Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer, registry *Registry, queues ...*taskq.Queue) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	messages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "session_messages_total",
		Help: "Total inbound websocket messages processed, labeled by envelope type.",
	}, []string{"type"})
	if err := reg.Register(messages); err != nil {
		return nil, err
	}

	unauthorized := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "session_unauthorized_total",
		Help: "Total messages refused by the authorization gate.",
	})
	if err := reg.Register(unauthorized); err != nil {
		return nil, err
	}

	broadcasts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "session_broadcasts_total",
		Help: "Total sync broadcasts dispatched, labeled by directive.",
	}, []string{"directive"})
	if err := reg.Register(broadcasts); err != nil {
		return nil, err
	}

	connectionGauges := []struct {
		name string
		help string
		fn   func() float64
	}{
		{"session_connected_clients", "Currently connected operator clients.",
			func() float64 { return float64(registry.ClientCount()) }},
		{"session_connected_machines", "Currently connected registered machines.",
			func() float64 { return float64(registry.MachineCount()) }},
		{"session_uninitiated_machines", "Machines staged awaiting accept or reject.",
			func() float64 { return float64(registry.UninitiatedCount()) }},
	}
	for _, g := range connectionGauges {
		gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: g.name, Help: g.help}, g.fn)
		if err := reg.Register(gauge); err != nil {
			return nil, err
		}
	}

	for _, q := range queues {
		q := q
		active := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "taskq_active_tasks",
			Help:        "Currently executing tasks in the queue.",
			ConstLabels: prometheus.Labels{"queue": q.Name()},
		}, func() float64 { return float64(q.ActiveCount()) })
		if err := reg.Register(active); err != nil {
			return nil, err
		}
		waiting := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "taskq_waiting_tasks",
			Help:        "Tasks parked behind the concurrency bound.",
			ConstLabels: prometheus.Labels{"queue": q.Name()},
		}, func() float64 { return float64(q.WaitingCount()) })
		if err := reg.Register(waiting); err != nil {
			return nil, err
		}
	}

	return &Collector{
		gatherer:          gatherer,
		MessagesProcessed: messages,
		Unauthorized:      unauthorized,
		Broadcasts:        broadcasts,
	}, nil
}

// Handler serves the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
