package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "taskroom"

	commandTypeLabel = "command"
)

type Metrics struct {
	Reg               *prometheus.Registry
	TasksCreated      prometheus.Counter
	RoomsCreated      prometheus.Counter
	MessagesSent      prometheus.Counter
	Commands          *prometheus.CounterVec
	ActiveConnections prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Reg: reg,
		TasksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_created_total",
		}),
		RoomsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_created_total",
		}),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
		}, []string{commandTypeLabel}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
		}),
	}

	reg.MustRegister(m.TasksCreated)
	reg.MustRegister(m.RoomsCreated)
	reg.MustRegister(m.MessagesSent)
	reg.MustRegister(m.Commands)
	reg.MustRegister(m.ActiveConnections)

	return m
}
