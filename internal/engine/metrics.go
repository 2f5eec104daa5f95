package engine

import "github.com/prometheus/client_golang/prometheus"

var commitmentEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "commitment_events_total",
		Help: "Commitment lifecycle transitions by lane",
	},
	[]string{"lane", "event"},
)

func init() {
	prometheus.MustRegister(commitmentEvents)
}
