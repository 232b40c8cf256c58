package diary

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "milkman",
		Name:      "entry_gate_decisions_total",
		Help:      "Entry creation requests by gate outcome.",
	}, []string{"outcome"})

	mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "milkman",
		Name:      "record_mutations_total",
		Help:      "Successful record store mutations.",
	}, []string{"kind", "op"})
)
