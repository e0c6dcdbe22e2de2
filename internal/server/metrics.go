package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeAllow = "allow"
	outcomeBlock = "block"
	outcomeQueue = "queue"
)

var decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "torii",
	Name:      "decisions_total",
	Help:      "Gate decisions, labeled by outcome and by the check or strategy that made them",
}, []string{"outcome", "source"})
