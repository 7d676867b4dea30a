package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_runs_total",
		Help: "Total number of dataset pipeline runs by final status",
	}, []string{"dataset", "status"})

	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_country_fetches_total",
		Help: "Total number of per-country fetch tasks by outcome",
	}, []string{"dataset", "status"})

	verdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_verdicts_total",
		Help: "Total number of non-accepted validation verdicts by status",
	}, []string{"dataset", "status"})
)
