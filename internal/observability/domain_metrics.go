package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	questionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queryguard_questions_total",
			Help: "Total number of routed questions by route.",
		},
		[]string{"route"},
	)
	pipelineOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queryguard_pipeline_outcomes_total",
			Help: "Total number of pipeline outcomes by terminal stage.",
		},
		[]string{"stage", "ok"},
	)
	blockedSQLTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queryguard_blocked_sql_total",
			Help: "Total number of generated statements rejected by the validator.",
		},
		[]string{"reason"},
	)
	queryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "queryguard_query_duration_seconds",
			Help:    "Backend query execution latency by source kind.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)
)

func init() {
	prometheus.MustRegister(
		questionsTotal,
		pipelineOutcomesTotal,
		blockedSQLTotal,
		queryDurationSeconds,
	)
}

func ObserveQuestion(route string) {
	questionsTotal.WithLabelValues(route).Inc()
}

func ObservePipelineOutcome(stage string, ok bool) {
	label := "false"
	if ok {
		label = "true"
	}
	pipelineOutcomesTotal.WithLabelValues(stage, label).Inc()
}

func ObserveBlockedSQL(reason string) {
	blockedSQLTotal.WithLabelValues(reason).Inc()
}

func ObserveQueryDuration(source string, elapsed time.Duration) {
	queryDurationSeconds.WithLabelValues(source).Observe(elapsed.Seconds())
}
