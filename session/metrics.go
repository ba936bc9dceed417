package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// runsTotal 按结果统计脚本执行次数
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_runs_total",
		Help: "Total solver script runs by result",
	}, []string{"result"})

	// runDuration 单次脚本执行耗时
	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "solver_run_duration_seconds",
		Help:    "Solver script run duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	})

	// sessionsStarted 启动的求解器进程数
	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "solver_sessions_started_total",
		Help: "Total solver processes started",
	})
)

const (
	resultOK        = "ok"
	resultNoResult  = "no_result"
	resultMalformed = "malformed"
	resultTimeout   = "timeout"
	resultError     = "error"
)
