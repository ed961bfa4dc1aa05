// Package metrics 提供 Prometheus 指标：模型调用、聚类解析、候选拉取与排序结果。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LLMRequestsTotal 模型调用次数，按 provider 与结果统计
	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interest_cluster_llm_requests_total",
			Help: "Total number of LLM completion requests",
		},
		[]string{"provider", "outcome"},
	)

	// LLMRequestDuration 模型调用耗时
	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "interest_cluster_llm_request_duration_seconds",
			Help:    "Duration of LLM completion requests in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 90, 120},
		},
		[]string{"provider"},
	)

	// CircuitBreakerState 熔断器状态（0=closed, 1=half-open, 2=open）
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "interest_cluster_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// CircuitBreakerTransitions 熔断器状态切换次数
	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interest_cluster_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// ClusterBlocksTotal 解析出的聚类块，按 parsed/discarded 统计
	ClusterBlocksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interest_cluster_blocks_total",
			Help: "Total number of cluster blocks seen by the response parser",
		},
		[]string{"protocol", "result"},
	)

	// ClusterRunsTotal 聚类分析运行次数
	ClusterRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interest_cluster_runs_total",
			Help: "Total number of cluster analysis runs",
		},
		[]string{"trigger", "outcome"},
	)

	// CandidateFetchErrors 候选拉取失败次数
	CandidateFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interest_cluster_candidate_fetch_errors_total",
			Help: "Total number of failed candidate store queries",
		},
		[]string{"query"},
	)

	// CandidatePoolSize 候选池大小
	CandidatePoolSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "interest_cluster_candidate_pool_size",
			Help:    "Number of candidates after dedup and self-exclusion",
			Buckets: []float64{0, 1, 3, 5, 10, 20, 50, 100, 200},
		},
		[]string{"source"},
	)

	// RankOutcomesTotal 排序结果类型统计
	RankOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interest_cluster_rank_outcomes_total",
			Help: "Total number of ranking runs by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordLLMRequest 记录一次模型调用
func RecordLLMRequest(provider, outcome string, duration time.Duration) {
	LLMRequestsTotal.WithLabelValues(provider, outcome).Inc()
	LLMRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordBreakerTransition 记录熔断器状态变化
func RecordBreakerTransition(name, from, to string, state float64) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(state)
}

// RecordClusterBlocks 记录一次解析中保留和丢弃的块数量
func RecordClusterBlocks(protocol string, parsed, discarded int) {
	if parsed > 0 {
		ClusterBlocksTotal.WithLabelValues(protocol, "parsed").Add(float64(parsed))
	}
	if discarded > 0 {
		ClusterBlocksTotal.WithLabelValues(protocol, "discarded").Add(float64(discarded))
	}
}

// RecordClusterRun 记录一次聚类分析
func RecordClusterRun(trigger, outcome string) {
	ClusterRunsTotal.WithLabelValues(trigger, outcome).Inc()
}

// RecordCandidateFetchError 记录候选拉取失败
func RecordCandidateFetchError(query string) {
	CandidateFetchErrors.WithLabelValues(query).Inc()
}

// RecordCandidatePool 记录候选池大小
func RecordCandidatePool(source string, size int) {
	CandidatePoolSize.WithLabelValues(source).Observe(float64(size))
}

// RecordRankOutcome 记录排序结果类型
func RecordRankOutcome(outcome string) {
	RankOutcomesTotal.WithLabelValues(outcome).Inc()
}
