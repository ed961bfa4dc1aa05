package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"interest_cluster/config"
	"interest_cluster/logger"
	"interest_cluster/metrics"
)

// ResilientLLM 为模型调用加上超时、限速和熔断。
// 返回的错误都包装了 ErrModelCall。
type ResilientLLM struct {
	name    string
	inner   LLMClient
	breaker *gobreaker.CircuitBreaker[string]
	limiter *rate.Limiter
	timeout time.Duration
}

// ResilienceOptions 限速与熔断参数
type ResilienceOptions struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	FailureThreshold  uint32
	OpenTimeout       time.Duration
}

// ResilienceOptionsFromConfig 从配置读取参数
func ResilienceOptionsFromConfig(cfg *config.Config) ResilienceOptions {
	return ResilienceOptions{
		Timeout:           time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
		Burst:             cfg.LLM.Burst,
		FailureThreshold:  cfg.LLM.BreakerFailures,
		OpenTimeout:       time.Duration(cfg.LLM.BreakerTimeoutSec) * time.Second,
	}
}

// NewResilientLLM 包装一个模型客户端
func NewResilientLLM(name string, inner LLMClient, opts ResilienceOptions) *ResilientLLM {
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.FailureThreshold
		},
		// 调用方取消不算作模型故障
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("LLM熔断器状态变化", "name", name, "from", from.String(), "to", to.String())
			metrics.RecordBreakerTransition(name, from.String(), to.String(), breakerStateValue(to))
		},
	}

	return &ResilientLLM{
		name:    name,
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[string](settings),
		limiter: rate.NewLimiter(limit, opts.Burst),
		timeout: opts.Timeout,
	}
}

// Complete 在超时内完成一次模型调用
func (r *ResilientLLM) Complete(ctx context.Context, prompt string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := r.limiter.Wait(ctx); err != nil {
		metrics.RecordLLMRequest(r.name, "rate_limited", time.Since(start))
		return "", fmt.Errorf("%w: rate limiter: %w", ErrModelCall, err)
	}

	text, err := r.breaker.Execute(func() (string, error) {
		return r.inner.Complete(ctx, prompt)
	})
	duration := time.Since(start)
	if err != nil {
		outcome := "error"
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			outcome = "circuit_open"
		case errors.Is(err, context.DeadlineExceeded):
			outcome = "timeout"
		}
		metrics.RecordLLMRequest(r.name, outcome, duration)
		logger.Error("LLM调用失败", "provider", r.name, "outcome", outcome, "duration_ms", duration.Milliseconds(), "error", err)
		return "", fmt.Errorf("%w: %w", ErrModelCall, err)
	}

	metrics.RecordLLMRequest(r.name, "success", duration)
	return text, nil
}

// State 熔断器当前状态
func (r *ResilientLLM) State() string {
	return r.breaker.State().String()
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// NewLLMClient 按 llm.provider 创建带熔断与限速的模型客户端
func NewLLMClient(ctx context.Context, cfg *config.Config) (*ResilientLLM, error) {
	var (
		inner LLMClient
		err   error
	)
	switch cfg.LLM.Provider {
	case "gemini":
		inner, err = NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
	default:
		inner = NewSiliconFlowClient(cfg)
	}
	return NewResilientLLM(cfg.LLM.Provider, inner, ResilienceOptionsFromConfig(cfg)), nil
}
