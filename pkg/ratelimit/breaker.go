package ratelimit

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig 熔断配置
type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	MinRequests      uint32        `yaml:"min_requests"`
	FailureRatio     float64       `yaml:"failure_ratio"`
	OpenTimeout      time.Duration `yaml:"open_timeout"`
	HalfOpenMaxCalls uint32        `yaml:"half_open_max_calls"`
}

// DefaultBreakerConfig 默认熔断配置
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:          true,
		MinRequests:      10,
		FailureRatio:     0.5,
		OpenTimeout:      30 * time.Second,
		HalfOpenMaxCalls: 2,
	}
}

func (c BreakerConfig) normalize() BreakerConfig {
	def := DefaultBreakerConfig()
	if c.MinRequests == 0 {
		c.MinRequests = def.MinRequests
	}
	if c.FailureRatio <= 0 || c.FailureRatio > 1 {
		c.FailureRatio = def.FailureRatio
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = def.OpenTimeout
	}
	if c.HalfOpenMaxCalls == 0 {
		c.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}
	return c
}

// Breaker 评估服务熔断器
type Breaker struct {
	cb *gobreaker.CircuitBreaker[any]
}

// NewBreaker 创建熔断器；logger 可为 nil
func NewBreaker(name string, cfg BreakerConfig, logger *log.Logger) *Breaker {
	cfg = cfg.normalize()
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenMaxCalls,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !recordsFailure(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Printf("[熔断] %s 状态变化: %s -> %s", name, from.String(), to.String())
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker[any](settings)}
}

// Execute 通过熔断器执行 fn
func (b *Breaker) Execute(fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}

// State 当前状态名
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// IsCircuitOpen 错误是否来自熔断器拒绝
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// recordsFailure 调用方取消与非限流的 4xx 不计入失败
func recordsFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}
