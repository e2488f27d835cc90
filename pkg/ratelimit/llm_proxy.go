package ratelimit

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// RateLimitedLLMModel 对LLM模型的调用进行限流和熔断的代理
type RateLimitedLLMModel struct {
	original    model.ToolCallingChatModel
	rateLimiter *TokenBucket
	breaker     *Breaker
}

// NewRateLimitedLLMModel 创建一个新的限流LLM模型代理
func NewRateLimitedLLMModel(original model.ToolCallingChatModel, qpm int) *RateLimitedLLMModel {
	return &RateLimitedLLMModel{
		original:    original,
		rateLimiter: NewTokenBucket(qpm, qpm/2), // 容量设为QPM的一半，允许一定的突发流量
	}
}

// WithRetryPolicy 设置重试策略
func (rl *RateLimitedLLMModel) WithRetryPolicy(waitTime time.Duration, maxRetries int) *RateLimitedLLMModel {
	rl.rateLimiter.WithRetryPolicy(waitTime, maxRetries)
	return rl
}

// WithBreaker 在限流之外再加一层熔断
func (rl *RateLimitedLLMModel) WithBreaker(b *Breaker) *RateLimitedLLMModel {
	rl.breaker = b
	return rl
}

// Generate 代理Generate方法，增加限流、熔断和重试逻辑
func (rl *RateLimitedLLMModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	var response *schema.Message

	call := func() error {
		var genErr error
		response, genErr = rl.original.Generate(ctx, messages, options...)
		return genErr
	}
	if rl.breaker != nil {
		inner := call
		call = func() error { return rl.breaker.Execute(inner) }
	}

	err := rl.rateLimiter.RetryWithBackoff(ctx, call)
	return response, err
}

// Stream 代理Stream方法，增加限流和重试逻辑
func (rl *RateLimitedLLMModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	var stream *schema.StreamReader[*schema.Message]

	err := rl.rateLimiter.RetryWithBackoff(ctx, func() error {
		var streamErr error
		stream, streamErr = rl.original.Stream(ctx, messages, options...)
		return streamErr
	})

	return stream, err
}

// WithTools 代理WithTools方法
func (rl *RateLimitedLLMModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	newModel, err := rl.original.WithTools(tools)
	if err != nil {
		return nil, err
	}

	// 创建一个新的代理，共享原有的限流器与熔断器
	return &RateLimitedLLMModel{
		original:    newModel,
		rateLimiter: rl.rateLimiter,
		breaker:     rl.breaker,
	}, nil
}

// Settings 限流代理配置
type Settings struct {
	ModelName     string
	ModelQPM      map[string]int // 各模型的官方 QPM 上限
	QPM           int
	MaxRetries    int
	RetryWaitTime time.Duration
	Breaker       BreakerConfig
}

// NewLLMWithRateLimit 根据配置包装原始LLM模型
func NewLLMWithRateLimit(original model.ToolCallingChatModel, s Settings) model.ToolCallingChatModel {
	qpm := s.QPM

	// 找到了模型对应的QPM限制，使用该限制值的90%作为安全值
	if s.ModelName != "" {
		if modelQPM, ok := s.ModelQPM[s.ModelName]; ok && modelQPM > 0 {
			qpm = int(float64(modelQPM) * 0.9)
		}
	}
	if qpm <= 0 {
		qpm = 30 // 默认QPM
	}

	maxRetries := s.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	limitedModel := NewRateLimitedLLMModel(original, qpm)
	limitedModel.WithRetryPolicy(s.RetryWaitTime, maxRetries)
	if s.Breaker.Enabled {
		limitedModel.WithBreaker(NewBreaker("evaluator:"+s.ModelName, s.Breaker, nil))
	}
	return limitedModel
}
