package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusErr struct{ code int }

func (e *statusErr) Error() string   { return "status" }
func (e *statusErr) Retryable() bool { return e.code == 429 || e.code >= 500 }

type countingModel struct {
	errs  []error
	calls int
}

func (m *countingModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	idx := m.calls
	m.calls++
	if idx < len(m.errs) && m.errs[idx] != nil {
		return nil, m.errs[idx]
	}
	return schema.AssistantMessage("ok", nil), nil
}

func (m *countingModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("no stream")
}

func (m *countingModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

func TestTokenBucket_Allow(t *testing.T) {
	tb := NewTokenBucket(60, 2)
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
	assert.Equal(t, 60, tb.QPM())
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, IsRetryableError(nil))
	assert.True(t, IsRetryableError(&statusErr{code: 429}))
	assert.True(t, IsRetryableError(&statusErr{code: 503}))
	assert.False(t, IsRetryableError(&statusErr{code: 400}))
	assert.True(t, IsRetryableError(errors.New("read tcp: connection reset by peer")))
	assert.False(t, IsRetryableError(context.Canceled))
	assert.False(t, IsRetryableError(errors.New("invalid api key")))
}

func TestRateLimitedLLMModel_RetriesRetryableErrors(t *testing.T) {
	inner := &countingModel{errs: []error{&statusErr{code: 503}, nil}}
	proxy := NewRateLimitedLLMModel(inner, 6000).WithRetryPolicy(time.Millisecond, 2)

	msg, err := proxy.Generate(context.Background(), []*schema.Message{schema.UserMessage("x")})
	require.NoError(t, err)
	assert.Equal(t, "ok", msg.Content)
	assert.Equal(t, 2, inner.calls)
}

func TestRateLimitedLLMModel_NoRetryOnClientError(t *testing.T) {
	inner := &countingModel{errs: []error{&statusErr{code: 400}}}
	proxy := NewRateLimitedLLMModel(inner, 6000).WithRetryPolicy(time.Millisecond, 3)

	_, err := proxy.Generate(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestBreaker_OpensAfterFailures(t *testing.T) {
	b := NewBreaker("test", BreakerConfig{Enabled: true, MinRequests: 2, FailureRatio: 0.5, OpenTimeout: time.Minute}, nil)
	boom := &statusErr{code: 500}

	assert.Equal(t, boom, b.Execute(func() error { return boom }))
	assert.Equal(t, boom, b.Execute(func() error { return boom }))

	err := b.Execute(func() error { return nil })
	require.Error(t, err)
	assert.True(t, IsCircuitOpen(err))
	assert.Equal(t, "open", b.State())
}

func TestBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	b := NewBreaker("test", BreakerConfig{Enabled: true, MinRequests: 1, FailureRatio: 0.1, OpenTimeout: time.Minute}, nil)
	for i := 0; i < 3; i++ {
		_ = b.Execute(func() error { return &statusErr{code: 400} })
	}
	assert.Equal(t, "closed", b.State())
}

func TestNewLLMWithRateLimit_UsesModelQPM(t *testing.T) {
	inner := &countingModel{}
	m := NewLLMWithRateLimit(inner, Settings{
		ModelName: "m1",
		ModelQPM:  map[string]int{"m1": 100},
		Breaker:   BreakerConfig{Enabled: true},
	})
	proxy, ok := m.(*RateLimitedLLMModel)
	require.True(t, ok)
	assert.Equal(t, 90, proxy.rateLimiter.QPM())
	assert.NotNil(t, proxy.breaker)
}
