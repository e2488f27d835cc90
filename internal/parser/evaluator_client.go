package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"resume-screener/internal/tracing"
	"resume-screener/internal/types"
	"resume-screener/pkg/ratelimit"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultCallTimeout = 60 * time.Second
	defaultRetryDelay  = 2 * time.Second
	defaultMaxRetries  = 2
)

var tracer = otel.Tracer("resume-screener/parser")

// CallObserver 每次评估调用结束后回调，用于指标统计
type CallObserver func(op string, elapsed time.Duration, err error)

// EvaluatorClient 对评估模型的一次 system+user 调用：单次超时、可重试错误退避重试。
// 同一个实例在并发调用间共享，不保存调用级状态。
type EvaluatorClient struct {
	llmModel    model.BaseChatModel
	logger      *log.Logger
	callTimeout time.Duration
	maxRetries  int
	retryDelay  time.Duration
	observer    CallObserver
}

// EvaluatorOption 配置选项
type EvaluatorOption func(*EvaluatorClient)

// WithEvaluatorLogger 设置日志
func WithEvaluatorLogger(l *log.Logger) EvaluatorOption {
	return func(c *EvaluatorClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCallTimeout 单次调用超时
func WithCallTimeout(d time.Duration) EvaluatorOption {
	return func(c *EvaluatorClient) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

// WithRetryPolicy 重试次数与初始退避
func WithRetryPolicy(maxRetries int, delay time.Duration) EvaluatorOption {
	return func(c *EvaluatorClient) {
		if maxRetries >= 0 {
			c.maxRetries = maxRetries
		}
		if delay > 0 {
			c.retryDelay = delay
		}
	}
}

// WithCallObserver 设置调用回调
func WithCallObserver(fn CallObserver) EvaluatorOption {
	return func(c *EvaluatorClient) {
		c.observer = fn
	}
}

// NewEvaluatorClient 创建评估调用客户端
func NewEvaluatorClient(llmModel model.BaseChatModel, opts ...EvaluatorOption) *EvaluatorClient {
	c := &EvaluatorClient{
		llmModel:    llmModel,
		logger:      log.New(io.Discard, "", 0),
		callTimeout: defaultCallTimeout,
		maxRetries:  defaultMaxRetries,
		retryDelay:  defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call 发送 system/user 两条消息，返回模型原始文本。失败统一包装为传输错误。
func (c *EvaluatorClient) Call(ctx context.Context, op, systemContent, userContent string, callOpts ...model.Option) (string, error) {
	if c == nil || c.llmModel == nil {
		return "", types.NewTransportError(op, "评估模型未初始化", nil)
	}

	ctx, span := tracer.Start(ctx, "evaluator."+op)
	defer span.End()
	span.SetAttributes(
		attribute.Int("prompt.system_len", len(systemContent)),
		attribute.Int("prompt.user_len", len(userContent)),
	)

	messages := []*einoschema.Message{
		einoschema.SystemMessage(systemContent),
		einoschema.UserMessage(userContent),
	}

	c.logger.Printf("[%s] System Prompt: %.80s...", op, systemContent)
	c.logger.Printf("[%s] User Prompt: %s", op, tracing.SafePromptText(userContent))

	start := time.Now()
	var response *einoschema.Message
	var err error
	retryDelay := c.retryDelay

	for retry := 0; retry <= c.maxRetries; retry++ {
		if retry > 0 {
			if waitErr := sleepCtx(ctx, retryDelay); waitErr != nil {
				err = fmt.Errorf("上下文已取消: %w", waitErr)
				break
			}
			retryDelay *= 2
			c.logger.Printf("[%s] 重试评估调用 (第%d次)", op, retry)
		}

		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		response, err = c.llmModel.Generate(callCtx, messages, callOpts...)
		cancel()

		if err == nil {
			break
		}
		if !ratelimit.IsRetryableError(err) {
			break
		}
	}

	if err == nil && (response == nil || strings.TrimSpace(response.Content) == "") {
		err = errors.New("模型返回空内容")
	}
	if c.observer != nil {
		c.observer(op, time.Since(start), err)
	}
	if err != nil {
		c.logger.Printf("[%s] 评估调用失败: %v", op, err)
		wrapped := types.NewTransportError(op, transportDetail(err), err)
		tracing.RecordError(span, wrapped, tracing.ErrorTypeFor(wrapped))
		return "", wrapped
	}

	c.logger.Printf("[%s] 模型响应: %s", op, tracing.SafePromptText(response.Content))
	return response.Content, nil
}

func transportDetail(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "调用超时"
	case ratelimit.IsCircuitOpen(err):
		return "熔断中"
	default:
		return ""
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
