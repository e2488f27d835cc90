package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"resume-screener/internal/config"
	"resume-screener/internal/tracing"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var rabbitTracer = otel.Tracer("resume-screener/storage/rabbitmq")

// ErrPublishNacked broker 拒绝了事件
var ErrPublishNacked = errors.New("事件未被RabbitMQ确认")

// EventPublisher 筛选事件发布接口
type EventPublisher interface {
	PublishScreeningCompleted(ctx context.Context, msg ScreeningCompletedMessage) error
}

var _ EventPublisher = (*RabbitMQ)(nil)

// RabbitMQ 以 publisher confirm 模式发布筛选事件。
// 发布量很小，所有发布共用一个通道，通道关闭后下次发布时重建。
type RabbitMQ struct {
	conn   *amqp.Connection
	mu     sync.Mutex // 保护 ch
	ch     *amqp.Channel
	cfg    *config.RabbitMQConfig
	logger *log.Logger
}

// NewRabbitMQ 连接 RabbitMQ 并声明筛选事件交换机（topic，持久化）
func NewRabbitMQ(cfg *config.RabbitMQConfig, logger *log.Logger) (*RabbitMQ, error) {
	if cfg == nil {
		return nil, fmt.Errorf("RabbitMQ配置不能为空")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("RabbitMQ URL配置不能为空")
	}
	if cfg.ScreeningExchange == "" || cfg.ScreeningExchange == "amq.default" {
		return nil, fmt.Errorf("筛选事件交换机名称无效: '%s'", cfg.ScreeningExchange)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("无法连接到RabbitMQ服务器: %w", err)
	}
	mq := &RabbitMQ{conn: conn, cfg: cfg, logger: logger}

	ch, err := mq.channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(cfg.ScreeningExchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("声明exchange '%s' 失败: %w", cfg.ScreeningExchange, err)
	}

	logger.Printf("成功连接到RabbitMQ服务器，事件交换机: %s", cfg.ScreeningExchange)
	return mq, nil
}

// channel 返回处于 confirm 模式的通道，调用方需持有 r.mu 或处于初始化阶段
func (r *RabbitMQ) channel() (*amqp.Channel, error) {
	if r.ch != nil && !r.ch.IsClosed() {
		return r.ch, nil
	}
	ch, err := r.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("创建RabbitMQ通道失败: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("开启publisher confirm失败: %w", err)
	}
	r.ch = ch
	return ch, nil
}

// Close 关闭通道和连接
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ch != nil && !r.ch.IsClosed() {
		r.ch.Close()
	}
	return r.conn.Close()
}

// publish 发送一条持久化 JSON 消息并等待 broker 确认
func (r *RabbitMQ) publish(ctx context.Context, routingKey, messageID string, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, err := r.channel()
	if err != nil {
		return err
	}
	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx, r.cfg.ScreeningExchange, routingKey, false, false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    messageID,
			Timestamp:    time.Now(),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("发送消息失败: %w", err)
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("等待broker确认失败: %w", err)
	}
	if !acked {
		return ErrPublishNacked
	}
	return nil
}

// PublishScreeningCompleted 发布筛选完成事件，失败时按 retry_interval 重试 max_retries 次
func (r *RabbitMQ) PublishScreeningCompleted(ctx context.Context, msg ScreeningCompletedMessage) error {
	ctx, span := rabbitTracer.Start(ctx, "RabbitMQ.PublishScreeningCompleted", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.system", "rabbitmq"),
		attribute.String("messaging.destination.name", r.cfg.ScreeningExchange),
		attribute.String("messaging.rabbitmq.destination.routing_key", r.cfg.CompletedRoutingKey),
		attribute.String("messaging.message_id", msg.RequestID),
		attribute.Int("screening.resume_count", msg.ResumeCount),
	)

	body, err := json.Marshal(msg)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeEncoding)
		return fmt.Errorf("JSON序列化失败: %w", err)
	}

	interval := config.GetDuration(r.cfg.RetryInterval, 5*time.Second)
	attempts := r.cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					tracing.RecordPublishTimeout(span, msg.RequestID, interval)
				}
				return fmt.Errorf("发布筛选事件被取消: %w (最后错误: %v)", ctx.Err(), lastErr)
			case <-time.After(interval):
			}
		}
		lastErr = r.publish(ctx, r.cfg.CompletedRoutingKey, msg.RequestID, body)
		if lastErr == nil {
			span.SetAttributes(attribute.Int("messaging.attempts", i+1))
			return nil
		}
		r.logger.Printf("发布筛选事件失败 (第 %d/%d 次): %v", i+1, attempts, lastErr)
	}
	tracing.RecordError(span, lastErr, tracing.ErrorTypeEvent, attribute.Int("messaging.attempts", attempts))
	return fmt.Errorf("发布筛选事件失败: %w", lastErr)
}
