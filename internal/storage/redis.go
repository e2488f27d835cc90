package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resume-screener/internal/config"
	"resume-screener/internal/constants"
	"resume-screener/internal/tracing"
	"resume-screener/internal/types"

	"github.com/redis/go-redis/extra/redisotel/v9" // 添加Redis OpenTelemetry钩子包
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotFound is returned when a key is not found in Redis.
// It wraps the underlying redis.Nil error for abstraction.
var ErrNotFound = redis.Nil

// 为Redis操作定义专用tracer
var redisTracer = otel.Tracer("resume-screener/storage/redis")

// Redis wraps the Redis client
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter creates a new Redis client connection
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	// 使用扩展的配置选项
	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		// 连接池设置
		PoolSize:     cfg.PoolSize,     // 默认10
		MinIdleConns: cfg.MinIdleConns, // 默认2

		// 超时设置
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,  // 默认5秒
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,  // 默认3秒
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second, // 默认3秒

		// 重试设置
		MaxRetries:      cfg.MaxRetries,                                          // 默认3次
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoffMS) * time.Millisecond, // 默认8毫秒
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoffMS) * time.Millisecond, // 默认512毫秒

		// 连接生命周期
		ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute, // 默认60分钟
		ConnMaxIdleTime: time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute, // 默认30分钟
	}

	client := redis.NewClient(opt)

	// 添加OpenTelemetry钩子, 记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	// Ping to check connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{
		Client: client,
		config: cfg,
	}, nil
}

// Close closes the Redis client connection
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping checks the Redis connection
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// RedisResultsCache 基于 Redis 的最近结果缓存。
// 每次筛选存一个 JSON 值，另有 latest 指针和长度受限的历史列表。
type RedisResultsCache struct {
	redis    *Redis
	ttl      time.Duration
	capacity int
	now      func() time.Time
}

// NewRedisResultsCache 创建 Redis 结果缓存
func NewRedisResultsCache(r *Redis, capacity int, ttl time.Duration) *RedisResultsCache {
	if capacity <= 0 {
		capacity = constants.DefaultResultsCapacity
	}
	if ttl <= 0 {
		ttl = constants.DefaultResultsTTL
	}
	return &RedisResultsCache{redis: r, ttl: ttl, capacity: capacity, now: time.Now}
}

func (c *RedisResultsCache) startSpan(ctx context.Context, op, key string) (context.Context, trace.Span) {
	ctx, span := redisTracer.Start(ctx, "Redis.Results."+op, trace.WithSpanKind(trace.SpanKindClient))
	attrs := []attribute.KeyValue{
		semconv.DBSystemRedis,
		attribute.String("db.redis.key", tracing.SafeKey(key)),
	}
	if c.redis.config != nil {
		attrs = append(attrs,
			attribute.String("db.redis.database", fmt.Sprintf("%d", c.redis.config.DB)),
			attribute.String("net.peer.name", c.redis.config.Address),
		)
	}
	span.SetAttributes(attrs...)
	return ctx, span
}

// Put 写入结果并更新 latest 指针，超出容量的历史结果被删除
func (c *RedisResultsCache) Put(ctx context.Context, requestID string, results []types.RankedEntry) error {
	if requestID == "" {
		return errors.New("requestID 不能为空")
	}
	if c.redis == nil || c.redis.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	key := fmt.Sprintf(constants.KeyScreeningResults, requestID)
	ctx, span := c.startSpan(ctx, "Put", key)
	defer span.End()

	data, err := json.Marshal(ScreeningResults{
		RequestID: requestID,
		CreatedAt: c.now(),
		Results:   results,
	})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeEncoding)
		return fmt.Errorf("序列化筛选结果失败: %w", err)
	}

	pipe := c.redis.Client.TxPipeline()
	pipe.Set(ctx, key, data, c.ttl)
	pipe.Set(ctx, constants.KeyScreeningLatest, requestID, c.ttl)
	pipe.LRem(ctx, constants.KeyScreeningHistory, 0, requestID)
	pipe.LPush(ctx, constants.KeyScreeningHistory, requestID)
	evicted := pipe.LRange(ctx, constants.KeyScreeningHistory, int64(c.capacity), -1)
	pipe.LTrim(ctx, constants.KeyScreeningHistory, 0, int64(c.capacity-1))
	pipe.Expire(ctx, constants.KeyScreeningHistory, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeCache)
		return fmt.Errorf("写入筛选结果失败: %w", err)
	}

	// 被挤出历史列表的结果一并删除
	if ids := evicted.Val(); len(ids) > 0 {
		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = fmt.Sprintf(constants.KeyScreeningResults, id)
		}
		if err := c.redis.Client.Del(ctx, keys...).Err(); err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeCache)
		}
	}
	return nil
}

// Latest 最近一次筛选的结果
func (c *RedisResultsCache) Latest(ctx context.Context) (*ScreeningResults, error) {
	if c.redis == nil || c.redis.Client == nil {
		return nil, fmt.Errorf("redis client is not initialized")
	}
	ctx, span := c.startSpan(ctx, "Latest", constants.KeyScreeningLatest)
	defer span.End()

	requestID, err := c.redis.Client.Get(ctx, constants.KeyScreeningLatest).Result()
	if errors.Is(err, ErrNotFound) {
		return nil, ErrResultsNotFound
	}
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeCache)
		return nil, fmt.Errorf("读取最近筛选失败: %w", err)
	}
	return c.Get(ctx, requestID)
}

// Get 按 requestID 读取
func (c *RedisResultsCache) Get(ctx context.Context, requestID string) (*ScreeningResults, error) {
	if c.redis == nil || c.redis.Client == nil {
		return nil, fmt.Errorf("redis client is not initialized")
	}
	key := fmt.Sprintf(constants.KeyScreeningResults, requestID)
	ctx, span := c.startSpan(ctx, "Get", key)
	defer span.End()

	data, err := c.redis.Client.Get(ctx, key).Bytes()
	if errors.Is(err, ErrNotFound) {
		return nil, ErrResultsNotFound
	}
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeCache)
		return nil, fmt.Errorf("读取筛选结果失败: %w", err)
	}

	var out ScreeningResults
	if err := json.Unmarshal(data, &out); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeEncoding)
		return nil, fmt.Errorf("反序列化筛选结果失败: %w", err)
	}
	return &out, nil
}
