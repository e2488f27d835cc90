package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"resume-screener/internal/config"
)

// Storage 存储管理器，聚合所有存储相关依赖
type Storage struct {
	// 上传暂存和延迟清理
	Uploads *UploadStore
	Cleanup *CleanupScheduler

	// 最近结果缓存
	Results ResultsCache

	// 可选的外部依赖
	MinIO    *MinIO
	RabbitMQ *RabbitMQ
	Redis    *Redis

	logger *log.Logger
}

// NewStorage 创建存储管理器。上传目录是必需的；
// MinIO、RabbitMQ、Redis 只在配置了地址时初始化，失败时记录日志并降级。
func NewStorage(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	storage := &Storage{logger: logger}
	var err error
	var initErrors []string

	// 根据配置决定 MinIO 的 logger
	minioLogger := log.New(io.Discard, "", 0)
	if cfg.Logger.Level == "debug" {
		minioLogger = log.New(os.Stderr, "[MinIOStorage] ", log.LstdFlags|log.Lshortfile)
	}

	// 初始化MinIO（如果配置了）
	if cfg.MinIO.Endpoint != "" {
		storage.MinIO, err = NewMinIO(ctx, &cfg.MinIO, minioLogger)
		if err != nil {
			logger.Printf("警告: 初始化MinIO失败: %v", err)
			initErrors = append(initErrors, fmt.Sprintf("MinIO: %v", err))
		} else {
			logger.Println("MinIO客户端初始化成功")
		}
	}

	// 初始化RabbitMQ（如果配置了）
	if cfg.RabbitMQ.URL != "" {
		storage.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ, logger)
		if err != nil {
			logger.Printf("警告: 初始化RabbitMQ失败: %v", err)
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ: %v", err))
		}
	}

	// 初始化Redis (如果配置了)
	if cfg.Redis.Address != "" {
		logger.Printf("初始化Redis at %s...", cfg.Redis.Address)
		storage.Redis, err = NewRedisAdapter(&cfg.Redis)
		if err != nil {
			logger.Printf("警告: 初始化Redis失败: %v", err)
			initErrors = append(initErrors, fmt.Sprintf("Redis: %v", err))
		}
	}

	uploadOpts := []UploadOption{
		WithUploadLogger(logger),
		WithMaxFileSize(int64(cfg.Document.MaxFileSizeMB) << 20),
	}
	if storage.MinIO != nil {
		uploadOpts = append(uploadOpts, WithArchive(storage.MinIO))
	}
	storage.Uploads, err = NewUploadStore(cfg.Uploads.Dir, uploadOpts...)
	if err != nil {
		storage.Close()
		return nil, err
	}
	storage.Cleanup = NewCleanupScheduler(storage.Uploads,
		WithGracePeriod(config.GetDuration(cfg.Uploads.GracePeriod, 300*time.Second)),
		WithCleanupLogger(logger),
	)

	switch {
	case strings.EqualFold(cfg.ResultsCache.Backend, "redis") && storage.Redis != nil:
		storage.Results = NewRedisResultsCache(storage.Redis, cfg.ResultsCache.Capacity,
			config.GetDuration(cfg.ResultsCache.TTL, 24*time.Hour))
	default:
		if strings.EqualFold(cfg.ResultsCache.Backend, "redis") {
			logger.Printf("警告: Redis 不可用，结果缓存回落到内存")
		}
		storage.Results = NewMemoryResultsCache(cfg.ResultsCache.Capacity)
	}

	if len(initErrors) > 0 {
		logger.Printf("警告: 以下存储组件初始化失败: %s", strings.Join(initErrors, "; "))
	}
	return storage, nil
}

// Publisher 已配置时返回事件发布器，否则返回 nil
func (s *Storage) Publisher() EventPublisher {
	if s.RabbitMQ == nil {
		return nil
	}
	return s.RabbitMQ
}

// Close 执行所有待清理任务并关闭连接
func (s *Storage) Close() {
	if s.Cleanup != nil {
		s.Cleanup.Flush()
	}

	// 关闭RabbitMQ连接
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			s.logger.Printf("关闭RabbitMQ连接失败: %v", err)
		}
	}

	// 关闭Redis连接
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			s.logger.Printf("关闭Redis连接失败: %v", err)
		}
	}
	// MinIO 客户端无需显式关闭
}
