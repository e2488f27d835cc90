package constants

import "time"

const (
	// ServiceName 服务名，用于 tracer、metrics 和事件来源
	ServiceName = "resume-screener"

	// DefaultGracePeriod 上传原件的默认保留时长
	DefaultGracePeriod = 300 * time.Second
	// DefaultResultsCapacity 最近结果缓存的默认容量
	DefaultResultsCapacity = 8
	// DefaultResultsTTL Redis 中筛选结果的默认过期时间
	DefaultResultsTTL = 24 * time.Hour
	// DefaultTopN 未指定 top_n 时返回的条目数
	DefaultTopN = 5
	// DefaultMaxFileSizeMB 单个上传文件的默认上限
	DefaultMaxFileSizeMB = 5

	// EventSource 事件消息中的来源字段
	EventSource = "resume-screener/api"
)
