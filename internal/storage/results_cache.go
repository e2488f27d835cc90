package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"resume-screener/internal/constants"
	"resume-screener/internal/types"
)

// ErrResultsNotFound 缓存中没有对应的筛选结果
var ErrResultsNotFound = errors.New("筛选结果不存在")

// ScreeningResults 一次筛选的缓存内容
type ScreeningResults struct {
	RequestID string              `json:"request_id"`
	CreatedAt time.Time           `json:"created_at"`
	Results   []types.RankedEntry `json:"results"`
}

// ResultsCache 最近筛选结果的有界存储
type ResultsCache interface {
	Put(ctx context.Context, requestID string, results []types.RankedEntry) error
	Latest(ctx context.Context) (*ScreeningResults, error)
	Get(ctx context.Context, requestID string) (*ScreeningResults, error)
}

var (
	_ ResultsCache = (*MemoryResultsCache)(nil)
	_ ResultsCache = (*RedisResultsCache)(nil)
)

// MemoryResultsCache 进程内环形缓存，容量满时淘汰最早的结果
type MemoryResultsCache struct {
	mu       sync.RWMutex
	capacity int
	order    []string // 按写入顺序，最后一个为最新
	items    map[string]*ScreeningResults
	now      func() time.Time
}

// NewMemoryResultsCache 创建内存缓存，capacity <= 0 时使用默认容量
func NewMemoryResultsCache(capacity int) *MemoryResultsCache {
	if capacity <= 0 {
		capacity = constants.DefaultResultsCapacity
	}
	return &MemoryResultsCache{
		capacity: capacity,
		items:    make(map[string]*ScreeningResults, capacity),
		now:      time.Now,
	}
}

// Put 写入结果；同一 requestID 重复写入时覆盖并移到最新位置
func (c *MemoryResultsCache) Put(_ context.Context, requestID string, results []types.RankedEntry) error {
	if requestID == "" {
		return errors.New("requestID 不能为空")
	}
	entry := &ScreeningResults{
		RequestID: requestID,
		CreatedAt: c.now(),
		Results:   append([]types.RankedEntry(nil), results...),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[requestID]; ok {
		c.removeFromOrder(requestID)
	}
	c.items[requestID] = entry
	c.order = append(c.order, requestID)

	for len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.items, oldest)
	}
	return nil
}

// Latest 最近一次写入的结果
func (c *MemoryResultsCache) Latest(_ context.Context) (*ScreeningResults, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.order) == 0 {
		return nil, ErrResultsNotFound
	}
	return c.items[c.order[len(c.order)-1]], nil
}

// Get 按 requestID 查询
func (c *MemoryResultsCache) Get(_ context.Context, requestID string) (*ScreeningResults, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.items[requestID]; ok {
		return entry, nil
	}
	return nil, ErrResultsNotFound
}

// Len 当前缓存条目数
func (c *MemoryResultsCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

func (c *MemoryResultsCache) removeFromOrder(requestID string) {
	for i, id := range c.order {
		if id == requestID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
