package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"resume-screener/internal/constants"

	"github.com/gofrs/uuid/v5"
)

var (
	// ErrFileTooLarge 上传文件超过大小限制
	ErrFileTooLarge = errors.New("文件超过大小限制")
	// ErrInvalidStoredName 非法的落盘文件名（含路径分隔符等）
	ErrInvalidStoredName = errors.New("非法的文件名")
	// ErrCleanupCancelled 清理任务在执行前被取消
	ErrCleanupCancelled = errors.New("清理任务已取消")
)

// Archive 上传原件的归档存储，MinIO 实现
type Archive interface {
	ArchiveUpload(ctx context.Context, objectName, path, contentType string) error
	RemoveUpload(ctx context.Context, objectName string) error
}

// StoredFile 一个已落盘的上传文件
type StoredFile struct {
	OriginalName string
	StoredName   string // {uuidv7}_{sanitized name}
	Path         string
	Size         int64
	Archived     bool
}

// UploadStore 上传文件的本地暂存目录
type UploadStore struct {
	dir         string
	maxFileSize int64 // <= 0 表示不限制
	archive     Archive
	logger      *log.Logger
	newID       func() (uuid.UUID, error)
}

// UploadOption 上传存储选项
type UploadOption func(*UploadStore)

// WithArchive 设置归档存储
func WithArchive(a Archive) UploadOption {
	return func(s *UploadStore) {
		s.archive = a
	}
}

// WithMaxFileSize 设置单个文件大小上限(字节)
func WithMaxFileSize(n int64) UploadOption {
	return func(s *UploadStore) {
		s.maxFileSize = n
	}
}

// WithUploadLogger 设置日志
func WithUploadLogger(l *log.Logger) UploadOption {
	return func(s *UploadStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewUploadStore 创建上传存储，目录不存在时自动创建
func NewUploadStore(dir string, opts ...UploadOption) (*UploadStore, error) {
	if dir == "" {
		return nil, errors.New("上传目录不能为空")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建上传目录 %s 失败: %w", dir, err)
	}
	s := &UploadStore{
		dir:         dir,
		maxFileSize: int64(constants.DefaultMaxFileSizeMB) << 20,
		logger:      log.New(io.Discard, "", 0),
		newID:       uuid.NewV7,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir 上传目录
func (s *UploadStore) Dir() string {
	return s.dir
}

// Save 保存上传文件。超过大小限制时不留下任何文件。
// 归档失败只记录日志。
func (s *UploadStore) Save(ctx context.Context, originalName string, r io.Reader) (*StoredFile, error) {
	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("生成文件ID失败: %w", err)
	}
	storedName := id.String() + "_" + SanitizeFilename(originalName)
	path := filepath.Join(s.dir, storedName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("创建文件 %s 失败: %w", storedName, err)
	}

	src := r
	if s.maxFileSize > 0 {
		src = io.LimitReader(r, s.maxFileSize+1)
	}
	size, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	if copyErr == nil && closeErr != nil {
		copyErr = closeErr
	}
	if copyErr == nil && s.maxFileSize > 0 && size > s.maxFileSize {
		copyErr = fmt.Errorf("%w: %s 超过 %d 字节", ErrFileTooLarge, originalName, s.maxFileSize)
	}
	if copyErr != nil {
		os.Remove(path)
		return nil, copyErr
	}

	stored := &StoredFile{
		OriginalName: originalName,
		StoredName:   storedName,
		Path:         path,
		Size:         size,
	}
	if s.archive != nil {
		if err := s.archive.ArchiveUpload(ctx, storedName, path, ""); err != nil {
			s.logger.Printf("归档上传文件 %s 失败: %v", storedName, err)
		} else {
			stored.Archived = true
		}
	}
	return stored, nil
}

// Resolve 把落盘文件名解析为本地路径，拒绝带路径的名字
func (s *UploadStore) Resolve(storedName string) (string, error) {
	if storedName == "" || storedName != filepath.Base(storedName) ||
		strings.ContainsAny(storedName, `/\`) || storedName == "." || storedName == ".." {
		return "", ErrInvalidStoredName
	}
	return filepath.Join(s.dir, storedName), nil
}

// Remove 删除本地文件及其归档副本；本地文件已不存在不视为错误
func (s *UploadStore) Remove(ctx context.Context, storedName string) error {
	path, err := s.Resolve(storedName)
	if err != nil {
		return err
	}
	var errs []error
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, fmt.Errorf("删除 %s 失败: %w", storedName, err))
	}
	if s.archive != nil {
		if err := s.archive.RemoveUpload(ctx, storedName); err != nil {
			errs = append(errs, fmt.Errorf("删除归档 %s 失败: %w", storedName, err))
		}
	}
	return errors.Join(errs...)
}

// SanitizeFilename 只保留字母数字和 . _ -，其余替换为下划线，去掉路径和开头的点
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = filepath.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.TrimLeft(b.String(), "._")
	if out == "" {
		return "upload"
	}
	return out
}

// Timer 可停止的定时器，*time.Timer 满足该接口
type Timer interface {
	Stop() bool
}

// AfterFunc 定时器工厂，默认为 time.AfterFunc
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Remover 清理任务删除文件所需的能力
type Remover interface {
	Remove(ctx context.Context, storedName string) error
}

type taskState int

const (
	taskPending taskState = iota
	taskRunning
	taskCancelled
)

// CleanupTask 一次延迟删除
type CleanupTask struct {
	id        uint64
	files     []string
	scheduler *CleanupScheduler
	timer     Timer

	mu    sync.Mutex
	state taskState
	err   error
	done  chan struct{}
}

// Done 任务执行完成或被取消后关闭
func (t *CleanupTask) Done() <-chan struct{} {
	return t.done
}

// Err Done 关闭后有效：nil 表示全部删除成功，ErrCleanupCancelled 表示被取消
func (t *CleanupTask) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Cancel 取消尚未执行的任务，文件保留。任务已开始执行时返回 false。
func (t *CleanupTask) Cancel() bool {
	if !t.claim(taskCancelled) {
		return false
	}
	t.stopTimer()
	t.finish(ErrCleanupCancelled)
	return true
}

func (t *CleanupTask) setTimer(timer Timer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer = timer
	if t.state != taskPending {
		timer.Stop()
	}
}

func (t *CleanupTask) stopTimer() {
	t.mu.Lock()
	timer := t.timer
	t.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
}

func (t *CleanupTask) claim(next taskState) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != taskPending {
		return false
	}
	t.state = next
	return true
}

func (t *CleanupTask) finish(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
	t.scheduler.forget(t.id)
	close(t.done)
}

func (t *CleanupTask) run() {
	if !t.claim(taskRunning) {
		return
	}
	s := t.scheduler
	ctx, cancel := context.WithTimeout(context.Background(), s.removeTimeout)
	defer cancel()

	var errs []error
	for _, name := range t.files {
		if err := s.remover.Remove(ctx, name); err != nil {
			s.logger.Printf("清理上传文件失败: %v", err)
			errs = append(errs, err)
			continue
		}
		s.logger.Printf("已清理上传文件: %s", name)
	}
	t.finish(errors.Join(errs...))
}

// CleanupScheduler 在宽限期结束后删除上传文件
type CleanupScheduler struct {
	remover       Remover
	grace         time.Duration
	afterFunc     AfterFunc
	removeTimeout time.Duration
	logger        *log.Logger

	mu     sync.Mutex
	nextID uint64
	tasks  map[uint64]*CleanupTask
}

// CleanupOption 清理调度器选项
type CleanupOption func(*CleanupScheduler)

// WithGracePeriod 设置宽限期
func WithGracePeriod(d time.Duration) CleanupOption {
	return func(c *CleanupScheduler) {
		if d >= 0 {
			c.grace = d
		}
	}
}

// WithAfterFunc 替换定时器工厂
func WithAfterFunc(f AfterFunc) CleanupOption {
	return func(c *CleanupScheduler) {
		if f != nil {
			c.afterFunc = f
		}
	}
}

// WithCleanupLogger 设置日志
func WithCleanupLogger(l *log.Logger) CleanupOption {
	return func(c *CleanupScheduler) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCleanupScheduler 创建清理调度器，默认宽限期 300 秒
func NewCleanupScheduler(remover Remover, opts ...CleanupOption) *CleanupScheduler {
	c := &CleanupScheduler{
		remover:       remover,
		grace:         constants.DefaultGracePeriod,
		afterFunc:     realAfterFunc,
		removeTimeout: 30 * time.Second,
		logger:        log.New(io.Discard, "", 0),
		tasks:         make(map[uint64]*CleanupTask),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Schedule 宽限期结束后删除 files
func (c *CleanupScheduler) Schedule(files ...string) *CleanupTask {
	c.mu.Lock()
	c.nextID++
	t := &CleanupTask{
		id:        c.nextID,
		files:     append([]string(nil), files...),
		scheduler: c,
		done:      make(chan struct{}),
	}
	c.tasks[t.id] = t
	c.mu.Unlock()

	t.setTimer(c.afterFunc(c.grace, t.run))
	return t
}

// Pending 尚未执行的任务数
func (c *CleanupScheduler) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tasks)
}

// Flush 立即执行所有未执行的任务并等待完成
func (c *CleanupScheduler) Flush() {
	c.mu.Lock()
	pending := make([]*CleanupTask, 0, len(c.tasks))
	for _, t := range c.tasks {
		pending = append(pending, t)
	}
	c.mu.Unlock()

	for _, t := range pending {
		t.stopTimer()
		t.run()
		<-t.done
	}
}

func (c *CleanupScheduler) forget(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tasks, id)
}
