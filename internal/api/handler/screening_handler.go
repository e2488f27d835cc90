package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"strconv"
	"strings"
	"time"

	"resume-screener/internal/export"
	"resume-screener/internal/processor"
	"resume-screener/internal/storage"
	"resume-screener/internal/tracing"
	"resume-screener/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// 表单字段
const (
	FormResume = "resume"
	FormJDText = "jd_text"
	FormTopN   = "top_n"
	FormOrder  = "order"
)

// publishTimeout 完成事件发布的超时，事件在响应返回后异步发送
const publishTimeout = 15 * time.Second

// Analyzer 执行一次筛选，由 processor.Pipeline 实现
type Analyzer interface {
	Analyze(ctx context.Context, req processor.AnalyzeRequest) (*processor.AnalyzeResult, error)
}

// UploadObserver 上传计数，由 metrics 包实现
type UploadObserver interface {
	ObserveUpload(err error)
}

// AnalyzeResponse 筛选接口的成功响应
type AnalyzeResponse struct {
	RequestID string              `json:"request_id"`
	Count     int                 `json:"count"`
	Results   []types.RankedEntry `json:"results"`
}

// ResultsResponse 最近结果接口的响应
type ResultsResponse struct {
	RequestID string              `json:"request_id"`
	CreatedAt time.Time           `json:"created_at"`
	Count     int                 `json:"count"`
	Results   []types.RankedEntry `json:"results"`
}

// ScreeningHandler 简历筛选相关的 HTTP 处理器
type ScreeningHandler struct {
	analyzer  Analyzer
	uploads   *storage.UploadStore
	cleanup   *storage.CleanupScheduler
	results   storage.ResultsCache
	publisher storage.EventPublisher
	observer  UploadObserver

	defaultTopN int
	logger      *log.Logger
	newID       func() string
}

// HandlerOption ScreeningHandler 选项
type HandlerOption func(*ScreeningHandler)

// WithPublisher 设置完成事件发布者，nil 表示不发布
func WithPublisher(p storage.EventPublisher) HandlerOption {
	return func(h *ScreeningHandler) {
		h.publisher = p
	}
}

// WithUploadObserver 设置上传计数
func WithUploadObserver(o UploadObserver) HandlerOption {
	return func(h *ScreeningHandler) {
		h.observer = o
	}
}

// WithDefaultTopN 未指定 top_n 时返回的条数，0 表示全部
func WithDefaultTopN(n int) HandlerOption {
	return func(h *ScreeningHandler) {
		if n >= 0 {
			h.defaultTopN = n
		}
	}
}

// WithHandlerLogger 设置日志
func WithHandlerLogger(l *log.Logger) HandlerOption {
	return func(h *ScreeningHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewScreeningHandler 创建处理器
func NewScreeningHandler(analyzer Analyzer, uploads *storage.UploadStore, cleanup *storage.CleanupScheduler,
	results storage.ResultsCache, opts ...HandlerOption) *ScreeningHandler {
	h := &ScreeningHandler{
		analyzer:    analyzer,
		uploads:     uploads,
		cleanup:     cleanup,
		results:     results,
		defaultTopN: 5,
		logger:      log.New(io.Discard, "", 0),
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleAnalyze 上传简历和岗位描述，返回排名结果
// POST /api/v1/analyze
func (h *ScreeningHandler) HandleAnalyze(ctx context.Context, c *app.RequestContext) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "请求必须是 multipart/form-data"})
		return
	}
	files := form.File[FormResume]
	if len(files) == 0 {
		c.JSON(consts.StatusBadRequest, utils.H{"error": types.ErrNoResumes.Error()})
		return
	}
	jdText := formValue(form, FormJDText)
	if strings.TrimSpace(jdText) == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": types.ErrEmptyJobDescription.Error()})
		return
	}
	topN, err := ParseTopN(formValue(form, FormTopN), h.defaultTopN)
	if err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
		return
	}
	descending, err := ParseOrder(formValue(form, FormOrder))
	if err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
		return
	}

	docs, stored, err := h.saveUploads(ctx, files)
	// 无论分析结果如何，宽限期后都删除已保存的文件
	defer func() {
		if len(stored) > 0 {
			h.cleanup.Schedule(stored...)
		}
	}()
	if err != nil {
		status := consts.StatusInternalServerError
		if errors.Is(err, storage.ErrFileTooLarge) {
			status = consts.StatusBadRequest
		}
		tracing.RecordError(trace.SpanFromContext(ctx), err, tracing.ErrorTypeUpload,
			attribute.Int("http.status_code", status), attribute.Int("upload.saved", len(stored)))
		c.JSON(status, utils.H{"error": err.Error()})
		return
	}

	result, err := h.analyzer.Analyze(ctx, processor.AnalyzeRequest{
		JobDescription: jdText,
		Documents:      docs,
		TopN:           topN,
		Descending:     descending,
	})
	if err != nil {
		h.writeAnalyzeError(ctx, c, err)
		return
	}

	requestID := h.newID()
	if err := h.results.Put(ctx, requestID, result.Ranked); err != nil {
		h.logger.Printf("保存筛选结果失败 (request=%s): %v", requestID, err)
	}
	h.publishCompleted(ctx, requestID, len(docs), result)

	ranked := result.Ranked
	if ranked == nil {
		ranked = []types.RankedEntry{}
	}
	c.JSON(consts.StatusOK, AnalyzeResponse{
		RequestID: requestID,
		Count:     len(ranked),
		Results:   ranked,
	})
}

// saveUploads 保存所有上传文件；返回已保存的文件名，失败时调用方仍需清理它们
func (h *ScreeningHandler) saveUploads(ctx context.Context, files []*multipart.FileHeader) ([]processor.ResumeDocument, []string, error) {
	docs := make([]processor.ResumeDocument, 0, len(files))
	stored := make([]string, 0, len(files))
	for _, fh := range files {
		f, err := h.saveUpload(ctx, fh)
		if h.observer != nil {
			h.observer.ObserveUpload(err)
		}
		if err != nil {
			h.logger.Printf("保存上传文件 %s 失败: %v", fh.Filename, err)
			return nil, stored, fmt.Errorf("%s: %w", fh.Filename, err)
		}
		stored = append(stored, f.StoredName)
		docs = append(docs, processor.ResumeDocument{
			FileName:   fh.Filename,
			Path:       f.Path,
			StoredName: f.StoredName,
		})
	}
	return docs, stored, nil
}

func (h *ScreeningHandler) saveUpload(ctx context.Context, fh *multipart.FileHeader) (*storage.StoredFile, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("打开上传文件失败: %w", err)
	}
	defer src.Close()
	return h.uploads.Save(ctx, fh.Filename, src)
}

func (h *ScreeningHandler) writeAnalyzeError(ctx context.Context, c *app.RequestContext, err error) {
	span := trace.SpanFromContext(ctx)
	var jdErr *types.JDNormalizationError
	switch {
	case errors.As(err, &jdErr):
		h.logger.Printf("岗位描述归一化失败: %v, 原始输出: %s", err, tracing.TruncateString(jdErr.RawOutput, 200))
		tracing.RecordHTTPStatus(span, err, consts.StatusUnprocessableEntity)
		c.JSON(consts.StatusUnprocessableEntity, jdErr)
	case errors.Is(err, types.ErrEmptyJobDescription), errors.Is(err, types.ErrNoResumes):
		c.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
	default:
		h.logger.Printf("筛选失败: %v", err)
		tracing.RecordHTTPStatus(span, err, consts.StatusInternalServerError)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "筛选失败: " + err.Error()})
	}
}

// publishCompleted 异步发布完成事件，失败只记录日志
func (h *ScreeningHandler) publishCompleted(ctx context.Context, requestID string, resumeCount int, result *processor.AnalyzeResult) {
	if h.publisher == nil {
		return
	}
	var skills []string
	if result.Job != nil {
		skills = result.Job.Skills
	}
	msg := storage.NewScreeningCompletedMessage(requestID, skills, resumeCount, result.Failed, result.Ranked, 0)

	go func() {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		if err := h.publisher.PublishScreeningCompleted(pubCtx, msg); err != nil {
			h.logger.Printf("发布筛选完成事件失败 (request=%s): %v", requestID, err)
		}
	}()
}

// HandleDownload 在宽限期内提供原始文件下载
// GET /uploads/:name
func (h *ScreeningHandler) HandleDownload(ctx context.Context, c *app.RequestContext) {
	path, err := h.uploads.Resolve(c.Param("name"))
	if err != nil {
		c.JSON(consts.StatusNotFound, utils.H{"error": "文件不存在"})
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		c.JSON(consts.StatusNotFound, utils.H{"error": "文件不存在或已过期"})
		return
	}
	c.File(path)
}

// HandleLatestResults 返回最近一次筛选结果
// GET /api/v1/results/last
func (h *ScreeningHandler) HandleLatestResults(ctx context.Context, c *app.RequestContext) {
	latest, ok := h.latest(ctx, c)
	if !ok {
		return
	}
	c.JSON(consts.StatusOK, ResultsResponse{
		RequestID: latest.RequestID,
		CreatedAt: latest.CreatedAt,
		Count:     len(latest.Results),
		Results:   latest.Results,
	})
}

// HandleExportLatest 以 XLSX 导出最近一次筛选结果
// GET /api/v1/results/last/export
func (h *ScreeningHandler) HandleExportLatest(ctx context.Context, c *app.RequestContext) {
	latest, ok := h.latest(ctx, c)
	if !ok {
		return
	}
	data, err := export.ShortlistXLSX(latest.Results)
	if err != nil {
		h.logger.Printf("导出 XLSX 失败 (request=%s): %v", latest.RequestID, err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "导出失败"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName(latest.CreatedAt)))
	c.Data(consts.StatusOK, export.ContentType, data)
}

func (h *ScreeningHandler) latest(ctx context.Context, c *app.RequestContext) (*storage.ScreeningResults, bool) {
	latest, err := h.results.Latest(ctx)
	if errors.Is(err, storage.ErrResultsNotFound) {
		c.JSON(consts.StatusNotFound, utils.H{"error": "暂无筛选结果"})
		return nil, false
	}
	if err != nil {
		h.logger.Printf("读取最近结果失败: %v", err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "读取结果失败"})
		return nil, false
	}
	return latest, true
}

// ParseTopN 解析 top_n：空值取默认值，"all" 或 0 表示全部，
// 返回值直接交给 processor.Rank，全部用 processor.NoLimit 表示
func ParseTopN(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if def <= 0 {
			return processor.NoLimit, nil
		}
		return def, nil
	}
	if strings.EqualFold(raw, "all") {
		return processor.NoLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("top_n 必须是非负整数或 all: %q", raw)
	}
	if n == 0 {
		return processor.NoLimit, nil
	}
	return n, nil
}

// ParseOrder 解析排序方向，默认降序
func ParseOrder(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "desc":
		return true, nil
	case "asc":
		return false, nil
	default:
		return false, fmt.Errorf("order 只能是 asc 或 desc: %q", raw)
	}
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}
