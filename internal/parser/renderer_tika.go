package parser

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"resume-screener/internal/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TikaRenderer 基于 Apache Tika 服务器的文本渲染器，支持 PDF、DOCX 和图片 OCR
type TikaRenderer struct {
	// Tika服务器地址，例如 http://localhost:9998
	ServerURL string
	// HTTP客户端，可配置超时等参数
	Client *http.Client
	// 是否提取链接注释文本
	extractAnnotations bool
	// OCR 语言，例如 eng 或 eng+chi_sim
	ocrLanguage string
	logger      *log.Logger
}

// TikaOption 定义配置选项函数
type TikaOption func(*TikaRenderer)

// WithAnnotations 配置是否提取PDF链接注释文本
func WithAnnotations(extract bool) TikaOption {
	return func(e *TikaRenderer) {
		e.extractAnnotations = extract
	}
}

// WithOCRLanguage 配置图片 OCR 语言
func WithOCRLanguage(lang string) TikaOption {
	return func(e *TikaRenderer) {
		e.ocrLanguage = lang
	}
}

// WithTikaLogger 配置自定义日志记录器
func WithTikaLogger(logger *log.Logger) TikaOption {
	return func(e *TikaRenderer) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTimeout 配置HTTP客户端超时时间
func WithTimeout(timeout time.Duration) TikaOption {
	return func(e *TikaRenderer) {
		if timeout > 0 {
			e.Client.Timeout = timeout
		}
	}
}

var _ TextRenderer = (*TikaRenderer)(nil)

// NewTikaRenderer 创建 Tika 渲染器
func NewTikaRenderer(serverURL string, options ...TikaOption) *TikaRenderer {
	r := &TikaRenderer{
		ServerURL:          strings.TrimRight(serverURL, "/"),
		Client:             &http.Client{Timeout: 60 * time.Second},
		extractAnnotations: true,
		logger:             log.New(io.Discard, "", 0),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Supports Tika 支持全部上传格式
func (e *TikaRenderer) Supports(format DocumentFormat) bool {
	switch format {
	case FormatPDF, FormatDOCX, FormatImage:
		return true
	}
	return false
}

// Render PUT /tika，Accept: text/plain
func (e *TikaRenderer) Render(ctx context.Context, body io.Reader, name string, format DocumentFormat) (string, error) {
	startTime := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, e.ServerURL+"/tika", body)
	if err != nil {
		return "", fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", contentType(format, name))
	req.Header.Set("Accept", "text/plain")
	if name != "" {
		req.Header.Set("X-Tika-Resource-Name", tracing.TruncateString(name, tracing.MaxHeaderLength))
	}
	if !e.extractAnnotations {
		req.Header.Set("X-Tika-PDFExtractAnnotationText", "false")
	}
	if format == FormatImage && e.ocrLanguage != "" {
		req.Header.Set("X-Tika-OCRLanguage", e.ocrLanguage)
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("发送请求到Tika服务器失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("tika服务器返回错误状态码: %d", resp.StatusCode)
		tracing.RecordError(trace.SpanFromContext(ctx), err, tracing.ErrorTypeRenderer,
			attribute.Int("http.status_code", resp.StatusCode), attribute.String("tika.server", e.ServerURL))
		return "", err
	}

	textBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取Tika响应失败: %w", err)
	}

	text := string(textBytes)
	e.logger.Printf("Tika 提取完成: %s (%s) %d 个字符 (用时 %.2f秒)", name, format, len(text), time.Since(startTime).Seconds())
	return text, nil
}

// Ping 检查 Tika 服务可用性
func (e *TikaRenderer) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.ServerURL+"/version", nil)
	if err != nil {
		return err
	}
	resp, err := e.Client.Do(req)
	if err != nil {
		return fmt.Errorf("连接Tika服务器失败: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tika服务器返回错误状态码: %d", resp.StatusCode)
	}
	return nil
}
