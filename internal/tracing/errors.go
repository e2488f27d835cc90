package tracing

import (
	"context"
	"errors"
	"time"

	"resume-screener/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorType span 上 error.type 属性的取值
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"    // 请求参数不合法
	ErrorTypeUpload     ErrorType = "upload"        // 上传文件保存或归档失败
	ErrorTypeRenderer   ErrorType = "renderer"      // 渲染服务（Tika）返回错误
	ErrorTypeExtraction ErrorType = "extraction"    // 文档无法转为文本
	ErrorTypeEvaluator  ErrorType = "evaluator"     // 评估模型调用或输出不符合约定
	ErrorTypeTimeout    ErrorType = "timeout"       // 调用超时
	ErrorTypeCache      ErrorType = "results_cache" // 结果缓存读写失败
	ErrorTypeEncoding   ErrorType = "encoding"      // 序列化失败
	ErrorTypeEvent      ErrorType = "event_publish" // 完成事件发布失败
)

// ErrorTypeFor 按流水线错误分类选择 span 错误类型
func ErrorTypeFor(err error) ErrorType {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}
	switch types.Classify(err) {
	case types.KindExtraction:
		return ErrorTypeExtraction
	default:
		return ErrorTypeEvaluator
	}
}

// RecordError 在 span 上记录错误和错误类型，attrs 为附加属性
func RecordError(span trace.Span, err error, errorType ErrorType, attrs ...attribute.KeyValue) {
	if span == nil || err == nil {
		return
	}
	msg := TruncateString(err.Error(), DefaultMaxLength)

	span.RecordError(err)
	span.SetAttributes(
		attribute.String("error.type", string(errorType)),
		attribute.String("error.message", msg),
	)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	span.SetStatus(codes.Error, msg)
}

// RecordHTTPStatus 记录以非 2xx 状态码返回给调用方的错误
func RecordHTTPStatus(span trace.Span, err error, statusCode int) {
	category, errorType := "server_error", ErrorTypeEvaluator
	if statusCode >= 400 && statusCode < 500 {
		category, errorType = "client_error", ErrorTypeValidation
	}
	RecordError(span, err, errorType,
		attribute.Int("http.status_code", statusCode),
		attribute.String("error.category", category),
	)
}

// RecordPublishTimeout 完成事件在重试间隔内未能发出
func RecordPublishTimeout(span trace.Span, messageID string, waited time.Duration) {
	if span == nil {
		return
	}
	msg := "publish timeout after " + waited.String()
	span.SetAttributes(
		attribute.String("error.type", string(ErrorTypeTimeout)),
		attribute.String("error.message", msg),
		attribute.String("messaging.message_id", messageID),
		attribute.Bool("messaging.delivered", false),
	)
	span.SetStatus(codes.Error, msg)
}
