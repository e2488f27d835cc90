package parser

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
)

// EinoPDFRenderer 使用 Eino PDF Parser 在本地提取 PDF 文本
type EinoPDFRenderer struct {
	parser  *pdf.PDFParser
	timeout time.Duration
	logger  *log.Logger
}

// EinoPDFOption PDF提取器的配置选项
type EinoPDFOption func(*EinoPDFRenderer)

// WithEinoLogger 配置自定义日志记录器
func WithEinoLogger(logger *log.Logger) EinoPDFOption {
	return func(e *EinoPDFRenderer) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithEinoTimeout 单个文档解析超时
func WithEinoTimeout(d time.Duration) EinoPDFOption {
	return func(e *EinoPDFRenderer) {
		if d > 0 {
			e.timeout = d
		}
	}
}

var _ TextRenderer = (*EinoPDFRenderer)(nil)

// NewEinoPDFRenderer 初始化本地 PDF 渲染器，不按页面分割
func NewEinoPDFRenderer(ctx context.Context, options ...EinoPDFOption) (*EinoPDFRenderer, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Eino PDF parser: %w", err)
	}

	r := &EinoPDFRenderer{
		parser:  p,
		timeout: 30 * time.Second,
		logger:  log.New(io.Discard, "", 0),
	}
	for _, option := range options {
		option(r)
	}
	return r, nil
}

// Supports 只处理 PDF
func (e *EinoPDFRenderer) Supports(format DocumentFormat) bool {
	return format == FormatPDF
}

// Render 解析 PDF 并合并所有文档内容
func (e *EinoPDFRenderer) Render(ctx context.Context, r io.Reader, name string, format DocumentFormat) (string, error) {
	if format != FormatPDF {
		return "", fmt.Errorf("eino PDF parser 不支持格式 %s", format)
	}
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	docs, err := e.parser.Parse(ctx, r,
		einoParser.WithURI(name),
		einoParser.WithExtraMeta(map[string]any{"source_file_name": name}),
	)
	if err != nil {
		return "", fmt.Errorf("eino PDF parser failed for %s: %w", name, err)
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("eino PDF parser returned no documents for %s", name)
	}

	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		parts = append(parts, doc.Content)
	}
	text := strings.Join(parts, "\n\n")
	e.logger.Printf("PDF提取完成: %s %d 个字符 (用时 %.2f秒)", name, len(text), time.Since(startTime).Seconds())
	return text, nil
}
