package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"resume-screener/internal/tracing"
	"resume-screener/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

// DocumentRenderer 按格式把文档交给合适的渲染器，依次尝试直到成功
type DocumentRenderer struct {
	renderers []TextRenderer
	logger    *log.Logger
}

// NewDocumentRenderer renderers 的顺序即优先级
func NewDocumentRenderer(logger *log.Logger, renderers ...TextRenderer) *DocumentRenderer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	var rs []TextRenderer
	for _, r := range renderers {
		if r != nil {
			rs = append(rs, r)
		}
	}
	return &DocumentRenderer{renderers: rs, logger: logger}
}

// Supports 是否有渲染器支持该格式
func (d *DocumentRenderer) Supports(format DocumentFormat) bool {
	for _, r := range d.renderers {
		if r.Supports(format) {
			return true
		}
	}
	return false
}

// Render 失败或没有文本时返回提取错误
func (d *DocumentRenderer) Render(ctx context.Context, r io.Reader, name string, format DocumentFormat) (string, error) {
	ctx, span := tracer.Start(ctx, "document.render")
	defer span.End()
	span.SetAttributes(attribute.String("document.format", string(format)))

	data, err := io.ReadAll(r)
	if err != nil {
		return "", types.NewExtractionError(name, "读取文档失败", err)
	}

	var errs []error
	tried := false
	for _, renderer := range d.renderers {
		if !renderer.Supports(format) {
			continue
		}
		tried = true
		text, rerr := renderer.Render(ctx, bytes.NewReader(data), name, format)
		if rerr != nil {
			d.logger.Printf("渲染 %s 失败 (%T): %v", name, renderer, rerr)
			errs = append(errs, rerr)
			continue
		}
		if strings.TrimSpace(text) == "" {
			errs = append(errs, errors.New("未提取到文本"))
			continue
		}
		return text, nil
	}

	var extractionErr error
	if !tried {
		extractionErr = types.NewExtractionError(name, "没有可用的渲染器", fmt.Errorf("%w: %s", types.ErrUnsupportedFormat, format))
	} else {
		extractionErr = types.NewExtractionError(name, "", errors.Join(errs...))
	}
	tracing.RecordError(span, extractionErr, tracing.ErrorTypeExtraction)
	return "", extractionErr
}

// RenderFile 读取本地文件；displayName 为空时使用文件名
func (d *DocumentRenderer) RenderFile(ctx context.Context, path, displayName string) (string, error) {
	if displayName == "" {
		displayName = filepath.Base(path)
	}
	format, err := FormatFromFilename(displayName)
	if err != nil {
		return "", types.NewExtractionError(displayName, "", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", types.NewExtractionError(displayName, "打开文件失败", err)
	}
	defer f.Close()
	return d.Render(ctx, f, displayName, format)
}
