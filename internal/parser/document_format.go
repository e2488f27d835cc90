package parser

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"resume-screener/internal/types"
)

// DocumentFormat 上传文档的格式
type DocumentFormat string

const (
	FormatPDF   DocumentFormat = "pdf"
	FormatDOCX  DocumentFormat = "docx"
	FormatImage DocumentFormat = "image"
)

// extensionFormats 支持的扩展名
var extensionFormats = map[string]DocumentFormat{
	".pdf":  FormatPDF,
	".docx": FormatDOCX,
	".png":  FormatImage,
	".jpg":  FormatImage,
	".jpeg": FormatImage,
}

// FormatFromFilename 根据扩展名判断格式，不支持时返回 ErrUnsupportedFormat
func FormatFromFilename(name string) (DocumentFormat, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if f, ok := extensionFormats[ext]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", types.ErrUnsupportedFormat, ext)
}

// SupportedExtensions 支持的扩展名列表
func SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".png", ".jpg", ".jpeg"}
}

// contentType 发给渲染服务的 Content-Type
func contentType(format DocumentFormat, name string) string {
	switch format {
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatImage:
		if ext := strings.ToLower(filepath.Ext(name)); ext == ".png" {
			return "image/png"
		}
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

// TextRenderer 把文档字节流转换为纯文本
type TextRenderer interface {
	Render(ctx context.Context, r io.Reader, name string, format DocumentFormat) (string, error)
	Supports(format DocumentFormat) bool
}
