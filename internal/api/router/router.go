package router

import (
	"context"
	"strings"

	"resume-screener/internal/api/handler"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// Options 路由的可选部分
type Options struct {
	UploadsPath string          // 原始文件下载前缀，默认 /uploads
	MetricsPath string          // 指标路径，默认 /metrics
	Metrics     app.HandlerFunc // 为 nil 时不注册指标路由
}

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, screeningHandler *handler.ScreeningHandler, opts Options) {
	api := h.Group("/api/v1")

	api.POST("/analyze", screeningHandler.HandleAnalyze)
	api.GET("/results/last", screeningHandler.HandleLatestResults)
	api.GET("/results/last/export", screeningHandler.HandleExportLatest)

	// 添加健康检查
	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	// 兼容旧的前端表单地址
	h.POST("/analyze", screeningHandler.HandleAnalyze)

	uploadsPath := strings.TrimRight(opts.UploadsPath, "/")
	if uploadsPath == "" {
		uploadsPath = "/uploads"
	}
	h.GET(uploadsPath+"/:name", screeningHandler.HandleDownload)

	if opts.Metrics != nil {
		metricsPath := opts.MetricsPath
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		h.GET(metricsPath, opts.Metrics)
	}
}
