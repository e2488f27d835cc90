package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resume-screener/internal/api/handler"
	"resume-screener/internal/api/router"
	"resume-screener/internal/config"
	"resume-screener/internal/constants"
	appCoreLogger "resume-screener/internal/logger"
	"resume-screener/internal/metrics"
	"resume-screener/internal/processor"
	"resume-screener/internal/storage"
	"resume-screener/internal/tracing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

var version = "1.0.0" //nolint:gochecknoglobals

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	logCloser, err := appCoreLogger.Init(appCoreLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
		File:         cfg.Logger.File,
		Service:      constants.ServiceName,
	})
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logCloser.Close()

	glog.SetLogger(hertzadapter.From(appCoreLogger.Logger))
	glog.SetLevel(hertzLevel(cfg.Logger.Level))
	glog.Infof("%s %s 配置加载成功", constants.ServiceName, version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitProvider(ctx, cfg.Tracing)
	if err != nil {
		appCoreLogger.Warn().Err(err).Msg("初始化链路追踪失败，继续运行")
	}

	var screenerMetrics *metrics.ScreenerMetrics
	if cfg.Metrics.Enabled {
		screenerMetrics = metrics.NewScreenerMetrics(cfg.Metrics.Namespace, constants.ServiceName)
	}

	storageManager, err := storage.NewStorage(ctx, cfg, componentLogger("Storage", zerolog.InfoLevel))
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	appCoreLogger.Info().
		Bool("redis", cfg.Redis.Address != "").
		Bool("minio", cfg.MinIO.Endpoint != "").
		Bool("rabbitmq", cfg.RabbitMQ.URL != "").
		Str("results_cache", cfg.ResultsCache.Backend).
		Msg("存储服务初始化成功")

	factoryOpts := &processor.FactoryOptions{Logger: pipelineLogger}
	if screenerMetrics != nil {
		factoryOpts.Observer = screenerMetrics
		factoryOpts.CallObserver = screenerMetrics.ObserveEvaluatorCall
	}
	pipeline, err := processor.NewPipelineFromConfig(ctx, cfg, factoryOpts)
	if err != nil {
		glog.Fatalf("初始化筛选流水线失败: %v", err)
	}
	glog.Info("筛选流水线初始化成功")

	handlerOpts := []handler.HandlerOption{
		handler.WithDefaultTopN(cfg.Pipeline.DefaultTopN),
		handler.WithHandlerLogger(componentLogger("ScreeningHandler", zerolog.InfoLevel)),
	}
	if publisher := storageManager.Publisher(); publisher != nil {
		handlerOpts = append(handlerOpts, handler.WithPublisher(publisher))
	}
	if screenerMetrics != nil {
		handlerOpts = append(handlerOpts, handler.WithUploadObserver(screenerMetrics))
	}
	screeningHandler := handler.NewScreeningHandler(pipeline, storageManager.Uploads, storageManager.Cleanup,
		storageManager.Results, handlerOpts...)

	maxRequestMB := cfg.Server.MaxRequestMB
	if maxRequestMB <= 0 {
		maxRequestMB = 64
	}
	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithMaxRequestBodySize(maxRequestMB<<20),
		server.WithHandleMethodNotAllowed(true),
		tracer,
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))
	routeOpts := router.Options{UploadsPath: cfg.Uploads.ServePath}
	if screenerMetrics != nil {
		h.Use(screenerMetrics.Middleware())
		routeOpts.MetricsPath = cfg.Metrics.Path
		routeOpts.Metrics = screenerMetrics.HertzHandler()
	}
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		glog.CtxDebugf(c, "Request: %s %s", string(ctx.Method()), string(ctx.Path()))
		ctx.Next(c)
		glog.CtxDebugf(c, "Response: status %d", ctx.Response.StatusCode())
	})

	router.RegisterRoutes(h, screeningHandler, routeOpts)
	glog.Info("HTTP路由注册成功")

	glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)
	go func() {
		if err := h.Run(); err != nil {
			glog.Errorf("HTTP服务器退出: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(),
		config.GetDuration(cfg.Server.ShutdownTimeout, 10*time.Second))
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		appCoreLogger.Error().Err(err).Msg("服务器关闭失败")
	}

	// 立即执行所有未到期的清理任务，不在磁盘上遗留上传文件
	storageManager.Close()
	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			appCoreLogger.Warn().Err(err).Msg("关闭链路追踪失败")
		}
	}
	glog.Info("优雅退出完成")
}

func componentLogger(component string, level zerolog.Level) *log.Logger {
	return log.New(appCoreLogger.Writer(component, level), "", 0)
}

func pipelineLogger(component string, debug bool) *log.Logger {
	if debug {
		return componentLogger(component, zerolog.DebugLevel)
	}
	return componentLogger(component, zerolog.InfoLevel)
}

func hertzLevel(level string) glog.Level {
	switch level {
	case "debug":
		return glog.LevelDebug
	case "warn":
		return glog.LevelWarn
	case "error":
		return glog.LevelError
	default:
		return glog.LevelInfo
	}
}
