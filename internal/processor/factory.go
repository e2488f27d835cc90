package processor

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"resume-screener/internal/config"
	"resume-screener/internal/parser"
	"resume-screener/pkg/agent"
	"resume-screener/pkg/ratelimit"

	"github.com/cloudwego/eino/components/model"
)

// 评估任务名，与配置中 task_models / temperatures 的键一致
const (
	TaskExtractExperience = "extract_experience"
	TaskNormalizeJD       = "normalize_jd"
	TaskScoreResume       = "score_resume"
)

// LoggerFunc 为组件创建日志记录器，debug 表示该组件只输出调试日志
type LoggerFunc func(component string, debug bool) *log.Logger

// FactoryOptions 从配置组装流水线时的可选依赖
type FactoryOptions struct {
	Observer     Observer            // 流水线阶段指标
	CallObserver parser.CallObserver // 评估调用指标
	Logger       LoggerFunc
}

func (o *FactoryOptions) logger(component string, debug bool) *log.Logger {
	if o == nil || o.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return o.Logger(component, debug)
}

// NewPipelineFromConfig 按配置创建渲染器、评估客户端和流水线
func NewPipelineFromConfig(ctx context.Context, cfg *config.Config, opts *FactoryOptions) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	if opts == nil {
		opts = &FactoryOptions{}
	}

	renderer, err := NewRendererFromConfig(ctx, cfg, opts.logger("Renderer", true))
	if err != nil {
		return nil, err
	}

	evaluators := NewEvaluatorFactory(ctx, cfg, opts)
	experienceClient, err := evaluators.ForTask(TaskExtractExperience)
	if err != nil {
		return nil, err
	}
	jdClient, err := evaluators.ForTask(TaskNormalizeJD)
	if err != nil {
		return nil, err
	}
	scoreClient, err := evaluators.ForTask(TaskScoreResume)
	if err != nil {
		return nil, err
	}

	segmenter := parser.NewSegmenter()
	debugLogger := opts.logger("Pipeline", true)

	comp := NewComponents(
		WithcompRenderer(renderer),
		WithcompSegmenter(segmenter),
		WithcompExperience(parser.NewExperienceExtractor(experienceClient, segmenter.Catalog(),
			parser.WithExperienceTemperature(cfg.GetTemperatureForTask(TaskExtractExperience, 0.2)),
			parser.WithExperienceLogger(debugLogger),
		)),
		WithcompJD(parser.NewJDNormalizer(jdClient,
			parser.WithJDTemperature(cfg.GetTemperatureForTask(TaskNormalizeJD, 0.3)),
			parser.WithJDMaxTokens(cfg.LLM.MaxTokens),
			parser.WithJDLogger(debugLogger),
		)),
		WithcompScorer(NewScorer(scoreClient,
			WithScorerTemperature(cfg.GetTemperatureForTask(TaskScoreResume, 0.2)),
			WithScorerMaxTokens(cfg.LLM.MaxTokens),
			WithScoreConcurrency(cfg.Pipeline.ScoreConcurrency),
			WithScorerLogger(debugLogger),
		)),
		WithcompObserver(opts.Observer),
	)

	return NewPipeline(comp, DefaultSettings(),
		WithsetParseWorkers(cfg.Pipeline.ParseWorkers),
		WithsetFileURLPrefix(strings.TrimRight(cfg.Uploads.ServePath, "/")+"/"),
		WithsetDebug(cfg.Logger.Level == "debug"),
		WithsetLogger(opts.logger("Pipeline", false)),
	)
}

// NewRendererFromConfig renderer=auto 时 Tika 优先，eino 作为 PDF 的本地兜底
func NewRendererFromConfig(ctx context.Context, cfg *config.Config, logger *log.Logger) (*parser.DocumentRenderer, error) {
	var renderers []parser.TextRenderer

	mode := cfg.Document.Renderer
	if mode != "eino" && cfg.Tika.ServerURL != "" {
		tikaOpts := []parser.TikaOption{
			parser.WithOCRLanguage(cfg.Tika.OCRLanguage),
			parser.WithTikaLogger(logger),
		}
		if cfg.Tika.Timeout > 0 {
			tikaOpts = append(tikaOpts, parser.WithTimeout(time.Duration(cfg.Tika.Timeout)*time.Second))
		}
		renderers = append(renderers, parser.NewTikaRenderer(cfg.Tika.ServerURL, tikaOpts...))
	}
	if mode != "tika" {
		einoRenderer, err := parser.NewEinoPDFRenderer(ctx, parser.WithEinoLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("创建Eino PDF渲染器失败: %w", err)
		}
		renderers = append(renderers, einoRenderer)
	}
	if len(renderers) == 0 {
		return nil, fmt.Errorf("没有可用的文档渲染器 (renderer=%s)", mode)
	}
	return parser.NewDocumentRenderer(logger, renderers...), nil
}

// EvaluatorFactory 按模型名复用评估客户端，同一模型共享限流器和熔断器
type EvaluatorFactory struct {
	ctx     context.Context
	cfg     *config.Config
	opts    *FactoryOptions
	clients map[string]*parser.EvaluatorClient
}

// NewEvaluatorFactory 创建评估客户端工厂，非并发安全，只在启动阶段使用
func NewEvaluatorFactory(ctx context.Context, cfg *config.Config, opts *FactoryOptions) *EvaluatorFactory {
	if opts == nil {
		opts = &FactoryOptions{}
	}
	return &EvaluatorFactory{
		ctx:     ctx,
		cfg:     cfg,
		opts:    opts,
		clients: make(map[string]*parser.EvaluatorClient),
	}
}

// ForTask 返回任务对应模型的评估客户端
func (f *EvaluatorFactory) ForTask(task string) (*parser.EvaluatorClient, error) {
	modelName := f.cfg.GetModelForTask(task)
	if client, ok := f.clients[modelName]; ok {
		return client, nil
	}

	chatModel, err := NewChatModel(f.ctx, &f.cfg.LLM, modelName, f.opts.logger("ChatModel", true))
	if err != nil {
		return nil, fmt.Errorf("初始化评估模型 %s 失败: %w", modelName, err)
	}

	limited := ratelimit.NewLLMWithRateLimit(chatModel, ratelimit.Settings{
		ModelName:  modelName,
		ModelQPM:   f.cfg.ModelQPMLimits,
		QPM:        f.cfg.LLM.QPM,
		MaxRetries: 0, // 重试由 EvaluatorClient 负责
		Breaker:    BreakerSettings(f.cfg.LLM.Breaker),
	})

	evalOpts := []parser.EvaluatorOption{
		parser.WithEvaluatorLogger(f.opts.logger("Evaluator", true)),
		parser.WithCallTimeout(config.GetDuration(f.cfg.LLM.CallTimeout, 60*time.Second)),
		parser.WithRetryPolicy(f.cfg.LLM.MaxRetries, config.GetDuration(f.cfg.LLM.RetryWait, 2*time.Second)),
	}
	if f.opts.CallObserver != nil {
		evalOpts = append(evalOpts, parser.WithCallObserver(f.opts.CallObserver))
	}
	client := parser.NewEvaluatorClient(limited, evalOpts...)
	f.clients[modelName] = client
	return client, nil
}

// BreakerSettings 配置中的熔断参数覆盖默认值
func BreakerSettings(c config.BreakerConfig) ratelimit.BreakerConfig {
	b := ratelimit.DefaultBreakerConfig()
	b.Enabled = c.Enabled
	if c.MinRequests > 0 {
		b.MinRequests = c.MinRequests
	}
	if c.FailureRatio > 0 && c.FailureRatio <= 1 {
		b.FailureRatio = c.FailureRatio
	}
	b.OpenTimeout = config.GetDuration(c.OpenTimeout, b.OpenTimeout)
	if c.HalfOpenMaxCalls > 0 {
		b.HalfOpenMaxCalls = c.HalfOpenMaxCalls
	}
	return b
}

// NewChatModel 按 provider 创建评估模型
func NewChatModel(ctx context.Context, llm *config.LLMConfig, modelName string, logger *log.Logger) (model.ToolCallingChatModel, error) {
	switch llm.Provider {
	case "gemini":
		m, err := agent.NewGeminiChatModel(ctx, llm.APIKey, modelName, logger)
		if err != nil {
			return nil, err
		}
		return m, nil
	case "openai", "":
		m, err := agent.NewOpenAICompatibleChatModel(llm.APIKey, modelName, llm.APIURL, agent.WithModelLogger(logger))
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("不支持的模型提供方: %s", llm.Provider)
	}
}
