package processor

import (
	"io"
	"log"

	"resume-screener/internal/parser"
)

// Components 聚合流水线依赖的功能组件，便于集中管理和测试替换
type Components struct {
	Renderer   DocumentRenderer // 文档渲染
	Segmenter  *parser.Segmenter
	Skills     *parser.SkillExtractor
	Education  *parser.EducationExtractor
	Projects   *parser.ProjectsExtractor
	Experience ExperienceParser // 经历/联系方式，依赖评估模型
	JD         JDNormalizer     // 岗位描述归一化
	Scorer     ResumeScorer     // 批量评分
	Observer   Observer         // 可选，指标上报
}

// Settings 纯配置项，不包含任何业务逻辑组件
type Settings struct {
	ParseWorkers  int         // 并发解析的文档数
	FileURLPrefix string      // 原始文件下载地址前缀
	Debug         bool        // 是否开启调试日志
	Logger        *log.Logger // 日志记录器
}

// ComponentOpt 组件选项类型，仅改变 Components 结构体内的字段
type ComponentOpt func(*Components)

// SettingOpt 设置选项类型，仅改变 Settings 结构体内的字段
type SettingOpt func(*Settings)

// DefaultSettings 默认设置
func DefaultSettings() *Settings {
	return &Settings{
		ParseWorkers:  4,
		FileURLPrefix: "/uploads/",
		Logger:        log.New(io.Discard, "", 0),
	}
}

// NewComponents 按选项组装组件，未设置的纯本地组件由 NewPipeline 补默认实现
func NewComponents(opts ...ComponentOpt) *Components {
	c := &Components{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ----- 组件选项 -----

// WithcompRenderer 设置文档渲染器
func WithcompRenderer(r DocumentRenderer) ComponentOpt {
	return func(c *Components) {
		c.Renderer = r
	}
}

// WithcompSegmenter 设置分段器
func WithcompSegmenter(s *parser.Segmenter) ComponentOpt {
	return func(c *Components) {
		c.Segmenter = s
	}
}

// WithcompExperience 设置经历提取器
func WithcompExperience(e ExperienceParser) ComponentOpt {
	return func(c *Components) {
		c.Experience = e
	}
}

// WithcompJD 设置岗位描述归一化组件
func WithcompJD(n JDNormalizer) ComponentOpt {
	return func(c *Components) {
		c.JD = n
	}
}

// WithcompScorer 设置评分器
func WithcompScorer(s ResumeScorer) ComponentOpt {
	return func(c *Components) {
		c.Scorer = s
	}
}

// WithcompObserver 设置指标观察者
func WithcompObserver(o Observer) ComponentOpt {
	return func(c *Components) {
		c.Observer = o
	}
}

// ----- 设置选项 -----

// WithsetParseWorkers 设置并发解析数
func WithsetParseWorkers(n int) SettingOpt {
	return func(s *Settings) {
		if n > 0 {
			s.ParseWorkers = n
		}
	}
}

// WithsetFileURLPrefix 设置下载地址前缀
func WithsetFileURLPrefix(prefix string) SettingOpt {
	return func(s *Settings) {
		s.FileURLPrefix = prefix
	}
}

// WithsetDebug 设置调试模式
func WithsetDebug(debug bool) SettingOpt {
	return func(s *Settings) {
		s.Debug = debug
	}
}

// WithsetLogger 设置日志记录器
func WithsetLogger(logger *log.Logger) SettingOpt {
	return func(s *Settings) {
		if logger != nil {
			s.Logger = logger
		} else {
			s.Logger = log.New(io.Discard, "", 0)
		}
	}
}

// logDebug 记录调试级别日志
func (p *Pipeline) logDebug(format string, args ...interface{}) {
	if p.settings.Debug {
		p.settings.Logger.Printf("[DEBUG] "+format, args...)
	}
}

// logInfo 记录信息级别日志
func (p *Pipeline) logInfo(format string, args ...interface{}) {
	p.settings.Logger.Printf(format, args...)
}

// logWarn 记录警告级别日志
func (p *Pipeline) logWarn(format string, args ...interface{}) {
	p.settings.Logger.Printf("[WARN] "+format, args...)
}
