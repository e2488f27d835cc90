package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger 服务的全局日志实例，Init 之前输出到 zerolog 默认 logger
var Logger = log.Logger

// Config 日志配置
type Config struct {
	Level        string `json:"level" yaml:"level"`                 // debug, info, warn, error
	Format       string `json:"format" yaml:"format"`               // json 或 pretty（控制台彩色输出）
	TimeFormat   string `json:"time_format" yaml:"time_format"`     // 时间戳格式，为空时用 RFC3339
	ReportCaller bool   `json:"report_caller" yaml:"report_caller"` // 输出调用位置
	File         string `json:"file" yaml:"file"`                   // 可选，额外以 JSON 写入的日志文件
	Service      string `json:"service" yaml:"service"`             // 每条日志附带的 service 字段
}

// Init 按配置替换全局日志实例。
// 配置了日志文件时，返回的 io.Closer 在退出时关闭文件；否则 Close 为空操作。
func Init(config Config) (io.Closer, error) {
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil || config.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	zerolog.TimeFieldFormat = time.RFC3339
	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	output, closer, err := newOutput(config)
	if err != nil {
		return closer, err
	}

	builder := zerolog.New(output).Level(level).With().Timestamp()
	if config.Service != "" {
		builder = builder.Str("service", config.Service)
	}
	if config.ReportCaller {
		builder = builder.Caller()
	}

	Logger = builder.Logger()
	log.Logger = Logger
	return closer, nil
}

// newOutput 控制台输出，加上可选的文件输出
func newOutput(config Config) (io.Writer, io.Closer, error) {
	var console io.Writer = os.Stdout
	if config.Format == "pretty" {
		console = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: config.TimeFormat}
	}
	if config.File == "" {
		return console, nopCloser{}, nil
	}

	f, err := os.OpenFile(config.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nopCloser{}, err
	}
	return zerolog.MultiLevelWriter(console, f), f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Writer 返回带 component 字段的 io.Writer，按固定级别输出；
// 供只接受标准库 *log.Logger 的组件使用，例如 log.New(Writer("Scorer", zerolog.DebugLevel), "", 0)
func Writer(component string, level zerolog.Level) io.Writer {
	return zerologWriter{
		logger: Logger.With().Str("component", component).Logger(),
		level:  level,
	}
}

type zerologWriter struct {
	logger zerolog.Logger
	level  zerolog.Level
}

func (w zerologWriter) Write(p []byte) (int, error) {
	w.logger.WithLevel(w.level).Msg(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// Info 信息级别事件
func Info() *zerolog.Event {
	return Logger.Info()
}

// Warn 警告级别事件
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Error 错误级别事件
func Error() *zerolog.Event {
	return Logger.Error()
}
