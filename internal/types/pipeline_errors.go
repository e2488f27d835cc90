package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// 错误分类的基础错误
var (
	ErrExtraction          = errors.New("文本提取失败")
	ErrEvaluatorContract   = errors.New("评估模型返回内容不符合约定")
	ErrJDNormalization     = errors.New("岗位描述解析失败")
	ErrTransport           = errors.New("评估模型调用失败")
	ErrEmptyJobDescription = errors.New("岗位描述为空")
	ErrNoResumes           = errors.New("未上传简历文件")
	ErrUnsupportedFormat   = errors.New("不支持的文件格式")
)

// ErrorKind 错误类别
type ErrorKind string

const (
	KindExtraction ErrorKind = "extraction"
	KindContract   ErrorKind = "evaluator_contract"
	KindJD         ErrorKind = "jd_normalization"
	KindTransport  ErrorKind = "transport"
)

func (k ErrorKind) base() error {
	switch k {
	case KindExtraction:
		return ErrExtraction
	case KindContract:
		return ErrEvaluatorContract
	case KindJD:
		return ErrJDNormalization
	default:
		return ErrTransport
	}
}

// PipelineError 流水线各阶段的结构化错误
type PipelineError struct {
	Kind   ErrorKind
	Op     string
	File   string
	Detail string
	Cause  error
}

func (e *PipelineError) Error() string {
	msg := fmt.Sprintf("%s (操作:%s", e.Kind.base(), e.Op)
	if e.File != "" {
		msg += ", 文件:" + e.File
	}
	msg += ")"
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is 实现 errors.Is，按类别匹配基础错误
func (e *PipelineError) Is(target error) bool {
	return target == e.Kind.base()
}

// NewExtractionError 文档无法转为文本或没有文本
func NewExtractionError(file, detail string, cause error) error {
	return &PipelineError{Kind: KindExtraction, Op: "extract", File: file, Detail: detail, Cause: cause}
}

// NewContractError 模型输出不是合法 JSON 或找不到 JSON 块
func NewContractError(op, detail string, cause error) error {
	return &PipelineError{Kind: KindContract, Op: op, Detail: detail, Cause: cause}
}

// NewTransportError 网络、超时、非 2xx 等调用失败
func NewTransportError(op, detail string, cause error) error {
	return &PipelineError{Kind: KindTransport, Op: op, Detail: detail, Cause: cause}
}

// NewJDError 岗位描述无法归一化
func NewJDError(detail string, cause error) error {
	return &PipelineError{Kind: KindJD, Op: "normalize_jd", Detail: detail, Cause: cause}
}

// JDNormalizationError 岗位描述解析失败时的哨兵结果，携带模型原始输出
type JDNormalizationError struct {
	Message   string `json:"error"`
	RawOutput string `json:"raw_output"`
	Cause     error  `json:"-"`
}

func (e *JDNormalizationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", ErrJDNormalization, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", ErrJDNormalization, e.Message)
}

func (e *JDNormalizationError) Unwrap() error {
	return e.Cause
}

// Is 实现 errors.Is
func (e *JDNormalizationError) Is(target error) bool {
	return target == ErrJDNormalization
}

// Classify 判断错误类别。未被标注的评估调用错误一律视为传输错误。
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	var jdErr *JDNormalizationError
	if errors.As(err, &jdErr) {
		return KindJD
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return KindContract
	}
	return KindTransport
}
