package agent

import (
	"github.com/cloudwego/eino/components/model"
)

// ResponseOptions 评估模型的实现相关选项
type ResponseOptions struct {
	// JSONMode 要求模型只输出 JSON 对象
	JSONMode bool
}

// WithJSONResponse 请求模型以 JSON 对象格式返回
func WithJSONResponse() model.Option {
	return model.WrapImplSpecificOptFn(func(o *ResponseOptions) {
		o.JSONMode = true
	})
}

// callConfig 单次调用解析后的参数
type callConfig struct {
	model       string
	temperature *float32
	maxTokens   *int
	jsonMode    bool
}

func resolveCallConfig(defaultModel string, opts ...model.Option) callConfig {
	common := model.GetCommonOptions(&model.Options{}, opts...)
	specific := model.GetImplSpecificOptions(&ResponseOptions{}, opts...)

	cfg := callConfig{
		model:       defaultModel,
		temperature: common.Temperature,
		maxTokens:   common.MaxTokens,
		jsonMode:    specific.JSONMode,
	}
	if common.Model != nil && *common.Model != "" {
		cfg.model = *common.Model
	}
	return cfg
}
