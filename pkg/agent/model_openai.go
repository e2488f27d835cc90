package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const (
	// Groq 的 OpenAI 兼容接口
	DefaultOpenAICompatibleURL = "https://api.groq.com/openai/v1/chat/completions"
	DefaultEvaluatorModel      = "meta-llama/llama-4-scout-17b-16e-instruct"

	maxLoggedBody = 512
)

// APIError 评估服务返回了非 2xx 状态
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API 请求失败，状态 %d: %s", e.StatusCode, e.Body)
}

// Retryable 429 与 5xx 可重试
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// OpenAICompatibleChatModel 通过 OpenAI 兼容的 chat/completions 接口调用评估模型
type OpenAICompatibleChatModel struct {
	apiKey     string
	modelName  string
	apiURL     string
	httpClient *http.Client
	logger     *log.Logger
	tools      []*schema.ToolInfo
}

// OpenAIModelOption 配置选项
type OpenAIModelOption func(*OpenAICompatibleChatModel)

// WithHTTPClient 自定义 HTTP 客户端
func WithHTTPClient(c *http.Client) OpenAIModelOption {
	return func(m *OpenAICompatibleChatModel) {
		if c != nil {
			m.httpClient = c
		}
	}
}

// WithModelLogger 设置日志
func WithModelLogger(l *log.Logger) OpenAIModelOption {
	return func(m *OpenAICompatibleChatModel) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewOpenAICompatibleChatModel 创建评估模型客户端；modelName、apiURL 为空时使用 Groq 默认值
func NewOpenAICompatibleChatModel(apiKey, modelName, apiURL string, opts ...OpenAIModelOption) (*OpenAICompatibleChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API 密钥不能为空")
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = DefaultEvaluatorModel
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = DefaultOpenAICompatibleURL
	}

	m := &OpenAICompatibleChatModel{
		apiKey:     apiKey,
		modelName:  modelName,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 90 * time.Second},
		logger:     log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger.Printf("使用 OpenAI 兼容评估模型，API URL: %s, 模型: %s", m.apiURL, m.modelName)
	return m, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float32        `json:"temperature,omitempty"`
	MaxTokens      *int            `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatCompletionChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string  `json:"role"`
		Content *string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type chatCompletionResponse struct {
	ID      string                 `json:"id"`
	Model   string                 `json:"model"`
	Choices []chatCompletionChoice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Generate 实现 model.BaseChatModel
func (m *OpenAICompatibleChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	cfg := resolveCallConfig(m.modelName, opts...)

	reqPayload := chatCompletionRequest{
		Model:       cfg.model,
		Messages:    make([]chatMessage, 0, len(messages)),
		Temperature: cfg.temperature,
		MaxTokens:   cfg.maxTokens,
	}
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		reqPayload.Messages = append(reqPayload.Messages, chatMessage{Role: string(msg.Role), Content: msg.Content})
	}
	if cfg.jsonMode {
		reqPayload.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	jsonData, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	httpResp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}
	m.logger.Printf("[评估模型] 模型 %s 响应: Status=%d, 耗时=%v, 响应长度=%d", cfg.model, httpResp.StatusCode, time.Since(start), len(bodyBytes))

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: httpResp.StatusCode, Body: truncateBody(string(bodyBytes))}
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(bodyBytes, &resp); err != nil {
		return nil, fmt.Errorf("反序列化 API 响应失败: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("从 API 收到空选项: %s", truncateBody(string(bodyBytes)))
	}

	content := ""
	if resp.Choices[0].Message.Content != nil {
		content = *resp.Choices[0].Message.Content
	}
	out := schema.AssistantMessage(content, nil)
	out.ResponseMeta = &schema.ResponseMeta{
		FinishReason: resp.Choices[0].FinishReason,
		Usage: &schema.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.PromptTokens + resp.Usage.CompletionTokens,
		},
	}
	return out, nil
}

// Stream 评估调用只需要完整结果
func (m *OpenAICompatibleChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("OpenAICompatibleChatModel 不支持 Stream")
}

// WithTools 返回绑定了工具的副本；评估请求不发送工具定义
func (m *OpenAICompatibleChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	clone := *m
	clone.tools = append([]*schema.ToolInfo(nil), tools...)
	return &clone, nil
}

// ModelName 默认模型名
func (m *OpenAICompatibleChatModel) ModelName() string {
	return m.modelName
}

func truncateBody(s string) string {
	if len(s) <= maxLoggedBody {
		return s
	}
	return s[:maxLoggedBody] + "..."
}

var _ model.ToolCallingChatModel = (*OpenAICompatibleChatModel)(nil)
