package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiChatModel 通过 Google GenAI SDK 调用 Gemini 作为评估模型
type GeminiChatModel struct {
	client    *genai.Client
	modelName string
	logger    *log.Logger
}

// NewGeminiChatModel 创建 Gemini 评估模型
func NewGeminiChatModel(ctx context.Context, apiKey, modelName string, logger *log.Logger) (*GeminiChatModel, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if modelName = strings.TrimSpace(modelName); modelName == "" {
		modelName = defaultGeminiModel
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &GeminiChatModel{client: client, modelName: modelName, logger: logger}, nil
}

// Generate system 消息转为 SystemInstruction，其余按 user/model 角色发送
func (g *GeminiChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if g == nil || g.client == nil {
		return nil, errors.New("gemini model is not initialized")
	}
	cfg := resolveCallConfig(g.modelName, opts...)
	system, contents := toGeminiContents(messages)
	if len(contents) == 0 {
		return nil, errors.New("prompt must not be empty")
	}

	genCfg := &genai.GenerateContentConfig{Temperature: cfg.temperature}
	if system != "" {
		genCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if cfg.maxTokens != nil {
		genCfg.MaxOutputTokens = int32(*cfg.maxTokens)
	}
	if cfg.jsonMode {
		genCfg.ResponseMIMEType = "application/json"
	}

	resp, err := g.client.Models.GenerateContent(ctx, cfg.model, contents, genCfg)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Text == "" {
				continue
			}
			builder.WriteString(part.Text)
		}
		// 只取第一个有内容的候选
		if builder.Len() > 0 {
			break
		}
	}
	output := strings.TrimSpace(builder.String())
	if output == "" {
		return nil, errors.New("gemini api returned empty response")
	}
	g.logger.Printf("[Gemini] 模型 %s 返回 %d 字符", cfg.model, len(output))
	return schema.AssistantMessage(output, nil), nil
}

func toGeminiContents(messages []*schema.Message) (string, []*genai.Content) {
	var system []string
	var contents []*genai.Content
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			system = append(system, msg.Content)
		case schema.Assistant:
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: msg.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: msg.Content}}})
		}
	}
	return strings.Join(system, "\n\n"), contents
}

// Stream 不支持
func (g *GeminiChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("GeminiChatModel 不支持 Stream")
}

// WithTools 评估调用不使用工具，返回自身
func (g *GeminiChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return g, nil
}

// ModelName 默认模型名
func (g *GeminiChatModel) ModelName() string {
	return g.modelName
}

var _ model.ToolCallingChatModel = (*GeminiChatModel)(nil)
