package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// MockResponse 定义了 MockChatClient 的单次预期响应
type MockResponse struct {
	Content string
	Error   error
}

// Responder 根据收到的消息决定响应，用于并发测试中按内容路由
type Responder func(ctx context.Context, input []*schema.Message) (string, error)

// MockChatClient 是一个用于测试的 model.ToolCallingChatModel 模拟实现，可并发调用
type MockChatClient struct {
	mu sync.Mutex

	expectedResponse    string
	expectedError       error
	sequentialResponses []MockResponse
	responseIndex       int
	isSequential        bool
	responder           Responder

	receivedCalls [][]*schema.Message
	receivedOpts  [][]model.Option
}

// NewMockChatClient 创建一个返回固定响应的 MockChatClient
func NewMockChatClient(expectedResponse string, expectedError error) *MockChatClient {
	return &MockChatClient{
		expectedResponse: expectedResponse,
		expectedError:    expectedError,
	}
}

// NewMockChatClientSequential 创建一个按顺序返回不同响应的 MockChatClient
func NewMockChatClientSequential(responses []MockResponse) *MockChatClient {
	if len(responses) == 0 {
		responses = []MockResponse{{Error: errors.New("mock client has no responses configured")}}
	}
	return &MockChatClient{
		sequentialResponses: responses,
		isSequential:        true,
	}
}

// NewMockChatClientFunc 由回调生成响应
func NewMockChatClientFunc(fn Responder) *MockChatClient {
	return &MockChatClient{responder: fn}
}

// Generate 模拟 LLM 的 Generate 方法
func (m *MockChatClient) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	received := make([]*schema.Message, len(input))
	copy(received, input)

	m.mu.Lock()
	m.receivedCalls = append(m.receivedCalls, received)
	m.receivedOpts = append(m.receivedOpts, opts)
	responder := m.responder
	var resp MockResponse
	switch {
	case responder != nil:
	case m.isSequential:
		if m.responseIndex >= len(m.sequentialResponses) {
			m.mu.Unlock()
			return nil, errors.New("mock client has run out of sequential responses")
		}
		resp = m.sequentialResponses[m.responseIndex]
		m.responseIndex++
	default:
		resp = MockResponse{Content: m.expectedResponse, Error: m.expectedError}
	}
	m.mu.Unlock()

	if responder != nil {
		content, err := responder(ctx, received)
		if err != nil {
			return nil, err
		}
		return schema.AssistantMessage(content, nil), nil
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return schema.AssistantMessage(resp.Content, nil), nil
}

// Stream 模拟 LLM 的 Stream 方法
func (m *MockChatClient) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("streaming not implemented in MockChatClient")
}

// WithTools 返回自身
func (m *MockChatClient) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// CallCount 已收到的 Generate 调用次数
func (m *MockChatClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.receivedCalls)
}

// GetReceivedMessages 返回所有调用中累积的已接收消息
func (m *MockChatClient) GetReceivedMessages() []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*schema.Message
	for _, call := range m.receivedCalls {
		all = append(all, call...)
	}
	return all
}

// LastOptions 最近一次调用的选项
func (m *MockChatClient) LastOptions() []model.Option {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.receivedOpts) == 0 {
		return nil
	}
	return m.receivedOpts[len(m.receivedOpts)-1]
}

var _ model.ToolCallingChatModel = (*MockChatClient)(nil)
