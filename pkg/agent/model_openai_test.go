package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAICompatibleChatModel_Generate(t *testing.T) {
	var captured chatCompletionRequest
	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"{\"ok\":true}"},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":2}}`))
	}))
	defer server.Close()

	m, err := NewOpenAICompatibleChatModel("key-1", "", server.URL)
	require.NoError(t, err)

	msg, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage("hello"),
	}, model.WithTemperature(0.3), model.WithMaxTokens(1024), WithJSONResponse())
	require.NoError(t, err)

	assert.Equal(t, `{"ok":true}`, msg.Content)
	assert.Equal(t, "Bearer key-1", authHeader)
	assert.Equal(t, DefaultEvaluatorModel, captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "hello", captured.Messages[1].Content)
	require.NotNil(t, captured.Temperature)
	assert.InDelta(t, 0.3, *captured.Temperature, 1e-6)
	require.NotNil(t, captured.MaxTokens)
	assert.Equal(t, 1024, *captured.MaxTokens)
	require.NotNil(t, captured.ResponseFormat)
	assert.Equal(t, "json_object", captured.ResponseFormat.Type)
	require.NotNil(t, msg.ResponseMeta)
	assert.Equal(t, 5, msg.ResponseMeta.Usage.TotalTokens)
}

func TestOpenAICompatibleChatModel_OmitsUnsetOptions(t *testing.T) {
	var raw map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &raw))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hi"}}]}`))
	}))
	defer server.Close()

	m, err := NewOpenAICompatibleChatModel("k", "custom-model", server.URL)
	require.NoError(t, err)
	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("x")}, model.WithModel("override"))
	require.NoError(t, err)

	assert.Equal(t, "override", raw["model"])
	assert.NotContains(t, raw, "temperature")
	assert.NotContains(t, raw, "max_tokens")
	assert.NotContains(t, raw, "response_format")
}

func TestOpenAICompatibleChatModel_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer server.Close()

	m, err := NewOpenAICompatibleChatModel("k", "", server.URL)
	require.NoError(t, err)
	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("x")})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.True(t, apiErr.Retryable())
	assert.Contains(t, apiErr.Body, "rate limited")
}

func TestOpenAICompatibleChatModel_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	m, err := NewOpenAICompatibleChatModel("k", "", server.URL)
	require.NoError(t, err)
	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("x")})
	assert.ErrorContains(t, err, "空选项")
}

func TestNewOpenAICompatibleChatModel_RequiresKey(t *testing.T) {
	_, err := NewOpenAICompatibleChatModel("  ", "", "")
	assert.Error(t, err)
}

func TestMockChatClient_Sequential(t *testing.T) {
	m := NewMockChatClientSequential([]MockResponse{
		{Content: "first"},
		{Error: errors.New("boom")},
	})
	msg, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("a")})
	require.NoError(t, err)
	assert.Equal(t, "first", msg.Content)

	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("b")})
	assert.EqualError(t, err, "boom")

	_, err = m.Generate(context.Background(), nil)
	assert.Error(t, err)
	assert.Equal(t, 3, m.CallCount())
	assert.Len(t, m.GetReceivedMessages(), 2)
}

func TestToGeminiContents(t *testing.T) {
	system, contents := toGeminiContents([]*schema.Message{
		schema.SystemMessage("rules"),
		schema.UserMessage("question"),
		schema.AssistantMessage("answer", nil),
	})
	assert.Equal(t, "rules", system)
	require.Len(t, contents, 2)
	assert.Equal(t, "question", contents[0].Parts[0].Text)
	assert.EqualValues(t, "model", contents[1].Role)
}
