package processor

import (
	"context"
	"testing"
	"time"

	"resume-screener/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func factoryConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LLM.Provider = "openai"
	cfg.LLM.APIKey = "test-key"
	cfg.LLM.Model = "llama3-70b-8192"
	cfg.LLM.MaxTokens = 512
	cfg.Document.Renderer = "eino"
	cfg.Pipeline.ParseWorkers = 2
	cfg.Uploads.ServePath = "/files/"
	return cfg
}

func TestNewPipelineFromConfig(t *testing.T) {
	p, err := NewPipelineFromConfig(context.Background(), factoryConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, p.settings.ParseWorkers)
	assert.Equal(t, "/files/", p.settings.FileURLPrefix)
	assert.NotNil(t, p.comp.Observer)
}

func TestNewPipelineFromConfig_Errors(t *testing.T) {
	_, err := NewPipelineFromConfig(context.Background(), nil, nil)
	assert.Error(t, err)

	cfg := factoryConfig()
	cfg.LLM.APIKey = ""
	_, err = NewPipelineFromConfig(context.Background(), cfg, nil)
	assert.Error(t, err)

	cfg = factoryConfig()
	cfg.LLM.Provider = "unknown"
	_, err = NewPipelineFromConfig(context.Background(), cfg, nil)
	assert.Error(t, err)

	cfg = factoryConfig()
	cfg.Document.Renderer = "tika"
	cfg.Tika.ServerURL = ""
	_, err = NewPipelineFromConfig(context.Background(), cfg, nil)
	assert.Error(t, err, "tika only without a server url leaves no renderer")
}

func TestEvaluatorFactory_SharesClientPerModel(t *testing.T) {
	cfg := factoryConfig()
	cfg.LLM.TaskModels = map[string]string{TaskScoreResume: "llama-3.3-70b-versatile"}
	f := NewEvaluatorFactory(context.Background(), cfg, nil)

	a, err := f.ForTask(TaskExtractExperience)
	require.NoError(t, err)
	b, err := f.ForTask(TaskNormalizeJD)
	require.NoError(t, err)
	c, err := f.ForTask(TaskScoreResume)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Len(t, f.clients, 2)
}

func TestBreakerSettings(t *testing.T) {
	b := BreakerSettings(config.BreakerConfig{})
	assert.False(t, b.Enabled)
	assert.Equal(t, uint32(10), b.MinRequests)
	assert.Equal(t, 30*time.Second, b.OpenTimeout)

	b = BreakerSettings(config.BreakerConfig{
		Enabled:          true,
		MinRequests:      3,
		FailureRatio:     0.8,
		OpenTimeout:      "5s",
		HalfOpenMaxCalls: 1,
	})
	assert.True(t, b.Enabled)
	assert.Equal(t, uint32(3), b.MinRequests)
	assert.Equal(t, 0.8, b.FailureRatio)
	assert.Equal(t, 5*time.Second, b.OpenTimeout)
	assert.Equal(t, uint32(1), b.HalfOpenMaxCalls)
}
