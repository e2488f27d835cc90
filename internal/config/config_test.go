package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644), "无法写入临时配置文件")
	return path
}

// TestLoadConfig_PartialFileKeepsDefaults 验证文件中未出现的字段保持默认值
func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
llm:
  model: "llama-3.3-70b-versatile"
  task_models:
    score_resume: "gemini-2.0-flash"
pipeline:
  default_top_n: 10
uploads:
  grace_period: "60s"
`)
	cfg, err := LoadConfigFromFileOnly(path)
	require.NoError(t, err)

	assert.Equal(t, "llama-3.3-70b-versatile", cfg.LLM.Model)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 10, cfg.Pipeline.DefaultTopN)
	assert.Equal(t, 4, cfg.Pipeline.ParseWorkers)
	assert.Equal(t, "60s", cfg.Uploads.GracePeriod)
	assert.Equal(t, "/uploads", cfg.Uploads.ServePath)
	assert.Equal(t, "memory", cfg.ResultsCache.Backend)
	assert.Equal(t, 8, cfg.ResultsCache.Capacity)

	assert.Equal(t, "gemini-2.0-flash", cfg.GetModelForTask("score_resume"))
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.GetModelForTask("normalize_jd"))
	assert.Equal(t, float32(0.3), cfg.GetTemperatureForTask("normalize_jd", 0.9))
	assert.Equal(t, float32(0.9), cfg.GetTemperatureForTask("unknown", 0.9))
}

// TestLoadConfig_ExplicitEmptyValuesFallBack 显式置空的关键字段回落到默认值
func TestLoadConfig_ExplicitEmptyValuesFallBack(t *testing.T) {
	path := writeConfig(t, `
server:
  address: ""
pipeline:
  parse_workers: 0
  default_top_n: -3
results_cache:
  backend: ""
  capacity: 0
`)
	cfg, err := LoadConfigFromFileOnly(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 4, cfg.Pipeline.ParseWorkers)
	assert.Equal(t, 0, cfg.Pipeline.DefaultTopN)
	assert.Equal(t, "memory", cfg.ResultsCache.Backend)
	assert.Equal(t, 8, cfg.ResultsCache.Capacity)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
llm:
  api_key: "from-file"
`)
	t.Setenv("LLM_API_KEY", "from-env")
	t.Setenv("LLM_MODEL", "env-model")
	t.Setenv("TIKA_SERVER_URL", "http://tika:9998")
	t.Setenv("SCREENER_UPLOAD_DIR", "/tmp/screening")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, "env-model", cfg.LLM.Model)
	assert.Equal(t, "http://tika:9998", cfg.Tika.ServerURL)
	assert.Equal(t, "/tmp/screening", cfg.Uploads.Dir)
}

func TestLoadConfig_GroqKeyFallback(t *testing.T) {
	path := writeConfig(t, "llm:\n  model: x\n")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "groq-key")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "groq-key", cfg.LLM.APIKey)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfigFromFileOnly("")
	assert.Error(t, err)

	path := writeConfig(t, "llm: [unclosed")
	_, err = LoadConfigFromFileOnly(path)
	assert.Error(t, err)
}

func TestCreateSampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.yaml")
	require.NoError(t, CreateSampleConfig(path))

	cfg, err := LoadConfigFromFileOnly(path)
	require.NoError(t, err)
	assert.Equal(t, createDefaultConfig().LLM.Model, cfg.LLM.Model)

	// 已存在的文件不会被覆盖
	assert.Error(t, CreateSampleConfig(path))
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 300*time.Second, GetDuration("300s", time.Second))
	assert.Equal(t, time.Second, GetDuration("", time.Second))
	assert.Equal(t, time.Second, GetDuration("soon", time.Second))
}
