package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.LLM.APIKey = "gsk_test"
	cfg.Storage.ProjectID = "easywatch-test"
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "groq", cfg.LLM.Provider)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.LLM.Model)
	assert.Equal(t, 10, cfg.Turn.HistoryLimit)
	assert.Equal(t, SummarizeConfig{Threshold: 6000, ChunkTokens: 7000, OverlapTokens: 100}, cfg.Summarize)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "easywatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9090
llm:
  provider: anthropic
  model: claude-sonnet-4-5
  call_timeout: 45s
storage:
  backend: sqlite
  sqlite_path: /tmp/ew.db
summarize:
  threshold: 3000
`), 0o600))

	// keep godotenv from picking up a stray .env in the package dir
	t.Chdir(dir)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("PORT", "7070")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "claude-sonnet-4-5", cfg.LLM.Model)
	assert.Equal(t, "sk-ant-test", cfg.LLM.APIKey)
	assert.Equal(t, 45*time.Second, cfg.LLM.CallTimeout)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, 3000, cfg.Summarize.Threshold)
	assert.Equal(t, 7000, cfg.Summarize.ChunkTokens)
	require.NoError(t, cfg.Validate())
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("YOUTUBE_API_KEY=yt-from-dotenv\n"), 0o600))
	t.Chdir(dir)
	t.Setenv(EnvConfigPath, "")
	os.Unsetenv("YOUTUBE_API_KEY")
	t.Cleanup(func() { os.Unsetenv("YOUTUBE_API_KEY") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "yt-from-dotenv", cfg.YouTube.APIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv_BadNumber(t *testing.T) {
	cfg := Default()
	env := map[string]string{"PORT": "eighty", "LLM_CALL_TIMEOUT": "soon"}
	err := cfg.applyEnv(func(k string) (string, bool) { v, ok := env[k]; return v, ok })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "LLM_CALL_TIMEOUT")
}

func TestApplyEnv_GenericKeyWins(t *testing.T) {
	cfg := Default()
	env := map[string]string{"GROQ_API_KEY": "groq", "LLM_API_KEY": "generic"}
	require.NoError(t, cfg.applyEnv(func(k string) (string, bool) { v, ok := env[k]; return v, ok }))
	assert.Equal(t, "generic", cfg.LLM.APIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "mock needs no key", mutate: func(c *Config) { c.LLM.Provider = "mock"; c.LLM.APIKey = "" }},
		{name: "missing key", mutate: func(c *Config) { c.LLM.APIKey = "" }, wantErr: "llm.api_key"},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "kimi" }, wantErr: "unknown llm.provider"},
		{name: "firestore without project", mutate: func(c *Config) { c.Storage.ProjectID = "" }, wantErr: "storage.project_id"},
		{name: "memory backend", mutate: func(c *Config) { c.Storage.Backend = "memory"; c.Storage.ProjectID = "" }},
		{name: "unknown backend", mutate: func(c *Config) { c.Storage.Backend = "redis" }, wantErr: "unknown storage.backend"},
		{name: "overlap too large", mutate: func(c *Config) { c.Summarize.OverlapTokens = 7000 }, wantErr: "overlap_tokens"},
		{name: "zero threshold", mutate: func(c *Config) { c.Summarize.Threshold = 0 }, wantErr: "summarize.threshold"},
		{name: "bad port", mutate: func(c *Config) { c.Port = 0 }, wantErr: "port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
