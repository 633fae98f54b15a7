package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "log_level: info\n"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 800, cfg.RAG.ChunkTokens)
	assert.Equal(t, 120, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 5, cfg.RAG.TopK)
	assert.Equal(t, 12000, cfg.RAG.MaxContextChars)
	assert.Equal(t, 4, cfg.LLM.MaxRounds)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, "chromem", cfg.VectorDB.Backend)
	assert.Equal(t, "hr_documents", cfg.VectorDB.Collection)
	assert.Equal(t, "memory", cfg.Session.Backend)
	require.Len(t, cfg.Corpora, 2)
	assert.Equal(t, "hr", cfg.Corpora[0].Name)
	assert.Equal(t, "jisr", cfg.Corpora[1].Name)
}

func TestLoadConfig_FileValues(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
rag:
  chunk_tokens: 200
  chunk_overlap: 20
  top_k: 3
corpora:
  - name: jisr
    key: guides
    root: /srv/guides
session:
  backend: redis
  ttl: 90m
`))
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.RAG.ChunkTokens)
	assert.Equal(t, 20, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 3, cfg.RAG.TopK)
	assert.Equal(t, 90*time.Minute, cfg.Session.TTL)

	cc, ok := cfg.CorpusFor("guides")
	require.True(t, ok)
	assert.Equal(t, "/srv/guides", cc.Root)

	_, ok = cfg.CorpusFor("policies")
	assert.False(t, ok)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("LLM_API_KEY", "secret")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("PORT", "9000")

	cfg, err := LoadConfig(writeConfig(t, "llm:\n  key: from-file\n"))
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.LLM.Key)
	assert.Equal(t, "redis:6380", cfg.Session.RedisAddr)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown corpus", "corpora:\n  - name: finance\n    root: x\n"},
		{"duplicate corpus", "corpora:\n  - name: hr\n    root: a\n  - name: hr\n    root: b\n"},
		{"missing root", "corpora:\n  - name: hr\n"},
		{"overlap too large", "rag:\n  chunk_tokens: 100\n  chunk_overlap: 100\n"},
		{"bad yaml", "rag: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8000, cfg.Server.Port)
}
