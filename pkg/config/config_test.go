package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8010", cfg.Services.Knowledge)
	assert.Equal(t, 3*time.Second, cfg.Timeouts.Default)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTLs.Products)
	assert.Equal(t, "ingestion", cfg.Queue.InputQueue)
	assert.Equal(t, "ingestion-dlq", cfg.Queue.DLQ)
	assert.Equal(t, 3, cfg.Queue.MaxRetries)
	assert.Equal(t, []string{"pt", "pt-BR", "pt-PT", "en", "es"}, cfg.SubtitleLangs)
	assert.False(t, cfg.TracingEnabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("KNOWLEDGE_BASE_URL", "http://knowledge:9000")
	t.Setenv("MCP_TIMEOUT", "750ms")
	t.Setenv("PRODUCTS_CACHE_TTL", "30") // bare seconds accepted
	t.Setenv("SUBTITLE_LANGS", "en, es")
	t.Setenv("INGESTION_MAX_RETRIES", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://knowledge:9000", cfg.Services.Knowledge)
	assert.Equal(t, 750*time.Millisecond, cfg.Timeouts.Default)
	assert.Equal(t, 30*time.Second, cfg.CacheTTLs.Products)
	assert.Equal(t, []string{"en", "es"}, cfg.SubtitleLangs)
	assert.Equal(t, 5, cfg.Queue.MaxRetries)
}

func TestLoad_RejectsSameQueueAndDLQ(t *testing.T) {
	t.Setenv("INGESTION_QUEUE", "same")
	t.Setenv("INGESTION_DLQ", "same")

	_, err := Load()
	assert.Error(t, err)
}

func TestServiceTimeout(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, cfg.Timeouts.Vision, cfg.ServiceTimeout("vision"))
	assert.Equal(t, cfg.Timeouts.STT, cfg.ServiceTimeout("stt"))
	assert.Equal(t, cfg.Timeouts.TTS, cfg.ServiceTimeout("tts"))
	assert.Equal(t, cfg.Timeouts.Default, cfg.ServiceTimeout("knowledge"))
}
