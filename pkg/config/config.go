// Package config loads process configuration from environment variables.
//
// Every knob is optional and has a default; a missing required credential
// only surfaces when the component that needs it is exercised.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ServiceURLs holds per-service base URL overrides for the retrieval services.
type ServiceURLs struct {
	Knowledge string
	Products  string
	Graph     string
	Vision    string
	STT       string
	TTS       string
}

// Timeouts holds per-call deadlines for downstream retrieval calls.
type Timeouts struct {
	Default time.Duration
	Vision  time.Duration
	STT     time.Duration
	TTS     time.Duration
}

// CacheTTLs holds per-cache expiry, read at Set time.
type CacheTTLs struct {
	Evidence time.Duration
	Products time.Duration
	Graph    time.Duration
	Vision   time.Duration
}

// Models selects backend model names for the LLM-backed services.
type Models struct {
	Enrich string
	Vision string
	STT    string
	TTS    string
}

// QueueConfig holds queue naming and worker behavior.
type QueueConfig struct {
	InputQueue  string
	DLQ         string
	MaxRetries  int
	PollTimeout time.Duration
}

// Config is the root configuration passed into constructors.
type Config struct {
	Services  ServiceURLs
	Timeouts  Timeouts
	CacheTTLs CacheTTLs
	Models    Models
	Queue     QueueConfig

	OpenAIAPIKey  string
	RedisAddr     string
	MongoURI      string
	MongoDatabase string

	// SubtitleLangs is the yt-dlp language preference order.
	SubtitleLangs []string
	YTDLPCookies  string

	FeedbackPath   string
	TracingEnabled bool
	ListenAddr     string
}

// Load reads configuration from the environment. A .env file in the working
// directory is honored when present but never required.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		slog.Debug("Loaded .env file")
	}

	cfg := &Config{
		Services: ServiceURLs{
			Knowledge: getEnv("KNOWLEDGE_BASE_URL", "http://127.0.0.1:8010"),
			Products:  getEnv("PRODUCTS_BASE_URL", "http://127.0.0.1:8020"),
			Graph:     getEnv("GRAPH_BASE_URL", "http://127.0.0.1:8030"),
			Vision:    getEnv("VISION_BASE_URL", "http://127.0.0.1:8040"),
			STT:       getEnv("STT_BASE_URL", "http://127.0.0.1:8050"),
			TTS:       getEnv("TTS_BASE_URL", "http://127.0.0.1:8060"),
		},
		Timeouts: Timeouts{
			Default: getDuration("MCP_TIMEOUT", 3*time.Second),
			Vision:  getDuration("VISION_TIMEOUT", 12*time.Second),
			STT:     getDuration("STT_TIMEOUT", 15*time.Second),
			TTS:     getDuration("TTS_TIMEOUT", 15*time.Second),
		},
		CacheTTLs: CacheTTLs{
			Evidence: getDuration("EVIDENCE_CACHE_TTL", 5*time.Minute),
			Products: getDuration("PRODUCTS_CACHE_TTL", 5*time.Minute),
			Graph:    getDuration("GRAPH_CACHE_TTL", 5*time.Minute),
			Vision:   getDuration("VISION_CACHE_TTL", 10*time.Minute),
		},
		Models: Models{
			Enrich: getEnv("ENRICH_MODEL", "gpt-4.1-mini"),
			Vision: getEnv("VISION_MODEL", "gpt-4.1-mini"),
			STT:    getEnv("STT_MODEL", "gpt-4o-mini-transcribe"),
			TTS:    getEnv("TTS_MODEL", "gpt-4o-mini-tts"),
		},
		Queue: QueueConfig{
			InputQueue:  getEnv("INGESTION_QUEUE", "ingestion"),
			DLQ:         getEnv("INGESTION_DLQ", "ingestion-dlq"),
			MaxRetries:  getInt("INGESTION_MAX_RETRIES", 3),
			PollTimeout: getDuration("INGESTION_POLL_TIMEOUT", 5*time.Second),
		},
		OpenAIAPIKey:   strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		RedisAddr:      getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		MongoURI:       getEnv("MONGO_URI", "mongodb://127.0.0.1:27017"),
		MongoDatabase:  getEnv("MONGO_DATABASE", "travel"),
		SubtitleLangs:  getList("SUBTITLE_LANGS", []string{"pt", "pt-BR", "pt-PT", "en", "es"}),
		YTDLPCookies:   strings.TrimSpace(os.Getenv("YTDLP_COOKIES_FILE")),
		FeedbackPath:   getEnv("FEEDBACK_PATH", "data/feedback/events.jsonl"),
		TracingEnabled: getBool("TRACING_ENABLED", false),
		ListenAddr:     getEnv("LISTEN_ADDR", ":8000"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Queue.MaxRetries < 1 {
		return fmt.Errorf("INGESTION_MAX_RETRIES must be >= 1, got %d", c.Queue.MaxRetries)
	}
	if c.Queue.InputQueue == c.Queue.DLQ {
		return fmt.Errorf("INGESTION_QUEUE and INGESTION_DLQ must differ, both are %q", c.Queue.DLQ)
	}
	return nil
}

// ServiceTimeout returns the per-call deadline for a retrieval service name.
func (c *Config) ServiceTimeout(service string) time.Duration {
	switch service {
	case "vision":
		return c.Timeouts.Vision
	case "stt":
		return c.Timeouts.STT
	case "tts":
		return c.Timeouts.TTS
	default:
		return c.Timeouts.Default
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("Invalid integer in environment, using default", "key", key, "value", v)
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Accept bare seconds for compatibility with older deployments.
		if n, nerr := strconv.Atoi(v); nerr == nil {
			return time.Duration(n) * time.Second
		}
		slog.Warn("Invalid duration in environment, using default", "key", key, "value", v)
		return fallback
	}
	return d
}

func getList(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
