// Package config loads configuration from environment variables and .env files.
package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the bridge service
type Config struct {
	// Server
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
	MCPPort     int    `env:"MCP_PORT" envDefault:"8090"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Qdrant
	QdrantGRPCURL string `env:"QDRANT_GRPC_URL" envDefault:"localhost:6334"`

	// Embedding providers
	OllamaURL     string `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`

	// Collection bindings
	BindingsFile string `env:"QBRIDGE_BINDINGS_FILE" envDefault:"bindings.json"`

	// Default binding for collections without an explicit entry
	DefaultEmbeddingProvider string `env:"DEFAULT_EMBEDDING_PROVIDER" envDefault:"ollama"`
	DefaultEmbeddingModel    string `env:"DEFAULT_EMBEDDING_MODEL" envDefault:"nomic-embed-text"`
	DefaultVectorField       string `env:"DEFAULT_VECTOR_FIELD" envDefault:"ollama-nomic-embed-text"`
	DefaultVectorDimension   int    `env:"DEFAULT_VECTOR_DIMENSION" envDefault:"768"`

	// Search
	SearchLimit int `env:"SEARCH_LIMIT" envDefault:"10"`

	// Monitoring
	CollectorTimeout        time.Duration `env:"COLLECTOR_TIMEOUT" envDefault:"5s"`
	MonitorContainerPattern string        `env:"MONITOR_CONTAINER_PATTERN" envDefault:"qdrant"`
	MonitorDiskPath         string        `env:"MONITOR_DISK_PATH" envDefault:"/"`
	HostMemoryWarnPct       float64       `env:"HOST_MEMORY_WARN_PCT" envDefault:"80"`
	ContainerMemoryWarnPct  float64       `env:"CONTAINER_MEMORY_WARN_PCT" envDefault:"90"`
	DiskCriticalPct         float64       `env:"DISK_CRITICAL_PCT" envDefault:"90"`
	IndexedRatioWarn        float64       `env:"INDEXED_RATIO_WARN" envDefault:"0.9"`
}

// Load loads configuration from .env file (if present) and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
