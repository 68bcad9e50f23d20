package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port             int              `json:"port"`
	LockFile         string           `json:"lock_file"`
	CORSOrigins      []string         `json:"cors_origins"`
	RateLimitSeconds int              `json:"rate_limit_seconds"`
	LogConfig        logger.LogConfig `json:"log_config"`
	Database         DatabaseConfig   `json:"database"`
	AI               AIConfig         `json:"ai"`
	Retrieval        RetrievalConfig  `json:"retrieval"`
	Tools            ToolsConfig      `json:"tools"`
	Voice            VoiceConfig      `json:"voice"`
	FileStore        FileStoreConfig  `json:"file_store"`
	Jobs             JobsConfig       `json:"jobs"`
}

type DatabaseConfig struct {
	DSN       string `json:"dsn"`
	Table     string `json:"table"`
	VectorDim int    `json:"vector_dim"`
	EfSearch  int    `json:"ef_search"`
}

// ProviderConfig selects a registered ai provider; Data is handed to
// its factory untouched.
type ProviderConfig struct {
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Data     interface{} `json:"data"`
}

type AIConfig struct {
	Chat     ProviderConfig `json:"chat"`
	Embed    ProviderConfig `json:"embed"`
	Rerank   ProviderConfig `json:"rerank"`
	Analysis ProviderConfig `json:"analysis"`
}

type RetrievalConfig struct {
	SearchK        int `json:"search_k"`
	RerankTopK     int `json:"rerank_top_k"`
	EmbedBatchSize int `json:"embed_batch_size"`
	ChunkWordLimit int `json:"chunk_word_limit"`
}

type ToolsConfig struct {
	Search  interface{} `json:"search"`
	Weather interface{} `json:"weather"`
}

type VoiceConfig struct {
	Enabled bool        `json:"enabled"`
	Data    interface{} `json:"data"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type JobsConfig struct {
	IndexHealthSpec string `json:"index_health_spec"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	if cfg.LockFile == "" {
		cfg.LockFile = "/tmp/docchat.leader.lock"
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	applyProviderDefaults(&cfg.AI)
	return &cfg, nil
}

func applyProviderDefaults(ai *AIConfig) {
	if ai.Chat.Provider == "" {
		ai.Chat.Provider = "deepseek"
	}
	if ai.Chat.Model == "" {
		ai.Chat.Model = "deepseek-chat"
	}
	if ai.Embed.Provider == "" {
		ai.Embed.Provider = "voyage"
	}
	if ai.Embed.Model == "" {
		ai.Embed.Model = "voyage-3-large"
	}
	if ai.Rerank.Provider == "" {
		ai.Rerank.Provider = "voyage"
	}
	if ai.Rerank.Model == "" {
		ai.Rerank.Model = "rerank-2"
	}
	if ai.Analysis.Provider == "" {
		ai.Analysis.Provider = "gemini"
	}
	if ai.Analysis.Model == "" {
		ai.Analysis.Model = "gemini-2.0-flash"
	}
}
