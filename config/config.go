// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the application configuration file.
//
// The file is YAML. A missing file is not an error: defaults are returned,
// and any field left out of the file keeps its default.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/poiesic/concierge/ai"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for a config file.
const DefaultPath = "concierge.yaml"

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string          `yaml:"addr"`
	RequestTimeout  time.Duration   `yaml:"request_timeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig is a per-client token bucket. Zero RPS disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// StorageConfig locates the conversation and feedback database.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// IndexConfig locates the document index and tunes its build.
type IndexConfig struct {
	Path         string `yaml:"path"`
	Cache        bool   `yaml:"cache"`
	Sources      string `yaml:"sources"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	BatchSize    int    `yaml:"batch_size"`
	PoolSize     int    `yaml:"pool_size"`
}

// AIConfig selects the OpenAI-compatible services.
type AIConfig struct {
	EmbeddingHost  string  `yaml:"embedding_host"`
	ChatHost       string  `yaml:"chat_host"`
	EmbeddingModel string  `yaml:"embedding_model"`
	ChatModel      string  `yaml:"chat_model"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	Temperature    float64 `yaml:"temperature"`

	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// AssistantConfig tunes the answering pipeline.
type AssistantConfig struct {
	Company      string        `yaml:"company"`
	TopK         int           `yaml:"top_k"`
	StageTimeout time.Duration `yaml:"stage_timeout"`
}

// AppConfig is the root configuration.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Index     IndexConfig     `yaml:"index"`
	AI        AIConfig        `yaml:"ai"`
	Assistant AssistantConfig `yaml:"assistant"`
}

// Load reads a config from path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Save writes the config to path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	aiDefaults := ai.DefaultConfig()
	return &AppConfig{
		Server: ServerConfig{
			Addr:            ":8080",
			RequestTimeout:  60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       RateLimitConfig{RPS: 2, Burst: 5},
		},
		Storage: StorageConfig{Path: "data/concierge"},
		Index: IndexConfig{
			Path:         "data/index",
			Sources:      "sources.yaml",
			ChunkSize:    1500,
			ChunkOverlap: 200,
			BatchSize:    32,
		},
		AI: AIConfig{
			EmbeddingHost:  aiDefaults.EmbeddingHost,
			ChatHost:       aiDefaults.ChatHost,
			EmbeddingModel: aiDefaults.EmbeddingModel,
			ChatModel:      aiDefaults.ChatModel,
			APIKeyEnv:      "OPENAI_API_KEY",
			Temperature:    aiDefaults.Temperature,
			RequestTimeout: aiDefaults.RequestTimeout,
		},
		Assistant: AssistantConfig{
			Company: "Occams Advisory",
			TopK:    5,
		},
	}
}

// applyDefaults restores defaults for fields a file zeroed out explicitly.
func applyDefaults(cfg *AppConfig) {
	def := Default()
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = def.Server.RequestTimeout
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = def.Storage.Path
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = def.Index.Path
	}
	if cfg.Index.ChunkSize <= 0 {
		cfg.Index.ChunkSize = def.Index.ChunkSize
	}
	if cfg.Index.ChunkOverlap < 0 || cfg.Index.ChunkOverlap >= cfg.Index.ChunkSize {
		cfg.Index.ChunkOverlap = min(def.Index.ChunkOverlap, cfg.Index.ChunkSize/2)
	}
	if cfg.Index.BatchSize <= 0 {
		cfg.Index.BatchSize = def.Index.BatchSize
	}
	if cfg.Assistant.Company == "" {
		cfg.Assistant.Company = def.Assistant.Company
	}
	if cfg.Assistant.TopK <= 0 {
		cfg.Assistant.TopK = def.Assistant.TopK
	}
}

// APIKey returns the key named by APIKeyEnv, or "" if unset.
func (c AIConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// Options converts the section into ai.Config options.
func (c AIConfig) Options() []ai.ConfigOption {
	opts := []ai.ConfigOption{ai.WithTemperature(c.Temperature)}
	if key := c.APIKey(); key != "" {
		opts = append(opts, ai.WithAPIKey(key))
	}
	if c.EmbeddingHost != "" {
		opts = append(opts, ai.WithEmbeddingHost(c.EmbeddingHost))
	}
	if c.ChatHost != "" {
		opts = append(opts, ai.WithChatHost(c.ChatHost))
	}
	if c.EmbeddingModel != "" {
		opts = append(opts, ai.WithEmbeddingModel(c.EmbeddingModel))
	}
	if c.ChatModel != "" {
		opts = append(opts, ai.WithChatModel(c.ChatModel))
	}
	if c.RequestTimeout > 0 {
		opts = append(opts, ai.WithRequestTimeout(c.RequestTimeout))
	}
	return opts
}
