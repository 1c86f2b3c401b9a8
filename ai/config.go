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

package ai

import (
	"errors"
	"strings"
	"time"
)

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// ChatHost is the base URL for the chat completion service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	ChatHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// ChatModel is the model identifier used by every prompt stage.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	ChatModel string

	// APIKey is sent as the bearer token. Local servers accept any value.
	// Default: "none"
	APIKey string

	// Temperature is the sampling temperature for chat completions.
	// Default: 0.25
	Temperature float64

	// RequestTimeout bounds each HTTP round trip to either service.
	// Zero disables the client-side limit.
	// Default: 2m
	RequestTimeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithChatHost sets the chat service host URL.
func WithChatHost(host string) ConfigOption {
	return func(c *Config) {
		c.ChatHost = host
	}
}

// WithHost sets both embedding and chat hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.ChatHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithChatModel sets the chat model identifier.
func WithChatModel(model string) ConfigOption {
	return func(c *Config) {
		c.ChatModel = model
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithRequestTimeout sets the per-request HTTP timeout.
func WithRequestTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.RequestTimeout = d
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = temperature
	}
}

// DefaultConfig returns a Config with sensible defaults for local OpenAI-compatible services.
// By default, both embedding and chat use the same host.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		EmbeddingHost:  defaultHost,
		ChatHost:       defaultHost,
		EmbeddingModel: "embeddinggemma",
		ChatModel:      "qwen2.5:3b",
		APIKey:         "none",
		Temperature:    0.25,
		RequestTimeout: 2 * time.Minute,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://localhost:11434/v1"),
//	    WithChatModel("llama3.1:8b"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It adds the /v1 suffix to hosts if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	c.EmbeddingHost = normalizeHost(c.EmbeddingHost)
	c.ChatHost = normalizeHost(c.ChatHost)
	if c.APIKey == "" {
		c.APIKey = "none"
	}
}

func normalizeHost(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.ChatHost == "" {
		return errors.New("ai config: ChatHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.ChatModel == "" {
		return errors.New("ai config: ChatModel is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("ai config: Temperature must be between 0 and 2")
	}
	if c.RequestTimeout < 0 {
		return errors.New("ai config: RequestTimeout cannot be negative")
	}
	return nil
}
