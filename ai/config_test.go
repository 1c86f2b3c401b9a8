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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "http://localhost:11434/v1", cfg.ChatHost)
	assert.Equal(t, "embeddinggemma", cfg.EmbeddingModel)
	assert.Equal(t, "qwen2.5:3b", cfg.ChatModel)
	assert.Equal(t, "none", cfg.APIKey)
	assert.InDelta(t, 0.25, cfg.Temperature, 1e-9)
	assert.Equal(t, 2*time.Minute, cfg.RequestTimeout)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("with custom host", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://custom:8080/v1"))

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://custom:8080/v1", cfg.ChatHost)
	})

	t.Run("with separate hosts", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed:8080/v1"),
			WithChatHost("http://chat:9090/v1"),
		)

		assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://chat:9090/v1", cfg.ChatHost)
	})

	t.Run("with multiple options", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingModel("text-embedding-3-small"),
			WithChatModel("gpt-4o-mini"),
			WithAPIKey("sk-test"),
			WithTemperature(0.7),
		)

		assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
		assert.Equal(t, "gpt-4o-mini", cfg.ChatModel)
		assert.Equal(t, "sk-test", cfg.APIKey)
		assert.InDelta(t, 0.7, cfg.Temperature, 1e-9)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name              string
		embeddingHost     string
		chatHost          string
		expectedEmbedding string
		expectedChat      string
	}{
		{
			name:              "already has /v1",
			embeddingHost:     "http://localhost:11434/v1",
			chatHost:          "http://localhost:11434/v1",
			expectedEmbedding: "http://localhost:11434/v1",
			expectedChat:      "http://localhost:11434/v1",
		},
		{
			name:              "missing /v1",
			embeddingHost:     "http://localhost:11434",
			chatHost:          "http://localhost:11434",
			expectedEmbedding: "http://localhost:11434/v1",
			expectedChat:      "http://localhost:11434/v1",
		},
		{
			name:              "has trailing slash",
			embeddingHost:     "http://localhost:11434/",
			chatHost:          "http://localhost:11434/",
			expectedEmbedding: "http://localhost:11434/v1",
			expectedChat:      "http://localhost:11434/v1",
		},
		{
			name:              "empty hosts",
			expectedEmbedding: "",
			expectedChat:      "",
		},
		{
			name:              "different formats",
			embeddingHost:     "http://embed:8080",
			chatHost:          "http://chat:9090/v1",
			expectedEmbedding: "http://embed:8080/v1",
			expectedChat:      "http://chat:9090/v1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				EmbeddingHost: tt.embeddingHost,
				ChatHost:      tt.chatHost,
			}

			cfg.Normalize()

			assert.Equal(t, tt.expectedEmbedding, cfg.EmbeddingHost)
			assert.Equal(t, tt.expectedChat, cfg.ChatHost)
			assert.Equal(t, "none", cfg.APIKey)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			EmbeddingHost:  "http://localhost:11434",
			ChatHost:       "http://localhost:11434",
			EmbeddingModel: "embeddinggemma",
			ChatModel:      "qwen2.5:3b",
			Temperature:    0.25,
		}
	}

	t.Run("valid config", func(t *testing.T) {
		cfg := valid()

		assert.NoError(t, cfg.Validate())

		// Should also normalize
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://localhost:11434/v1", cfg.ChatHost)
	})

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"missing embedding host", func(c *Config) { c.EmbeddingHost = "" }, "EmbeddingHost"},
		{"missing chat host", func(c *Config) { c.ChatHost = "" }, "ChatHost"},
		{"missing embedding model", func(c *Config) { c.EmbeddingModel = "" }, "EmbeddingModel"},
		{"missing chat model", func(c *Config) { c.ChatModel = "" }, "ChatModel"},
		{"negative temperature", func(c *Config) { c.Temperature = -0.1 }, "Temperature"},
		{"temperature too high", func(c *Config) { c.Temperature = 2.5 }, "Temperature"},
		{"negative request timeout", func(c *Config) { c.RequestTimeout = -time.Second }, "RequestTimeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
