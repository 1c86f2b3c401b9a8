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

package openai

import (
	"log/slog"
	"net/http"

	"github.com/poiesic/concierge/ai"
)

// Provider bundles the embedder and chat model behind one HTTP client so
// both services share connection pooling and the request timeout.
type Provider struct {
	client   *http.Client
	embedder *Embedder
	chat     *ChatModel
	logger   *slog.Logger
}

// NewProvider validates config and builds both services.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client := newHTTPClient(config)

	embedder, err := newEmbedder(config, client)
	if err != nil {
		return nil, err
	}
	chat, err := newChatModel(config, client)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		client:   client,
		embedder: embedder,
		chat:     chat,
		logger:   slog.Default().With("component", "openai-provider"),
	}
	p.logger.Debug("provider ready",
		"embedding_host", config.EmbeddingHost,
		"embedding_model", config.EmbeddingModel,
		"chat_host", config.ChatHost,
		"chat_model", config.ChatModel)
	return p, nil
}

func newHTTPClient(config *ai.Config) *http.Client {
	return &http.Client{Timeout: config.RequestTimeout}
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// LanguageModel returns the chat completion service.
func (p *Provider) LanguageModel() ai.LanguageModel {
	return p.chat
}

// Close drops idle keep-alive connections.
func (p *Provider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
