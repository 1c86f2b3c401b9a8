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
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/poiesic/concierge/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ChatModel implements ai.LanguageModel using OpenAI-compatible chat APIs.
type ChatModel struct {
	client      llms.Model
	temperature float64
	logger      *slog.Logger
}

// newChatModel builds a chat model that sends requests through doer.
// config must already be validated.
func newChatModel(config *ai.Config, doer *http.Client) (*ChatModel, error) {
	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.ChatModel),
		openai.WithHTTPClient(doer),
	)
	if err != nil {
		return nil, err
	}

	return &ChatModel{
		client:      client,
		temperature: config.Temperature,
		logger:      slog.Default().With("component", "openai-chat"),
	}, nil
}

// NewChatModel creates a new chat model using the provided configuration.
//
// Returns ai.LanguageModel interface to enforce abstraction.
func NewChatModel(config *ai.Config) (ai.LanguageModel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return newChatModel(config, newHTTPClient(config))
}

// Generate sends one chat completion request. It never retries; callers
// decide how to degrade on failure.
func (m *ChatModel) Generate(ctx context.Context, prompt ai.Prompt) (string, error) {
	content := make([]llms.MessageContent, 0, 2)
	if prompt.System != "" {
		content = append(content, llms.MessageContent{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(prompt.System),
			},
		})
	}
	content = append(content, llms.MessageContent{
		Role: llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{
			llms.TextPart(prompt.Human),
		},
	})

	opts := []llms.CallOption{llms.WithTemperature(m.temperature)}
	if prompt.JSONMode {
		opts = append(opts, llms.WithJSONMode())
	}

	m.logger.Debug("generating completion", "prompt_length", len(prompt.System)+len(prompt.Human), "json", prompt.JSONMode)

	response, err := m.client.GenerateContent(ctx, content, opts...)
	if err != nil {
		m.logger.Error("failed to generate content", "err", err)
		return "", err
	}

	if len(response.Choices) < 1 {
		m.logger.Debug("no choices returned from model")
		return "", fmt.Errorf("%w: empty choices", ai.ErrEmptyCompletion)
	}

	return strings.TrimSpace(response.Choices[0].Content), nil
}
