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

	"github.com/poiesic/concierge/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder over an OpenAI-compatible /embeddings endpoint.
type Embedder struct {
	embedder embeddings.Embedder
	model    string
	logger   *slog.Logger
}

// newEmbedder builds an embedder that sends requests through doer.
// config must already be validated.
func newEmbedder(config *ai.Config, doer *http.Client) (*Embedder, error) {
	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.APIKey),
		openai.WithEmbeddingModel(config.EmbeddingModel),
		openai.WithHTTPClient(doer),
	)
	if err != nil {
		return nil, err
	}

	// Passages keep their line breaks in the index; the model sees them flattened.
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder: embedder,
		model:    config.EmbeddingModel,
		logger:   slog.Default().With("component", "openai-embedder", "model", config.EmbeddingModel),
	}, nil
}

// NewEmbedder creates a standalone embedder, as used by the index build job.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return newEmbedder(config, newHTTPClient(config))
}

// EmbedText embeds a search query.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Error("query embedding failed", "err", err)
		return nil, fmt.Errorf("embed query with %s: %w", e.model, err)
	}
	if len(vector) == 0 {
		return nil, ai.ErrEmptyEmbedding
	}
	return vector, nil
}

// EmbedTexts embeds passages. Every returned vector has the same length.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("embedding passages", "count", len(texts))

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("passage embedding failed", "count", len(texts), "err", err)
		return nil, fmt.Errorf("embed %d passages with %s: %w", len(texts), e.model, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ai.ErrEmptyEmbedding, len(vectors), len(texts))
	}

	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: passage %d", ai.ErrEmptyEmbedding, i)
		}
		if len(v) != len(vectors[0]) {
			return nil, fmt.Errorf("%w: passage %d has %d dimensions, passage 0 has %d",
				ai.ErrInconsistentEmbedding, i, len(v), len(vectors[0]))
		}
	}
	return vectors, nil
}
