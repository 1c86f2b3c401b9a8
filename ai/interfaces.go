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

import "context"

// Embedder generates vector embeddings from text.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Prompt is a fully rendered request for a language model.
type Prompt struct {
	// System is the optional system instruction.
	System string

	// Human is the user turn.
	Human string

	// JSONMode asks the model for a JSON object response when the backend
	// supports it.
	JSONMode bool
}

// LanguageModel turns a rendered prompt into text.
// Implementations must be thread-safe for concurrent use.
type LanguageModel interface {
	// Generate performs exactly one completion call and returns the model's
	// text. Implementations do not retry.
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and LanguageModel instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// LanguageModel returns the chat completion service.
	// The returned LanguageModel is safe for concurrent use.
	LanguageModel() LanguageModel

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
