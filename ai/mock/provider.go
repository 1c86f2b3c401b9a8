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

package mock

import "github.com/poiesic/concierge/ai"

// MockProvider is a test double for ai.AIProvider.
// It aggregates mock embedder and language model instances.
type MockProvider struct {
	embedder *MockEmbedder
	model    *MockLanguageModel
	closed   bool
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns ai.AIProvider interface for consistency with production constructors.
// Use GetMockEmbedder()/GetMockLanguageModel() to access concrete types for test assertions.
func NewMockProvider() ai.AIProvider {
	return &MockProvider{
		embedder: NewMockEmbedder(),
		model:    NewMockLanguageModel(),
	}
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
// This allows full control over the behavior of each service.
func NewMockProviderWithServices(embedder *MockEmbedder, model *MockLanguageModel) ai.AIProvider {
	return &MockProvider{
		embedder: embedder,
		model:    model,
	}
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// LanguageModel returns the mock language model.
func (p *MockProvider) LanguageModel() ai.LanguageModel {
	return p.model
}

// Close marks the provider closed.
func (p *MockProvider) Close() error {
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *MockProvider) Closed() bool {
	return p.closed
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockLanguageModel returns the underlying mock language model for test assertions.
func (p *MockProvider) GetMockLanguageModel() *MockLanguageModel {
	return p.model
}
