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

import (
	"context"
	"hash/fnv"
	"math"
	"sync"
)

// DefaultDimensions is the vector size produced by MockEmbedder.
const DefaultDimensions = 384

// MockEmbedder is a test double for ai.Embedder.
// It allows custom behavior injection via function fields.
type MockEmbedder struct {
	// EmbedTextFunc is called by EmbedText if set.
	// If nil, uses default deterministic behavior.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedTextsFunc is called by EmbedTexts if set.
	// If nil, uses default deterministic behavior.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the size of generated vectors. Zero means DefaultDimensions.
	Dimensions int

	mu        sync.Mutex
	callCount int
}

// NewMockEmbedder creates a mock embedder with default deterministic behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

// WithEmbedTextFunc sets EmbedTextFunc and returns the mock for chaining.
func (m *MockEmbedder) WithEmbedTextFunc(fn func(ctx context.Context, text string) ([]float32, error)) *MockEmbedder {
	m.EmbedTextFunc = fn
	return m
}

// WithEmbedTextsFunc sets EmbedTextsFunc and returns the mock for chaining.
func (m *MockEmbedder) WithEmbedTextsFunc(fn func(ctx context.Context, texts []string) ([][]float32, error)) *MockEmbedder {
	m.EmbedTextsFunc = fn
	return m
}

// EmbedText generates a deterministic embedding based on text hash.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.record()

	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}

	return GenerateDeterministicVector(text, m.dims()), nil
}

// EmbedTexts generates deterministic embeddings for multiple texts.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.record()

	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = GenerateDeterministicVector(text, m.dims())
	}
	return embeddings, nil
}

// CallCount returns the number of times any method was called.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockEmbedder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
}

func (m *MockEmbedder) record() {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()
}

func (m *MockEmbedder) dims() int {
	if m.Dimensions > 0 {
		return m.Dimensions
	}
	return DefaultDimensions
}

// GenerateDeterministicVector creates a unit-length embedding vector from text.
// It uses FNV hash so the same text always produces the same vector.
func GenerateDeterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000) / 1000.0
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		norm := float32(1.0 / math.Sqrt(sumSquares))
		for i := range vector {
			vector[i] *= norm
		}
	}

	return vector
}
