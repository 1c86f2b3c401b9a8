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

// Package ai provides abstractions for the AI services used by concierge.
//
// Two capabilities are consumed by the answer pipeline and the index
// builder:
//
//   - LanguageModel: turns a rendered prompt into text
//   - Embedder: generates vector embeddings from text
//
// AIProvider aggregates both for convenient initialization.
//
// # Implementation Packages
//
//   - ai/openai: production implementation using OpenAI-compatible APIs
//   - ai/mock: test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder, ...) return
// interface types:
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//
// Mock constructors return concrete types so tests can inject behaviour and
// assert on calls:
//
//	lm := mock.NewMockLanguageModel()
//	lm.WithGenerateFunc(...)
//	count := lm.CallCount()
//
// # Usage Example
//
//	provider, err := openai.NewProvider(ai.NewConfig(ai.WithHost("http://localhost:11434")))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	text, err := provider.LanguageModel().Generate(ctx, ai.Prompt{Human: "Hello"})
//	vector, err := provider.Embedder().EmbedText(ctx, "tax credits")
package ai
