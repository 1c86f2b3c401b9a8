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

// Package openai implements the ai interfaces against OpenAI-compatible
// endpoints (OpenAI itself, Ollama, vLLM, LocalAI) through langchaingo.
//
// A Provider shares one *http.Client between the embedder and the chat model,
// so ai.Config.RequestTimeout bounds every round trip. The chat model never
// retries; the answer pipeline degrades instead. Standalone constructors
// exist for callers that need only one service, such as the index build job:
//
//	embedder, err := openai.NewEmbedder(ai.NewConfig(
//	    ai.WithEmbeddingHost("http://localhost:11434"), // /v1 added automatically
//	    ai.WithEmbeddingModel("nomic-embed-text"),
//	))
package openai
