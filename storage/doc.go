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

// Package storage provides the storage abstraction layer for concierge.
//
// This package defines repository interfaces that decouple persistence from
// the answer pipeline. Three stores exist:
//
//   - ConversationRepository: per-session message logs
//   - FeedbackRepository: user ratings of answers
//   - ChunkRepository: the document index artifact (passages and vectors)
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return these interfaces:
//
//	repo, err := badger.NewConversationRepository(backend)  // storage.ConversationRepository
//
// Internal helpers inside a backend package may return concrete types.
//
// # Atomic Appends
//
// ConversationRepository.AppendMessage creates the conversation on first use
// and appends to it in a single transaction. Concurrent first appends for one
// session id must produce exactly one conversation holding every message.
// Implementations must not split this into a lookup followed by a write.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation.
// Pass context.Background() for operations without specific timeout requirements.
package storage
