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

package storage

import (
	"context"
	"time"

	"github.com/poiesic/concierge/core"
)

// ConversationRepository stores the message log of each chat session.
// Implementations must be thread-safe and support concurrent access.
type ConversationRepository interface {
	// AppendMessage appends msg to the conversation for sessionID, creating
	// the conversation if it does not exist yet. Creation and append happen
	// atomically: concurrent first appends yield exactly one conversation.
	// Sets UpdatedAt and, on creation, CreatedAt.
	// Returns the conversation header after the append.
	AppendMessage(ctx context.Context, sessionID string, msg *core.Message) (*core.ConversationSummary, error)

	// GetConversation retrieves a conversation with all of its messages in
	// append order. Returns ErrNotFound if the session has no conversation.
	GetConversation(ctx context.Context, sessionID string) (*core.Conversation, error)

	// GetRecentConversations returns up to limit conversation headers,
	// most recently updated first.
	GetRecentConversations(ctx context.Context, limit int) ([]*core.ConversationSummary, error)

	// Close releases repository resources. It does not close the backend.
	Close() error
}

// FeedbackRepository stores user ratings of answers.
type FeedbackRepository interface {
	// RecordFeedback validates and persists a feedback record.
	// Assigns an ID when empty and a Timestamp when zero.
	// Returns an error wrapping core.ErrInvalidInput without writing
	// anything if validation fails.
	RecordFeedback(ctx context.Context, record *core.FeedbackRecord) (*core.FeedbackRecord, error)

	// GetFeedback retrieves a feedback record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	GetFeedback(ctx context.Context, id string) (*core.FeedbackRecord, error)

	// GetFeedbackByDateRange retrieves feedback where start <= Timestamp < end,
	// ordered by timestamp.
	GetFeedbackByDateRange(ctx context.Context, start, end time.Time) ([]*core.FeedbackRecord, error)
}

// ChunkRepository stores the passages and vectors of a document index.
type ChunkRepository interface {
	// AddChunks stores chunks keyed by their content ID. Chunks whose ID is
	// zero get core.IDFromContent of their URL and text, so re-adding the same
	// passage overwrites it.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) error

	// FindSimilar returns up to limit chunks ordered by descending dot
	// product with vector. No score threshold is applied.
	FindSimilar(ctx context.Context, vector []float32, limit int) ([]*core.RetrievedChunk, error)

	// CountChunks returns the number of stored chunks.
	CountChunks(ctx context.Context) (int, error)

	// SaveManifest persists the index manifest.
	SaveManifest(ctx context.Context, manifest *core.IndexManifest) error

	// LoadManifest retrieves the index manifest.
	// Returns ErrNotFound if no manifest has been saved.
	LoadManifest(ctx context.Context) (*core.IndexManifest, error)
}
