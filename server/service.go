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

package server

import (
	"context"

	"github.com/poiesic/concierge/core"
)

// Service is the assistant behavior the HTTP layer depends on.
type Service interface {
	// Chat validates the request and answers it. Only validation fails;
	// upstream errors are folded into the answer text.
	Chat(ctx context.Context, message, sessionID string) (*core.AnswerResult, error)

	// RecordFeedback stores a rating for an answer.
	RecordFeedback(ctx context.Context, query, answer, rating string) (*core.FeedbackRecord, error)

	// Conversation returns the full history of a session.
	Conversation(ctx context.Context, sessionID string) (*core.Conversation, error)

	// RecentConversations lists sessions, most recently updated first.
	RecentConversations(ctx context.Context, limit int) ([]*core.ConversationSummary, error)
}
