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

package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for persisted entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// Identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Intent is the router's classification of a user message.
type Intent int

const (
	// IntentUnroutable means the router output matched neither label.
	IntentUnroutable Intent = iota
	// IntentConversational covers greetings and small talk.
	IntentConversational
	// IntentQuery covers questions about the company.
	IntentQuery
)

func (i Intent) String() string {
	switch i {
	case IntentConversational:
		return "conversational"
	case IntentQuery:
		return "query"
	default:
		return "unroutable"
	}
}

// Source is citation metadata attached to an answer.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Message is one question/answer exchange inside a conversation.
// Messages are never modified after they are appended.
type Message struct {
	HumanText   string    `json:"human"`
	AIText      string    `json:"ai"`
	Sources     []Source  `json:"sources"`
	Suggestions []string  `json:"suggestions"`
	Timestamp   time.Time `json:"timestamp"`
}

// Conversation is the ordered message log for a single session.
type Conversation struct {
	SessionID string     `json:"sessionId"`
	Messages  []*Message `json:"messages"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// ConversationSummary is a conversation header without its messages.
type ConversationSummary struct {
	SessionID    string    `json:"sessionId"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Rating is a user's verdict on an answer.
type Rating string

const (
	RatingPositive Rating = "positive"
	RatingNegative Rating = "negative"
)

// FeedbackRecord captures a rating for a question/answer pair.
// It is independent of any conversation.
type FeedbackRecord struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	Rating    Rating    `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

// RetrievedChunk is a passage returned by the vector index for one query.
type RetrievedChunk struct {
	Text  string
	Title string
	URL   string
	Score float32
}

// Chunk is a stored passage of the document index.
type Chunk struct {
	Id     ID
	Text   string
	Title  string
	URL    string
	Vector []float32
}

// IndexManifest describes a built index artifact.
type IndexManifest struct {
	EmbeddingModel string
	Dimensions     int
	ChunkCount     int
	DocumentCount  int
	BuiltAt        time.Time
}

// AnswerResult is what the pipeline hands back to callers.
type AnswerResult struct {
	Answer      string   `json:"answer"`
	Sources     []Source `json:"sources"`
	Suggestions []string `json:"suggestions"`
}
