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

package concierge

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/concierge/ai"
	"github.com/poiesic/concierge/ai/mock"
	"github.com/poiesic/concierge/answer"
	"github.com/poiesic/concierge/core"
	"github.com/poiesic/concierge/index"
	"github.com/poiesic/concierge/server"
	"github.com/poiesic/concierge/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ server.Service = (*Assistant)(nil)

const taxPassage = "Occams Advisory helps companies claim R&D tax credits."

func newTestProvider() *mock.MockProvider {
	embedder := mock.NewMockEmbedder()
	embedder.Dimensions = 16
	model := mock.NewMockLanguageModel().
		WithReply("Classification:", "occams_query").
		WithReply("Refined query:", taxPassage).
		WithReply("Detailed Answer:", "- We help you claim R&D tax credits.").
		WithReply("JSON Output:", `{"suggestions": ["Who qualifies?", "What does it cost?"]}`)
	return mock.NewMockProviderWithServices(embedder, model).(*mock.MockProvider)
}

func buildIndex(t *testing.T, embedder ai.Embedder) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index")
	builder, err := index.NewBuilder(embedder)
	require.NoError(t, err)
	defer builder.Release()

	_, err = builder.Build(context.Background(), path, []index.Document{
		{Title: "Tax Credits", URL: "https://occams.example/tax", Text: taxPassage},
		{Title: "Careers", URL: "https://occams.example/careers", Text: "We are hiring analysts."},
	})
	require.NoError(t, err)
	return path
}

func newTestAssistant(t *testing.T, opts ...AssistantOption) (*Assistant, *mock.MockProvider) {
	t.Helper()
	provider := newTestProvider()
	indexPath := buildIndex(t, provider.GetMockEmbedder())

	opts = append([]AssistantOption{
		WithInMemory(true),
		WithProvider(provider),
		WithIndexPath(indexPath),
	}, opts...)
	a, err := NewAssistant("", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a, provider
}

func TestNewAssistant(t *testing.T) {
	t.Run("on disk", func(t *testing.T) {
		provider := newTestProvider()
		a, err := NewAssistant(filepath.Join(t.TempDir(), "db"), WithProvider(provider))
		require.NoError(t, err)
		assert.NotNil(t, a.ConversationRepository())
		assert.NotNil(t, a.FeedbackRepository())
		require.NoError(t, a.Close())
		assert.True(t, provider.Closed())
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		a, err := NewAssistant(tmpFile, WithProvider(newTestProvider()))
		assert.Error(t, err)
		assert.Nil(t, a)
	})

	t.Run("invalid top k", func(t *testing.T) {
		a, err := NewAssistant("", WithInMemory(true), WithProvider(newTestProvider()), WithTopK(-1))
		assert.ErrorIs(t, err, answer.ErrInvalidTopK)
		assert.Nil(t, a)
	})
}

func TestChat_EndToEnd(t *testing.T) {
	a, provider := newTestAssistant(t)
	ctx := context.Background()

	result, err := a.Chat(ctx, "Can you help with tax credits?", "session-1")
	require.NoError(t, err)
	assert.Equal(t, "- We help you claim R&D tax credits.", result.Answer)
	require.NotEmpty(t, result.Sources)
	assert.Equal(t, core.Source{Title: "Tax Credits", URL: "https://occams.example/tax"}, result.Sources[0])
	assert.Equal(t, []string{"Who qualifies?", "What does it cost?"}, result.Suggestions)

	// The best passage reached the synthesizer
	synth := provider.GetMockLanguageModel().Prompts()[2]
	assert.Contains(t, synth.Human, taxPassage)

	conv, err := a.Conversation(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, "Can you help with tax credits?", conv.Messages[0].HumanText)
	assert.Equal(t, result.Answer, conv.Messages[0].AIText)

	recent, err := a.RecentConversations(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "session-1", recent[0].SessionID)
}

func TestChat_ValidationHasNoSideEffects(t *testing.T) {
	a, provider := newTestAssistant(t)
	ctx := context.Background()

	_, err := a.Chat(ctx, "", "session")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	assert.ErrorIs(t, err, core.ErrEmptyMessage)

	_, err = a.Chat(ctx, "hello", "  ")
	assert.ErrorIs(t, err, core.ErrEmptySessionID)

	assert.Zero(t, provider.GetMockLanguageModel().CallCount())
	recent, err := a.RecentConversations(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestChat_MissingIndexApologizes(t *testing.T) {
	provider := newTestProvider()
	a, err := NewAssistant("",
		WithInMemory(true),
		WithProvider(provider),
		WithIndexPath(filepath.Join(t.TempDir(), "absent")))
	require.NoError(t, err)
	defer a.Close()

	result, err := a.Chat(context.Background(), "tax credits?", "s")
	require.NoError(t, err)
	assert.Equal(t, answer.ApologyAnswer, result.Answer)
	assert.Empty(t, result.Sources)
}

func TestChat_CachedIndex(t *testing.T) {
	a, _ := newTestAssistant(t, WithIndexCache(true), WithStageTimeout(5*time.Second))

	for i := 0; i < 3; i++ {
		result, err := a.Chat(context.Background(), "tax credits?", "cached")
		require.NoError(t, err)
		assert.NotEqual(t, answer.ApologyAnswer, result.Answer)
	}

	conv, err := a.Conversation(context.Background(), "cached")
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 3)
}

func TestRecordFeedback(t *testing.T) {
	a, _ := newTestAssistant(t)
	ctx := context.Background()

	_, err := a.RecordFeedback(ctx, "q", "a", "neutral")
	assert.ErrorIs(t, err, core.ErrInvalidRating)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = a.RecordFeedback(ctx, "", "a", "positive")
	assert.ErrorIs(t, err, core.ErrEmptyQuery)

	record, err := a.RecordFeedback(ctx, "What do you do?", "We advise.", "positive")
	require.NoError(t, err)

	stored, err := a.FeedbackRepository().GetFeedback(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, core.RatingPositive, stored.Rating)

	all, err := a.FeedbackRepository().GetFeedbackByDateRange(ctx, time.Unix(0, 0), time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestConversation_Errors(t *testing.T) {
	a, _ := newTestAssistant(t)

	_, err := a.Conversation(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = a.Conversation(context.Background(), "never-seen")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
