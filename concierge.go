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

// Package concierge wires storage, AI services, the document index and the
// answering pipeline into a single Assistant.
//
// Everything is built once in NewAssistant and shared by all requests:
//
//	a, err := concierge.NewAssistant("data/concierge",
//	    concierge.WithAIConfig(ai.NewConfig(ai.WithHost("http://localhost:11434"))),
//	    concierge.WithIndexPath("data/index"),
//	)
//	if err != nil { ... }
//	defer a.Close()
//	result, err := a.Chat(ctx, "What services do you offer?", sessionID)
package concierge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/concierge/ai"
	"github.com/poiesic/concierge/ai/openai"
	"github.com/poiesic/concierge/answer"
	"github.com/poiesic/concierge/core"
	"github.com/poiesic/concierge/index"
	"github.com/poiesic/concierge/prompt"
	"github.com/poiesic/concierge/storage"
	"github.com/poiesic/concierge/storage/badger"
)

// DefaultIndexPath is where the document index is read from unless
// WithIndexPath says otherwise.
const DefaultIndexPath = "data/index"

// Assistant answers questions about the company and keeps conversation
// history and feedback.
type Assistant struct {
	backend       *badger.Backend
	conversations storage.ConversationRepository
	feedback      storage.FeedbackRepository
	provider      ai.AIProvider
	index         *index.Index
	orchestrator  *answer.Orchestrator
	logger        *slog.Logger
}

// AssistantOption configures an Assistant.
type AssistantOption func(*assistantOptions)

type assistantOptions struct {
	aiConfig     *ai.Config
	provider     ai.AIProvider
	retriever    answer.Retriever
	inMemory     bool
	indexPath    string
	indexCache   bool
	company      string
	topK         int
	stageTimeout time.Duration
	logger       *slog.Logger
}

// WithAIConfig sets the OpenAI-compatible service configuration.
func WithAIConfig(cfg *ai.Config) AssistantOption {
	return func(o *assistantOptions) {
		o.aiConfig = cfg
	}
}

// WithProvider uses provider instead of building one from the AI config.
// The Assistant takes ownership and closes it.
func WithProvider(provider ai.AIProvider) AssistantOption {
	return func(o *assistantOptions) {
		o.provider = provider
	}
}

// WithRetriever replaces the document index as the passage source.
func WithRetriever(retriever answer.Retriever) AssistantOption {
	return func(o *assistantOptions) {
		o.retriever = retriever
	}
}

// WithInMemory keeps conversations and feedback in memory only.
func WithInMemory(inMemory bool) AssistantOption {
	return func(o *assistantOptions) {
		o.inMemory = inMemory
	}
}

// WithIndexPath sets the document index location.
func WithIndexPath(path string) AssistantOption {
	return func(o *assistantOptions) {
		o.indexPath = path
	}
}

// WithIndexCache keeps the index open between queries.
func WithIndexCache(enabled bool) AssistantOption {
	return func(o *assistantOptions) {
		o.indexCache = enabled
	}
}

// WithCompanyName sets the company the assistant speaks for.
func WithCompanyName(name string) AssistantOption {
	return func(o *assistantOptions) {
		o.company = name
	}
}

// WithTopK sets how many passages ground each answer.
func WithTopK(k int) AssistantOption {
	return func(o *assistantOptions) {
		o.topK = k
	}
}

// WithStageTimeout bounds each model and retrieval call.
func WithStageTimeout(d time.Duration) AssistantOption {
	return func(o *assistantOptions) {
		o.stageTimeout = d
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) AssistantOption {
	return func(o *assistantOptions) {
		o.logger = logger
	}
}

// NewAssistant opens the database at dbPath and builds every component.
func NewAssistant(dbPath string, opts ...AssistantOption) (*Assistant, error) {
	options := &assistantOptions{
		aiConfig:  ai.DefaultConfig(),
		indexPath: DefaultIndexPath,
		company:   prompt.DefaultCompany,
		topK:      answer.DefaultTopK,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	backend, err := badger.OpenBackend(dbPath, options.inMemory)
	if err != nil {
		return nil, err
	}

	conversations, err := badger.NewConversationRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	feedback := badger.NewFeedbackRepository(backend)

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			conversations.Close()
			backend.Close()
			return nil, err
		}
	}

	a := &Assistant{
		backend:       backend,
		conversations: conversations,
		feedback:      feedback,
		provider:      provider,
		logger:        options.logger.With("component", "assistant"),
	}

	retriever := options.retriever
	if retriever == nil {
		a.index, err = index.NewIndex(options.indexPath, provider.Embedder(),
			index.WithCache(options.indexCache),
			index.WithLogger(options.logger))
		if err != nil {
			a.Close()
			return nil, err
		}
		retriever = a.index
	}

	a.orchestrator, err = answer.NewOrchestrator(provider.LanguageModel(), retriever, conversations,
		answer.WithCompany(options.company),
		answer.WithTopK(options.topK),
		answer.WithStageTimeout(options.stageTimeout),
		answer.WithLogger(options.logger))
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

// Chat answers message within sessionID's conversation. The only errors are
// validation failures wrapping core.ErrInvalidInput; pipeline failures are
// reported through the answer text.
func (a *Assistant) Chat(ctx context.Context, message, sessionID string) (*core.AnswerResult, error) {
	return a.ChatWithMonitor(ctx, message, sessionID, nil)
}

// ChatWithMonitor is Chat with pipeline callbacks delivered to monitor.
func (a *Assistant) ChatWithMonitor(ctx context.Context, message, sessionID string, monitor answer.Monitor) (*core.AnswerResult, error) {
	if err := core.ValidateChatRequest(message, sessionID); err != nil {
		return nil, err
	}
	return a.orchestrator.AnswerWithMonitor(ctx, message, sessionID, monitor), nil
}

// RecordFeedback stores a rating for an answer. rating must be "positive"
// or "negative".
func (a *Assistant) RecordFeedback(ctx context.Context, query, answer, rating string) (*core.FeedbackRecord, error) {
	parsed, err := core.ParseRating(rating)
	if err != nil {
		return nil, err
	}
	return a.feedback.RecordFeedback(ctx, &core.FeedbackRecord{
		Query:  query,
		Answer: answer,
		Rating: parsed,
	})
}

// Conversation returns a session's full history.
func (a *Assistant) Conversation(ctx context.Context, sessionID string) (*core.Conversation, error) {
	if err := core.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	return a.conversations.GetConversation(ctx, sessionID)
}

// RecentConversations lists sessions, most recently updated first.
func (a *Assistant) RecentConversations(ctx context.Context, limit int) ([]*core.ConversationSummary, error) {
	return a.conversations.GetRecentConversations(ctx, limit)
}

// ConversationRepository exposes the conversation store.
func (a *Assistant) ConversationRepository() storage.ConversationRepository {
	return a.conversations
}

// FeedbackRepository exposes the feedback store.
func (a *Assistant) FeedbackRepository() storage.FeedbackRepository {
	return a.feedback
}

// Close releases every component. It is safe to call on a partially built
// Assistant.
func (a *Assistant) Close() error {
	var errs []error

	if a.index != nil {
		if err := a.index.Close(); err != nil {
			a.logger.Error("error closing index", "err", err)
			errs = append(errs, err)
		}
	}
	if a.provider != nil {
		if err := a.provider.Close(); err != nil {
			a.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if err := a.conversations.Close(); err != nil {
		a.logger.Error("error closing conversation repository", "err", err)
		errs = append(errs, err)
	}
	if err := a.backend.Close(); err != nil {
		a.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
