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

package answer

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/concierge/ai"
	"github.com/poiesic/concierge/core"
	"github.com/poiesic/concierge/prompt"
	"github.com/poiesic/concierge/storage"
)

// Fixed replies used when the pipeline cannot produce a grounded answer.
const (
	ApologyAnswer = "I'm sorry, a critical error occurred. The technical team has been notified."

	UnroutableAnswer = "I'm sorry, I couldn't determine the nature of your request. " +
		"Please ask a specific question about Occams Advisory."

	NoInformationAnswer = "I'm sorry, I don't have information about that in my knowledge base. " +
		"Please try rephrasing your question or ask about our services."
)

// DefaultTopK is how many passages are retrieved per query.
const DefaultTopK = 5

// DefaultFallbackSuggestions are attached to conversational replies.
var DefaultFallbackSuggestions = []string{
	"What are your main services?",
	"Tell me about your tax credits.",
	"How do you help startups?",
}

// Retriever finds passages relevant to a query.
type Retriever interface {
	// Search returns at most k passages in descending similarity order.
	Search(ctx context.Context, query string, k int) ([]*core.RetrievedChunk, error)
}

// Orchestrator answers user messages by routing them through the prompt
// stages and recording every exchange in the conversation store.
//
// An Orchestrator holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	lm            ai.LanguageModel
	retriever     Retriever
	conversations storage.ConversationRepository

	router         prompt.Stage
	conversational prompt.Stage
	refiner        prompt.Stage
	synthesizer    prompt.Stage
	suggester      prompt.Stage

	company             string
	unroutableAnswer    string
	topK                int
	fallbackSuggestions []string
	stageTimeout        time.Duration
	logger              *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// WithTopK sets the number of passages retrieved per query.
// Default is DefaultTopK.
func WithTopK(k int) Option {
	return func(o *Orchestrator) error {
		if k <= 0 {
			return ErrInvalidTopK
		}
		o.topK = k
		return nil
	}
}

// WithCompany sets the company named in every prompt.
// Default is prompt.DefaultCompany.
func WithCompany(company string) Option {
	return func(o *Orchestrator) error {
		if company != "" {
			o.company = company
		}
		return nil
	}
}

// WithFallbackSuggestions replaces the suggestions attached to conversational replies.
func WithFallbackSuggestions(suggestions []string) Option {
	return func(o *Orchestrator) error {
		o.fallbackSuggestions = slices.Clone(suggestions)
		return nil
	}
}

// WithStageTimeout bounds each language model and retrieval call.
// Zero, the default, leaves only the caller's deadline in effect.
func WithStageTimeout(d time.Duration) Option {
	return func(o *Orchestrator) error {
		o.stageTimeout = d
		return nil
	}
}

// NewOrchestrator creates a new orchestrator.
func NewOrchestrator(
	lm ai.LanguageModel,
	retriever Retriever,
	conversations storage.ConversationRepository,
	opts ...Option,
) (*Orchestrator, error) {
	if lm == nil {
		return nil, ErrLanguageModelRequired
	}
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if conversations == nil {
		return nil, ErrConversationRepositoryRequired
	}

	o := &Orchestrator{
		lm:                  lm,
		retriever:           retriever,
		conversations:       conversations,
		company:             prompt.DefaultCompany,
		topK:                DefaultTopK,
		fallbackSuggestions: slices.Clone(DefaultFallbackSuggestions),
		logger:              slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	o.router = prompt.Router(o.company)
	o.conversational = prompt.Conversational(o.company)
	o.refiner = prompt.QueryRefiner(o.company)
	o.synthesizer = prompt.Synthesizer(o.company)
	o.suggester = prompt.SuggestionGenerator()
	o.unroutableAnswer = strings.Replace(UnroutableAnswer, prompt.DefaultCompany, o.company, 1)
	o.logger = o.logger.With("component", "orchestrator")

	return o, nil
}

// ClassifyIntent maps raw router output to an intent. Matching is
// case-insensitive substring search; output naming both labels or neither
// is unroutable.
func ClassifyIntent(raw string) core.Intent {
	lower := strings.ToLower(raw)
	isQuery := strings.Contains(lower, prompt.LabelQuery)
	isConversational := strings.Contains(lower, prompt.LabelConversational)

	switch {
	case isQuery && !isConversational:
		return core.IntentQuery
	case isConversational && !isQuery:
		return core.IntentConversational
	default:
		return core.IntentUnroutable
	}
}

// Answer produces a reply for message and appends the exchange to the
// session's conversation. It never fails: upstream errors become a fixed
// apology. Callers validate message and sessionID beforehand.
func (o *Orchestrator) Answer(ctx context.Context, message, sessionID string) *core.AnswerResult {
	return o.AnswerWithMonitor(ctx, message, sessionID, nil)
}

// AnswerWithMonitor is Answer with step callbacks delivered to monitor.
func (o *Orchestrator) AnswerWithMonitor(ctx context.Context, message, sessionID string, monitor Monitor) *core.AnswerResult {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	start := time.Now()
	monitor.Start(message, sessionID)

	result := o.answer(ctx, message, monitor)
	o.persist(ctx, sessionID, message, result, monitor)

	monitor.Finish(result)
	o.logger.Debug("answered message",
		"session", sessionID,
		"sources", len(result.Sources),
		"suggestions", len(result.Suggestions),
		"elapsed", time.Since(start))
	return result
}

func (o *Orchestrator) answer(ctx context.Context, message string, monitor Monitor) *core.AnswerResult {
	raw, err := o.run(ctx, o.router, map[string]any{prompt.SlotInput: message})
	if err != nil {
		return o.fail(o.router.Name(), err, monitor)
	}
	intent := ClassifyIntent(raw)
	monitor.Routed(raw, intent)

	switch intent {
	case core.IntentConversational:
		reply, err := o.run(ctx, o.conversational, map[string]any{prompt.SlotInput: message})
		if err != nil {
			return o.fail(o.conversational.Name(), err, monitor)
		}
		return &core.AnswerResult{
			Answer:      reply,
			Sources:     []core.Source{},
			Suggestions: slices.Clone(o.fallbackSuggestions),
		}
	case core.IntentQuery:
		return o.answerQuery(ctx, message, monitor)
	default:
		o.logger.Warn("router output matched no intent", "raw", raw)
		return fixed(o.unroutableAnswer)
	}
}

func (o *Orchestrator) answerQuery(ctx context.Context, message string, monitor Monitor) *core.AnswerResult {
	refined, err := o.run(ctx, o.refiner, map[string]any{prompt.SlotInput: message})
	if err != nil {
		return o.fail(o.refiner.Name(), err, monitor)
	}
	if refined == "" {
		refined = message
	}
	monitor.Refined(refined)

	chunks, err := o.retrieve(ctx, refined)
	if err != nil {
		return o.fail("index", err, monitor)
	}
	monitor.Retrieved(chunks)

	if len(chunks) == 0 {
		o.logger.Info("no passages retrieved", "query", refined)
		return fixed(NoInformationAnswer)
	}

	stageCtx, cancel := o.stageContext(ctx)
	answer, err := o.synthesizer.RunWithDocuments(stageCtx, o.lm, map[string]any{prompt.SlotInput: refined}, chunks)
	cancel()
	if err != nil {
		return o.fail(o.synthesizer.Name(), err, monitor)
	}
	monitor.Synthesized(answer)

	return &core.AnswerResult{
		Answer:      answer,
		Sources:     uniqueSources(chunks),
		Suggestions: o.suggest(ctx, refined, answer, monitor),
	}
}

// suggest is best effort: any failure yields an empty list.
func (o *Orchestrator) suggest(ctx context.Context, question, answer string, monitor Monitor) []string {
	reply, err := o.run(ctx, o.suggester, map[string]any{prompt.SlotQAPair: prompt.QAPair(question, answer)})
	if err != nil {
		o.logger.Warn("suggestion generation failed", "err", err)
		monitor.StageFailed(o.suggester.Name(), err)
		return []string{}
	}

	result := ParseSuggestions(reply)
	monitor.SuggestionsParsed(result)
	if !result.OK() {
		o.logger.Warn("could not parse suggestions", "err", result.Err, "reply", reply)
		return []string{}
	}
	return result.Suggestions
}

func (o *Orchestrator) retrieve(ctx context.Context, query string) ([]*core.RetrievedChunk, error) {
	stageCtx, cancel := o.stageContext(ctx)
	defer cancel()
	chunks, err := o.retriever.Search(stageCtx, query, o.topK)
	if err != nil {
		return nil, err
	}
	if len(chunks) > o.topK {
		chunks = chunks[:o.topK]
	}
	return chunks, nil
}

func (o *Orchestrator) run(ctx context.Context, stage prompt.Stage, values map[string]any) (string, error) {
	stageCtx, cancel := o.stageContext(ctx)
	defer cancel()
	return stage.Run(stageCtx, o.lm, values)
}

func (o *Orchestrator) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.stageTimeout > 0 {
		return context.WithTimeout(ctx, o.stageTimeout)
	}
	return context.WithCancel(ctx)
}

func (o *Orchestrator) fail(stage string, err error, monitor Monitor) *core.AnswerResult {
	o.logger.Error("pipeline stage failed", "stage", stage, "err", err)
	monitor.StageFailed(stage, err)
	return fixed(ApologyAnswer)
}

// persist records the exchange. It runs detached from request cancellation
// so a client disconnect cannot drop a computed answer from history.
func (o *Orchestrator) persist(ctx context.Context, sessionID, message string, result *core.AnswerResult, monitor Monitor) {
	msg := &core.Message{
		HumanText:   message,
		AIText:      result.Answer,
		Sources:     slices.Clone(result.Sources),
		Suggestions: slices.Clone(result.Suggestions),
		Timestamp:   time.Now().UTC(),
	}

	summary, err := o.conversations.AppendMessage(context.WithoutCancel(ctx), sessionID, msg)
	monitor.Persisted(summary, err)
	if err != nil {
		o.logger.Error("failed to persist conversation", "session", sessionID, "err", err)
	}
}

// uniqueSources returns chunk citations deduplicated by URL in first-seen order.
// Chunks without a URL cannot be cited and are skipped.
func uniqueSources(chunks []*core.RetrievedChunk) []core.Source {
	seen := make(map[string]struct{}, len(chunks))
	sources := make([]core.Source, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.URL == "" {
			continue
		}
		if _, ok := seen[chunk.URL]; ok {
			continue
		}
		seen[chunk.URL] = struct{}{}
		sources = append(sources, core.Source{Title: chunk.Title, URL: chunk.URL})
	}
	return sources
}

func fixed(answer string) *core.AnswerResult {
	return &core.AnswerResult{
		Answer:      answer,
		Sources:     []core.Source{},
		Suggestions: []string{},
	}
}
