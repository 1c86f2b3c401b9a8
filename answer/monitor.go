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
	"fmt"
	"io"
	"strings"

	"github.com/poiesic/concierge/core"
)

// Monitor receives callbacks at each step of answering one message.
// Implementations must not block; they run on the request goroutine.
type Monitor interface {
	Start(message, sessionID string)
	Routed(raw string, intent core.Intent)
	Refined(query string)
	Retrieved(chunks []*core.RetrievedChunk)
	Synthesized(answer string)
	SuggestionsParsed(result ParseResult)
	StageFailed(stage string, err error)
	Persisted(summary *core.ConversationSummary, err error)
	Finish(result *core.AnswerResult)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string)                                  {}
func (n *noopMonitor) Routed(_ string, _ core.Intent)                     {}
func (n *noopMonitor) Refined(_ string)                                   {}
func (n *noopMonitor) Retrieved(_ []*core.RetrievedChunk)                 {}
func (n *noopMonitor) Synthesized(_ string)                               {}
func (n *noopMonitor) SuggestionsParsed(_ ParseResult)                    {}
func (n *noopMonitor) StageFailed(_ string, _ error)                      {}
func (n *noopMonitor) Persisted(_ *core.ConversationSummary, _ error)     {}
func (n *noopMonitor) Finish(_ *core.AnswerResult)                        {}

// TraceMonitor writes a human-readable trace of the pipeline to an io.Writer.
type TraceMonitor struct {
	w io.Writer
}

var _ Monitor = (*TraceMonitor)(nil)

// NewTraceMonitor creates a monitor that prints each step to w.
func NewTraceMonitor(w io.Writer) *TraceMonitor {
	return &TraceMonitor{w: w}
}

func (m *TraceMonitor) Start(message, sessionID string) {
	fmt.Fprintf(m.w, "[start] session=%s message=%q\n", sessionID, message)
}

func (m *TraceMonitor) Routed(raw string, intent core.Intent) {
	fmt.Fprintf(m.w, "[router] raw=%q intent=%s\n", raw, intent)
}

func (m *TraceMonitor) Refined(query string) {
	fmt.Fprintf(m.w, "[refiner] query=%q\n", query)
}

func (m *TraceMonitor) Retrieved(chunks []*core.RetrievedChunk) {
	fmt.Fprintf(m.w, "[index] %d chunks\n", len(chunks))
	for i, c := range chunks {
		fmt.Fprintf(m.w, "  %d: %s (%s) [%0.3f]\n", i, c.Title, c.URL, c.Score)
	}
}

func (m *TraceMonitor) Synthesized(answer string) {
	fmt.Fprintf(m.w, "[synthesizer] %d chars\n", len(answer))
}

func (m *TraceMonitor) SuggestionsParsed(result ParseResult) {
	if !result.OK() {
		fmt.Fprintf(m.w, "[suggestions] parse failed: %v\n", result.Err)
		return
	}
	fmt.Fprintf(m.w, "[suggestions] %s\n", strings.Join(result.Suggestions, " | "))
}

func (m *TraceMonitor) StageFailed(stage string, err error) {
	fmt.Fprintf(m.w, "[%s] failed: %v\n", stage, err)
}

func (m *TraceMonitor) Persisted(summary *core.ConversationSummary, err error) {
	if err != nil {
		fmt.Fprintf(m.w, "[store] failed: %v\n", err)
		return
	}
	fmt.Fprintf(m.w, "[store] session=%s messages=%d\n", summary.SessionID, summary.MessageCount)
}

func (m *TraceMonitor) Finish(result *core.AnswerResult) {
	fmt.Fprintf(m.w, "[finish] sources=%d suggestions=%d\n", len(result.Sources), len(result.Suggestions))
}
