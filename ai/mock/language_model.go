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

package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/concierge/ai"
)

// DefaultReply is returned by MockLanguageModel when no rule matches.
const DefaultReply = "mock response"

type rule struct {
	contains string
	reply    string
	err      error
}

// MockLanguageModel is a test double for ai.LanguageModel.
//
// Behavior is chosen in this order: GenerateFunc if set, then the first rule
// whose marker appears in the rendered prompt, then DefaultReply.
type MockLanguageModel struct {
	// GenerateFunc is called by Generate if set.
	GenerateFunc func(ctx context.Context, prompt ai.Prompt) (string, error)

	mu      sync.Mutex
	rules   []rule
	prompts []ai.Prompt
}

// NewMockLanguageModel creates a mock language model.
// Note: Returns concrete type to allow test assertions.
func NewMockLanguageModel() *MockLanguageModel {
	return &MockLanguageModel{}
}

// WithGenerateFunc sets GenerateFunc and returns the mock for chaining.
func (m *MockLanguageModel) WithGenerateFunc(fn func(ctx context.Context, prompt ai.Prompt) (string, error)) *MockLanguageModel {
	m.GenerateFunc = fn
	return m
}

// WithReply answers reply to any prompt containing marker.
func (m *MockLanguageModel) WithReply(marker, reply string) *MockLanguageModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, rule{contains: marker, reply: reply})
	return m
}

// WithError fails any prompt containing marker with err.
func (m *MockLanguageModel) WithError(marker string, err error) *MockLanguageModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, rule{contains: marker, err: err})
	return m
}

// Generate records the prompt and returns the configured reply.
func (m *MockLanguageModel) Generate(ctx context.Context, prompt ai.Prompt) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	rules := m.rules
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text := prompt.System + "\n" + prompt.Human
	for _, r := range rules {
		if strings.Contains(text, r.contains) {
			return r.reply, r.err
		}
	}
	return DefaultReply, nil
}

// CallCount returns the number of Generate calls.
func (m *MockLanguageModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Prompts returns a copy of every prompt received, in call order.
func (m *MockLanguageModel) Prompts() []ai.Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ai.Prompt, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// CallsContaining counts prompts whose text contains marker.
func (m *MockLanguageModel) CallsContaining(marker string) int {
	count := 0
	for _, p := range m.Prompts() {
		if strings.Contains(p.System+"\n"+p.Human, marker) {
			count++
		}
	}
	return count
}

// Reset clears recorded prompts, rules and injected behavior.
func (m *MockLanguageModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = nil
	m.rules = nil
	m.GenerateFunc = nil
}
