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

package prompt

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/poiesic/concierge/ai"
	"github.com/poiesic/concierge/core"
	"github.com/tmc/langchaingo/prompts"
)

// Stage is an immutable prompt template bound to one pipeline step.
// The zero value is not usable; build stages with New.
type Stage struct {
	name     string
	system   string
	human    string
	required []string
	partials map[string]any
	jsonMode bool

	docTemplate  string
	docSeparator string
	contextSlot  string
}

// New creates a stage whose human turn is rendered from human. required lists
// the slots callers must supply on every run.
func New(name, human string, required ...string) Stage {
	return Stage{
		name:     name,
		human:    human,
		required: slices.Clone(required),
	}
}

// WithSystem returns a copy of s that also renders a system turn.
func (s Stage) WithSystem(system string) Stage {
	s.system = system
	return s
}

// WithPartial returns a copy of s with a constant slot value.
func (s Stage) WithPartial(slot string, value any) Stage {
	partials := maps.Clone(s.partials)
	if partials == nil {
		partials = make(map[string]any, 1)
	}
	partials[slot] = value
	s.partials = partials
	return s
}

// WithJSONMode returns a copy of s that asks the model for a JSON object.
func (s Stage) WithJSONMode() Stage {
	s.jsonMode = true
	return s
}

// WithDocuments returns a copy of s that renders each passage with
// docTemplate, joins them with separator and stores the result in
// contextSlot. Passage slots are {{.text}}, {{.title}} and {{.url}}.
func (s Stage) WithDocuments(docTemplate, separator, contextSlot string) Stage {
	s.docTemplate = docTemplate
	s.docSeparator = separator
	s.contextSlot = contextSlot
	return s
}

// Name returns the stage name used in logs.
func (s Stage) Name() string {
	return s.name
}

// Required returns the slots a caller must supply.
func (s Stage) Required() []string {
	return slices.Clone(s.required)
}

// Render fills the stage templates with values.
func (s Stage) Render(values map[string]any) (ai.Prompt, error) {
	for _, slot := range s.required {
		if v, ok := values[slot]; !ok || v == nil {
			return ai.Prompt{}, fmt.Errorf("%w: stage %s requires %q", ErrMissingSlot, s.name, slot)
		}
	}

	human, err := s.format(s.human, values)
	if err != nil {
		return ai.Prompt{}, err
	}

	var system string
	if s.system != "" {
		system, err = s.format(s.system, values)
		if err != nil {
			return ai.Prompt{}, err
		}
	}

	return ai.Prompt{System: system, Human: human, JSONMode: s.jsonMode}, nil
}

// Run renders the stage and performs exactly one model call.
// The reply is returned with surrounding whitespace removed.
func (s Stage) Run(ctx context.Context, lm ai.LanguageModel, values map[string]any) (string, error) {
	p, err := s.Render(values)
	if err != nil {
		return "", err
	}

	out, err := lm.Generate(ctx, p)
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", s.name, err)
	}
	return strings.TrimSpace(out), nil
}

// RunWithDocuments renders passages into the context slot and then runs the stage.
func (s Stage) RunWithDocuments(ctx context.Context, lm ai.LanguageModel, values map[string]any, chunks []*core.RetrievedChunk) (string, error) {
	docs, err := s.RenderDocuments(chunks)
	if err != nil {
		return "", err
	}

	merged := maps.Clone(values)
	if merged == nil {
		merged = make(map[string]any, 1)
	}
	merged[s.contextSlot] = docs
	return s.Run(ctx, lm, merged)
}

// RenderDocuments renders passages with the stage's document template.
func (s Stage) RenderDocuments(chunks []*core.RetrievedChunk) (string, error) {
	if s.docTemplate == "" {
		return "", fmt.Errorf("%w: %s", ErrNoDocumentTemplate, s.name)
	}

	parts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		doc, err := s.format(s.docTemplate, map[string]any{
			"text":  chunk.Text,
			"title": chunk.Title,
			"url":   chunk.URL,
		})
		if err != nil {
			return "", err
		}
		parts = append(parts, doc)
	}
	return strings.Join(parts, s.docSeparator), nil
}

func (s Stage) format(template string, values map[string]any) (string, error) {
	tmpl := prompts.PromptTemplate{
		Template:         template,
		InputVariables:   slices.Collect(maps.Keys(values)),
		TemplateFormat:   prompts.TemplateFormatGoTemplate,
		PartialVariables: s.partials,
	}
	out, err := tmpl.Format(values)
	if err != nil {
		return "", fmt.Errorf("%w: stage %s: %w", ErrRenderFailed, s.name, err)
	}
	return out, nil
}
