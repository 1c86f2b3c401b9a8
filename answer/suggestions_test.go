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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSuggestions(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    []string
		wantErr error
	}{
		{
			name:  "plain object",
			reply: `{"suggestions": ["What is R&D credit?", "Who qualifies?", "How long does it take?"]}`,
			want:  []string{"What is R&D credit?", "Who qualifies?", "How long does it take?"},
		},
		{
			name:  "fenced with prose",
			reply: "Sure! Here you go:\n```json\n{\"suggestions\": [\"One?\", \"Two?\"]}\n```",
			want:  []string{"One?", "Two?"},
		},
		{
			name:  "caps at three",
			reply: `{"suggestions": ["a", "b", "c", "d", "e"]}`,
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "drops non-strings and blanks",
			reply: `{"suggestions": [1, "  ", "kept", null, {"x": 1}]}`,
			want:  []string{"kept"},
		},
		{
			name:  "repairs bare key and trailing comma",
			reply: `{suggestions: ["a", "b",]}`,
			want:  []string{"a", "b"},
		},
		{
			name:  "single quotes",
			reply: `{'suggestions': ['A?', 'B?', 'What's C?']}`,
			want:  []string{"A?", "B?", "What's C?"},
		},
		{
			name:  "prose with braces after object",
			reply: `{"suggestions": ["A?", "B?", "C?"]} I hope these help {smile}`,
			want:  []string{"A?", "B?", "C?"},
		},
		{
			name:  "first of two objects",
			reply: "Here are some: {\"suggestions\": [\"First?\"]}\nOr maybe: {\"suggestions\": [\"Second?\"]}",
			want:  []string{"First?"},
		},
		{
			name:  "skips brace in leading prose",
			reply: `Thinking {hmm} ... {"suggestions": ["A?"]}`,
			want:  []string{"A?"},
		},
		{
			name:    "no object",
			reply:   "I cannot help with that.",
			wantErr: ErrNoJSONObject,
		},
		{
			name:    "wrong key",
			reply:   `{"questions": ["a"]}`,
			wantErr: ErrNoSuggestions,
		},
		{
			name:    "empty array",
			reply:   `{"suggestions": []}`,
			wantErr: ErrNoSuggestions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseSuggestions(tt.reply)
			if tt.wantErr != nil {
				assert.False(t, result.OK())
				assert.ErrorIs(t, result.Err, tt.wantErr)
				assert.Empty(t, result.Suggestions)
				return
			}
			assert.True(t, result.OK())
			assert.Equal(t, tt.want, result.Suggestions)
		})
	}
}

func TestParseSuggestions_MalformedJSON(t *testing.T) {
	result := ParseSuggestions(`{"suggestions": ["a" "b"]}`)
	assert.False(t, result.OK())
	assert.Error(t, result.Err)
}
