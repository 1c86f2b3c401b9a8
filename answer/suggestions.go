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
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MaxSuggestions caps the follow-up questions attached to an answer.
const MaxSuggestions = 3

var (
	// ErrNoJSONObject indicates the model reply contained no {...} block.
	ErrNoJSONObject = errors.New("no JSON object in reply")

	// ErrNoSuggestions indicates the reply parsed but held no usable questions.
	ErrNoSuggestions = errors.New("no suggestions in reply")
)

// ParseResult is the outcome of parsing a suggestion generator reply.
// A failed parse is a value, not an error path: callers fall back to an
// empty suggestion list and keep the answer.
type ParseResult struct {
	Suggestions []string
	Err         error
}

// OK reports whether parsing produced suggestions.
func (r ParseResult) OK() bool {
	return r.Err == nil
}

type suggestionPayload struct {
	Suggestions []any `json:"suggestions"`
}

// ParseSuggestions extracts follow-up questions from a model reply.
//
// The reply may be wrapped in markdown fences or surrounded by prose. The
// first well-formed JSON object is used: decoding starts at each '{' in turn
// and stops after one complete value, so text after the object is ignored.
// A candidate that does not decode as written is retried after repairing
// common formatting slips. Non-string and blank items are dropped and at most
// MaxSuggestions are kept.
func ParseSuggestions(reply string) ParseResult {
	payload, err := firstObject(reply)
	if err != nil {
		return ParseResult{Err: err}
	}

	suggestions := make([]string, 0, MaxSuggestions)
	for _, item := range payload.Suggestions {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		suggestions = append(suggestions, s)
		if len(suggestions) == MaxSuggestions {
			break
		}
	}

	if len(suggestions) == 0 {
		return ParseResult{Err: ErrNoSuggestions}
	}
	return ParseResult{Suggestions: suggestions}
}

// firstObject decodes the first well-formed object in text.
func firstObject(text string) (*suggestionPayload, error) {
	var lastErr error
	for i := strings.IndexByte(text, '{'); i >= 0; {
		candidate := text[i:]
		payload, err := decodeOne(candidate)
		if err != nil {
			payload, err = decodeOne(repairJSON(candidate))
		}
		if err == nil {
			return payload, nil
		}
		lastErr = err

		next := strings.IndexByte(text[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}

	if lastErr == nil {
		return nil, ErrNoJSONObject
	}
	return nil, fmt.Errorf("decode suggestions: %w", lastErr)
}

// decodeOne reads a single JSON value from the start of s.
func decodeOne(s string) (*suggestionPayload, error) {
	var payload suggestionPayload
	if err := json.NewDecoder(strings.NewReader(s)).Decode(&payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
