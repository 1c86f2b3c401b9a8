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
	"fmt"
	"strings"
	"time"
	"unicode"
)

// MaxSessionIDLength bounds session ids accepted from clients.
const MaxSessionIDLength = 256

// ValidateChatRequest validates an incoming chat message and session id.
//
// Validation rules:
//   - message must contain non-whitespace text
//   - session id must pass ValidateSessionID
func ValidateChatRequest(message, sessionID string) error {
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrEmptyMessage)
	}
	return ValidateSessionID(sessionID)
}

// ValidateSessionID checks that a session id is usable as a storage key.
func ValidateSessionID(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrEmptySessionID)
	}
	if len(sessionID) > MaxSessionIDLength {
		return fmt.Errorf("%w: %w: longer than %d bytes", ErrInvalidInput, ErrInvalidSessionID, MaxSessionIDLength)
	}
	for _, r := range sessionID {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: %w: contains control characters", ErrInvalidInput, ErrInvalidSessionID)
		}
	}
	return nil
}

// ParseRating converts a raw rating string into a Rating.
func ParseRating(raw string) (Rating, error) {
	switch r := Rating(raw); r {
	case RatingPositive, RatingNegative:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %w: %q", ErrInvalidInput, ErrInvalidRating, raw)
	}
}

// ValidateFeedback validates a FeedbackRecord according to domain rules.
//
// Validation rules:
//   - Query must not be empty
//   - Answer must not be empty
//   - Rating must be positive or negative
//   - Timestamp must not be in the future
//
// NOT validated:
//   - ID (assigned by the repository when empty)
func ValidateFeedback(record *FeedbackRecord) error {
	if record == nil {
		return fmt.Errorf("%w: feedback is nil", ErrInvalidInput)
	}
	if strings.TrimSpace(record.Query) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrEmptyQuery)
	}
	if strings.TrimSpace(record.Answer) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrEmptyAnswer)
	}
	if _, err := ParseRating(string(record.Rating)); err != nil {
		return err
	}
	if !IsValidTimestamp(record.Timestamp) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrInvalidTimestamp)
	}
	return nil
}

// ValidateChunk validates an index chunk before it is stored.
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidInput)
	}
	if strings.TrimSpace(chunk.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrEmptyContent)
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
