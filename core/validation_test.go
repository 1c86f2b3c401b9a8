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
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidateChatRequest(t *testing.T) {
	tests := []struct {
		name      string
		message   string
		sessionID string
		wantErr   error
	}{
		{name: "valid", message: "What services do you offer?", sessionID: "abc-123"},
		{name: "empty message", message: "", sessionID: "abc", wantErr: ErrEmptyMessage},
		{name: "whitespace message", message: "  \n\t", sessionID: "abc", wantErr: ErrEmptyMessage},
		{name: "empty session", message: "hi", sessionID: "", wantErr: ErrEmptySessionID},
		{name: "control character session", message: "hi", sessionID: "abc\x00def", wantErr: ErrInvalidSessionID},
		{name: "oversized session", message: "hi", sessionID: strings.Repeat("s", MaxSessionIDLength+1), wantErr: ErrInvalidSessionID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChatRequest(tt.message, tt.sessionID)

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateChatRequest() error = %v, want nil", err)
				}
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChatRequest() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("ValidateChatRequest() error = %v, want wrapped %v", err, ErrInvalidInput)
			}
		})
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		raw     string
		want    Rating
		wantErr bool
	}{
		{raw: "positive", want: RatingPositive},
		{raw: "negative", want: RatingNegative},
		{raw: "neutral", wantErr: true},
		{raw: "Positive", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseRating(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRating) {
					t.Errorf("ParseRating(%q) error = %v, want %v", tt.raw, err, ErrInvalidRating)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRating(%q) unexpected error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ParseRating(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestValidateFeedback(t *testing.T) {
	past := time.Now().Add(-time.Minute)

	tests := []struct {
		name    string
		record  *FeedbackRecord
		wantErr error
	}{
		{
			name:   "valid",
			record: &FeedbackRecord{Query: "q", Answer: "a", Rating: RatingPositive, Timestamp: past},
		},
		{
			name:    "nil record",
			record:  nil,
			wantErr: ErrInvalidInput,
		},
		{
			name:    "empty query",
			record:  &FeedbackRecord{Answer: "a", Rating: RatingPositive, Timestamp: past},
			wantErr: ErrEmptyQuery,
		},
		{
			name:    "empty answer",
			record:  &FeedbackRecord{Query: "q", Rating: RatingNegative, Timestamp: past},
			wantErr: ErrEmptyAnswer,
		},
		{
			name:    "neutral rating",
			record:  &FeedbackRecord{Query: "q", Answer: "a", Rating: Rating("neutral"), Timestamp: past},
			wantErr: ErrInvalidRating,
		},
		{
			name:    "future timestamp",
			record:  &FeedbackRecord{Query: "q", Answer: "a", Rating: RatingPositive, Timestamp: time.Now().Add(time.Hour)},
			wantErr: ErrInvalidTimestamp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFeedback(tt.record)

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateFeedback() error = %v, want nil", err)
				}
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateFeedback() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateChunk(t *testing.T) {
	if err := ValidateChunk(&Chunk{Text: "passage"}); err != nil {
		t.Errorf("ValidateChunk() error = %v, want nil", err)
	}
	if err := ValidateChunk(&Chunk{Text: " "}); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("ValidateChunk() error = %v, want %v", err, ErrEmptyContent)
	}
	if err := ValidateChunk(nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ValidateChunk() error = %v, want %v", err, ErrInvalidInput)
	}
}
