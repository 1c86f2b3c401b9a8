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

import "errors"

// Domain validation errors
var (
	// ErrInvalidInput is the root of every validation failure. Boundary
	// layers map it to a client error.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyMessage indicates the user message is empty.
	ErrEmptyMessage = errors.New("message cannot be empty")

	// ErrEmptySessionID indicates the session id is empty.
	ErrEmptySessionID = errors.New("session id cannot be empty")

	// ErrInvalidSessionID indicates the session id is malformed.
	ErrInvalidSessionID = errors.New("invalid session id")

	// ErrInvalidRating indicates a rating outside {positive, negative}.
	ErrInvalidRating = errors.New("rating must be positive or negative")

	// ErrEmptyQuery indicates a feedback record without a query.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrEmptyAnswer indicates a feedback record without an answer.
	ErrEmptyAnswer = errors.New("answer cannot be empty")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")

	// ErrEmptyContent indicates an index chunk has no text.
	ErrEmptyContent = errors.New("content cannot be empty")
)
