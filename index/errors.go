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

package index

import "errors"

var (
	// ErrIndexNotFound indicates the index artifact is missing or incomplete.
	ErrIndexNotFound = errors.New("index not found")

	// ErrDimensionMismatch indicates the query embedding and the index were
	// produced by different embedding models.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmbedderRequired indicates that an embedder is required but was not provided.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrNoDocuments indicates a build was requested with nothing to index.
	ErrNoDocuments = errors.New("no documents to index")

	// ErrInvalidMaxAttempts indicates a non-positive retry budget.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrInvalidSource indicates a source entry with neither a URL nor a path.
	ErrInvalidSource = errors.New("source needs a url or a path")
)
