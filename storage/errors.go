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

package storage

import "errors"

// Lookup errors.
var (
	// ErrNotFound is returned for an unknown session, feedback id, manifest
	// or database directory.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidQuery rejects a listing request such as a non-positive limit
	// or an inverted date range.
	ErrInvalidQuery = errors.New("invalid query parameters")
)

// Backend errors.
var (
	// ErrTransactionFailed wraps the last conflict once an update has been
	// retried the maximum number of times.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrStorageClosed is returned by any operation on a closed backend.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrNotDirectory means a database path names something other than a directory.
	ErrNotDirectory = errors.New("database path is not a directory")
)

// Codec errors. Decoders wrap ErrTruncatedData in ErrSerializationFailed.
var (
	ErrSerializationFailed = errors.New("serialization failed")
	ErrTruncatedData       = errors.New("truncated data")
)
