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

package badger

import (
	"encoding/binary"
	"time"

	"github.com/poiesic/concierge/core"
)

const (
	conversationPrefix        = "conv"
	conversationMessagePrefix = "convmsg"
	conversationUpdatedPrefix = "convupd"
	feedbackPrefix            = "fbrec"
	feedbackDatePrefix        = "fbrecd"
	chunkPrefix               = "chunk"
	manifestKey               = "idxmeta"
)

// sessionSeparator terminates a session id inside composite keys. Session ids
// never contain control characters, so prefix scans cannot bleed into a
// session whose id extends another.
const sessionSeparator = 0x00

// makeConversationKey generates the header key for a session.
// Format: prefix:sessionID
func makeConversationKey(sessionID string) []byte {
	return []byte(conversationPrefix + ":" + sessionID)
}

// makeMessageKey generates a composite key for one message of a session.
// Format: prefix:sessionID 0x00 seq
func makeMessageKey(sessionID string, seq int) []byte {
	partial := makePartialMessageKey(sessionID)
	buf := make([]byte, len(partial)+8)
	offset := copy(buf, partial)
	// Write in BigEndian order so lexicographic sort matches append order
	binary.BigEndian.PutUint64(buf[offset:], uint64(seq))
	return buf
}

// makePartialMessageKey generates the scan prefix for a session's messages.
// Format: prefix:sessionID 0x00
func makePartialMessageKey(sessionID string) []byte {
	prefix := conversationMessagePrefix + ":"
	buf := make([]byte, len(prefix)+len(sessionID)+1)
	offset := copy(buf, prefix)
	offset += copy(buf[offset:], sessionID)
	buf[offset] = sessionSeparator
	return buf
}

// makeConversationUpdatedKey generates a composite key for the recency index.
// Format: prefix:timestamp:sessionID
func makeConversationUpdatedKey(updatedAt time.Time, sessionID string) []byte {
	prefix := conversationUpdatedPrefix + ":"
	buf := make([]byte, len(prefix)+8+len(sessionID))
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(updatedAt.UnixMicro()))
	offset += 8
	copy(buf[offset:], sessionID)
	return buf
}

// makeFeedbackKey generates a key for a feedback record by ID.
func makeFeedbackKey(id string) []byte {
	return []byte(feedbackPrefix + ":" + id)
}

// makeFeedbackDateKey generates a composite key for the feedback date index.
// Format: prefix:timestamp:id
func makeFeedbackDateKey(timestamp time.Time, id string) []byte {
	partial := makePartialFeedbackDateKey(timestamp)
	buf := make([]byte, len(partial)+len(id))
	offset := copy(buf, partial)
	copy(buf[offset:], id)
	return buf
}

// makePartialFeedbackDateKey generates a partial key for date range queries.
// Format: prefix:timestamp
func makePartialFeedbackDateKey(timestamp time.Time) []byte {
	prefix := feedbackDatePrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	return buf
}

// makeChunkKey generates a key for an index chunk by ID.
func makeChunkKey(id core.ID) []byte {
	prefix := chunkPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}
