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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/concierge/core"
	"github.com/poiesic/concierge/storage"
)

// ConversationRepository implements storage.ConversationRepository for BadgerDB.
//
// A conversation is stored as a header record (session id, message count,
// timestamps) plus one record per message keyed by session and sequence.
// Every append reads and rewrites the header inside one transaction, so
// concurrent appends to the same session conflict at commit and are retried
// by Backend.Update instead of racing.
type ConversationRepository struct {
	backend *Backend
}

var _ storage.ConversationRepository = (*ConversationRepository)(nil)

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(backend *Backend) (storage.ConversationRepository, error) {
	return &ConversationRepository{
		backend: backend,
	}, nil
}

// Close releases resources. ConversationRepository has no resources to release.
func (r *ConversationRepository) Close() error {
	return nil
}

// AppendMessage appends msg to the session's conversation, creating it on first use.
func (r *ConversationRepository) AppendMessage(ctx context.Context, sessionID string, msg *core.Message) (*core.ConversationSummary, error) {
	if err := core.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: message is nil", core.ErrInvalidInput)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	value := storage.MarshalMessage(msg)

	var summary *core.ConversationSummary
	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		now := time.Now().UTC()
		headerKey := makeConversationKey(sessionID)

		header, err := readConversationSummary(tx, headerKey)
		if err != nil {
			return err
		}
		if header == nil {
			header = &core.ConversationSummary{
				SessionID: sessionID,
				CreatedAt: now,
			}
		} else {
			// Move the recency index entry
			if err := tx.Delete(makeConversationUpdatedKey(header.UpdatedAt, sessionID)); err != nil {
				return err
			}
		}

		if err := tx.Set(makeMessageKey(sessionID, header.MessageCount), value); err != nil {
			return err
		}

		header.MessageCount++
		header.UpdatedAt = now
		if err := tx.Set(headerKey, storage.MarshalConversationSummary(header)); err != nil {
			return err
		}
		if err := tx.Set(makeConversationUpdatedKey(now, sessionID), nil); err != nil {
			return err
		}

		summary = header
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// GetConversation retrieves a conversation and its messages in append order.
func (r *ConversationRepository) GetConversation(ctx context.Context, sessionID string) (*core.Conversation, error) {
	var result *core.Conversation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		header, err := readConversationSummary(tx, makeConversationKey(sessionID))
		if err != nil {
			return err
		}
		if header == nil {
			return storage.ErrNotFound
		}

		result = &core.Conversation{
			SessionID: header.SessionID,
			CreatedAt: header.CreatedAt,
			UpdatedAt: header.UpdatedAt,
			Messages:  make([]*core.Message, 0, header.MessageCount),
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialMessageKey(sessionID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var msg *core.Message
			err := iter.Item().Value(func(val []byte) error {
				var err error
				msg, err = storage.UnmarshalMessage(val)
				return err
			})
			if err != nil {
				return err
			}
			result.Messages = append(result.Messages, msg)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetRecentConversations returns conversation headers, most recently updated first.
func (r *ConversationRepository) GetRecentConversations(ctx context.Context, limit int) ([]*core.ConversationSummary, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	var results []*core.ConversationSummary
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Use reverse iterator to get most recent conversations first
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false

		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefix := []byte(conversationUpdatedPrefix + ":")
		seek := append(append([]byte{}, prefix...), 0xFF)

		for iter.Seek(seek); iter.Valid() && len(results) < limit; iter.Next() {
			key := iter.Item().Key()
			if !hasPrefix(key, prefix) {
				break
			}

			sessionID := string(key[len(prefix)+8:])
			header, err := readConversationSummary(tx, makeConversationKey(sessionID))
			if err != nil {
				return err
			}
			if header != nil {
				results = append(results, header)
			}
		}
		return nil
	}, false)

	return results, err
}

// Helper methods

// readConversationSummary reads a conversation header from the transaction.
// Returns nil, nil when the header does not exist.
func readConversationSummary(tx *badger.Txn, key []byte) (*core.ConversationSummary, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var summary *core.ConversationSummary
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		summary, unmarshalErr = storage.UnmarshalConversationSummary(val)
		return unmarshalErr
	})
	return summary, err
}

// hasPrefix checks if a byte slice has a given prefix
func hasPrefix(s, prefix []byte) bool {
	return len(s) >= len(prefix) && string(s[:len(prefix)]) == string(prefix)
}
