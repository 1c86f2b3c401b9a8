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
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/poiesic/concierge/core"
	"github.com/poiesic/concierge/storage"
)

// FeedbackRepository implements storage.FeedbackRepository for BadgerDB.
type FeedbackRepository struct {
	backend *Backend
}

var _ storage.FeedbackRepository = (*FeedbackRepository)(nil)

// NewFeedbackRepository creates a new FeedbackRepository.
func NewFeedbackRepository(backend *Backend) storage.FeedbackRepository {
	return &FeedbackRepository{
		backend: backend,
	}
}

// RecordFeedback validates and stores a feedback record.
func (r *FeedbackRepository) RecordFeedback(ctx context.Context, record *core.FeedbackRecord) (*core.FeedbackRecord, error) {
	if record != nil && record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	if err := core.ValidateFeedback(record); err != nil {
		return nil, err
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		if err := tx.Set(makeFeedbackKey(record.ID), storage.MarshalFeedback(record)); err != nil {
			return err
		}
		return tx.Set(makeFeedbackDateKey(record.Timestamp, record.ID), []byte(record.ID))
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetFeedback retrieves a single feedback record by ID.
func (r *FeedbackRepository) GetFeedback(ctx context.Context, id string) (*core.FeedbackRecord, error) {
	var result *core.FeedbackRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readFeedback(tx, makeFeedbackKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetFeedbackByDateRange retrieves feedback recorded within a time range.
func (r *FeedbackRepository) GetFeedbackByDateRange(ctx context.Context, start, end time.Time) ([]*core.FeedbackRecord, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s is before start %s", storage.ErrInvalidQuery, end, start)
	}
	if start.Equal(end) {
		end = start.Add(1 * time.Microsecond)
	}

	var results []*core.FeedbackRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialFeedbackDateKey(start)
		endKey := makePartialFeedbackDateKey(end)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if slices.Compare(key, endKey) >= 0 {
				break
			}

			// Read the ID from the index
			var id string
			if err := iter.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}

			record, err := readFeedback(tx, makeFeedbackKey(id))
			if err != nil {
				return err
			}
			if record != nil {
				results = append(results, record)
			}
		}
		return nil
	}, false)

	return results, err
}

// readFeedback reads a feedback record from the transaction.
func readFeedback(tx *badger.Txn, key []byte) (*core.FeedbackRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var record *core.FeedbackRecord
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalFeedback(val)
		return unmarshalErr
	})
	return record, err
}
