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
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/concierge/core"
	"github.com/poiesic/concierge/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
// It is the on-disk form of the document index.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) storage.ChunkRepository {
	return &ChunkRepository{
		backend: backend,
	}
}

// AddChunks stores chunks, keyed by content ID.
func (r *ChunkRepository) AddChunks(ctx context.Context, chunks ...*core.Chunk) error {
	for _, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			return err
		}
		if chunk.Id == 0 {
			chunk.Id = core.IDFromContent(chunk.URL + "\n" + chunk.Text)
		}
	}

	// Large builds are split across transactions by the write batch
	wb := r.backend.db.NewWriteBatch()
	defer wb.Cancel()
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := wb.Set(makeChunkKey(chunk.Id), storage.MarshalChunk(chunk)); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// FindSimilar scans every chunk and returns the limit best matches by dot
// product. Vectors are expected to be L2-normalized, which makes the dot
// product the cosine similarity.
func (r *ChunkRepository) FindSimilar(ctx context.Context, vector []float32, limit int) ([]*core.RetrievedChunk, error) {
	if limit <= 0 {
		return nil, nil
	}

	var results []*core.RetrievedChunk

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}

			// Skip chunks without embeddings
			if len(chunk.Vector) == 0 {
				continue
			}

			results = append(results, &core.RetrievedChunk{
				Text:  chunk.Text,
				Title: chunk.Title,
				URL:   chunk.URL,
				Score: dotProduct(vector, chunk.Vector),
			})
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
	slices.SortStableFunc(results, func(a, b *core.RetrievedChunk) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// CountChunks returns the number of stored chunks.
func (r *ChunkRepository) CountChunks(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// SaveManifest persists the index manifest.
func (r *ChunkRepository) SaveManifest(ctx context.Context, manifest *core.IndexManifest) error {
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		return tx.Set([]byte(manifestKey), storage.MarshalManifest(manifest))
	})
}

// LoadManifest retrieves the index manifest.
func (r *ChunkRepository) LoadManifest(ctx context.Context) (*core.IndexManifest, error) {
	var manifest *core.IndexManifest
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(manifestKey))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			manifest, unmarshalErr = storage.UnmarshalManifest(val)
			return unmarshalErr
		})
	}, false)

	return manifest, err
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := min(len(a), len(b))
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
