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

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/poiesic/concierge/ai"
	"github.com/poiesic/concierge/core"
	"github.com/poiesic/concierge/storage"
	"github.com/poiesic/concierge/storage/badger"
)

// Index answers similarity queries against an index artifact.
//
// By default every Search opens the artifact read-only and closes it again,
// so a rebuilt index is picked up on the next query with no shared state.
// WithCache keeps one handle open and drops it when the artifact changes on
// disk.
type Index struct {
	path     string
	embedder ai.Embedder
	cache    bool
	logger   *slog.Logger

	// guards the cached handle only; never held across embedding calls
	mu       sync.RWMutex
	handle   *handle
	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

type handle struct {
	backend  *badger.Backend
	repo     storage.ChunkRepository
	manifest *core.IndexManifest
}

func (h *handle) close() error {
	return h.backend.Close()
}

// Option configures an Index.
type Option func(*Index) error

// WithCache keeps the artifact open between searches.
func WithCache(enabled bool) Option {
	return func(idx *Index) error {
		idx.cache = enabled
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(idx *Index) error {
		if logger == nil {
			logger = slog.Default()
		}
		idx.logger = logger
		return nil
	}
}

// NewIndex creates an index reader for the artifact at path. The artifact
// need not exist yet; searches fail with ErrIndexNotFound until it does.
func NewIndex(path string, embedder ai.Embedder, opts ...Option) (*Index, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrIndexNotFound)
	}

	idx := &Index{
		path:     filepath.Clean(path),
		embedder: embedder,
		logger:   slog.Default(),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		if err := opt(idx); err != nil {
			return nil, err
		}
	}
	idx.logger = idx.logger.With("component", "index")

	if idx.cache {
		if err := idx.watch(); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Search returns at most k passages in descending similarity to query.
func (idx *Index) Search(ctx context.Context, query string, k int) ([]*core.RetrievedChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, core.ErrEmptyQuery
	}
	if k <= 0 {
		return []*core.RetrievedChunk{}, nil
	}

	embedding, err := idx.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	vector := NormalizeVector(embedding)

	if idx.cache {
		return idx.searchCached(ctx, vector, k)
	}

	h, err := idx.open(ctx)
	if err != nil {
		return nil, err
	}
	defer h.close()
	return idx.search(ctx, h, vector, k)
}

// Manifest returns the manifest of the current artifact.
func (idx *Index) Manifest(ctx context.Context) (*core.IndexManifest, error) {
	h, err := idx.open(ctx)
	if err != nil {
		return nil, err
	}
	defer h.close()
	return h.manifest, nil
}

// Close stops the watcher and releases any cached handle.
func (idx *Index) Close() error {
	var err error
	idx.stopOnce.Do(func() {
		close(idx.done)
		if idx.watcher != nil {
			err = idx.watcher.Close()
		}
		idx.invalidate()
	})
	return err
}

func (idx *Index) search(ctx context.Context, h *handle, vector []float32, k int) ([]*core.RetrievedChunk, error) {
	if h.manifest.Dimensions != len(vector) {
		return nil, fmt.Errorf("%w: index has %d, query has %d", ErrDimensionMismatch, h.manifest.Dimensions, len(vector))
	}
	results, err := h.repo.FindSimilar(ctx, vector, k)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []*core.RetrievedChunk{}
	}
	return results, nil
}

func (idx *Index) searchCached(ctx context.Context, vector []float32, k int) ([]*core.RetrievedChunk, error) {
	idx.mu.RLock()
	h := idx.handle
	if h != nil {
		defer idx.mu.RUnlock()
		return idx.search(ctx, h, vector, k)
	}
	idx.mu.RUnlock()

	idx.mu.Lock()
	if idx.handle == nil {
		opened, err := idx.open(ctx)
		if err != nil {
			idx.mu.Unlock()
			return nil, err
		}
		idx.handle = opened
		idx.logger.Debug("opened cached index", "path", idx.path, "chunks", opened.manifest.ChunkCount)
	}
	idx.mu.Unlock()

	// The handle may be invalidated between the two locks
	return idx.searchCached(ctx, vector, k)
}

func (idx *Index) open(ctx context.Context) (*handle, error) {
	backend, err := badger.OpenReadOnlyBackend(idx.path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, idx.path)
		}
		return nil, fmt.Errorf("open index: %w", err)
	}

	repo := badger.NewChunkRepository(backend)
	manifest, err := repo.LoadManifest(ctx)
	if err != nil {
		backend.Close()
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s has no manifest", ErrIndexNotFound, idx.path)
		}
		return nil, err
	}

	return &handle{backend: backend, repo: repo, manifest: manifest}, nil
}

func (idx *Index) invalidate() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.handle == nil {
		return
	}
	if err := idx.handle.close(); err != nil {
		idx.logger.Warn("error closing cached index", "err", err)
	}
	idx.handle = nil
}

// watch observes the artifact's parent directory, since a rebuild replaces
// the artifact directory by rename.
func (idx *Index) watch() error {
	parent := filepath.Dir(idx.path)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create index watcher: %w", err)
	}
	if err := watcher.Add(parent); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", parent, err)
	}
	idx.watcher = watcher

	go idx.watchLoop()
	return nil
}

func (idx *Index) watchLoop() {
	for {
		select {
		case <-idx.done:
			return
		case event, ok := <-idx.watcher.Events:
			if !ok {
				return
			}
			if event.Name == idx.path || strings.HasPrefix(event.Name, idx.path+string(filepath.Separator)) {
				idx.logger.Debug("index changed on disk", "event", event.Op.String())
				idx.invalidate()
			}
		case err, ok := <-idx.watcher.Errors:
			if !ok {
				return
			}
			idx.logger.Warn("index watcher error", "err", err)
		}
	}
}
