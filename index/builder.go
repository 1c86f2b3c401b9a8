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
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/concierge/ai"
	"github.com/poiesic/concierge/core"
	"github.com/poiesic/concierge/storage/badger"
	"github.com/tmc/langchaingo/textsplitter"
)

// Splitter defaults match the passage size the synthesizer prompt is tuned for.
const (
	DefaultChunkSize    = 1500
	DefaultChunkOverlap = 200
	DefaultBatchSize    = 32
	DefaultMaxAttempts  = 3
	DefaultRetryDelay   = time.Second

	buildingSuffix = ".building"
	retiredSuffix  = ".old"
)

// Builder turns documents into an index artifact.
type Builder struct {
	embedder       ai.Embedder
	pool           *ants.Pool
	splitter       textsplitter.TextSplitter
	batchSize      int
	maxAttempts    int
	retryDelay     time.Duration
	embeddingModel string
	progress       io.Writer
	logger         *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder) error

// WithPoolSize sets how many embedding batches run concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) BuilderOption {
	return func(b *Builder) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if b.pool != nil {
			b.pool.Release()
		}
		b.pool = pool
		return nil
	}
}

// WithBatchSize sets how many passages go into one embedding call.
func WithBatchSize(size int) BuilderOption {
	return func(b *Builder) error {
		if size < 1 {
			size = 1
		}
		b.batchSize = size
		return nil
	}
}

// WithChunking sets the passage size and overlap, in characters.
func WithChunking(size, overlap int) BuilderOption {
	return func(b *Builder) error {
		if size < 1 || overlap < 0 || overlap >= size {
			return fmt.Errorf("invalid chunking: size %d overlap %d", size, overlap)
		}
		b.splitter = textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
		)
		return nil
	}
}

// WithRetry sets the retry budget for each embedding call.
func WithRetry(maxAttempts int, baseDelay time.Duration) BuilderOption {
	return func(b *Builder) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		b.maxAttempts = maxAttempts
		b.retryDelay = baseDelay
		return nil
	}
}

// WithEmbeddingModel records the embedding model name in the manifest.
func WithEmbeddingModel(name string) BuilderOption {
	return func(b *Builder) error {
		b.embeddingModel = name
		return nil
	}
}

// WithProgress sets where build progress is written. Default is io.Discard.
func WithProgress(w io.Writer) BuilderOption {
	return func(b *Builder) error {
		if w == nil {
			w = io.Discard
		}
		b.progress = w
		return nil
	}
}

// WithBuilderLogger sets a custom logger.
// Default is slog.Default().
func WithBuilderLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// NewBuilder creates a new index builder. Call Release when done.
func NewBuilder(embedder ai.Embedder, opts ...BuilderOption) (*Builder, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	b := &Builder{
		embedder: embedder,
		pool:     pool,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(DefaultChunkSize),
			textsplitter.WithChunkOverlap(DefaultChunkOverlap),
		),
		batchSize:   DefaultBatchSize,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		progress:    io.Discard,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(b); optErr != nil {
			b.Release()
			return nil, optErr
		}
	}
	b.logger = b.logger.With("component", "index-builder")

	return b, nil
}

// Release frees the worker pool. The builder must not be used afterwards.
func (b *Builder) Release() {
	if b.pool != nil {
		b.pool.Release()
	}
}

// Build splits, embeds and stores docs as the index at path. The artifact
// is written beside path and swapped in only once complete, so a failed
// build leaves any previous index untouched.
func (b *Builder) Build(ctx context.Context, path string, docs []Document) (*core.IndexManifest, error) {
	chunks, docCount, err := b.split(docs)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrNoDocuments
	}

	fmt.Fprintf(b.progress, "Indexing %d passages from %d documents (batch size: %d)\n",
		len(chunks), docCount, b.batchSize)

	tracker := NewProgressTracker(b.progress, len(chunks), b.batchSize)
	tracker.Start()
	if err := b.embed(ctx, chunks, tracker); err != nil {
		return nil, err
	}
	tracker.Finish()

	dims := len(chunks[0].Vector)
	for _, chunk := range chunks {
		if len(chunk.Vector) != dims {
			return nil, fmt.Errorf("%w: got %d and %d", ErrDimensionMismatch, dims, len(chunk.Vector))
		}
	}

	manifest := &core.IndexManifest{
		EmbeddingModel: b.embeddingModel,
		Dimensions:     dims,
		ChunkCount:     len(chunks),
		DocumentCount:  docCount,
		BuiltAt:        time.Now().UTC(),
	}

	staging := path + buildingSuffix
	if err := b.write(ctx, staging, chunks, manifest); err != nil {
		os.RemoveAll(staging)
		return nil, err
	}
	if err := swap(staging, path); err != nil {
		return nil, err
	}

	b.logger.Info("index built",
		"path", path,
		"documents", docCount,
		"chunks", manifest.ChunkCount,
		"dimensions", dims,
		"elapsed", tracker.Elapsed())
	return manifest, nil
}

func (b *Builder) split(docs []Document) ([]*core.Chunk, int, error) {
	if len(docs) == 0 {
		return nil, 0, ErrNoDocuments
	}

	var chunks []*core.Chunk
	seen := make(map[core.ID]struct{})
	docCount := 0
	for _, doc := range docs {
		passages, err := b.splitter.SplitText(doc.Text)
		if err != nil {
			return nil, 0, fmt.Errorf("split %s: %w", doc.URL, err)
		}

		added := 0
		for _, passage := range passages {
			passage = strings.TrimSpace(passage)
			if passage == "" {
				continue
			}
			added++

			// Repeated passages share a storage key
			id := core.IDFromContent(doc.URL + "\n" + passage)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			chunks = append(chunks, &core.Chunk{
				Id:    id,
				Text:  passage,
				Title: doc.Title,
				URL:   doc.URL,
			})
		}
		if added > 0 {
			docCount++
		} else {
			b.logger.Warn("document has no text", "url", doc.URL, "title", doc.Title)
		}
	}
	return chunks, docCount, nil
}

// embed fills in chunk vectors, one pool task per batch.
func (b *Builder) embed(ctx context.Context, chunks []*core.Chunk, tracker *ProgressTracker) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for start := 0; start < len(chunks); start += b.batchSize {
		batch := chunks[start:min(start+b.batchSize, len(chunks))]

		wg.Add(1)
		err := b.pool.Submit(func() {
			defer wg.Done()
			if err := b.embedBatch(ctx, batch); err != nil {
				fail(err)
				return
			}
			tracker.Increment(len(batch))
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("submit embedding batch: %w", err))
			break
		}
	}
	wg.Wait()

	return firstErr
}

func (b *Builder) embedBatch(ctx context.Context, batch []*core.Chunk) error {
	texts := make([]string, len(batch))
	for i, chunk := range batch {
		texts[i] = chunk.Text
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = b.embedder.EmbedTexts(ctx, texts)
		return err
	}, b.maxAttempts, b.retryDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", b.maxAttempts, err)
	}

	if len(embeddings) != len(batch) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(embeddings))
	}

	for i := range batch {
		batch[i].Vector = NormalizeVector(embeddings[i])
	}
	return nil
}

func (b *Builder) write(ctx context.Context, dir string, chunks []*core.Chunk, manifest *core.IndexManifest) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clear staging directory: %w", err)
	}

	backend, err := badger.OpenBackend(dir, false)
	if err != nil {
		return err
	}

	repo := badger.NewChunkRepository(backend)
	if err := repo.AddChunks(ctx, chunks...); err != nil {
		backend.Close()
		return fmt.Errorf("store chunks: %w", err)
	}

	stored, err := repo.CountChunks(ctx)
	if err != nil {
		backend.Close()
		return err
	}
	manifest.ChunkCount = stored

	if err := repo.SaveManifest(ctx, manifest); err != nil {
		backend.Close()
		return fmt.Errorf("store manifest: %w", err)
	}
	return backend.Close()
}

// swap moves staging into place at path, retiring any existing index.
func swap(staging, path string) error {
	retired := path + retiredSuffix
	if err := os.RemoveAll(retired); err != nil {
		return err
	}

	hadPrevious := true
	if err := os.Rename(path, retired); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("retire previous index: %w", err)
		}
		hadPrevious = false
	}

	if err := os.Rename(staging, path); err != nil {
		if hadPrevious {
			os.Rename(retired, path)
		}
		return fmt.Errorf("install index: %w", err)
	}

	if hadPrevious {
		return os.RemoveAll(retired)
	}
	return nil
}
