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
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/concierge/storage"
)

const (
	// maxConflictRetries bounds how often Update re-runs a transaction that
	// lost a write conflict.
	maxConflictRetries = 64
	conflictBackoff    = 2 * time.Millisecond
)

// Backend wraps a BadgerDB instance and provides low-level operations.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBackend opens a BadgerDB database at the specified path.
// Creates the directory if it doesn't exist.
func OpenBackend(filePath string, inMemory bool) (*Backend, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := ensureDir(filePath); err != nil {
			return nil, err
		}
		opts = badger.DefaultOptions(filePath)
	}

	return open(opts)
}

// OpenReadOnlyBackend opens an existing database without taking the write
// lock. Several read-only handles may share one directory.
// Returns storage.ErrNotFound if the directory does not exist.
func OpenReadOnlyBackend(filePath string) (*Backend, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, filePath)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotDirectory, filePath)
	}

	return open(badger.DefaultOptions(filePath).WithReadOnly(true))
}

func open(opts badger.Options) (*Backend, error) {
	logger := slog.Default().With("component", "badger")
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Backend{
		db:     db,
		logger: logger,
	}, nil
}

func ensureDir(filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if err := os.MkdirAll(filePath, 0755); err != nil {
			return err
		}
		info, err = os.Stat(filePath)
		if err != nil {
			return err
		}
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", storage.ErrNotDirectory, filePath)
	}
	return nil
}

// Close closes the BadgerDB database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction; fn is then
// responsible for calling Commit.
// The transaction is automatically discarded when fn returns.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// Update runs fn in a read-write transaction and commits it. If the commit
// fails because a concurrent transaction wrote a key that fn read, fn is run
// again against a fresh snapshot. fn must therefore derive every write from
// what it reads inside tx.
func (b *Backend) Update(ctx context.Context, fn func(tx *badger.Txn) error) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := b.WithTx(func(tx *badger.Txn) error {
			if err := fn(tx); err != nil {
				return err
			}
			return tx.Commit()
		}, true)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		if attempt >= maxConflictRetries {
			return fmt.Errorf("%w: %w after %d attempts", storage.ErrTransactionFailed, err, attempt)
		}

		b.logger.Debug("transaction conflict, retrying", "attempt", attempt)
		timer := time.NewTimer(rand.N(conflictBackoff) + time.Duration(attempt)*time.Microsecond*50)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
