package wordsim

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// Key layout:
//
//	p\x00<first>\x00<second> -> msgpack(float64)
//	w\x00<first>             -> msgpack(int), number of pairs for the word
var (
	pairPrefix = []byte("p\x00")
	wordPrefix = []byte("w\x00")
)

// BadgerOptions configures a BadgerTable.
type BadgerOptions struct {
	// Dir is the Badger directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps the table in memory only.
	InMemory bool

	// Logger receives Badger's warnings and errors. Nil discards them.
	Logger *slog.Logger
}

// BadgerTable is a similarity table stored in Badger with msgpack values.
// It serves the same lookups as SQLiteTable from an embedded key-value store.
type BadgerTable struct {
	mu     sync.RWMutex
	db     *badger.DB
	closed bool
}

// OpenBadger opens or creates a Badger-backed table.
func OpenBadger(opts BadgerOptions) (*BadgerTable, error) {
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{logger: opts.Logger})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger word table: %w", err)
	}
	return &BadgerTable{db: db}, nil
}

func pairKey(first, second string) []byte {
	k := make([]byte, 0, len(pairPrefix)+len(first)+1+len(second))
	k = append(k, pairPrefix...)
	k = append(k, first...)
	k = append(k, 0)
	return append(k, second...)
}

func wordKey(stem string) []byte {
	return append(append([]byte(nil), wordPrefix...), stem...)
}

// Similarity implements Table.
func (t *BadgerTable) Similarity(ctx context.Context, first, second string) (float64, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return 0, false, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	var score float64
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pairKey(first, second))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return msgpack.Unmarshal(val, &score)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read pair %s/%s: %w", first, second, err)
	}
	return score, true, nil
}

// Contains implements Table.
func (t *BadgerTable) Contains(ctx context.Context, stem string) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return false, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	err := t.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(wordKey(stem))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read word %s: %w", stem, err)
	}
	return true, nil
}

// Words implements Table.
func (t *BadgerTable) Words(ctx context.Context) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return nil, ErrClosed
	}

	var words []string
	err := t.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = wordPrefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(wordPrefix); it.ValidForPrefix(wordPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := it.Item().KeyCopy(nil)
			words = append(words, string(key[len(wordPrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list words: %w", err)
	}
	return words, nil
}

// Pairs implements PairSource. Rows come back in key order.
func (t *BadgerTable) Pairs(ctx context.Context, fn func(Pair) error) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return ErrClosed
	}

	return t.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = pairPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(pairPrefix); it.ValidForPrefix(pairPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			key := item.KeyCopy(nil)
			first, second, ok := bytes.Cut(key[len(pairPrefix):], []byte{0})
			if !ok {
				return fmt.Errorf("malformed pair key %q", key)
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			p := Pair{First: string(first), Second: string(second)}
			if err := msgpack.Unmarshal(val, &p.Similarity); err != nil {
				return fmt.Errorf("failed to decode pair %q: %w", key, err)
			}
			if err := fn(p); err != nil {
				return err
			}
		}
		return nil
	})
}

// Write stores pairs in one batch and records every first term as a word.
func (t *BadgerTable) Write(ctx context.Context, pairs []Pair) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return ErrClosed
	}

	counts := make(map[string]int)
	wb := t.db.NewWriteBatch()
	defer wb.Cancel()

	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return err
		}
		val, err := msgpack.Marshal(p.Similarity)
		if err != nil {
			return fmt.Errorf("failed to encode pair %s/%s: %w", p.First, p.Second, err)
		}
		if err := wb.Set(pairKey(p.First, p.Second), val); err != nil {
			return fmt.Errorf("failed to write pair %s/%s: %w", p.First, p.Second, err)
		}
		counts[p.First]++
	}

	for word, n := range counts {
		prev, err := t.wordCount(word)
		if err != nil {
			return err
		}
		val, err := msgpack.Marshal(prev + n)
		if err != nil {
			return fmt.Errorf("failed to encode word %s: %w", word, err)
		}
		if err := wb.Set(wordKey(word), val); err != nil {
			return fmt.Errorf("failed to write word %s: %w", word, err)
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("failed to flush word table: %w", err)
	}
	return nil
}

func (t *BadgerTable) wordCount(word string) (int, error) {
	var n int
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(wordKey(word))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return msgpack.Unmarshal(val, &n)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read word %s: %w", word, err)
	}
	return n, nil
}

// Close implements Table.
func (t *BadgerTable) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.db.Close()
}

// badgerLogger routes Badger's internal logging to slog, dropping info and debug chatter.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(f string, v ...interface{}) {
	if l.logger != nil {
		l.logger.Error(fmt.Sprintf("badger: "+f, v...))
	}
}

func (l badgerLogger) Warningf(f string, v ...interface{}) {
	if l.logger != nil {
		l.logger.Warn(fmt.Sprintf("badger: "+f, v...))
	}
}

func (badgerLogger) Infof(string, ...interface{})  {}
func (badgerLogger) Debugf(string, ...interface{}) {}
