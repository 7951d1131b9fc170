package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

// Config holds configuration for a BadgerStore.
type Config struct {
	// Path is the directory for the database files. Ignored when InMemory
	// is true.
	Path string

	// InMemory keeps everything in memory. Useful for testing.
	InMemory bool

	// SyncWrites makes every append durable before it returns.
	SyncWrites bool

	// Logger receives badger's internal logging. If nil, it is discarded.
	Logger logrus.FieldLogger

	// GCInterval is how often to run value log garbage collection. Zero
	// disables it.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum ratio of discardable data before GC.
	GCDiscardRatio float64
}

// DefaultConfig returns the configuration for a persistent store at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns the configuration for a throwaway store.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// BadgerStore keeps deltas in BadgerDB. A delta lives under
// delta/<wavelet>/<version, zero padded> as JSON, and the last version of each
// wavelet under head/<wavelet>.
type BadgerStore struct {
	db     *badger.DB
	logger logrus.FieldLogger
	stop   chan struct{}
	done   chan struct{}
}

// OpenBadger opens the database described by cfg, creating its directory if
// needed.
func OpenBadger(cfg Config) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for a persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(cfg.Logger.WithField("component", "badger"))
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}

	s := &BadgerStore{db: db, logger: cfg.Logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.stop = make(chan struct{})
		s.done = make(chan struct{})
		go s.gc(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return s, nil
}

func deltaPrefix(wavelet string) []byte {
	return []byte("delta/" + wavelet + "/")
}

func deltaKey(wavelet string, version int) []byte {
	return []byte(fmt.Sprintf("delta/%s/%020d", wavelet, version))
}

func headKey(wavelet string) []byte {
	return []byte("head/" + wavelet)
}

func readHead(txn *badger.Txn, wavelet string) (int, bool, error) {
	item, err := txn.Get(headKey(wavelet))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	var head int
	err = item.Value(func(val []byte) error {
		head, err = strconv.Atoi(string(val))
		return err
	})
	return head, true, err
}

func (s *BadgerStore) Append(ctx context.Context, wavelet string, d Delta) error {
	if err := CheckWaveletID(wavelet); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode delta: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		head, _, err := readHead(txn, wavelet)
		if err != nil {
			return fmt.Errorf("read head of %s: %w", wavelet, err)
		}
		if d.Version != head+1 {
			return fmt.Errorf("%w: %s is at version %d, got delta %d", ErrVersionConflict, wavelet, head, d.Version)
		}
		if err := txn.Set(deltaKey(wavelet, d.Version), data); err != nil {
			return err
		}
		return txn.Set(headKey(wavelet), []byte(strconv.Itoa(d.Version)))
	})
}

func (s *BadgerStore) Deltas(ctx context.Context, wavelet string, from int) ([]Delta, error) {
	if err := CheckWaveletID(wavelet); err != nil {
		return nil, err
	}
	if from < 0 {
		from = 0
	}

	var deltas []Delta
	err := s.db.View(func(txn *badger.Txn) error {
		if _, ok, err := readHead(txn, wavelet); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, wavelet)
		}

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := deltaPrefix(wavelet)
		for it.Seek(deltaKey(wavelet, from+1)); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var d Delta
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &d)
			})
			if err != nil {
				return fmt.Errorf("decode delta %s: %w", it.Item().Key(), err)
			}
			deltas = append(deltas, d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deltas, nil
}

func (s *BadgerStore) Wavelets(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte("head/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	return ids, err
}

// Close stops garbage collection and closes the database.
func (s *BadgerStore) Close() error {
	if s.stop != nil {
		close(s.stop)
		<-s.done
	}
	return s.db.Close()
}

func (s *BadgerStore) gc(interval time.Duration, ratio float64) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			// ErrNoRewrite only means there was nothing to collect.
			if err := s.db.RunValueLogGC(ratio); err != nil && !errors.Is(err, badger.ErrNoRewrite) && s.logger != nil {
				s.logger.WithError(err).Warn("value log GC failed")
			}
		}
	}
}
