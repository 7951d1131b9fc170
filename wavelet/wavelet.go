// Package wavelet keeps versioned documents in sync: Wavelet is the server's
// authoritative copy with its delta history, Channel is a client's view of it.
package wavelet

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/burntcarrot/wavepad/commons"
	"github.com/burntcarrot/wavepad/docop"
	"github.com/burntcarrot/wavepad/schema"
	"github.com/burntcarrot/wavepad/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrFutureVersion is returned for a delta based on a version the wavelet has not reached.
	ErrFutureVersion = errors.New("base version is in the future")

	// ErrVersionTooOld is returned for a delta based on a version older than the retained history.
	ErrVersionTooOld = errors.New("base version is no longer in history")

	// ErrCorruptHistory is returned when stored deltas do not form a hash chain.
	ErrCorruptHistory = errors.New("corrupt delta history")
)

// AppliedDelta is an operation as the wavelet applied it. Version is the
// version it produced.
type AppliedDelta struct {
	ID        uuid.UUID
	Author    string
	Version   int
	Op        docop.DocOp
	Hash      string
	Timestamp time.Time
}

// Receipt describes an accepted submission.
type Receipt struct {
	Delta AppliedDelta

	// Concurrent is the number of deltas the operation was transformed
	// against before it applied.
	Concurrent int
}

// Wavelet is a document with its version and recent history. Submissions are
// serialized; reads are safe from any goroutine.
type Wavelet struct {
	mu      sync.Mutex
	id      string
	doc     *docop.Document
	version int
	hash    string
	history []AppliedDelta

	schema schema.DocumentSchema
	store  store.DeltaStore
	limit  int
	logger logrus.FieldLogger
	now    func() time.Time
}

type Option func(*Wavelet)

// WithSchema validates every submission against s.
func WithSchema(s schema.DocumentSchema) Option {
	return func(w *Wavelet) { w.schema = s }
}

// WithStore persists every applied delta to s.
func WithStore(s store.DeltaStore) Option {
	return func(w *Wavelet) { w.store = s }
}

// WithHistoryLimit keeps only the last n deltas in memory; submissions based
// on older versions are rejected. Zero keeps everything.
func WithHistoryLimit(n int) Option {
	return func(w *Wavelet) { w.limit = n }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(w *Wavelet) { w.logger = l }
}

// New returns an empty wavelet at version 0.
func New(id string, opts ...Option) *Wavelet {
	w := &Wavelet{
		id:     id,
		doc:    docop.NewDocument(),
		schema: schema.NoSchema{},
		logger: logrus.StandardLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.WithField("wavelet", id)
	return w
}

// Load rebuilds a wavelet by replaying its stored deltas. A wavelet the
// store has never seen starts empty. The store is also used for the deltas
// submitted from now on.
func Load(ctx context.Context, st store.DeltaStore, id string, opts ...Option) (*Wavelet, error) {
	w := New(id, append(opts, WithStore(st))...)

	err := Replay(ctx, st, id, func(d AppliedDelta, doc *docop.Document) error {
		w.record(doc, d)
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return w, nil
	}
	if err != nil {
		return nil, err
	}

	w.logger.WithField("version", w.version).Info("wavelet loaded")
	return w, nil
}

// Replay applies the stored deltas of a wavelet in order, checking their hash
// chain, and calls visit with each delta and the document it produced.
func Replay(ctx context.Context, st store.DeltaStore, id string, visit func(AppliedDelta, *docop.Document) error) error {
	deltas, err := st.Deltas(ctx, id, 0)
	if err != nil {
		return fmt.Errorf("load %s: %w", id, err)
	}

	doc, version, prev := docop.NewDocument(), 0, ""
	for _, d := range deltas {
		if d.Version != version+1 {
			return fmt.Errorf("%w: %s has delta %d after version %d", ErrCorruptHistory, id, d.Version, version)
		}
		op, err := d.Operation.DocOp()
		if err != nil {
			return fmt.Errorf("load %s version %d: %w", id, d.Version, err)
		}
		hash, err := chainHash(prev, d.Version, d.Author, op)
		if err != nil {
			return err
		}
		if hash != d.Hash {
			return fmt.Errorf("%w: %s version %d has hash %s, want %s", ErrCorruptHistory, id, d.Version, d.Hash, hash)
		}
		if doc, err = doc.Apply(op); err != nil {
			return fmt.Errorf("load %s version %d: %w", id, d.Version, err)
		}
		err = visit(AppliedDelta{
			ID:        d.ID,
			Author:    d.Author,
			Version:   d.Version,
			Op:        op,
			Hash:      d.Hash,
			Timestamp: d.Timestamp,
		}, doc)
		if err != nil {
			return err
		}
		version, prev = d.Version, d.Hash
	}
	return nil
}

func (w *Wavelet) ID() string {
	return w.id
}

// Snapshot returns the current document, its version and the hash of the
// last delta.
func (w *Wavelet) Snapshot() (*docop.Document, int, string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doc, w.version, w.hash
}

func (w *Wavelet) Version() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.version
}

// DeltasSince returns the retained deltas after version base.
func (w *Wavelet) DeltasSince(base int) ([]AppliedDelta, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	concurrent, err := w.since(base)
	if err != nil {
		return nil, err
	}
	return append([]AppliedDelta(nil), concurrent...), nil
}

func (w *Wavelet) since(base int) ([]AppliedDelta, error) {
	if base > w.version {
		return nil, fmt.Errorf("%w: %d, wavelet is at %d", ErrFutureVersion, base, w.version)
	}
	oldest := w.version - len(w.history)
	if base < oldest {
		return nil, fmt.Errorf("%w: %d, oldest retained is %d", ErrVersionTooOld, base, oldest)
	}
	return w.history[base-oldest:], nil
}

// Submit applies op, written by author against version base. The operation
// is first transformed against every delta applied since base, then
// validated, persisted and applied. On error the wavelet is unchanged.
func (w *Wavelet) Submit(ctx context.Context, author string, base int, op docop.DocOp) (Receipt, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	concurrent, err := w.since(base)
	if err != nil {
		return Receipt{}, err
	}
	for _, d := range concurrent {
		op, _, err = docop.Transform(op, d.Op)
		if err != nil {
			return Receipt{}, fmt.Errorf("transform against version %d: %w", d.Version, err)
		}
	}

	doc, err := schema.Apply(w.schema, w.doc, op)
	if err != nil {
		return Receipt{}, err
	}

	version := w.version + 1
	hash, err := chainHash(w.hash, version, author, op)
	if err != nil {
		return Receipt{}, err
	}
	delta := AppliedDelta{
		ID:        uuid.New(),
		Author:    author,
		Version:   version,
		Op:        op,
		Hash:      hash,
		Timestamp: w.now(),
	}

	if w.store != nil {
		err := w.store.Append(ctx, w.id, store.Delta{
			ID:        delta.ID,
			Author:    delta.Author,
			Version:   delta.Version,
			Operation: commons.FromDocOp(op),
			Hash:      delta.Hash,
			Timestamp: delta.Timestamp,
		})
		if err != nil {
			return Receipt{}, fmt.Errorf("persist version %d: %w", version, err)
		}
	}

	w.record(doc, delta)
	w.logger.WithFields(logrus.Fields{
		"author":     author,
		"version":    version,
		"concurrent": len(concurrent),
	}).Debug("delta applied")

	return Receipt{Delta: delta, Concurrent: len(concurrent)}, nil
}

func (w *Wavelet) record(doc *docop.Document, d AppliedDelta) {
	w.doc = doc
	w.version = d.Version
	w.hash = d.Hash
	w.history = append(w.history, d)
	if w.limit > 0 && len(w.history) > w.limit {
		w.history = append([]AppliedDelta(nil), w.history[len(w.history)-w.limit:]...)
	}
}

// chainHash links a delta to the one before it:
// sha256(previous hash, version, author, encoded operation).
func chainHash(prev string, version int, author string, op docop.DocOp) (string, error) {
	encoded, err := commons.EncodeOp(op)
	if err != nil {
		return "", fmt.Errorf("encode version %d: %w", version, err)
	}
	h := sha256.New()
	h.Write([]byte(prev))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(version)))
	h.Write([]byte{0})
	h.Write([]byte(author))
	h.Write([]byte{0})
	h.Write(encoded)
	return hex.EncodeToString(h.Sum(nil)), nil
}
