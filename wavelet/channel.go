package wavelet

import (
	"errors"
	"fmt"
	"sync"

	"github.com/burntcarrot/wavepad/docop"
)

// ErrOutOfOrder is returned when the server's versions skip or repeat; the
// client has to resynchronize.
var ErrOutOfOrder = errors.New("server version out of order")

// Channel is a client's side of a wavelet. It applies local edits at once,
// keeps at most one operation in flight to the server, and folds the edits
// made meanwhile into a single pending operation. Remote operations are
// transformed against both before they apply locally.
type Channel struct {
	mu       sync.Mutex
	doc      *docop.Document
	version  int
	inflight *docop.DocOp
	pending  *docop.DocOp
}

// NewChannel starts from a snapshot of the server's document at version.
func NewChannel(doc *docop.Document, version int) *Channel {
	return &Channel{doc: doc, version: version}
}

// Reset replaces the local state with a fresh snapshot, dropping every
// unacknowledged edit.
func (c *Channel) Reset(doc *docop.Document, version int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc, c.version = doc, version
	c.inflight, c.pending = nil, nil
}

func (c *Channel) Document() *docop.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc
}

// Version is the last server version the channel has seen.
func (c *Channel) Version() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Synced reports whether every local edit has been acknowledged.
func (c *Channel) Synced() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight == nil && c.pending == nil
}

// Local applies op to the local document and queues it for the server.
func (c *Channel) Local(op docop.DocOp) (*docop.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, err := c.doc.Apply(op)
	if err != nil {
		return nil, err
	}
	if c.pending != nil {
		composed, err := docop.Compose(*c.pending, op)
		if err != nil {
			return nil, fmt.Errorf("queue local edit: %w", err)
		}
		op = composed
	}
	c.doc = doc
	c.pending = &op
	return doc, nil
}

// Flush returns the next operation to send and the version it is based on.
// It returns false while an operation is in flight or nothing is pending.
func (c *Channel) Flush() (docop.DocOp, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight != nil || c.pending == nil {
		return docop.DocOp{}, 0, false
	}
	c.inflight, c.pending = c.pending, nil
	return *c.inflight, c.version, true
}

// Ack marks the in-flight operation as applied by the server at version.
func (c *Channel) Ack(version int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight == nil {
		return fmt.Errorf("%w: ack for version %d with nothing in flight", ErrOutOfOrder, version)
	}
	if version != c.version+1 {
		return fmt.Errorf("%w: ack for version %d at version %d", ErrOutOfOrder, version, c.version)
	}
	c.inflight = nil
	c.version = version
	return nil
}

// Remote takes an operation another client made, as the server applied it
// at version, and returns the form of it that applies to the local document.
// The local document is updated.
func (c *Channel) Remote(op docop.DocOp, version int) (docop.DocOp, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if version != c.version+1 {
		return docop.DocOp{}, fmt.Errorf("%w: delta for version %d at version %d", ErrOutOfOrder, version, c.version)
	}

	inflight, pending := c.inflight, c.pending
	if inflight != nil {
		ci, so, err := docop.Transform(*inflight, op)
		if err != nil {
			return docop.DocOp{}, err
		}
		inflight, op = &ci, so
	}
	if pending != nil {
		cp, so, err := docop.Transform(*pending, op)
		if err != nil {
			return docop.DocOp{}, err
		}
		pending, op = &cp, so
	}

	doc, err := c.doc.Apply(op)
	if err != nil {
		return docop.DocOp{}, err
	}
	c.doc = doc
	c.version = version
	c.inflight, c.pending = inflight, pending
	return op, nil
}
