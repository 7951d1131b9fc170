package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/burntcarrot/wavepad/commons"
	"github.com/burntcarrot/wavepad/docop"
	"github.com/burntcarrot/wavepad/schema"
	"github.com/burntcarrot/wavepad/store"
	"github.com/burntcarrot/wavepad/wavelet"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// sendBuffer is the number of messages queued per client before the
	// client is dropped as too slow.
	sendBuffer = 256

	writeTimeout = 10 * time.Second

	// serverAuthor signs the deltas that initialize new documents.
	serverAuthor = "wavepad"
)

// Hub serves documents to websocket clients. Each document is a wavelet
// shared by every client connected with the same ?doc= id.
type Hub struct {
	store   store.DeltaStore
	schema  schema.DocumentSchema
	initial *docop.Document
	limit   int
	logger  *logrus.Logger

	upgrader websocket.Upgrader

	mu   sync.Mutex
	docs map[string]*document
}

// document is an open wavelet and the clients editing it. mu orders
// submissions with the messages they cause, so every client sees versions
// in sequence.
type document struct {
	mu      sync.Mutex
	wavelet *wavelet.Wavelet
	clients map[uuid.UUID]*client
}

type client struct {
	id       uuid.UUID
	username string
	conn     *websocket.Conn
	send     chan commons.Message
}

func NewHub(st store.DeltaStore, s schema.DocumentSchema, initial *docop.Document, historyLimit int, logger *logrus.Logger) *Hub {
	return &Hub{
		store:   st,
		schema:  s,
		initial: initial,
		limit:   historyLimit,
		logger:  logger,
		docs:    make(map[string]*document),
	}
}

// open returns the document with the given id, loading it from the store
// or creating it from the initial content.
func (h *Hub) open(ctx context.Context, id string) (*document, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if d, ok := h.docs[id]; ok {
		return d, nil
	}

	w, err := wavelet.Load(ctx, h.store, id,
		wavelet.WithSchema(h.schema),
		wavelet.WithHistoryLimit(h.limit),
		wavelet.WithLogger(h.logger))
	if err != nil {
		return nil, err
	}
	if w.Version() == 0 && h.initial.Length() > 0 {
		if _, err := w.Submit(ctx, serverAuthor, 0, h.initial.AsInitialization()); err != nil {
			return nil, fmt.Errorf("initialize %s: %w", id, err)
		}
	}

	d := &document{wavelet: w, clients: make(map[uuid.UUID]*client)}
	h.docs[id] = d
	openDocuments.Inc()
	return d, nil
}

// ServeHTTP upgrades the connection to a WebSocket and serves the document
// named by the doc query parameter.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("doc")
	if id == "" {
		id = "default"
	}
	if err := store.CheckWaveletID(id); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := h.open(r.Context(), id)
	if err != nil {
		h.logger.WithError(err).WithField("doc", id).Error("open document")
		http.Error(w, "cannot open document", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("upgrade connection to websocket")
		return
	}

	c := &client{
		id:   uuid.New(),
		conn: conn,
		send: make(chan commons.Message, sendBuffer),
	}
	log := h.logger.WithFields(logrus.Fields{"doc": id, "client": c.id})

	go c.write(log)
	doc.join(c)
	connectedClients.Inc()
	log.Info("client connected")

	defer func() {
		doc.leave(c)
		connectedClients.Dec()
		conn.Close()
		log.Info("client disconnected")
	}()

	for {
		var msg commons.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case commons.JoinMessage:
			doc.rename(c, msg.Username)
			log.WithField("username", msg.Username).Info("client joined")
		case commons.DeltaMessage:
			h.submit(doc, c, msg, log)
		case commons.SnapshotMessage:
			doc.resync(c)
			log.Info("client resynchronizing")
		default:
			log.WithField("type", msg.Type).Warn("unexpected message type")
		}
	}
}

// submit applies a client's delta. The author gets an ack, every other
// client the transformed delta. A rejected delta gets the author an error
// followed by a snapshot to resynchronize from.
func (h *Hub) submit(doc *document, c *client, msg commons.Message, log logrus.FieldLogger) {
	doc.mu.Lock()
	defer doc.mu.Unlock()

	op, err := msg.Operation.DocOp()
	var rec wavelet.Receipt
	if err == nil {
		rec, err = doc.wavelet.Submit(context.Background(), c.author(), msg.Version, op)
	}
	if err != nil {
		result := "failed"
		if rejected(err) {
			result = "rejected"
		}
		deltasTotal.WithLabelValues(result).Inc()
		log.WithError(err).WithField("base", msg.Version).Warn("delta " + result)

		c.trySend(commons.Message{Type: commons.ErrorMessage, ID: c.id, Text: err.Error()})
		c.trySend(doc.snapshotLocked(c))
		return
	}

	deltasTotal.WithLabelValues("applied").Inc()
	transformDepth.Observe(float64(rec.Concurrent))

	c.trySend(commons.Message{
		Type:    commons.AckMessage,
		ID:      c.id,
		Version: rec.Delta.Version,
		Hash:    rec.Delta.Hash,
	})
	delta := commons.Message{
		Type:      commons.DeltaMessage,
		Username:  c.author(),
		ID:        c.id,
		Version:   rec.Delta.Version,
		Operation: commons.FromDocOp(rec.Delta.Op),
		Hash:      rec.Delta.Hash,
	}
	for id, other := range doc.clients {
		if id != c.id {
			other.trySend(delta)
		}
	}
}

// rejected reports whether err blames the submitted delta rather than the
// server.
func rejected(err error) bool {
	for _, target := range []error{
		docop.ErrMalformedOperation,
		docop.ErrInapplicableOperation,
		docop.ErrTransformConflict,
		schema.ErrSchemaViolation,
		wavelet.ErrFutureVersion,
		wavelet.ErrVersionTooOld,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, d := range h.docs {
		d.mu.Lock()
		for _, c := range d.clients {
			c.conn.Close()
		}
		d.mu.Unlock()
	}
}

func (d *document) join(c *client) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.clients[c.id] = c
	c.trySend(d.snapshotLocked(c))
}

// resync sends c the current snapshot. Clients ask for one when they fall
// out of step with the versions they receive.
func (d *document) resync(c *client) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c.trySend(d.snapshotLocked(c))
}

func (d *document) leave(c *client) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.clients[c.id]; !ok {
		return
	}
	delete(d.clients, c.id)
	close(c.send)
	d.broadcastUsersLocked()
}

func (d *document) rename(c *client, username string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c.username = username
	d.broadcastUsersLocked()
}

func (d *document) snapshotLocked(c *client) commons.Message {
	doc, version, hash := d.wavelet.Snapshot()
	return commons.Message{
		Type:     commons.SnapshotMessage,
		ID:       c.id,
		Version:  version,
		Document: doc.XML(),
		Hash:     hash,
	}
}

// broadcastUsersLocked sends the sorted, comma separated names of the
// joined clients to everyone.
func (d *document) broadcastUsersLocked() {
	var names []string
	for _, c := range d.clients {
		if c.username != "" {
			names = append(names, c.username)
		}
	}
	sort.Strings(names)

	msg := commons.Message{Type: commons.UsersMessage, Text: strings.Join(names, ",")}
	for _, c := range d.clients {
		c.trySend(msg)
	}
}

func (c *client) author() string {
	if c.username != "" {
		return c.username
	}
	return c.id.String()
}

// trySend queues msg without blocking. A client whose queue is full is
// disconnected; its read loop then removes it.
func (c *client) trySend(msg commons.Message) {
	select {
	case c.send <- msg:
	default:
		c.conn.Close()
	}
}

// write sends queued messages until the queue is closed or a write fails.
func (c *client) write(log logrus.FieldLogger) {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			log.WithError(err).Debug("write to client")
			c.conn.Close()
			return
		}
	}
}
