package commons

import (
	"github.com/google/uuid"
)

// Message represents the message sent over the wire.
type Message struct {
	Username string `json:"username"`

	// Text represents the body of the message. This is used for joining
	// messages, the list of active users, and error reasons.
	Text string `json:"text,omitempty"`

	// Type represents the message type.
	Type MessageType `json:"type"`

	// ID represents the client's UUID.
	ID uuid.UUID `json:"ID"`

	// Version is the base version of a delta sent by a client, and the version
	// reached by a delta, ack or snapshot sent by the server.
	Version int `json:"version"`

	// Operation represents the document operation of a delta.
	Operation Operation `json:"operation,omitempty"`

	// Document is the XML rendering of the document in a snapshot. Snapshots
	// are only sent on join and on resync, due to the large size of documents.
	Document string `json:"document,omitempty"`

	// Hash is the hex hash-chain value of the delta at Version.
	Hash string `json:"hash,omitempty"`
}

// MessageType represents the type of the message.
type MessageType string

// Currently, wavepad supports 6 message types:
// - join (for joining messages)
// - users (for the list of active users)
// - snapshot (the whole document at a version, on join and after an error; clients send an empty one to ask for it)
// - delta (an operation, from a client against its base version or from the server once applied)
// - ack (sent to the author once its delta is applied)
// - error (a rejected delta; a snapshot follows)

const (
	JoinMessage     MessageType = "join"
	UsersMessage    MessageType = "users"
	SnapshotMessage MessageType = "snapshot"
	DeltaMessage    MessageType = "delta"
	AckMessage      MessageType = "ack"
	ErrorMessage    MessageType = "error"
)
