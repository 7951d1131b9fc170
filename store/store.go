// Package store persists the delta history of wavelets.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/burntcarrot/wavepad/commons"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned for a wavelet with no stored deltas.
	ErrNotFound = errors.New("wavelet not found")

	// ErrVersionConflict is returned when an appended delta does not directly
	// follow the stored history.
	ErrVersionConflict = errors.New("version conflict")

	// ErrInvalidWavelet is returned for wavelet ids that cannot be stored.
	ErrInvalidWavelet = errors.New("invalid wavelet id")
)

// Delta is one applied operation. Version is the wavelet version the
// delta produced; the first delta of a wavelet has version 1.
type Delta struct {
	ID        uuid.UUID         `json:"id"`
	Author    string            `json:"author"`
	Version   int               `json:"version"`
	Operation commons.Operation `json:"operation"`
	Hash      string            `json:"hash"`
	Timestamp time.Time         `json:"timestamp"`
}

// DeltaStore is an append-only, version-ordered log of deltas per wavelet.
// Implementations are safe for concurrent use.
type DeltaStore interface {
	// Append stores d, which must have the version following the last stored one.
	Append(ctx context.Context, wavelet string, d Delta) error

	// Deltas returns the deltas with a version greater than from, in order.
	Deltas(ctx context.Context, wavelet string, from int) ([]Delta, error)

	// Wavelets lists the ids of every stored wavelet, sorted.
	Wavelets(ctx context.Context) ([]string, error)

	Close() error
}

// CheckWaveletID rejects ids that are empty or contain a slash.
func CheckWaveletID(id string) error {
	if id == "" || strings.ContainsAny(id, "/\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidWavelet, id)
	}
	return nil
}
