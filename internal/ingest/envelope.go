// Package ingest decodes payload envelopes and applies spooled payload files
// through the reconciliation engine.
package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/wesm/foldercache/internal/reconcile"
)

// ErrInvalidEnvelope marks payloads that cannot be decoded.
var ErrInvalidEnvelope = errors.New("invalid envelope")

// DefaultMaxEnvelopeBytes caps a single payload.
const DefaultMaxEnvelopeBytes int64 = 32 << 20 // 32 MiB

// Envelope is one payload: a reconciliation request plus the options
// describing why its messages arrived.
type Envelope struct {
	reconcile.Request
	Options reconcile.Options `json:"options"`
}

// Empty reports whether the envelope carries nothing to reconcile.
func (e *Envelope) Empty() bool {
	return len(e.Chats) == 0 && len(e.Messages) == 0 && e.Update == nil && len(e.Updates) == 0
}

// Decode reads one envelope from r, reading at most maxBytes (or
// DefaultMaxEnvelopeBytes when maxBytes <= 0).
func Decode(r io.Reader, maxBytes int64) (*Envelope, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxEnvelopeBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read envelope: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrInvalidEnvelope, maxBytes)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidEnvelope)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return &env, nil
}

// DecodeFile reads one envelope from the file at path.
func DecodeFile(path string, maxBytes int64) (*Envelope, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f, maxBytes)
}
