// File: internal/stream/hasher.go
// Package stream implements the staged file streamer and its running checksum.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package stream

import (
	"crypto/md5"
	"encoding/hex"
	"hash"
)

// Hasher accumulates a checksum over chunks of any size.
type Hasher struct {
	h      hash.Hash
	digest string
	done   bool
}

// NewHasher returns an MD5 hasher.
func NewHasher() *Hasher {
	return &Hasher{h: md5.New()}
}

// Consume feeds p into the running hash. Calls after Finalize are ignored.
func (h *Hasher) Consume(p []byte) {
	if h.done || len(p) == 0 {
		return
	}
	// hash.Hash.Write never returns an error.
	_, _ = h.h.Write(p)
}

// Finalize returns the lowercase hex digest of everything consumed.
func (h *Hasher) Finalize() string {
	if !h.done {
		h.digest = hex.EncodeToString(h.h.Sum(nil))
		h.done = true
	}
	return h.digest
}
