package core

import (
	"encoding/binary"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// Identical content always produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ContentKey identifies an embedding of text produced by model.
// The model is part of the key so switching models never serves stale vectors.
func ContentKey(model, text string) ID {
	return IDFromContent(model + "\x00" + text)
}

// CachedVector is a persisted embedding.
type CachedVector struct {
	Model     string
	Vector    []float32
	CreatedAt int64 // unix micro
}
