package crypto

import (
	"github.com/microchain-org/client/codec"
	"github.com/microchain-org/client/common"
)

// Hashed pairs a value with its canonical hash. It is immutable once
// constructed: the value must not be mutated afterwards or the stored
// hash becomes stale.
type Hashed[T Signable] struct {
	value T
	hash  common.Hash
}

// NewHashed computes and stores the canonical hash of value. This is
// the authoritative construction path.
func NewHashed[T Signable](value T) Hashed[T] {
	return Hashed[T]{value: value, hash: HashValue(value)}
}

// UncheckedHashed pairs value with a caller-asserted hash without
// recomputation. Use it only when the hash's provenance was already
// verified upstream, e.g. content retrieved by hash from a trusted
// store. Values arriving from untrusted sources with a claimed hash
// must go through a checked constructor instead.
func UncheckedHashed[T Signable](value T, hash common.Hash) Hashed[T] {
	return Hashed[T]{value: value, hash: hash}
}

// CheckedHashed recomputes the canonical hash of value and fails with a
// HashMismatchError if it disagrees with the expected hash.
func CheckedHashed[T Signable](value T, expected common.Hash) (Hashed[T], error) {
	actual := HashValue(value)
	if actual != expected {
		return Hashed[T]{}, &HashMismatchError{Expected: expected, Actual: actual}
	}
	return Hashed[T]{value: value, hash: actual}, nil
}

// Value returns the wrapped value.
func (h Hashed[T]) Value() T { return h.value }

// Hash returns the canonical hash of the wrapped value.
func (h Hashed[T]) Hash() common.Hash { return h.hash }

// MarshalCBOR encodes only the wrapped value; the hash is derived state
// and is recomputed on decode, so a peer cannot smuggle a mismatched
// pair through the binary codec.
func (h Hashed[T]) MarshalCBOR() ([]byte, error) {
	return codec.Marshal(h.value)
}

// UnmarshalCBOR decodes the wrapped value and recomputes its hash.
func (h *Hashed[T]) UnmarshalCBOR(data []byte) error {
	if err := codec.Unmarshal(data, &h.value); err != nil {
		return err
	}
	h.hash = HashValue(h.value)
	return nil
}
