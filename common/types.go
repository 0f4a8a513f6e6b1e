// Package common holds the basic value types shared across the protocol:
// 32-byte hashes, chain identifiers, account owners, block heights,
// epochs and timestamps.
package common

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

const (
	// HashLength is the size of a canonical digest in bytes.
	HashLength = 32
	// OwnerLength is the size of an account owner identifier in bytes.
	OwnerLength = 32
)

// Hash is a 32-byte canonical digest. In human-readable encodings it
// renders as a lowercase hex string; in compact binary encodings it is
// the raw 32 bytes.
type Hash [HashLength]byte

// BytesToHash converts b to a Hash. It fails if b is not exactly 32 bytes.
func BytesToHash(b []byte) (Hash, error) {
	if len(b) != HashLength {
		return Hash{}, fmt.Errorf("hash must be %d bytes, got %d", HashLength, len(b))
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

// HexToHash parses a lowercase hex string into a Hash.
func HexToHash(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid hash encoding: %w", err)
	}
	return BytesToHash(b)
}

// Bytes returns a copy of the hash bytes.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashLength)
	copy(b, h[:])
	return b
}

// Hex returns the lowercase hex encoding of the hash.
func (h Hash) Hex() string { return hex.EncodeToString(h[:]) }

func (h Hash) String() string { return h.Hex() }

// IsZero reports whether the hash is all zeros.
func (h Hash) IsZero() bool { return h == Hash{} }

// Cmp compares two hashes byte-wise, giving a total and stable ordering.
func (h Hash) Cmp(other Hash) int { return bytes.Compare(h[:], other[:]) }

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := HexToHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// MarshalCBOR encodes the hash as a raw byte string.
func (h Hash) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(h[:])
}

// UnmarshalCBOR decodes the hash from a raw byte string.
func (h *Hash) UnmarshalCBOR(data []byte) error {
	var b []byte
	if err := cbor.Unmarshal(data, &b); err != nil {
		return err
	}
	parsed, err := BytesToHash(b)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ChainID identifies a chain. It is the canonical hash of the chain's
// description, computed when the chain is created.
type ChainID Hash

// HexToChainID parses a lowercase hex string into a ChainID.
func HexToChainID(s string) (ChainID, error) {
	h, err := HexToHash(s)
	return ChainID(h), err
}

func (id ChainID) Hex() string    { return Hash(id).Hex() }
func (id ChainID) String() string { return Hash(id).Hex() }

// MarshalText implements encoding.TextMarshaler.
func (id ChainID) MarshalText() ([]byte, error) { return Hash(id).MarshalText() }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ChainID) UnmarshalText(text []byte) error {
	return (*Hash)(id).UnmarshalText(text)
}

// MarshalCBOR encodes the chain id as a raw byte string.
func (id ChainID) MarshalCBOR() ([]byte, error) { return Hash(id).MarshalCBOR() }

// UnmarshalCBOR decodes the chain id from a raw byte string.
func (id *ChainID) UnmarshalCBOR(data []byte) error {
	return (*Hash)(id).UnmarshalCBOR(data)
}

// Owner is the opaque identifier of an account or key holder. It is
// derived from a public key but distinct from it; signers index their
// keyrings by Owner.
type Owner [OwnerLength]byte

// BytesToOwner converts b to an Owner. It fails if b is not exactly 32 bytes.
func BytesToOwner(b []byte) (Owner, error) {
	if len(b) != OwnerLength {
		return Owner{}, fmt.Errorf("owner must be %d bytes, got %d", OwnerLength, len(b))
	}
	var o Owner
	copy(o[:], b)
	return o, nil
}

func (o Owner) Hex() string    { return hex.EncodeToString(o[:]) }
func (o Owner) String() string { return o.Hex() }

// Cmp compares two owners byte-wise.
func (o Owner) Cmp(other Owner) int { return bytes.Compare(o[:], other[:]) }

// MarshalText implements encoding.TextMarshaler.
func (o Owner) MarshalText() ([]byte, error) { return []byte(o.Hex()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Owner) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("invalid owner encoding: %w", err)
	}
	parsed, err := BytesToOwner(b)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// MarshalCBOR encodes the owner as a raw byte string.
func (o Owner) MarshalCBOR() ([]byte, error) { return cbor.Marshal(o[:]) }

// UnmarshalCBOR decodes the owner from a raw byte string.
func (o *Owner) UnmarshalCBOR(data []byte) error {
	var b []byte
	if err := cbor.Unmarshal(data, &b); err != nil {
		return err
	}
	parsed, err := BytesToOwner(b)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// BlockHeight is the position of a block in a chain, starting at zero.
type BlockHeight uint64

// Next returns the following height.
func (h BlockHeight) Next() BlockHeight { return h + 1 }

func (h BlockHeight) String() string { return fmt.Sprintf("%d", uint64(h)) }

// Epoch identifies a committee configuration period.
type Epoch uint32

func (e Epoch) String() string { return fmt.Sprintf("%d", uint32(e)) }

// Timestamp is a number of microseconds since the Unix epoch.
type Timestamp uint64

// TimestampFromTime converts a time.Time to a Timestamp.
func TimestampFromTime(t time.Time) Timestamp {
	return Timestamp(t.UnixMicro())
}

// Time converts the timestamp back to a time.Time.
func (t Timestamp) Time() time.Time {
	return time.UnixMicro(int64(t)).UTC()
}

func (t Timestamp) String() string {
	return t.Time().Format(time.RFC3339Nano)
}
