// Package crypto implements the protocol's authentication layer:
// canonical content hashing, secp256k1 signing and verification, the
// hashed-value wrapper, and the signer abstraction with its in-memory
// keyring.
package crypto

import (
	"golang.org/x/crypto/sha3"

	"github.com/microchain-org/client/codec"
	"github.com/microchain-org/client/common"
)

const (
	// DigestLength is the size of a signing digest in bytes.
	DigestLength = 32
	// SignatureLength is the size of a compact secp256k1 signature in bytes.
	SignatureLength = 64
	// PublicKeyLength is the size of a compressed secp256k1 public key in bytes.
	PublicKeyLength = 33
)

// Signable is implemented by values whose canonical form can be hashed
// and signed. The declared type name is embedded ahead of the value's
// field bytes before hashing, so the same byte sequence interpreted
// under two different logical types never produces the same digest.
type Signable interface {
	TypeName() string
}

// HashValue computes the canonical digest of v: SHA3-256 over the
// declared type name followed by the canonical serialization of v.
func HashValue(v Signable) common.Hash {
	data := codec.MustMarshal(v)
	hasher := sha3.New256()
	hasher.Write([]byte(v.TypeName()))
	hasher.Write(data)
	var h common.Hash
	copy(h[:], hasher.Sum(nil))
	return h
}
