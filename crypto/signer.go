package crypto

import (
	"github.com/microchain-org/client/common"
)

// Signer provides signing capability keyed by account owner. Owners are
// derivable from public keys, but the signer indexes by owner so that
// remote or hardware-backed implementations never need to expose more
// than this interface.
//
// Signers operate on digests rather than raw bytes so that nothing is
// signed accidentally: a digest produced by HashValue already has the
// value's declared type name folded in.
//
// An unknown owner yields a false second return, not an error; absence
// is expected control flow.
type Signer interface {
	// Sign signs the given digest with the owner's secret key.
	Sign(owner common.Owner, digest common.Hash) (Signature, bool)

	// GetPublic returns the public key registered for the owner.
	GetPublic(owner common.Owner) (PublicKey, bool)

	// ContainsKey reports whether the owner is known to this signer.
	ContainsKey(owner common.Owner) bool
}
