package crypto

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"

	"github.com/btcsuite/btcd/btcec"
	"github.com/fxamacker/cbor/v2"

	"github.com/microchain-org/client/common"
)

// curve is the shared secp256k1 computation context. It is expensive to
// construct and safe to reuse, so the package keeps a single immutable
// instance.
var curve = btcec.S256()

// SecretKey is a secp256k1 secret key. It is never implicitly
// duplicated: the scalar is unexported and Copy is the only way to
// obtain a second instance.
type SecretKey struct {
	d *btcec.PrivateKey
}

// GenerateKey creates a new secret key from the given entropy source.
// Exactly 32 bytes are read; the scalar is reduced into the valid range.
func GenerateKey(rand io.Reader) (*SecretKey, error) {
	var seed [32]byte
	if _, err := io.ReadFull(rand, seed[:]); err != nil {
		return nil, fmt.Errorf("reading key entropy: %w", err)
	}
	return secretKeyFromScalar(seed), nil
}

// SecretKeyFromBytes imports a secret key from its 32-byte scalar.
func SecretKeyFromBytes(b []byte) (*SecretKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("secret key must be 32 bytes, got %d", len(b))
	}
	k := new(big.Int).SetBytes(b)
	if k.Sign() == 0 || k.Cmp(curve.N) >= 0 {
		return nil, fmt.Errorf("secret key scalar out of range")
	}
	priv, _ := btcec.PrivKeyFromBytes(curve, b)
	return &SecretKey{d: priv}, nil
}

// secretKeyFromScalar maps 32 uniform bytes onto a valid secret scalar
// in [1, N-1]. The mapping is deterministic, so a replayed entropy
// stream reproduces the same key.
func secretKeyFromScalar(seed [32]byte) *SecretKey {
	k := new(big.Int).SetBytes(seed[:])
	nMinusOne := new(big.Int).Sub(curve.N, big.NewInt(1))
	k.Mod(k, nMinusOne)
	k.Add(k, big.NewInt(1))
	buf := make([]byte, 32)
	k.FillBytes(buf)
	priv, _ := btcec.PrivKeyFromBytes(curve, buf)
	return &SecretKey{d: priv}
}

// Public derives the public key for this secret key.
func (s *SecretKey) Public() PublicKey {
	var pk PublicKey
	copy(pk[:], s.d.PubKey().SerializeCompressed())
	return pk
}

// Copy duplicates the secret key, including the secret scalar. This is
// deliberately the only way to obtain a second instance.
func (s *SecretKey) Copy() *SecretKey {
	priv, _ := btcec.PrivKeyFromBytes(curve, s.d.Serialize())
	return &SecretKey{d: priv}
}

// Bytes returns the 32-byte secret scalar. Callers own the copy.
func (s *SecretKey) Bytes() []byte {
	return s.d.Serialize()
}

// String redacts the scalar so secret material never ends up in logs.
func (s *SecretKey) String() string { return "<redacted secp256k1 secret key>" }

// GoString redacts the scalar in %#v output as well.
func (s *SecretKey) GoString() string { return s.String() }

// PublicKey is a compressed secp256k1 public key. It is a comparable
// value type with a total, stable ordering, so it can be used as a map
// key directly.
type PublicKey [PublicKeyLength]byte

// PublicKeyFromBytes parses and validates a compressed public key.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	parsed, err := btcec.ParsePubKey(b, curve)
	if err != nil {
		return PublicKey{}, fmt.Errorf("invalid public key: %w", err)
	}
	var pk PublicKey
	copy(pk[:], parsed.SerializeCompressed())
	return pk, nil
}

// HexToPublicKey parses a lowercase hex compressed public key.
func HexToPublicKey(s string) (PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("invalid public key encoding: %w", err)
	}
	return PublicKeyFromBytes(b)
}

// Bytes returns a copy of the compressed key bytes.
func (p PublicKey) Bytes() []byte {
	b := make([]byte, PublicKeyLength)
	copy(b, p[:])
	return b
}

// Cmp compares two public keys byte-wise.
func (p PublicKey) Cmp(other PublicKey) int { return bytes.Compare(p[:], other[:]) }

// Hex returns the lowercase hex encoding of the compressed key.
func (p PublicKey) Hex() string { return hex.EncodeToString(p[:]) }

func (p PublicKey) String() string { return p.Hex() }

// TypeName implements Signable; owner identifiers are derived by
// hashing the public key under this tag.
func (p PublicKey) TypeName() string { return "Secp256k1PublicKey" }

// Owner derives the opaque account owner identifier for this key.
func (p PublicKey) Owner() common.Owner {
	return common.Owner(HashValue(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p PublicKey) MarshalText() ([]byte, error) { return []byte(p.Hex()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := HexToPublicKey(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalCBOR encodes the key as its raw compressed bytes.
func (p PublicKey) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(p[:])
}

// UnmarshalCBOR decodes and validates the key from raw compressed bytes.
func (p *PublicKey) UnmarshalCBOR(data []byte) error {
	var b []byte
	if err := cbor.Unmarshal(data, &b); err != nil {
		return err
	}
	parsed, err := PublicKeyFromBytes(b)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p PublicKey) key() (*btcec.PublicKey, error) {
	return btcec.ParsePubKey(p[:], curve)
}

// KeyPair is a secret key together with its derived public key.
type KeyPair struct {
	Secret *SecretKey
	Public PublicKey
}

// NewKeyPair builds a key pair from a secret key.
func NewKeyPair(secret *SecretKey) KeyPair {
	return KeyPair{Secret: secret, Public: secret.Public()}
}

// Signature is a secp256k1 ECDSA signature over a 32-byte digest,
// stored in compact 64-byte R||S form. In human-readable encodings it
// renders as lowercase hex of the DER serialization; in compact binary
// encodings it is the raw 64 bytes.
type Signature [SignatureLength]byte

// ParseSignatureDER decodes a DER-encoded signature.
func ParseSignatureDER(der []byte) (Signature, error) {
	parsed, err := btcec.ParseDERSignature(der, curve)
	if err != nil {
		return Signature{}, fmt.Errorf("invalid signature: %w", err)
	}
	return signatureFromParts(parsed.R, parsed.S), nil
}

// SignatureFromCompact decodes a signature from its compact 64-byte form.
func SignatureFromCompact(b []byte) (Signature, error) {
	if len(b) != SignatureLength {
		return Signature{}, fmt.Errorf("signature must be %d bytes, got %d", SignatureLength, len(b))
	}
	var sig Signature
	copy(sig[:], b)
	return sig, nil
}

// HexToSignature parses a lowercase hex DER signature.
func HexToSignature(s string) (Signature, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Signature{}, fmt.Errorf("invalid signature encoding: %w", err)
	}
	return ParseSignatureDER(b)
}

func signatureFromParts(r, s *big.Int) Signature {
	var sig Signature
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])
	return sig
}

func (sig Signature) parts() *btcec.Signature {
	return &btcec.Signature{
		R: new(big.Int).SetBytes(sig[:32]),
		S: new(big.Int).SetBytes(sig[32:]),
	}
}

// DER returns the DER serialization of the signature.
func (sig Signature) DER() []byte {
	return sig.parts().Serialize()
}

// Bytes returns a copy of the compact 64-byte form.
func (sig Signature) Bytes() []byte {
	b := make([]byte, SignatureLength)
	copy(b, sig[:])
	return b
}

// Hex returns the lowercase hex encoding of the DER serialization.
func (sig Signature) Hex() string { return hex.EncodeToString(sig.DER()) }

func (sig Signature) String() string { return sig.Hex() }

// MarshalText implements encoding.TextMarshaler.
func (sig Signature) MarshalText() ([]byte, error) { return []byte(sig.Hex()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (sig *Signature) UnmarshalText(text []byte) error {
	parsed, err := HexToSignature(string(text))
	if err != nil {
		return err
	}
	*sig = parsed
	return nil
}

// MarshalCBOR encodes the signature as its raw compact bytes.
func (sig Signature) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(sig[:])
}

// UnmarshalCBOR decodes the signature from raw compact bytes.
func (sig *Signature) UnmarshalCBOR(data []byte) error {
	var b []byte
	if err := cbor.Unmarshal(data, &b); err != nil {
		return err
	}
	parsed, err := SignatureFromCompact(b)
	if err != nil {
		return err
	}
	*sig = parsed
	return nil
}

// Sign computes the canonical digest of v and signs it with secret.
func Sign(v Signable, secret *SecretKey) Signature {
	return SignHash(HashValue(v), secret)
}

// SignHash signs a precomputed digest. The digest must come from
// HashValue so the declared type name is part of what is signed.
func SignHash(digest common.Hash, secret *SecretKey) Signature {
	parsed, err := secret.d.Sign(digest[:])
	if err != nil {
		// Signing with a valid key over a fixed-size digest cannot fail.
		panic(fmt.Sprintf("crypto: signing failed: %v", err))
	}
	return signatureFromParts(parsed.R, parsed.S)
}

// Check verifies the signature against the canonical digest of v and
// the author's public key.
func (sig Signature) Check(v Signable, author PublicKey) error {
	return sig.checkDigest(HashValue(v), author, v.TypeName())
}

// CheckHash verifies the signature against a precomputed digest.
func (sig Signature) CheckHash(digest common.Hash, author PublicKey, typeName string) error {
	return sig.checkDigest(digest, author, typeName)
}

func (sig Signature) checkDigest(digest common.Hash, author PublicKey, typeName string) error {
	pk, err := author.key()
	if err != nil {
		return &InvalidSignatureError{Reason: err.Error(), TypeName: typeName, Author: author}
	}
	if !sig.parts().Verify(digest[:], pk) {
		return &InvalidSignatureError{Reason: "signature did not verify", TypeName: typeName, Author: author}
	}
	return nil
}

// SignedUnit pairs an author's public key with its signature over some
// shared value.
type SignedUnit struct {
	Author    PublicKey
	Signature Signature
}

// VerifyBatch verifies every (author, signature) pair against the
// canonical digest of v. The digest is computed once; verification
// stops at the first failing pair, whose author is identified in the
// returned error.
func VerifyBatch(v Signable, units []SignedUnit) error {
	digest := HashValue(v)
	name := v.TypeName()
	for _, unit := range units {
		if err := unit.Signature.checkDigest(digest, unit.Author, name); err != nil {
			return err
		}
	}
	return nil
}
