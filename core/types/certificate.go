package types

import (
	"github.com/microchain-org/client/codec"
	"github.com/microchain-org/client/common"
	"github.com/microchain-org/client/crypto"
)

// The three certificate values validators sign to advance consensus.
// They hash under distinct type names even when the underlying bytes
// are identical, so a signature collected for one kind can never be
// replayed as a vote for another.

// ValidatedBlock wraps a content-hashed block circulated for validator
// pre-votes.
type ValidatedBlock struct {
	block crypto.Hashed[*Block]
}

// NewValidatedBlock wraps a freshly built block for pre-voting.
func NewValidatedBlock(block *Block) ValidatedBlock {
	return ValidatedBlock{block: crypto.NewHashed(block)}
}

// ValidatedBlockFromHashed wraps an already-hashed block.
func ValidatedBlockFromHashed(block crypto.Hashed[*Block]) ValidatedBlock {
	return ValidatedBlock{block: block}
}

// TypeName implements crypto.Signable.
func (vb ValidatedBlock) TypeName() string { return "ValidatedBlock" }

// Inner returns the hashed block.
func (vb ValidatedBlock) Inner() crypto.Hashed[*Block] { return vb.block }

// Block returns the wrapped block.
func (vb ValidatedBlock) Block() *Block { return vb.block.Value() }

func (vb ValidatedBlock) ChainID() common.ChainID    { return vb.Block().Header.ChainID }
func (vb ValidatedBlock) Height() common.BlockHeight { return vb.Block().Header.Height }
func (vb ValidatedBlock) Epoch() common.Epoch        { return vb.Block().Header.Epoch }

// LogString names the certificate kind in log output.
func (vb ValidatedBlock) LogString() string { return "validated_block" }

// IntoConfirmed re-wraps the identical block for final commitment once
// a quorum of pre-vote signatures has been collected.
func (vb ValidatedBlock) IntoConfirmed() ConfirmedBlock {
	return ConfirmedBlock{block: vb.block}
}

// WithHashUnchecked pairs the certificate with a caller-asserted hash.
// Only for hashes whose provenance was verified upstream.
func (vb ValidatedBlock) WithHashUnchecked(hash common.Hash) crypto.Hashed[ValidatedBlock] {
	return crypto.UncheckedHashed(vb, hash)
}

// WithHashChecked recomputes the certificate hash and fails with a hash
// mismatch if it disagrees with the claimed one. Mandatory whenever the
// certificate arrives from an untrusted source.
func (vb ValidatedBlock) WithHashChecked(claimed common.Hash) (crypto.Hashed[ValidatedBlock], error) {
	return crypto.CheckedHashed(vb, claimed)
}

// MarshalCBOR encodes the certificate as its inner block; the wrapper
// contributes only its type name, which enters the digest, not the bytes.
func (vb ValidatedBlock) MarshalCBOR() ([]byte, error) {
	return codec.Marshal(vb.block)
}

// UnmarshalCBOR decodes the inner block, recomputing its hash.
func (vb *ValidatedBlock) UnmarshalCBOR(data []byte) error {
	return codec.Unmarshal(data, &vb.block)
}

// ConfirmedBlock wraps a content-hashed block that reached quorum and
// is final.
type ConfirmedBlock struct {
	block crypto.Hashed[*Block]
}

// NewConfirmedBlock wraps a block for final commitment.
func NewConfirmedBlock(block *Block) ConfirmedBlock {
	return ConfirmedBlock{block: crypto.NewHashed(block)}
}

// ConfirmedBlockFromHashed wraps an already-hashed block.
func ConfirmedBlockFromHashed(block crypto.Hashed[*Block]) ConfirmedBlock {
	return ConfirmedBlock{block: block}
}

// TypeName implements crypto.Signable.
func (cb ConfirmedBlock) TypeName() string { return "ConfirmedBlock" }

// Inner returns the hashed block.
func (cb ConfirmedBlock) Inner() crypto.Hashed[*Block] { return cb.block }

// Block returns the wrapped block.
func (cb ConfirmedBlock) Block() *Block { return cb.block.Value() }

func (cb ConfirmedBlock) ChainID() common.ChainID    { return cb.Block().Header.ChainID }
func (cb ConfirmedBlock) Height() common.BlockHeight { return cb.Block().Header.Height }
func (cb ConfirmedBlock) Epoch() common.Epoch        { return cb.Block().Header.Epoch }

// LogString names the certificate kind in log output.
func (cb ConfirmedBlock) LogString() string { return "confirmed_block" }

// IntoValidated re-wraps the identical block as a pre-vote certificate,
// used when re-proposing a confirmed block in a later round.
func (cb ConfirmedBlock) IntoValidated() ValidatedBlock {
	return ValidatedBlock{block: cb.block}
}

// WithHashUnchecked pairs the certificate with a caller-asserted hash.
// Only for hashes whose provenance was verified upstream.
func (cb ConfirmedBlock) WithHashUnchecked(hash common.Hash) crypto.Hashed[ConfirmedBlock] {
	return crypto.UncheckedHashed(cb, hash)
}

// WithHashChecked recomputes the certificate hash and fails with a hash
// mismatch if it disagrees with the claimed one. Mandatory whenever the
// certificate arrives from an untrusted source.
func (cb ConfirmedBlock) WithHashChecked(claimed common.Hash) (crypto.Hashed[ConfirmedBlock], error) {
	return crypto.CheckedHashed(cb, claimed)
}

// MarshalCBOR encodes the certificate as its inner block.
func (cb ConfirmedBlock) MarshalCBOR() ([]byte, error) {
	return codec.Marshal(cb.block)
}

// UnmarshalCBOR decodes the inner block, recomputing its hash.
func (cb *ConfirmedBlock) UnmarshalCBOR(data []byte) error {
	return codec.Unmarshal(data, &cb.block)
}

// Timeout is the certificate value produced when no validated block
// reaches quorum before the round deadline, letting the protocol
// advance rounds. It carries only the chain placement.
type Timeout struct {
	_       struct{} `cbor:",toarray"`
	ChainID common.ChainID
	Height  common.BlockHeight
	Epoch   common.Epoch
}

// NewTimeout builds a timeout certificate value.
func NewTimeout(chainID common.ChainID, height common.BlockHeight, epoch common.Epoch) Timeout {
	return Timeout{ChainID: chainID, Height: height, Epoch: epoch}
}

// TypeName implements crypto.Signable.
func (t Timeout) TypeName() string { return "Timeout" }

// LogString names the certificate kind in log output.
func (t Timeout) LogString() string { return "timeout" }

// WithHashUnchecked pairs the timeout with a caller-asserted hash.
func (t Timeout) WithHashUnchecked(hash common.Hash) crypto.Hashed[Timeout] {
	return crypto.UncheckedHashed(t, hash)
}

// WithHashChecked recomputes the timeout hash and fails with a hash
// mismatch if it disagrees with the claimed one.
func (t Timeout) WithHashChecked(claimed common.Hash) (crypto.Hashed[Timeout], error) {
	return crypto.CheckedHashed(t, claimed)
}
