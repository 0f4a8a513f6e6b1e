package types

import (
	"fmt"

	mapset "github.com/deckarep/golang-set"

	"github.com/microchain-org/client/codec"
	"github.com/microchain-org/client/common"
	"github.com/microchain-org/client/crypto"
)

// BlockVersion is the current block format version.
const BlockVersion uint8 = 1

// BlockHeader carries a block's metadata together with the canonical
// hashes of its body sections. The five derived hashes commit the header
// to the full body, so a validator holding only the header can verify a
// section it receives separately.
type BlockHeader struct {
	_                   struct{} `cbor:",toarray"`
	Version             uint8
	ChainID             common.ChainID
	Epoch               common.Epoch
	Height              common.BlockHeight
	Timestamp           common.Timestamp
	StateHash           common.Hash
	PreviousBlockHash   *common.Hash
	AuthenticatedSigner *common.Owner

	// Inputs to the block, chosen by the block proposer.
	BundlesHash    common.Hash
	OperationsHash common.Hash

	// Outcome of the block's execution.
	MessagesHash        common.Hash
	OracleResponsesHash common.Hash
	EventsHash          common.Hash
}

// BlockBody holds the block's actual sections. Messages, oracle
// responses and events are aligned per transaction: one slot for each
// incoming bundle followed by one slot for each operation.
type BlockBody struct {
	_               struct{} `cbor:",toarray"`
	IncomingBundles []IncomingBundle
	Operations      []Operation
	Messages        [][]OutgoingMessage
	OracleResponses [][]OracleResponse
	Events          [][]Event
}

// Block is a confirmed unit of chain state transition: a header
// committing to the body, and the body itself. Blocks are built once
// from an execution outcome and are immutable afterwards.
type Block struct {
	_      struct{} `cbor:",toarray"`
	Header BlockHeader
	Body   BlockBody
}

// TypeName implements crypto.Signable.
func (b *Block) TypeName() string { return "Block" }

// Tagged section wrappers. Each body section hashes under its own type
// name, so sections with identical bytes cannot be confused for one
// another.
type (
	incomingBundleSection []IncomingBundle
	operationSection      []Operation
	messageSection        [][]OutgoingMessage
	oracleResponseSection [][]OracleResponse
	eventSection          [][]Event
)

func (incomingBundleSection) TypeName() string { return "IncomingBundles" }
func (operationSection) TypeName() string      { return "Operations" }
func (messageSection) TypeName() string        { return "OutgoingMessages" }
func (oracleResponseSection) TypeName() string { return "OracleResponses" }
func (eventSection) TypeName() string          { return "Events" }

// ProposedBlock is the proposer-chosen input to a block: which bundles
// to receive and which operations to execute, plus chain placement.
type ProposedBlock struct {
	_                   struct{} `cbor:",toarray"`
	ChainID             common.ChainID
	Epoch               common.Epoch
	Height              common.BlockHeight
	Timestamp           common.Timestamp
	IncomingBundles     []IncomingBundle
	Operations          []Operation
	PreviousBlockHash   *common.Hash
	AuthenticatedSigner *common.Owner
}

// BlockOutcome is what the execution engine produced for a proposed
// block: per-transaction messages, oracle responses and events, and the
// resulting state hash.
type BlockOutcome struct {
	_               struct{} `cbor:",toarray"`
	Messages        [][]OutgoingMessage
	OracleResponses [][]OracleResponse
	Events          [][]Event
	StateHash       common.Hash
}

// NewBlock builds a block from a proposal and its execution outcome.
// This is the single construction path: the header's section hashes are
// deterministic functions of the body sections, so semantically equal
// outcomes always produce byte-identical headers.
func NewBlock(proposal ProposedBlock, outcome BlockOutcome) (*Block, error) {
	transactions := len(proposal.IncomingBundles) + len(proposal.Operations)
	if len(outcome.Messages) != transactions ||
		len(outcome.OracleResponses) != transactions ||
		len(outcome.Events) != transactions {
		return nil, fmt.Errorf(
			"execution outcome not aligned: %d transactions, %d message slots, %d oracle slots, %d event slots",
			transactions, len(outcome.Messages), len(outcome.OracleResponses), len(outcome.Events))
	}
	return &Block{
		Header: BlockHeader{
			Version:             BlockVersion,
			ChainID:             proposal.ChainID,
			Epoch:               proposal.Epoch,
			Height:              proposal.Height,
			Timestamp:           proposal.Timestamp,
			StateHash:           outcome.StateHash,
			PreviousBlockHash:   proposal.PreviousBlockHash,
			AuthenticatedSigner: proposal.AuthenticatedSigner,
			BundlesHash:         crypto.HashValue(incomingBundleSection(proposal.IncomingBundles)),
			OperationsHash:      crypto.HashValue(operationSection(proposal.Operations)),
			MessagesHash:        crypto.HashValue(messageSection(outcome.Messages)),
			OracleResponsesHash: crypto.HashValue(oracleResponseSection(outcome.OracleResponses)),
			EventsHash:          crypto.HashValue(eventSection(outcome.Events)),
		},
		Body: BlockBody{
			IncomingBundles: proposal.IncomingBundles,
			Operations:      proposal.Operations,
			Messages:        outcome.Messages,
			OracleResponses: outcome.OracleResponses,
			Events:          outcome.Events,
		},
	}, nil
}

// TransactionCount returns the number of transactions in the block:
// incoming bundles first, then operations.
func (b *Block) TransactionCount() int {
	return len(b.Body.IncomingBundles) + len(b.Body.Operations)
}

// CheckSectionHashes recomputes each body section's canonical hash and
// compares it with the corresponding header field.
func (b *Block) CheckSectionHashes() error {
	checks := []struct {
		name   string
		stored common.Hash
		actual common.Hash
	}{
		{"bundles", b.Header.BundlesHash, crypto.HashValue(incomingBundleSection(b.Body.IncomingBundles))},
		{"operations", b.Header.OperationsHash, crypto.HashValue(operationSection(b.Body.Operations))},
		{"messages", b.Header.MessagesHash, crypto.HashValue(messageSection(b.Body.Messages))},
		{"oracle responses", b.Header.OracleResponsesHash, crypto.HashValue(oracleResponseSection(b.Body.OracleResponses))},
		{"events", b.Header.EventsHash, crypto.HashValue(eventSection(b.Body.Events))},
	}
	for _, c := range checks {
		if c.stored != c.actual {
			return fmt.Errorf("%s section: %w", c.name,
				&crypto.HashMismatchError{Expected: c.stored, Actual: c.actual})
		}
	}
	return nil
}

// MessageBundlesFor extracts the bundles a recipient must process from
// this block, one per transaction that sent it anything over the given
// medium. Message order within a bundle and bundle order across
// transactions follow the block's own order; each posted message keeps
// its flat block-wide index. Channel subscription membership is the
// caller's concern: pass a channel medium only for actual subscribers.
func (b *Block) MessageBundlesFor(medium Medium, recipient common.ChainID, certificateHash common.Hash) []MessageBundle {
	var bundles []MessageBundle
	flatIndex := uint32(0)
	for txIndex, messages := range b.Body.Messages {
		var posted []PostedMessage
		for i := range messages {
			message := &messages[i]
			if message.isAddressedTo(medium, recipient) {
				posted = append(posted, PostedMessage{
					AuthenticatedSigner: message.AuthenticatedSigner,
					Grant:               message.Grant,
					Kind:                message.Kind,
					Index:               flatIndex,
					Payload:             message.Payload,
				})
			}
			flatIndex++
		}
		if len(posted) > 0 {
			bundles = append(bundles, MessageBundle{
				Height:           b.Header.Height,
				Timestamp:        b.Header.Timestamp,
				CertificateHash:  certificateHash,
				TransactionIndex: uint32(txIndex),
				Messages:         posted,
			})
		}
	}
	return bundles
}

// MessageIDForOperation maps an operation-relative message position to
// the block's flat message id. Incoming-bundle transactions occupy
// index space before operations. Out-of-range positions yield false.
func (b *Block) MessageIDForOperation(operationIndex int, messageIndex uint32) (MessageID, bool) {
	if operationIndex < 0 || operationIndex >= len(b.Body.Operations) {
		return MessageID{}, false
	}
	txIndex := len(b.Body.IncomingBundles) + operationIndex
	if txIndex >= len(b.Body.Messages) {
		return MessageID{}, false
	}
	if int(messageIndex) >= len(b.Body.Messages[txIndex]) {
		return MessageID{}, false
	}
	first := 0
	for _, messages := range b.Body.Messages[:txIndex] {
		first += len(messages)
	}
	return MessageID{
		ChainID: b.Header.ChainID,
		Height:  b.Header.Height,
		Index:   uint32(first) + messageIndex,
	}, true
}

// MessageByID looks up an outgoing message by its flat id, validating
// the id against this block's chain and height. A mismatched or
// out-of-range id yields false.
func (b *Block) MessageByID(id MessageID) (*OutgoingMessage, bool) {
	if id.ChainID != b.Header.ChainID || id.Height != b.Header.Height {
		return nil, false
	}
	index := int(id.Index)
	for _, messages := range b.Body.Messages {
		if index < len(messages) {
			return &messages[index], true
		}
		index -= len(messages)
	}
	return nil, false
}

// RequiredBlobIDs returns the block's external-data dependency set: the
// union of blob ids referenced by oracle responses and blob ids
// explicitly published by operations. A validator must resolve all of
// them before re-executing the block.
func (b *Block) RequiredBlobIDs() mapset.Set {
	ids := mapset.NewSet()
	for _, responses := range b.Body.OracleResponses {
		for i := range responses {
			if responses[i].Blob != nil {
				ids.Add(*responses[i].Blob)
			}
		}
	}
	for i := range b.Body.Operations {
		for _, id := range b.Body.Operations[i].publishedBlobIDs() {
			ids.Add(id)
		}
	}
	return ids
}

// RequiresBlob reports whether the block depends on the given blob.
func (b *Block) RequiresBlob(id BlobID) bool {
	return b.RequiredBlobIDs().Contains(id)
}

// HasOnlyRejectedMessages reports whether the block carries no
// operations and every incoming bundle is rejected. This is the only
// block shape permitted on an otherwise-closed chain.
func (b *Block) HasOnlyRejectedMessages() bool {
	if len(b.Body.Operations) > 0 {
		return false
	}
	for i := range b.Body.IncomingBundles {
		if b.Body.IncomingBundles[i].Action != MessageActionReject {
			return false
		}
	}
	return true
}

// CheckProposalSize fails if the canonical serialized size of the block
// and its referenced blobs exceeds maxBytes.
func (b *Block) CheckProposalSize(maxBytes int, blobs []Blob) error {
	size, err := codec.Size(b)
	if err != nil {
		return fmt.Errorf("measuring block: %w", err)
	}
	for i := range blobs {
		blobSize, err := codec.Size(blobs[i])
		if err != nil {
			return fmt.Errorf("measuring blob %s: %w", blobs[i].ID(), err)
		}
		size += blobSize
	}
	if size > maxBytes {
		return fmt.Errorf("proposal size %d bytes exceeds limit %d", size, maxBytes)
	}
	return nil
}
