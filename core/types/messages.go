package types

import (
	"bytes"
	"fmt"

	"github.com/microchain-org/client/common"
	"github.com/microchain-org/client/crypto"
)

// MessageID uniquely identifies one outgoing message system-wide: the
// chain and height of the block that produced it, plus the message's
// flat index within that block.
type MessageID struct {
	_       struct{} `cbor:",toarray"`
	ChainID common.ChainID
	Height  common.BlockHeight
	Index   uint32
}

func (id MessageID) String() string {
	return fmt.Sprintf("%s:%s:%d", id.ChainID, id.Height, id.Index)
}

// MessageKind describes how a message is tracked by the receiving chain.
type MessageKind uint8

const (
	// MessageKindSimple messages are executed and forgotten.
	MessageKindSimple MessageKind = iota
	// MessageKindProtected messages cannot be rejected by the receiver.
	MessageKindProtected
	// MessageKindTracked messages report back to the sender when rejected.
	MessageKindTracked
	// MessageKindBouncing marks a tracked message returning to its sender.
	MessageKindBouncing
)

// MessageAction is the receiving chain's decision about an incoming bundle.
type MessageAction uint8

const (
	// MessageActionAccept executes the bundle's messages.
	MessageActionAccept MessageAction = iota
	// MessageActionReject declines the bundle.
	MessageActionReject
)

// Medium is the delivery route of a message: directly to one chain, or
// through a named channel to its subscribers. A nil Channel means direct.
type Medium struct {
	_       struct{} `cbor:",toarray"`
	Channel []byte
}

// DirectMedium is the direct chain-to-chain delivery medium.
func DirectMedium() Medium { return Medium{} }

// ChannelMedium is the delivery medium of the named channel.
func ChannelMedium(name []byte) Medium { return Medium{Channel: name} }

// IsDirect reports whether this is the direct medium.
func (m Medium) IsDirect() bool { return m.Channel == nil }

// Destination is where an outgoing message is addressed: a single
// recipient chain, or the subscribers of a named channel.
type Destination struct {
	_         struct{} `cbor:",toarray"`
	Recipient *common.ChainID
	Channel   []byte
}

// DirectDestination addresses one recipient chain.
func DirectDestination(recipient common.ChainID) Destination {
	return Destination{Recipient: &recipient}
}

// ChannelDestination addresses the subscribers of the named channel.
func ChannelDestination(name []byte) Destination {
	return Destination{Channel: name}
}

// OutgoingMessage is a message produced by executing a transaction.
type OutgoingMessage struct {
	_                   struct{} `cbor:",toarray"`
	Destination         Destination
	AuthenticatedSigner *common.Owner
	Grant               uint64
	Kind                MessageKind
	Payload             []byte
}

// isAddressedTo reports whether the message travels over the given
// medium to the given recipient. Channel subscription membership is
// checked by the caller, so a channel medium matches on name alone.
func (m *OutgoingMessage) isAddressedTo(medium Medium, recipient common.ChainID) bool {
	if medium.IsDirect() {
		return m.Destination.Recipient != nil && *m.Destination.Recipient == recipient
	}
	return m.Destination.Channel != nil && bytes.Equal(m.Destination.Channel, medium.Channel)
}

// PostedMessage is one message as seen by the receiving chain. Index is
// the message's flat index within the producing block, so the receiver
// can reconstruct the MessageID.
type PostedMessage struct {
	_                   struct{} `cbor:",toarray"`
	AuthenticatedSigner *common.Owner
	Grant               uint64
	Kind                MessageKind
	Index               uint32
	Payload             []byte
}

// MessageBundle carries the messages one transaction of a block sent to
// a particular recipient, in their original relative order. A receiving
// chain processes bundles in transaction order, at most once each.
type MessageBundle struct {
	_                struct{} `cbor:",toarray"`
	Height           common.BlockHeight
	Timestamp        common.Timestamp
	CertificateHash  common.Hash
	TransactionIndex uint32
	Messages         []PostedMessage
}

// Origin names the sender chain and medium an incoming bundle arrived by.
type Origin struct {
	_      struct{} `cbor:",toarray"`
	Sender common.ChainID
	Medium Medium
}

// IncomingBundle is a received message bundle together with the
// receiving chain's decision about it.
type IncomingBundle struct {
	_      struct{} `cbor:",toarray"`
	Origin Origin
	Bundle MessageBundle
	Action MessageAction
}

// OracleResponse records the result of a non-deterministic query made
// during execution, replayed identically during validation. Exactly one
// of the fields is set.
type OracleResponse struct {
	_       struct{} `cbor:",toarray"`
	Service []byte
	Post    []byte
	Blob    *BlobID
}

// StreamID names an event stream of an application.
type StreamID struct {
	_             struct{} `cbor:",toarray"`
	ApplicationID common.Hash
	Name          []byte
}

// Event is a record appended to an event stream during execution.
type Event struct {
	_        struct{} `cbor:",toarray"`
	StreamID StreamID
	Key      []byte
	Value    []byte
}

// BlobType distinguishes the kinds of binary large objects blocks can
// depend on.
type BlobType uint8

const (
	// BlobTypeData is an application data blob.
	BlobTypeData BlobType = iota
	// BlobTypeContractBytecode is a contract bytecode blob.
	BlobTypeContractBytecode
	// BlobTypeServiceBytecode is a service bytecode blob.
	BlobTypeServiceBytecode
)

func (t BlobType) String() string {
	switch t {
	case BlobTypeData:
		return "data"
	case BlobTypeContractBytecode:
		return "contract-bytecode"
	case BlobTypeServiceBytecode:
		return "service-bytecode"
	default:
		return fmt.Sprintf("blob-type-%d", uint8(t))
	}
}

// BlobID identifies a blob by content hash and kind.
type BlobID struct {
	_    struct{} `cbor:",toarray"`
	Hash common.Hash
	Type BlobType
}

func (id BlobID) String() string {
	return fmt.Sprintf("%s:%s", id.Type, id.Hash)
}

// Blob is a binary large object referenced by blocks.
type Blob struct {
	_    struct{} `cbor:",toarray"`
	Type BlobType
	Data []byte
}

// TypeName implements crypto.Signable.
func (b Blob) TypeName() string { return "Blob" }

// ID returns the blob's content-derived identifier.
func (b Blob) ID() BlobID {
	return BlobID{Hash: crypto.HashValue(b), Type: b.Type}
}

// Transfer moves funds to an account on a recipient chain.
type Transfer struct {
	_         struct{} `cbor:",toarray"`
	Owner     *common.Owner
	Recipient common.ChainID
	Amount    uint64
}

// PublishDataBlob publishes a data blob by content hash.
type PublishDataBlob struct {
	_        struct{} `cbor:",toarray"`
	BlobHash common.Hash
}

// PublishBytecode publishes the paired contract and service bytecode
// blobs of an application.
type PublishBytecode struct {
	_        struct{} `cbor:",toarray"`
	Contract common.Hash
	Service  common.Hash
}

// SystemOperation is an operation handled by the system application.
// Exactly one of the fields is set.
type SystemOperation struct {
	_               struct{} `cbor:",toarray"`
	Transfer        *Transfer
	PublishDataBlob *PublishDataBlob
	PublishBytecode *PublishBytecode
}

// UserOperation is an opaque operation for a user application.
type UserOperation struct {
	_             struct{} `cbor:",toarray"`
	ApplicationID common.Hash
	Bytes         []byte
}

// Operation is one operation proposed in a block: either a system
// operation or a user application call.
type Operation struct {
	_      struct{} `cbor:",toarray"`
	System *SystemOperation
	User   *UserOperation
}

// publishedBlobIDs returns the blob ids this operation explicitly
// publishes, if any.
func (op *Operation) publishedBlobIDs() []BlobID {
	if op.System == nil {
		return nil
	}
	switch {
	case op.System.PublishDataBlob != nil:
		return []BlobID{{Hash: op.System.PublishDataBlob.BlobHash, Type: BlobTypeData}}
	case op.System.PublishBytecode != nil:
		return []BlobID{
			{Hash: op.System.PublishBytecode.Contract, Type: BlobTypeContractBytecode},
			{Hash: op.System.PublishBytecode.Service, Type: BlobTypeServiceBytecode},
		}
	default:
		return nil
	}
}
