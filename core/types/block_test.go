package types

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microchain-org/client/common"
	"github.com/microchain-org/client/params"
)

func testHash(b byte) common.Hash {
	var h common.Hash
	for i := range h {
		h[i] = b
	}
	return h
}

func testChainID(b byte) common.ChainID {
	return common.ChainID(testHash(b))
}

func directMessage(recipient common.ChainID, payload string) OutgoingMessage {
	return OutgoingMessage{
		Destination: DirectDestination(recipient),
		Kind:        MessageKindSimple,
		Payload:     []byte(payload),
	}
}

func channelMessage(name, payload string) OutgoingMessage {
	return OutgoingMessage{
		Destination: ChannelDestination([]byte(name)),
		Kind:        MessageKindSimple,
		Payload:     []byte(payload),
	}
}

// testProposal builds a proposal with one incoming bundle and two
// operations, and testOutcome the matching three transaction slots.
func testProposal() ProposedBlock {
	sender := testChainID(3)
	return ProposedBlock{
		ChainID:   testChainID(1),
		Epoch:     2,
		Height:    5,
		Timestamp: 1_000_000,
		IncomingBundles: []IncomingBundle{{
			Origin: Origin{Sender: sender, Medium: DirectMedium()},
			Bundle: MessageBundle{
				Height:           4,
				Timestamp:        900_000,
				CertificateHash:  testHash(0x11),
				TransactionIndex: 0,
				Messages: []PostedMessage{{
					Kind:    MessageKindTracked,
					Index:   0,
					Payload: []byte("incoming"),
				}},
			},
			Action: MessageActionAccept,
		}},
		Operations: []Operation{
			{System: &SystemOperation{Transfer: &Transfer{Recipient: testChainID(2), Amount: 100}}},
			{System: &SystemOperation{PublishDataBlob: &PublishDataBlob{BlobHash: testHash(0x77)}}},
		},
	}
}

func testOutcome() BlockOutcome {
	recipient := testChainID(2)
	return BlockOutcome{
		Messages: [][]OutgoingMessage{
			{directMessage(recipient, "m0")},
			{directMessage(recipient, "m1"), channelMessage("news", "m2")},
			{},
		},
		OracleResponses: [][]OracleResponse{
			{},
			{{Blob: &BlobID{Hash: testHash(0x88), Type: BlobTypeData}}},
			{},
		},
		Events: [][]Event{
			{},
			{},
			{{StreamID: StreamID{ApplicationID: testHash(0x99), Name: []byte("stream")}, Key: []byte("k"), Value: []byte("v")}},
		},
		StateHash: testHash(0x55),
	}
}

func testBlock(t *testing.T) *Block {
	t.Helper()
	block, err := NewBlock(testProposal(), testOutcome())
	require.NoError(t, err)
	return block
}

func TestNewBlockCommitment(t *testing.T) {
	block := testBlock(t)
	require.NoError(t, block.CheckSectionHashes())
	assert.Equal(t, BlockVersion, block.Header.Version)
	assert.Equal(t, testHash(0x55), block.Header.StateHash)
	assert.Equal(t, 3, block.TransactionCount())

	// Semantically equal outcomes must produce byte-identical headers.
	again, err := NewBlock(testProposal(), testOutcome())
	require.NoError(t, err)
	if !assert.ObjectsAreEqual(block.Header, again.Header) {
		t.Fatalf("headers differ:\n%s\n%s", spew.Sdump(block.Header), spew.Sdump(again.Header))
	}
}

func TestNewBlockRejectsMisalignedOutcome(t *testing.T) {
	outcome := testOutcome()
	outcome.Messages = outcome.Messages[:2]
	_, err := NewBlock(testProposal(), outcome)
	require.Error(t, err)

	outcome = testOutcome()
	outcome.Events = append(outcome.Events, []Event{})
	_, err = NewBlock(testProposal(), outcome)
	require.Error(t, err)
}

func TestSectionHashIsolation(t *testing.T) {
	block := testBlock(t)

	proposal := testProposal()
	proposal.Operations[0].System.Transfer.Amount = 200
	changed, err := NewBlock(proposal, testOutcome())
	require.NoError(t, err)

	assert.NotEqual(t, block.Header.OperationsHash, changed.Header.OperationsHash)
	assert.Equal(t, block.Header.BundlesHash, changed.Header.BundlesHash)
	assert.Equal(t, block.Header.MessagesHash, changed.Header.MessagesHash)
	assert.Equal(t, block.Header.OracleResponsesHash, changed.Header.OracleResponsesHash)
	assert.Equal(t, block.Header.EventsHash, changed.Header.EventsHash)

	// A tampered body no longer matches the stored header.
	block.Body.Operations[0].System.Transfer.Amount = 999
	require.Error(t, block.CheckSectionHashes())
}

func TestSectionTagsDiffer(t *testing.T) {
	// Two empty sections have identical bytes; the per-section type
	// tags must still keep their hashes apart.
	block, err := NewBlock(ProposedBlock{ChainID: testChainID(1)}, BlockOutcome{
		Messages:        [][]OutgoingMessage{},
		OracleResponses: [][]OracleResponse{},
		Events:          [][]Event{},
	})
	require.NoError(t, err)
	assert.NotEqual(t, block.Header.MessagesHash, block.Header.OracleResponsesHash)
	assert.NotEqual(t, block.Header.MessagesHash, block.Header.EventsHash)
	assert.NotEqual(t, block.Header.BundlesHash, block.Header.OperationsHash)
}

func TestMessageIndexRoundTrip(t *testing.T) {
	block := testBlock(t)

	// Operation 0 lands in transaction slot 1, after the incoming bundle.
	id, ok := block.MessageIDForOperation(0, 0)
	require.True(t, ok)
	assert.Equal(t, MessageID{ChainID: block.Header.ChainID, Height: block.Header.Height, Index: 1}, id)
	message, ok := block.MessageByID(id)
	require.True(t, ok)
	assert.Equal(t, []byte("m1"), message.Payload)

	id, ok = block.MessageIDForOperation(0, 1)
	require.True(t, ok)
	assert.Equal(t, uint32(2), id.Index)
	message, ok = block.MessageByID(id)
	require.True(t, ok)
	assert.Equal(t, []byte("m2"), message.Payload)

	// Operation 1 produced no messages.
	_, ok = block.MessageIDForOperation(1, 0)
	assert.False(t, ok)

	// Out of range on both axes.
	_, ok = block.MessageIDForOperation(2, 0)
	assert.False(t, ok)
	_, ok = block.MessageIDForOperation(-1, 0)
	assert.False(t, ok)
	_, ok = block.MessageIDForOperation(0, 2)
	assert.False(t, ok)
}

func TestMessageByIDValidatesPlacement(t *testing.T) {
	block := testBlock(t)

	message, ok := block.MessageByID(MessageID{ChainID: block.Header.ChainID, Height: block.Header.Height, Index: 0})
	require.True(t, ok)
	assert.Equal(t, []byte("m0"), message.Payload)

	_, ok = block.MessageByID(MessageID{ChainID: testChainID(9), Height: block.Header.Height, Index: 0})
	assert.False(t, ok)
	_, ok = block.MessageByID(MessageID{ChainID: block.Header.ChainID, Height: 99, Index: 0})
	assert.False(t, ok)
	_, ok = block.MessageByID(MessageID{ChainID: block.Header.ChainID, Height: block.Header.Height, Index: 3})
	assert.False(t, ok)
}

func TestMessageBundlesFor(t *testing.T) {
	block := testBlock(t)
	recipient := testChainID(2)
	certHash := testHash(0x33)

	bundles := block.MessageBundlesFor(DirectMedium(), recipient, certHash)
	require.Len(t, bundles, 2)
	assert.Equal(t, uint32(0), bundles[0].TransactionIndex)
	assert.Equal(t, uint32(1), bundles[1].TransactionIndex)
	for _, bundle := range bundles {
		assert.Equal(t, block.Header.Height, bundle.Height)
		assert.Equal(t, block.Header.Timestamp, bundle.Timestamp)
		assert.Equal(t, certHash, bundle.CertificateHash)
	}
	require.Len(t, bundles[0].Messages, 1)
	assert.Equal(t, uint32(0), bundles[0].Messages[0].Index)
	assert.Equal(t, []byte("m0"), bundles[0].Messages[0].Payload)
	require.Len(t, bundles[1].Messages, 1)
	assert.Equal(t, uint32(1), bundles[1].Messages[0].Index)
	assert.Equal(t, []byte("m1"), bundles[1].Messages[0].Payload)

	channel := block.MessageBundlesFor(ChannelMedium([]byte("news")), recipient, certHash)
	require.Len(t, channel, 1)
	assert.Equal(t, uint32(1), channel[0].TransactionIndex)
	require.Len(t, channel[0].Messages, 1)
	assert.Equal(t, uint32(2), channel[0].Messages[0].Index)
	assert.Equal(t, []byte("m2"), channel[0].Messages[0].Payload)

	assert.Empty(t, block.MessageBundlesFor(DirectMedium(), testChainID(9), certHash))
	assert.Empty(t, block.MessageBundlesFor(ChannelMedium([]byte("other")), recipient, certHash))
}

func TestRequiredBlobIDs(t *testing.T) {
	block := testBlock(t)

	ids := block.RequiredBlobIDs()
	assert.Equal(t, 2, ids.Cardinality())
	assert.True(t, ids.Contains(BlobID{Hash: testHash(0x88), Type: BlobTypeData}))
	assert.True(t, ids.Contains(BlobID{Hash: testHash(0x77), Type: BlobTypeData}))
	assert.True(t, block.RequiresBlob(BlobID{Hash: testHash(0x88), Type: BlobTypeData}))
	assert.False(t, block.RequiresBlob(BlobID{Hash: testHash(0x88), Type: BlobTypeContractBytecode}))

	proposal := testProposal()
	proposal.Operations = append(proposal.Operations, Operation{
		System: &SystemOperation{PublishBytecode: &PublishBytecode{
			Contract: testHash(0xaa),
			Service:  testHash(0xbb),
		}},
	})
	outcome := testOutcome()
	outcome.Messages = append(outcome.Messages, []OutgoingMessage{})
	outcome.OracleResponses = append(outcome.OracleResponses, []OracleResponse{})
	outcome.Events = append(outcome.Events, []Event{})
	withBytecode, err := NewBlock(proposal, outcome)
	require.NoError(t, err)
	assert.True(t, withBytecode.RequiresBlob(BlobID{Hash: testHash(0xaa), Type: BlobTypeContractBytecode}))
	assert.True(t, withBytecode.RequiresBlob(BlobID{Hash: testHash(0xbb), Type: BlobTypeServiceBytecode}))
}

func TestHasOnlyRejectedMessages(t *testing.T) {
	block := testBlock(t)
	assert.False(t, block.HasOnlyRejectedMessages())

	proposal := testProposal()
	proposal.Operations = nil
	proposal.IncomingBundles[0].Action = MessageActionReject
	outcome := testOutcome()
	outcome.Messages = outcome.Messages[:1]
	outcome.OracleResponses = outcome.OracleResponses[:1]
	outcome.Events = outcome.Events[:1]
	rejected, err := NewBlock(proposal, outcome)
	require.NoError(t, err)
	assert.True(t, rejected.HasOnlyRejectedMessages())

	proposal.IncomingBundles[0].Action = MessageActionAccept
	accepted, err := NewBlock(proposal, outcome)
	require.NoError(t, err)
	assert.False(t, accepted.HasOnlyRejectedMessages())
}

func TestCheckProposalSize(t *testing.T) {
	block := testBlock(t)
	blobs := []Blob{{Type: BlobTypeData, Data: []byte("blob content")}}

	cfg := params.DefaultProtocolConfig()
	require.NoError(t, block.CheckProposalSize(int(cfg.MaxProposalSizeBytes), blobs))

	err := block.CheckProposalSize(16, blobs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds limit")
}

func TestBlobID(t *testing.T) {
	blob := Blob{Type: BlobTypeData, Data: []byte("payload")}
	id := blob.ID()
	assert.Equal(t, BlobTypeData, id.Type)
	assert.Equal(t, id, blob.ID())

	asBytecode := Blob{Type: BlobTypeContractBytecode, Data: []byte("payload")}
	assert.NotEqual(t, id.Hash, asBytecode.ID().Hash)
}

func TestHeaderHashesStableUnderFuzzedPayloads(t *testing.T) {
	f := fuzz.New().NilChance(0).NumElements(1, 4)
	var payloads [][]byte
	f.Fuzz(&payloads)
	require.NotEmpty(t, payloads)

	first, err := NewBlock(
		ProposedBlock{
			ChainID:    testChainID(1),
			Height:     1,
			Operations: []Operation{{User: &UserOperation{ApplicationID: testHash(1), Bytes: payloads[0]}}},
		},
		BlockOutcome{
			Messages:        [][]OutgoingMessage{payloadMessages(payloads)},
			OracleResponses: [][]OracleResponse{{}},
			Events:          [][]Event{{}},
		})
	require.NoError(t, err)
	second, err := NewBlock(
		ProposedBlock{
			ChainID:    testChainID(1),
			Height:     1,
			Operations: []Operation{{User: &UserOperation{ApplicationID: testHash(1), Bytes: payloads[0]}}},
		},
		BlockOutcome{
			Messages:        [][]OutgoingMessage{payloadMessages(payloads)},
			OracleResponses: [][]OracleResponse{{}},
			Events:          [][]Event{{}},
		})
	require.NoError(t, err)
	assert.Equal(t, first.Header, second.Header)
}

func payloadMessages(payloads [][]byte) []OutgoingMessage {
	messages := make([]OutgoingMessage, len(payloads))
	for i, p := range payloads {
		messages[i] = directMessage(testChainID(2), string(p))
	}
	return messages
}
