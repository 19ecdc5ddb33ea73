package relayer

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sentMessage(t *testing.T, height uint64, nonce int64, logIndex uint) SentMessage {
	t.Helper()
	calldata := []byte{byte(height), byte(nonce), byte(logIndex)}
	return SentMessage{
		Target:   common.HexToAddress("0xaaaa"),
		Sender:   common.HexToAddress("0xbbbb"),
		Data:     calldata,
		Nonce:    big.NewInt(nonce),
		Calldata: calldata,
		Hash:     crypto.Keccak256Hash(calldata),
		Height:   height,
		LogIndex: logIndex,
	}
}

func newTestLoop(batches *fakeBatchIndex, scanner *fakeScanner, proofs *fakeProofBuilder, dest *fakeL1Dest, startingHeight uint64) *RelayLoop {
	cfg := ConfigDefault()
	return newRelayLoopForTest(cfg, dest, batches, scanner, proofs, startingHeight)
}

// Scenario: the next height isn't finalized yet. tick must be a no-op:
// cursor unchanged, nothing relayed.
func TestTick_PreFinalizationIsNoop(t *testing.T) {
	batches := newFakeBatchIndex()
	batches.appendBatch(0, stateRootsFixture(3))
	msg := sentMessage(t, 0, 1, 0)
	scanner := &fakeScanner{messages: []SentMessage{msg}}
	dest := newFakeL1Dest()
	loop := newTestLoop(batches, scanner, &fakeProofBuilder{}, dest, 0)

	loop.tick(context.Background())

	assert.Equal(t, Cursor{LastFinalizedTxHeight: 0, NextUnfinalizedTxHeight: 0}, loop.Cursor())
	assert.False(t, dest.relayed[msg.Hash])
}

// Scenario: a single message becomes finalized and is relayed exactly once.
func TestTick_SingleMessageRelayedAfterFinalization(t *testing.T) {
	batches := newFakeBatchIndex()
	batches.appendBatch(0, stateRootsFixture(1))
	batches.finalize(0)
	msg := sentMessage(t, 0, 1, 0)
	scanner := &fakeScanner{messages: []SentMessage{msg}}
	dest := newFakeL1Dest()
	loop := newTestLoop(batches, scanner, &fakeProofBuilder{}, dest, 0)

	loop.tick(context.Background())

	assert.True(t, dest.relayed[msg.Hash])
	assert.Equal(t, 1, dest.relayCount[msg.Hash])
	assert.Equal(t, uint64(1), loop.Cursor().NextUnfinalizedTxHeight)
}

// Scenario: ten messages land across ten single-element batches; the
// cursor must walk all ten batches in one tick once every one of them
// clears the fraud window, and every message gets relayed.
func TestTick_TenMessagesAcrossTenBatches(t *testing.T) {
	batches := newFakeBatchIndex()
	var messages []SentMessage
	for i := uint64(0); i < 10; i++ {
		batches.appendBatch(i, stateRootsFixture(1))
		batches.finalize(i)
		messages = append(messages, sentMessage(t, i, int64(i), 0))
	}
	scanner := &fakeScanner{messages: messages}
	dest := newFakeL1Dest()
	loop := newTestLoop(batches, scanner, &fakeProofBuilder{}, dest, 0)

	loop.tick(context.Background())

	for _, msg := range messages {
		assert.True(t, dest.relayed[msg.Hash], "height %d should have been relayed", msg.Height)
	}
	assert.Equal(t, uint64(10), loop.Cursor().NextUnfinalizedTxHeight)
}

// Scenario: a message already relayed (e.g. a prior process instance
// relayed it before restart) must be skipped via on-chain dedup, never
// resubmitted.
func TestTick_AlreadyRelayedMessageSkipped(t *testing.T) {
	batches := newFakeBatchIndex()
	batches.appendBatch(0, stateRootsFixture(1))
	batches.finalize(0)
	msg := sentMessage(t, 0, 1, 0)
	scanner := &fakeScanner{messages: []SentMessage{msg}}
	dest := newFakeL1Dest()
	dest.relayed[msg.Hash] = true // simulates a relay that happened before a restart
	loop := newTestLoop(batches, scanner, &fakeProofBuilder{}, dest, 0)

	loop.tick(context.Background())

	assert.Equal(t, 0, dest.relayCount[msg.Hash], "dedup must prevent resubmission")
}

// Scenario: proof construction fails for one message; the loop must skip
// only that message (soft failure) and recover it on a later tick once
// proof building starts succeeding again, without blocking other messages
// in the same tick. Recovery must come from the pending-retry queue, not
// from the scan window: no second batch ever finalizes in this test, so
// the cursor never advances past height 2 and the scanner keeps serving
// the very same [bad, good] fixture — if tick() only re-scanned its
// window, bad would never be retried.
func TestTick_ProofFailureRecoversNextTick(t *testing.T) {
	batches := newFakeBatchIndex()
	batches.appendBatch(0, stateRootsFixture(2))
	batches.finalize(0)
	bad := sentMessage(t, 0, 1, 0)
	good := sentMessage(t, 1, 2, 0)
	scanner := &fakeScanner{messages: []SentMessage{bad, good}}
	dest := newFakeL1Dest()
	proofs := &fakeProofBuilder{failHashes: map[common.Hash]bool{bad.Hash: true}}
	loop := newTestLoop(batches, scanner, proofs, dest, 0)

	loop.tick(context.Background())
	assert.False(t, dest.relayed[bad.Hash], "message with failing proof must be skipped this tick")
	assert.True(t, dest.relayed[good.Hash], "sibling message must still relay despite the other's failure")
	assert.Equal(t, []SentMessage{bad}, loop.pending, "failed message must be queued for retry")

	delete(proofs.failHashes, bad.Hash)
	loop.tick(context.Background())
	assert.True(t, dest.relayed[bad.Hash], "message must relay once proof building recovers")
	assert.Equal(t, 1, dest.relayCount[bad.Hash])
	assert.Empty(t, loop.pending, "pending queue must drain once the retry succeeds")

	// A third tick must not resubmit: nothing re-adds an already-relayed
	// message to pending, and the scanner still only ever serves the
	// messages from the first scan.
	loop.tick(context.Background())
	assert.Equal(t, 1, dest.relayCount[bad.Hash], "pending queue must not resubmit an already-relayed message")
}

// Scenario: cursor advancement must never skip a finalized batch even
// when the scan window spans several ticks; replaying the same range
// across ticks must not cause gaps or double counting of LastFinalizedTxHeight.
func TestTick_CursorAdvancesGaplessly(t *testing.T) {
	batches := newFakeBatchIndex()
	batches.appendBatch(0, stateRootsFixture(2))  // heights 0-1
	batches.appendBatch(2, stateRootsFixture(3))  // heights 2-4
	batches.finalize(0)
	msgs := []SentMessage{sentMessage(t, 0, 1, 0), sentMessage(t, 1, 2, 0)}
	scanner := &fakeScanner{messages: msgs}
	dest := newFakeL1Dest()
	loop := newTestLoop(batches, scanner, &fakeProofBuilder{}, dest, 0)

	loop.tick(context.Background())
	require.Equal(t, Cursor{LastFinalizedTxHeight: 0, NextUnfinalizedTxHeight: 2}, loop.Cursor())
	for _, m := range msgs {
		assert.True(t, dest.relayed[m.Hash])
	}

	// Second batch finalizes later; the cursor must pick up exactly where
	// it left off, not re-scan [0,1] again.
	batches.finalize(1)
	more := sentMessage(t, 3, 3, 0)
	scanner.messages = append(scanner.messages, more)
	loop.tick(context.Background())
	assert.Equal(t, Cursor{LastFinalizedTxHeight: 2, NextUnfinalizedTxHeight: 5}, loop.Cursor())
	assert.True(t, dest.relayed[more.Hash])
}

func TestBuildProofs_ParallelPreservesOrderAndSkipsFailures(t *testing.T) {
	msgs := []SentMessage{
		sentMessage(t, 0, 1, 0),
		sentMessage(t, 1, 2, 0),
		sentMessage(t, 2, 3, 0),
	}
	proofs := &fakeProofBuilder{failHashes: map[common.Hash]bool{msgs[1].Hash: true}}
	cfg := ConfigDefault()
	cfg.ParallelProofBuilders = 4
	loop := newRelayLoopForTest(cfg, newFakeL1Dest(), newFakeBatchIndex(), &fakeScanner{}, proofs, 0)

	built := loop.buildProofs(context.Background(), msgs)

	require.Len(t, built, 3)
	assert.NotNil(t, built[0])
	assert.Nil(t, built[1], "message with failing proof must be nil in the result slice")
	assert.NotNil(t, built[2])
	assert.Equal(t, msgs[0].Hash, built[0].StateRoot)
	assert.Equal(t, msgs[2].Hash, built[2].StateRoot)
}
