package relayer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// fakeBatchIndex models BatchIndex's contract over an in-memory batch
// list. insideWindow is a boolean flag flippable by the test in place of
// evm_increaseTime (§9's open question: production code never depends on
// that RPC, only the fake models finality as explicit state).
type fakeBatchIndex struct {
	batches      []*StateBatchHeader
	insideWindow map[uint64]bool // batchIndex -> still inside fraud window
}

func newFakeBatchIndex() *fakeBatchIndex {
	return &fakeBatchIndex{insideWindow: make(map[uint64]bool)}
}

func (f *fakeBatchIndex) appendBatch(prevTotal uint64, roots []common.Hash) *StateBatchHeader {
	idx := uint64(len(f.batches))
	header := &StateBatchHeader{
		BatchIndex:        new(big.Int).SetUint64(idx),
		BatchRoot:         merkleRoot(roots),
		BatchSize:         new(big.Int).SetUint64(uint64(len(roots))),
		PrevTotalElements: new(big.Int).SetUint64(prevTotal),
		StateRoots:        roots,
	}
	f.batches = append(f.batches, header)
	f.insideWindow[idx] = true
	return header
}

func (f *fakeBatchIndex) finalize(batchIndex uint64) {
	f.insideWindow[batchIndex] = false
}

func (f *fakeBatchIndex) GetStateBatchHeader(_ context.Context, height uint64) (*StateBatchHeader, error) {
	for _, b := range f.batches {
		if b.Covers(height) {
			return b, nil
		}
	}
	return nil, nil
}

func (f *fakeBatchIndex) IsTransactionFinalized(ctx context.Context, height uint64) (bool, error) {
	header, err := f.GetStateBatchHeader(ctx, height)
	if err != nil || header == nil {
		return false, err
	}
	return !f.insideWindow[header.BatchIndex.Uint64()], nil
}

// merkleRoot computes the same tree stateRootMerkleProof builds, for
// constructing test fixtures whose BatchRoot is internally consistent.
func merkleRoot(roots []common.Hash) common.Hash {
	n := len(roots)
	size := nextPowerOfTwo(n)
	var zeroLeaf common.Hash
	copy(zeroLeaf[:], crypto.Keccak256(make([]byte, 32)))
	level := make([]common.Hash, size)
	for i := 0; i < size; i++ {
		if i < n {
			level[i] = crypto.Keccak256Hash(roots[i][:])
		} else {
			level[i] = zeroLeaf
		}
	}
	for len(level) > 1 {
		next := make([]common.Hash, len(level)/2)
		for i := range next {
			next[i] = crypto.Keccak256Hash(level[2*i][:], level[2*i+1][:])
		}
		level = next
	}
	return level[0]
}

// fakeScanner serves fixed SentMessage records for exact height ranges,
// the way MessageScanner would after a real FilterLogs call.
type fakeScanner struct {
	messages []SentMessage
}

func (f *fakeScanner) GetSentMessages(_ context.Context, startHeight, endHeight uint64) ([]SentMessage, error) {
	var out []SentMessage
	for _, m := range f.messages {
		if m.Height >= startHeight && m.Height <= endHeight {
			out = append(out, m)
		}
	}
	return out, nil
}

// fakeProofBuilder returns a placeholder MessageProof for any message
// whose hash isn't in failHashes; RelayLoop never inspects proof contents.
type fakeProofBuilder struct {
	failHashes map[common.Hash]bool
}

func (f *fakeProofBuilder) GetMessageProof(_ context.Context, msg SentMessage) (MessageProof, error) {
	if f.failHashes[msg.Hash] {
		return MessageProof{}, ErrBatchNotFound
	}
	return MessageProof{StateRoot: msg.Hash}, nil
}

// fakeL1Dest models the L1 cross-domain messenger's dedup/relay surface
// as an in-memory ledger, the idempotence anchor spec.md §7/§8 lean on.
type fakeL1Dest struct {
	relayed      map[common.Hash]bool
	relayCount   map[common.Hash]int
	failNextOnce map[common.Hash]bool
}

func newFakeL1Dest() *fakeL1Dest {
	return &fakeL1Dest{
		relayed:      make(map[common.Hash]bool),
		relayCount:   make(map[common.Hash]int),
		failNextOnce: make(map[common.Hash]bool),
	}
}

func (f *fakeL1Dest) SuccessfulMessage(_ context.Context, hash common.Hash) (bool, error) {
	return f.relayed[hash], nil
}

func (f *fakeL1Dest) RelayMessage(_ context.Context, msg SentMessage, _ MessageProof) (*types.Receipt, error) {
	if f.failNextOnce[msg.Hash] {
		f.failNextOnce[msg.Hash] = false
		return nil, ErrSubmissionFailed
	}
	f.relayCount[msg.Hash]++
	f.relayed[msg.Hash] = true
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}
