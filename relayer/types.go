// Package relayer finalizes L2-to-L1 messages emitted by an optimistic
// rollup: it watches the L2 chain for SentMessage events, waits for the
// covering state batch to exit its L1 fraud-proof window, builds the
// Merkle and account/storage inclusion proof the L1 messenger demands, and
// submits the relay transaction.
package relayer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// StateBatchHeader describes one StateBatchAppended event on L1: the
// batchIndex-th append of state roots covering L2 heights
// [PrevTotalElements, PrevTotalElements+BatchSize).
type StateBatchHeader struct {
	BatchIndex        *big.Int
	BatchRoot         common.Hash
	BatchSize         *big.Int
	PrevTotalElements *big.Int
	ExtraData         []byte
	StateRoots        []common.Hash
}

// Covers reports whether the batch commits the state root for L2 height.
func (h *StateBatchHeader) Covers(height uint64) bool {
	start := h.PrevTotalElements.Uint64()
	size := h.BatchSize.Uint64()
	return height >= start && height < start+size
}

// StateRootAt returns the state root this batch committed for height, and
// whether height falls inside the batch.
func (h *StateBatchHeader) StateRootAt(height uint64) (common.Hash, bool) {
	idx, ok := h.IndexOf(height)
	if !ok {
		return common.Hash{}, false
	}
	return h.StateRoots[idx], true
}

// IndexOf returns height's position within StateRoots, and whether height
// falls inside the batch.
func (h *StateBatchHeader) IndexOf(height uint64) (int, bool) {
	if !h.Covers(height) {
		return 0, false
	}
	return int(height - h.PrevTotalElements.Uint64()), true
}

// SentMessage is one message emitted by the L2 cross-domain messenger,
// decoded from the calldata it carries.
type SentMessage struct {
	Target   common.Address
	Sender   common.Address
	Data     []byte
	Nonce    *big.Int
	Calldata []byte
	Hash     common.Hash
	Height   uint64
	LogIndex uint
}

// StateRootProof is the Merkle inclusion proof of a single state root
// inside its batch's power-of-two-padded keccak tree.
type StateRootProof struct {
	Index    uint64
	Siblings []common.Hash
}

// MessageProof is submitted alongside a relay transaction; its shape must
// match the L1 messenger's relayMessage ABI bit-for-bit.
type MessageProof struct {
	StateRoot            common.Hash
	StateRootBatchHeader StateBatchHeader
	StateRootProof       StateRootProof
	StateTrieWitness     []byte
	StorageTrieWitness   []byte
}

// Cursor is the controller's scan position. It is never persisted:
// restarts always replay from Configuration.L2ChainStartingHeight, and
// already-relayed messages are filtered out via on-chain dedup.
type Cursor struct {
	LastFinalizedTxHeight   uint64
	NextUnfinalizedTxHeight uint64
}
