package relayer

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stateRootsFixture(n int) []common.Hash {
	roots := make([]common.Hash, n)
	for i := range roots {
		roots[i] = crypto.Keccak256Hash([]byte{byte(i)})
	}
	return roots
}

func TestStateRootMerkleProof_InclusionRoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 8, 13} {
		roots := stateRootsFixture(n)
		batch := StateBatchHeader{
			BatchIndex:        big.NewInt(0),
			BatchSize:         big.NewInt(int64(n)),
			PrevTotalElements: big.NewInt(100),
			StateRoots:        roots,
		}
		for height := uint64(100); height < uint64(100+n); height++ {
			stateRoot, proof, err := stateRootMerkleProof(batch, height)
			require.NoError(t, err, "n=%d height=%d", n, height)
			assert.Equal(t, roots[height-100], stateRoot)

			leaf := crypto.Keccak256Hash(stateRoot[:])
			root := merkleRoot(roots)
			assert.True(t, VerifyStateRootInclusion(leaf, proof, root),
				"inclusion proof failed to verify for n=%d height=%d", n, height)
		}
	}
}

func TestStateRootMerkleProof_HeightOutsideBatch(t *testing.T) {
	batch := StateBatchHeader{
		BatchIndex:        big.NewInt(0),
		BatchSize:         big.NewInt(3),
		PrevTotalElements: big.NewInt(10),
		StateRoots:        stateRootsFixture(3),
	}
	_, _, err := stateRootMerkleProof(batch, 13)
	assert.ErrorIs(t, err, ErrBatchNotFound)
	_, _, err = stateRootMerkleProof(batch, 9)
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestVerifyStateRootInclusion_TamperedSiblingFails(t *testing.T) {
	roots := stateRootsFixture(5)
	batch := StateBatchHeader{
		BatchIndex:        big.NewInt(0),
		BatchSize:         big.NewInt(5),
		PrevTotalElements: big.NewInt(0),
		StateRoots:        roots,
	}
	stateRoot, proof, err := stateRootMerkleProof(batch, 2)
	require.NoError(t, err)
	root := merkleRoot(roots)
	leaf := crypto.Keccak256Hash(stateRoot[:])
	require.True(t, VerifyStateRootInclusion(leaf, proof, root))

	proof.Siblings[0] = crypto.Keccak256Hash([]byte("tampered"))
	assert.False(t, VerifyStateRootInclusion(leaf, proof, root))
}

func TestMessageStorageSlot_DeterministicAndAddressSensitive(t *testing.T) {
	calldata := []byte("relay me")
	messengerA := common.HexToAddress("0x1111111111111111111111111111111111111111")
	messengerB := common.HexToAddress("0x2222222222222222222222222222222222222222")

	slotA1 := messageStorageSlot(calldata, messengerA)
	slotA2 := messageStorageSlot(calldata, messengerA)
	assert.Equal(t, slotA1, slotA2, "slot derivation must be deterministic")

	slotB := messageStorageSlot(calldata, messengerB)
	assert.NotEqual(t, slotA1, slotB, "different messenger address must produce a different slot")

	slotOtherCalldata := messageStorageSlot([]byte("different"), messengerA)
	assert.NotEqual(t, slotA1, slotOtherCalldata)
}

func TestNextPowerOfTwoAndLog2(t *testing.T) {
	cases := []struct{ n, want int }{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {4, 4}, {5, 8}, {8, 8}, {9, 16},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, nextPowerOfTwo(c.n), "n=%d", c.n)
	}
	assert.Equal(t, 0, log2(1))
	assert.Equal(t, 1, log2(2))
	assert.Equal(t, 3, log2(8))
	assert.Equal(t, 4, log2(16))
}
