package relayer

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/cross-domain-relayer/relayer/solgen/go/l2xdmgen"
)

// L2Client is a typed read wrapper around an L2 RPC endpoint: it reads
// SentMessage history from the L2 cross-domain messenger and fetches
// Merkle-Patricia account/storage proofs via eth_getProof.
type L2Client struct {
	backend L2Transport
	xdm     *l2xdmgen.L2CrossDomainMessenger
	xdmAddr common.Address
}

// NewL2Client binds the L2 cross-domain messenger contract at xdmAddr to
// backend.
func NewL2Client(backend L2Transport, xdmAddr common.Address) (*L2Client, error) {
	xdm, err := l2xdmgen.NewL2CrossDomainMessenger(xdmAddr, backend)
	if err != nil {
		return nil, errors.Wrap(err, "binding L2 cross domain messenger")
	}
	return &L2Client{backend: backend, xdm: xdm, xdmAddr: xdmAddr}, nil
}

// DetectNetwork pings the backend the way _init's sanity check requires.
func (c *L2Client) DetectNetwork(ctx context.Context) error {
	if _, err := c.backend.CodeAt(ctx, c.xdmAddr, nil); err != nil {
		return errors.Wrap(ErrConfiguration, err.Error())
	}
	return nil
}

// SentMessageEvents returns every SentMessage log emitted by the L2
// cross-domain messenger in the inclusive block range [fromBlock,
// toBlock], in emission order.
func (c *L2Client) SentMessageEvents(ctx context.Context, fromBlock, toBlock uint64) ([]*l2xdmgen.SentMessage, error) {
	it, err := c.xdm.FilterSentMessage(&bind.FilterOpts{Start: fromBlock, End: &toBlock, Context: ctx})
	if err != nil {
		return nil, errors.Wrap(ErrRPCTransient, err.Error())
	}
	defer it.Close()
	var events []*l2xdmgen.SentMessage
	for it.Next() {
		events = append(events, it.Event)
	}
	if err := it.Error(); err != nil {
		return nil, errors.Wrap(ErrRPCTransient, err.Error())
	}
	return events, nil
}

// accountProof is the shape eth_getProof returns: raw hex-encoded RLP
// nodes for the account and for each requested storage key.
type accountProof struct {
	AccountProof []string `json:"accountProof"`
	StorageProof []struct {
		Proof []string `json:"proof"`
	} `json:"storageProof"`
}

// GetProof calls eth_getProof against address for the single storage key
// slot, at the L2 block number height. It returns the account-trie and
// storage-trie proof node lists in the node's order, each node decoded
// from hex to its raw bytes; ProofBuilder handles RLP packaging.
func (c *L2Client) GetProof(ctx context.Context, address common.Address, slot common.Hash, height uint64) (accountNodes [][]byte, storageNodes [][]byte, err error) {
	var result accountProof
	blockTag := fmt.Sprintf("0x%x", height)
	if rpcErr := c.backend.Client().CallContext(ctx, &result, "eth_getProof", address, []common.Hash{slot}, blockTag); rpcErr != nil {
		return nil, nil, errors.Wrap(ErrRPCTransient, rpcErr.Error())
	}
	if len(result.StorageProof) == 0 {
		return nil, nil, errors.Wrap(ErrRPCTransient, "eth_getProof returned no storage proof entries")
	}
	accountNodes = make([][]byte, len(result.AccountProof))
	for i, n := range result.AccountProof {
		accountNodes[i] = common.FromHex(n)
	}
	storageNodes = make([][]byte, len(result.StorageProof[0].Proof))
	for i, n := range result.StorageProof[0].Proof {
		storageNodes[i] = common.FromHex(n)
	}
	return accountNodes, storageNodes, nil
}
