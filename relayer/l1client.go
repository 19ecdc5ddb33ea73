package relayer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/cross-domain-relayer/relayer/solgen/go/l1xdmgen"
	"github.com/cross-domain-relayer/relayer/solgen/go/sccgen"
)

// L1Client is a typed read/write wrapper around an L1 RPC endpoint: it
// reads StateBatchAppended history and calls the state commitment chain's
// view methods, and submits relay transactions to the L1 cross-domain
// messenger. Shaped like protocol/sol-implementation.AssertionChain: a
// thin struct over abigen-style bindings plus a backend handle kept for
// raw log filtering and transaction lookups the bindings don't expose.
type L1Client struct {
	backend L1Transport
	scc     *sccgen.StateCommitmentChain
	sccAddr common.Address
	xdm     *l1xdmgen.L1CrossDomainMessenger
	signer  *bind.TransactOpts
}

// NewL1Client binds the state commitment chain and L1 cross-domain
// messenger contracts at the given addresses to backend.
func NewL1Client(backend L1Transport, sccAddr, l1XdmAddr common.Address, signer *bind.TransactOpts) (*L1Client, error) {
	scc, err := sccgen.NewStateCommitmentChain(sccAddr, backend)
	if err != nil {
		return nil, errors.Wrap(err, "binding state commitment chain")
	}
	xdm, err := l1xdmgen.NewL1CrossDomainMessenger(l1XdmAddr, backend)
	if err != nil {
		return nil, errors.Wrap(err, "binding L1 cross domain messenger")
	}
	return &L1Client{backend: backend, scc: scc, sccAddr: sccAddr, xdm: xdm, signer: signer}, nil
}

// DetectNetwork pings the backend the way _init's sanity check requires:
// a code read of the state commitment chain address that round-trips to
// the node counts as "answers."
func (c *L1Client) DetectNetwork(ctx context.Context) error {
	if _, err := c.backend.CodeAt(ctx, c.sccAddr, nil); err != nil {
		return errors.Wrap(ErrConfiguration, err.Error())
	}
	return nil
}

// StateBatchAppendedEvents returns every StateBatchAppended log emitted by
// the state commitment chain at or after L1 block fromBlock, in emission
// order. BatchIndex is the only
// caller; it owns caching.
func (c *L1Client) StateBatchAppendedEvents(ctx context.Context, fromBlock uint64) ([]*sccgen.StateBatchAppended, error) {
	it, err := c.scc.FilterStateBatchAppended(&bind.FilterOpts{Start: fromBlock, Context: ctx})
	if err != nil {
		return nil, errors.Wrap(ErrRPCTransient, err.Error())
	}
	defer it.Close()
	var events []*sccgen.StateBatchAppended
	for it.Next() {
		events = append(events, it.Event)
	}
	if err := it.Error(); err != nil {
		return nil, errors.Wrap(ErrRPCTransient, err.Error())
	}
	return events, nil
}

// AppendStateBatchCalldata fetches the L1 transaction that emitted ev and
// decodes its appendStateBatch(stateRoots, startElement) calldata.
func (c *L1Client) AppendStateBatchCalldata(ctx context.Context, ev *sccgen.StateBatchAppended) ([]common.Hash, *big.Int, error) {
	tx, _, err := c.backend.TransactionByHash(ctx, ev.Raw.TxHash)
	if err != nil {
		return nil, nil, errors.Wrap(ErrRPCTransient, err.Error())
	}
	roots, start, err := c.scc.DecodeAppendStateBatch(tx.Data())
	if err != nil {
		return nil, nil, errors.Wrap(ErrDecodeMessage, err.Error())
	}
	return roots, start, nil
}

// InsideFraudProofWindow calls the state commitment chain's view method of
// the same name with the full batch header.
func (c *L1Client) InsideFraudProofWindow(ctx context.Context, header StateBatchHeader) (bool, error) {
	var root [32]byte
	copy(root[:], header.BatchRoot[:])
	chainHeader := sccgen.ChainBatchHeader{
		BatchIndex:        header.BatchIndex,
		BatchRoot:         root,
		BatchSize:         header.BatchSize,
		PrevTotalElements: header.PrevTotalElements,
		ExtraData:         header.ExtraData,
	}
	inside, err := c.scc.InsideFraudProofWindow(&bind.CallOpts{Context: ctx}, chainHeader)
	if err != nil {
		return false, errors.Wrap(ErrRPCTransient, err.Error())
	}
	return inside, nil
}

// SuccessfulMessage reports whether the L1 cross-domain messenger has
// already relayed the message with the given hash.
func (c *L1Client) SuccessfulMessage(ctx context.Context, hash common.Hash) (bool, error) {
	ok, err := c.xdm.SuccessfulMessages(&bind.CallOpts{Context: ctx}, hash)
	if err != nil {
		return false, errors.Wrap(ErrRPCTransient, err.Error())
	}
	return ok, nil
}

// RelayMessage submits relayMessage(target, sender, data, nonce, proof)
// signed by the configured signer with a 2,000,000 gas limit, and blocks
// until the transaction is mined.
func (c *L1Client) RelayMessage(ctx context.Context, msg SentMessage, proof MessageProof) (*types.Receipt, error) {
	opts := *c.signer
	opts.Context = ctx
	opts.GasLimit = 2_000_000

	var root [32]byte
	copy(root[:], proof.StateRootBatchHeader.BatchRoot[:])
	siblings := make([][32]byte, len(proof.StateRootProof.Siblings))
	for i, s := range proof.StateRootProof.Siblings {
		siblings[i] = [32]byte(s)
	}
	var stateRoot [32]byte
	copy(stateRoot[:], proof.StateRoot[:])

	xdmProof := l1xdmgen.L2MessageInclusionProof{
		StateRoot: stateRoot,
		StateRootBatchHeader: l1xdmgen.ChainBatchHeader{
			BatchIndex:        proof.StateRootBatchHeader.BatchIndex,
			BatchRoot:         root,
			BatchSize:         proof.StateRootBatchHeader.BatchSize,
			PrevTotalElements: proof.StateRootBatchHeader.PrevTotalElements,
			ExtraData:         proof.StateRootBatchHeader.ExtraData,
		},
		StateRootProof: l1xdmgen.StateRootProof{
			Index:    new(big.Int).SetUint64(proof.StateRootProof.Index),
			Siblings: siblings,
		},
		StateTrieWitness:   proof.StateTrieWitness,
		StorageTrieWitness: proof.StorageTrieWitness,
	}

	tx, err := c.xdm.RelayMessage(&opts, msg.Target, msg.Sender, msg.Data, msg.Nonce, xdmProof)
	if err != nil {
		return nil, errors.Wrap(ErrSubmissionFailed, err.Error())
	}
	log.Debug("relayMessage submitted", "hash", msg.Hash, "tx", tx.Hash())
	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return nil, errors.Wrap(ErrSubmissionFailed, err.Error())
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return receipt, errors.Wrapf(ErrSubmissionFailed, "tx %s reverted", tx.Hash())
	}
	return receipt, nil
}
