package relayer

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// L1Transport is the read/write surface the relayer needs from an L1 node.
// *ethclient.Client satisfies it; tests supply a fake.
type L1Transport interface {
	bind.ContractBackend
	TransactionByHash(ctx context.Context, txHash common.Hash) (tx *types.Transaction, isPending bool, err error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// L2Transport is the read surface the relayer needs from an L2 node,
// including the eth_getProof RPC extension exposed via the raw *rpc.Client.
// *ethclient.Client satisfies it; tests supply a fake.
type L2Transport interface {
	bind.ContractBackend
	Client() *rpc.Client
}
