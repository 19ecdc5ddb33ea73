// Package l1xdmgen is a hand-bound Go wrapper around the L1 cross-domain
// messenger contract, trimmed to successfulMessages and relayMessage — the
// only surface this relayer calls. Shaped like the abigen output in
// solgen/go/challengeV2gen in the retrieved Nitro sources.
package l1xdmgen

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ChainBatchHeader mirrors sccgen.ChainBatchHeader; relayMessage's proof
// argument embeds one, so the ABI needs its own copy of the tuple shape.
type ChainBatchHeader struct {
	BatchIndex        *big.Int
	BatchRoot         [32]byte
	BatchSize         *big.Int
	PrevTotalElements *big.Int
	ExtraData         []byte
}

// StateRootProof is the (index, siblings[]) inclusion-proof tuple.
type StateRootProof struct {
	Index    *big.Int
	Siblings [][32]byte
}

// L2MessageInclusionProof is the full MessageProof tuple relayMessage
// expects, matching spec.md §6's wire shape exactly.
type L2MessageInclusionProof struct {
	StateRoot            [32]byte
	StateRootBatchHeader ChainBatchHeader
	StateRootProof       StateRootProof
	StateTrieWitness     []byte
	StorageTrieWitness   []byte
}

const l1CrossDomainMessengerABIJSON = `[
	{"inputs":[{"internalType":"bytes32","name":"","type":"bytes32"}],"name":"successfulMessages","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"view","type":"function"},
	{"inputs":[
		{"internalType":"address","name":"_target","type":"address"},
		{"internalType":"address","name":"_sender","type":"address"},
		{"internalType":"bytes","name":"_message","type":"bytes"},
		{"internalType":"uint256","name":"_messageNonce","type":"uint256"},
		{"components":[
			{"internalType":"bytes32","name":"stateRoot","type":"bytes32"},
			{"components":[
				{"internalType":"uint256","name":"batchIndex","type":"uint256"},
				{"internalType":"bytes32","name":"batchRoot","type":"bytes32"},
				{"internalType":"uint256","name":"batchSize","type":"uint256"},
				{"internalType":"uint256","name":"prevTotalElements","type":"uint256"},
				{"internalType":"bytes","name":"extraData","type":"bytes"}
			],"internalType":"struct Lib_OVMCodec.ChainBatchHeader","name":"stateRootBatchHeader","type":"tuple"},
			{"components":[
				{"internalType":"uint256","name":"index","type":"uint256"},
				{"internalType":"bytes32[]","name":"siblings","type":"bytes32[]"}
			],"internalType":"struct Lib_OVMCodec.ChainInclusionProof","name":"stateRootProof","type":"tuple"},
			{"internalType":"bytes","name":"stateTrieWitness","type":"bytes"},
			{"internalType":"bytes","name":"storageTrieWitness","type":"bytes"}
		],"internalType":"struct L1CrossDomainMessenger.L2MessageInclusionProof","name":"_proof","type":"tuple"}
	],"name":"relayMessage","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// L1CrossDomainMessengerMetaData contains the ABI for the contract.
var L1CrossDomainMessengerMetaData = &bind.MetaData{ABI: l1CrossDomainMessengerABIJSON}

// L1CrossDomainMessenger is an auto generated Go binding around the contract.
type L1CrossDomainMessenger struct {
	address  common.Address
	contract *bind.BoundContract
}

// NewL1CrossDomainMessenger creates a new instance bound to address.
func NewL1CrossDomainMessenger(address common.Address, backend bind.ContractBackend) (*L1CrossDomainMessenger, error) {
	parsed, err := abi.JSON(strings.NewReader(l1CrossDomainMessengerABIJSON))
	if err != nil {
		return nil, err
	}
	return &L1CrossDomainMessenger{
		address:  address,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
	}, nil
}

// SuccessfulMessages calls the mapping view of the same name.
func (m *L1CrossDomainMessenger) SuccessfulMessages(opts *bind.CallOpts, hash [32]byte) (bool, error) {
	var out []interface{}
	if err := m.contract.Call(opts, &out, "successfulMessages", hash); err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// RelayMessage submits a relayMessage transaction.
func (m *L1CrossDomainMessenger) RelayMessage(
	opts *bind.TransactOpts,
	target common.Address,
	sender common.Address,
	data []byte,
	nonce *big.Int,
	proof L2MessageInclusionProof,
) (*types.Transaction, error) {
	return m.contract.Transact(opts, "relayMessage", target, sender, data, nonce, proof)
}
