// Package sccgen is a hand-bound Go wrapper around the state commitment
// chain contract, shaped like abigen output (see
// solgen/go/challengeV2gen in the retrieved Nitro sources) but trimmed to
// the StateBatchAppended event, the appendStateBatch calldata decoder, and
// the insideFraudProofWindow view — the only surface this relayer calls.
package sccgen

import (
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// ChainBatchHeader is an auto generated low-level Go binding around an
// user-defined struct, matching the on-chain Lib_OVMCodec.ChainBatchHeader.
type ChainBatchHeader struct {
	BatchIndex        *big.Int
	BatchRoot         [32]byte
	BatchSize         *big.Int
	PrevTotalElements *big.Int
	ExtraData         []byte
}

const stateCommitmentChainABIJSON = `[
	{"anonymous":false,"inputs":[
		{"indexed":true,"internalType":"uint256","name":"_batchIndex","type":"uint256"},
		{"indexed":false,"internalType":"bytes32","name":"_batchRoot","type":"bytes32"},
		{"indexed":false,"internalType":"uint256","name":"_batchSize","type":"uint256"},
		{"indexed":false,"internalType":"uint256","name":"_prevTotalElements","type":"uint256"},
		{"indexed":false,"internalType":"bytes","name":"_extraData","type":"bytes"}
	],"name":"StateBatchAppended","type":"event"},
	{"inputs":[
		{"internalType":"bytes32[]","name":"_batch","type":"bytes32[]"},
		{"internalType":"uint256","name":"_shouldStartAtElement","type":"uint256"}
	],"name":"appendStateBatch","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[
		{"components":[
			{"internalType":"uint256","name":"batchIndex","type":"uint256"},
			{"internalType":"bytes32","name":"batchRoot","type":"bytes32"},
			{"internalType":"uint256","name":"batchSize","type":"uint256"},
			{"internalType":"uint256","name":"prevTotalElements","type":"uint256"},
			{"internalType":"bytes","name":"extraData","type":"bytes"}
		],"internalType":"struct Lib_OVMCodec.ChainBatchHeader","name":"_batchHeader","type":"tuple"}
	],"name":"insideFraudProofWindow","outputs":[{"internalType":"bool","name":"_inside","type":"bool"}],"stateMutability":"view","type":"function"}
]`

// StateCommitmentChainMetaData contains the ABI for the contract.
var StateCommitmentChainMetaData = &bind.MetaData{ABI: stateCommitmentChainABIJSON}

// StateCommitmentChainABI is the contract's ABI as a JSON string.
var StateCommitmentChainABI = StateCommitmentChainMetaData.ABI

// StateBatchAppended is an auto generated Go binding matching an on-chain
// StateBatchAppended event.
type StateBatchAppended struct {
	BatchIndex        *big.Int
	BatchRoot         [32]byte
	BatchSize         *big.Int
	PrevTotalElements *big.Int
	ExtraData         []byte
	Raw               types.Log
}

// StateCommitmentChain is an auto generated Go binding around the contract.
type StateCommitmentChain struct {
	address  common.Address
	abi      abi.ABI
	contract *bind.BoundContract
}

// NewStateCommitmentChain creates a new instance bound to address, using
// backend for calls, transacts, and log filters.
func NewStateCommitmentChain(address common.Address, backend bind.ContractBackend) (*StateCommitmentChain, error) {
	parsed, err := abi.JSON(strings.NewReader(stateCommitmentChainABIJSON))
	if err != nil {
		return nil, err
	}
	return &StateCommitmentChain{
		address:  address,
		abi:      parsed,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
	}, nil
}

// FilterStateBatchAppended returns an iterator over StateBatchAppended logs
// in the inclusive [opts.Start, opts.End] block range.
func (c *StateCommitmentChain) FilterStateBatchAppended(opts *bind.FilterOpts) (*StateBatchAppendedIterator, error) {
	logs, sub, err := c.contract.FilterLogs(opts, "StateBatchAppended")
	if err != nil {
		return nil, err
	}
	return &StateBatchAppendedIterator{contract: c.contract, logs: logs, sub: sub}, nil
}

// StateBatchAppendedIterator iterates over the logs a filter query returned.
type StateBatchAppendedIterator struct {
	Event *StateBatchAppended

	contract *bind.BoundContract
	logs     chan types.Log
	sub      ethereum.Subscription
	done     bool
	fail     error
}

// Next advances the iterator; it returns false once logs are exhausted or
// an error occurs (check Error()).
func (it *StateBatchAppendedIterator) Next() bool {
	if it.fail != nil {
		return false
	}
	if it.done {
		select {
		case log := <-it.logs:
			return it.unpack(log)
		default:
			return false
		}
	}
	select {
	case log := <-it.logs:
		return it.unpack(log)
	case err := <-it.sub.Err():
		it.done = true
		it.fail = err
		return it.Next()
	}
}

func (it *StateBatchAppendedIterator) unpack(log types.Log) bool {
	ev := new(StateBatchAppended)
	if err := it.contract.UnpackLog(ev, "StateBatchAppended", log); err != nil {
		it.fail = err
		return false
	}
	ev.Raw = log
	it.Event = ev
	return true
}

// Error returns any error Next encountered.
func (it *StateBatchAppendedIterator) Error() error { return it.fail }

// Close releases the underlying subscription.
func (it *StateBatchAppendedIterator) Close() error {
	if it.sub != nil {
		it.sub.Unsubscribe()
	}
	return nil
}

// DecodeAppendStateBatch decodes the calldata of an appendStateBatch
// transaction into its state-root list and start element. calldata
// includes the 4-byte method selector.
func (c *StateCommitmentChain) DecodeAppendStateBatch(calldata []byte) (stateRoots []common.Hash, startElement *big.Int, err error) {
	method, ok := c.abi.Methods["appendStateBatch"]
	if !ok {
		return nil, nil, errAppendStateBatchMissing
	}
	if len(calldata) < 4 {
		return nil, nil, errCalldataTooShort
	}
	args, err := method.Inputs.Unpack(calldata[4:])
	if err != nil {
		return nil, nil, err
	}
	rawRoots, ok := args[0].([][32]byte)
	if !ok {
		return nil, nil, errUnexpectedArgType
	}
	roots := make([]common.Hash, len(rawRoots))
	for i, r := range rawRoots {
		roots[i] = common.Hash(r)
	}
	start, ok := args[1].(*big.Int)
	if !ok {
		return nil, nil, errUnexpectedArgType
	}
	return roots, start, nil
}

// InsideFraudProofWindow calls the view method of the same name.
func (c *StateCommitmentChain) InsideFraudProofWindow(opts *bind.CallOpts, header ChainBatchHeader) (bool, error) {
	var out []interface{}
	err := c.contract.Call(opts, &out, "insideFraudProofWindow", header)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

var (
	errAppendStateBatchMissing = errors.New("sccgen: ABI missing appendStateBatch method")
	errCalldataTooShort        = errors.New("sccgen: calldata shorter than a 4-byte selector")
	errUnexpectedArgType       = errors.New("sccgen: unexpected decoded argument type")
)
