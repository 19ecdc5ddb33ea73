// Package l2xdmgen is a hand-bound Go wrapper around the L2 cross-domain
// messenger contract, trimmed to the SentMessage event — the only surface
// this relayer calls. Shaped like the abigen output in
// solgen/go/challengeV2gen in the retrieved Nitro sources.
package l2xdmgen

import (
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const l2CrossDomainMessengerABIJSON = `[
	{"anonymous":false,"inputs":[
		{"indexed":false,"internalType":"bytes","name":"message","type":"bytes"}
	],"name":"SentMessage","type":"event"}
]`

// L2CrossDomainMessengerMetaData contains the ABI for the contract.
var L2CrossDomainMessengerMetaData = &bind.MetaData{ABI: l2CrossDomainMessengerABIJSON}

// L2CrossDomainMessengerABI is the contract's ABI as a JSON string.
var L2CrossDomainMessengerABI = L2CrossDomainMessengerMetaData.ABI

// SentMessage is an auto generated Go binding matching an on-chain
// SentMessage event. Message is the ABI-encoded relayMessage(target,
// sender, data, nonce) calldata the L1 side must later decode.
type SentMessage struct {
	Message []byte
	Raw     types.Log
}

// L2CrossDomainMessenger is an auto generated Go binding around the contract.
type L2CrossDomainMessenger struct {
	address  common.Address
	abi      abi.ABI
	contract *bind.BoundContract
}

// NewL2CrossDomainMessenger creates a new instance bound to address, using
// backend for log filters.
func NewL2CrossDomainMessenger(address common.Address, backend bind.ContractBackend) (*L2CrossDomainMessenger, error) {
	parsed, err := abi.JSON(strings.NewReader(l2CrossDomainMessengerABIJSON))
	if err != nil {
		return nil, err
	}
	return &L2CrossDomainMessenger{
		address:  address,
		abi:      parsed,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
	}, nil
}

// FilterSentMessage returns an iterator over SentMessage logs in the
// inclusive [opts.Start, opts.End] block range.
func (m *L2CrossDomainMessenger) FilterSentMessage(opts *bind.FilterOpts) (*SentMessageIterator, error) {
	logs, sub, err := m.contract.FilterLogs(opts, "SentMessage")
	if err != nil {
		return nil, err
	}
	return &SentMessageIterator{contract: m.contract, logs: logs, sub: sub}, nil
}

// SentMessageIterator iterates over the logs a filter query returned.
type SentMessageIterator struct {
	Event *SentMessage

	contract *bind.BoundContract
	logs     chan types.Log
	sub      ethereum.Subscription
	done     bool
	fail     error
}

// Next advances the iterator; it returns false once logs are exhausted or
// an error occurs (check Error()).
func (it *SentMessageIterator) Next() bool {
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

func (it *SentMessageIterator) unpack(log types.Log) bool {
	ev := new(SentMessage)
	if err := it.contract.UnpackLog(ev, "SentMessage", log); err != nil {
		it.fail = err
		return false
	}
	ev.Raw = log
	it.Event = ev
	return true
}

// Error returns any error Next encountered.
func (it *SentMessageIterator) Error() error { return it.fail }

// Close releases the underlying subscription.
func (it *SentMessageIterator) Close() error {
	if it.sub != nil {
		it.sub.Unsubscribe()
	}
	return nil
}
