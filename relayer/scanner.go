package relayer

import (
	"context"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/cross-domain-relayer/relayer/solgen/go/l2xdmgen"
)

// MessageScanner enumerates SentMessage events on L2 and decodes each into
// a SentMessage record.
type MessageScanner struct {
	l2          *L2Client
	blockOffset uint64

	// relayMessage(address,address,bytes,uint256) argument unpacker,
	// shared across calls. l1xdmgen's relayMessage takes a fifth (proof)
	// argument and sccgen has no relayMessage at all, so the four-argument
	// list is defined locally rather than taken from either binding package.
	relayMessageArgs abi.Arguments
}

func mustRelayMessageArgs() abi.Arguments {
	addrTy, _ := abi.NewType("address", "", nil)
	bytesTy, _ := abi.NewType("bytes", "", nil)
	uint256Ty, _ := abi.NewType("uint256", "", nil)
	return abi.Arguments{
		{Type: addrTy},   // target
		{Type: addrTy},   // sender
		{Type: bytesTy},  // data
		{Type: uint256Ty}, // nonce
	}
}

// NewMessageScanner constructs a MessageScanner reading from l2. offset is
// Configuration.BlockOffset (§3): it is added to L2 heights before
// querying the node and subtracted from event block numbers when
// populating SentMessage.Height.
func NewMessageScanner(l2 *L2Client, offset uint64) *MessageScanner {
	return &MessageScanner{l2: l2, blockOffset: offset, relayMessageArgs: mustRelayMessageArgs()}
}

// GetSentMessages returns every well-formed SentMessage emitted on L2 in
// the inclusive height range [startHeight, endHeight], ordered by
// (blockNumber, logIndex). A malformed event is logged and skipped rather
// than failing the whole scan, per §7/§9.
func (s *MessageScanner) GetSentMessages(ctx context.Context, startHeight, endHeight uint64) ([]SentMessage, error) {
	if startHeight > endHeight {
		return nil, nil
	}
	events, err := s.l2.SentMessageEvents(ctx, startHeight+s.blockOffset, endHeight+s.blockOffset)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Raw.BlockNumber != events[j].Raw.BlockNumber {
			return events[i].Raw.BlockNumber < events[j].Raw.BlockNumber
		}
		return events[i].Raw.Index < events[j].Raw.Index
	})
	messages := make([]SentMessage, 0, len(events))
	for _, ev := range events {
		msg, err := s.decode(ev)
		if err != nil {
			log.Warn("skipping malformed SentMessage payload",
				"block", ev.Raw.BlockNumber, "logIndex", ev.Raw.Index, "err", err)
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// decode turns the raw calldata payload of a SentMessage event into a
// SentMessage record. message IS the ABI-encoded
// relayMessage(target, sender, data, nonce) calldata with no method
// selector prefix (the L2 messenger emits the argument tuple directly).
func (s *MessageScanner) decode(ev *l2xdmgen.SentMessage) (SentMessage, error) {
	args, err := s.relayMessageArgs.Unpack(ev.Message)
	if err != nil {
		return SentMessage{}, errors.Wrap(ErrDecodeMessage, err.Error())
	}
	target, ok := args[0].(common.Address)
	if !ok {
		return SentMessage{}, errors.Wrap(ErrDecodeMessage, "unexpected type for target")
	}
	sender, ok := args[1].(common.Address)
	if !ok {
		return SentMessage{}, errors.Wrap(ErrDecodeMessage, "unexpected type for sender")
	}
	data, ok := args[2].([]byte)
	if !ok {
		return SentMessage{}, errors.Wrap(ErrDecodeMessage, "unexpected type for data")
	}
	nonce, ok := args[3].(*big.Int)
	if !ok {
		return SentMessage{}, errors.Wrap(ErrDecodeMessage, "unexpected type for nonce")
	}
	return SentMessage{
		Target:   target,
		Sender:   sender,
		Data:     data,
		Nonce:    nonce,
		Calldata: ev.Message,
		Hash:     crypto.Keccak256Hash(ev.Message),
		Height:   ev.Raw.BlockNumber - s.blockOffset,
		LogIndex: ev.Raw.Index,
	}, nil
}
