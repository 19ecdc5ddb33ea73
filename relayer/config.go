package relayer

import (
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
)

// Config is the relayer's configuration surface (spec.md §3's
// Configuration value object). RPC providers and the signer are opaque
// capabilities handed in already constructed; the relayer core never
// dials an endpoint or loads a key itself.
type Config struct {
	L1RPC L1Transport
	L2RPC L2Transport

	StateCommitmentChainAddress   common.Address
	L1CrossDomainMessengerAddress common.Address
	L2CrossDomainMessengerAddress common.Address
	L2ToL1MessagePasserAddress    common.Address

	RelaySigner *bind.TransactOpts

	L2ChainStartingHeight uint64
	PollingInterval       time.Duration
	BlockOffset           uint64

	// ParallelProofBuilders bounds how many messages found in a single
	// tick have their MessageProof built concurrently. 1 (the default)
	// means fully sequential, matching spec.md's required behavior when
	// §5's optional parallelism isn't enabled. Submissions are always
	// serialized regardless of this value.
	ParallelProofBuilders int
}

// ConfigDefault returns a Config with every optional field at its
// spec-mandated default; RPC handles, addresses, and the signer must still
// be filled in by the caller.
func ConfigDefault() Config {
	return Config{
		L2ChainStartingHeight: 0,
		PollingInterval:       5000 * time.Millisecond,
		BlockOffset:           0,
		ParallelProofBuilders: 1,
	}
}

// Validate runs the static part of spec.md §4.4's _init sanity checks:
// both providers, the signer, and all four contract addresses must be
// set, the starting height is non-negative (guaranteed by the uint64
// type), and a non-positive ParallelProofBuilders is reset to 1. Missing
// values are ErrConfiguration and fatal; a polling interval outside
// [15s, 1h] is only a logged warning. The detectNetwork calls and the
// empty-batch-set warning run in NewRelayLoop, not here.
func (c *Config) Validate() error {
	if c.L1RPC == nil || c.L2RPC == nil {
		return errors.Wrap(ErrConfiguration, "both l1RpcProvider and l2RpcProvider are required")
	}
	if c.RelaySigner == nil {
		return errors.Wrap(ErrConfiguration, "relaySigner is required")
	}
	if (c.StateCommitmentChainAddress == common.Address{}) ||
		(c.L1CrossDomainMessengerAddress == common.Address{}) ||
		(c.L2CrossDomainMessengerAddress == common.Address{}) ||
		(c.L2ToL1MessagePasserAddress == common.Address{}) {
		return errors.Wrap(ErrConfiguration, "all four contract addresses are required")
	}
	if c.ParallelProofBuilders <= 0 {
		c.ParallelProofBuilders = 1
	}
	if c.PollingInterval < 15*time.Second || c.PollingInterval > time.Hour {
		log.Warn("pollingInterval outside the recommended range",
			"pollingInterval", c.PollingInterval, "recommendedMin", 15*time.Second, "recommendedMax", time.Hour)
	}
	return nil
}
