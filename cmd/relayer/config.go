package main

import (
	"fmt"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	flag "github.com/spf13/pflag"

	"github.com/cross-domain-relayer/relayer"
)

// fileConfig is the flag/file-loadable surface: Configuration (spec.md
// §3) plus the ambient operational knobs SPEC_FULL.md §3 adds
// (logLevel, logFile, metricsAddr). It never crosses into the relayer
// package — relayer.Config is assembled from it in main.
type fileConfig struct {
	L1RPC string `koanf:"l1-rpc"`
	L2RPC string `koanf:"l2-rpc"`

	StateCommitmentChainAddress   string `koanf:"state-commitment-chain-address"`
	L1CrossDomainMessengerAddress string `koanf:"l1-cross-domain-messenger-address"`
	L2CrossDomainMessengerAddress string `koanf:"l2-cross-domain-messenger-address"`
	L2ToL1MessagePasserAddress    string `koanf:"l2-to-l1-message-passer-address"`

	RelayPrivateKey string `koanf:"relay-private-key"`

	L2ChainStartingHeight uint64        `koanf:"l2-chain-starting-height"`
	PollingInterval       time.Duration `koanf:"polling-interval"`
	BlockOffset           uint64        `koanf:"block-offset"`
	ParallelProofBuilders int           `koanf:"parallel-proof-builders"`

	LogLevel    string `koanf:"log-level"`
	LogFile     string `koanf:"log-file"`
	MetricsAddr string `koanf:"metrics-addr"`
}

func defaultFileConfig() fileConfig {
	d := relayer.ConfigDefault()
	return fileConfig{
		L2ChainStartingHeight: d.L2ChainStartingHeight,
		PollingInterval:       d.PollingInterval,
		BlockOffset:           d.BlockOffset,
		ParallelProofBuilders: d.ParallelProofBuilders,
		LogLevel:              "info",
	}
}

// parseFlags registers fileConfig's fields as flags, layers an optional
// YAML config file under them, then the flags themselves on top (flags
// win). Mirrors nitro's cmd/-style "pflag.FlagSet feeding a koanf
// instance" convention (see cmd/dbconv's confighelpers.BeginCommonParse /
// EndCommonParse in the retrieved sources), trimmed to what this single
// binary needs rather than the multi-command helper library.
func parseFlags(args []string) (fileConfig, error) {
	def := defaultFileConfig()

	fs := flag.NewFlagSet("relayer", flag.ContinueOnError)
	fs.String("l1-rpc", def.L1RPC, "L1 RPC endpoint URL")
	fs.String("l2-rpc", def.L2RPC, "L2 RPC endpoint URL")
	fs.String("state-commitment-chain-address", def.StateCommitmentChainAddress, "L1 state commitment chain contract address")
	fs.String("l1-cross-domain-messenger-address", def.L1CrossDomainMessengerAddress, "L1 cross domain messenger contract address")
	fs.String("l2-cross-domain-messenger-address", def.L2CrossDomainMessengerAddress, "L2 cross domain messenger contract address")
	fs.String("l2-to-l1-message-passer-address", def.L2ToL1MessagePasserAddress, "L2 to L1 message passer contract address")
	fs.String("relay-private-key", def.RelayPrivateKey, "hex-encoded private key for the relay signer")
	fs.Uint64("l2-chain-starting-height", def.L2ChainStartingHeight, "L2 height the cursor starts scanning from")
	fs.Duration("polling-interval", def.PollingInterval, "interval between relay loop ticks")
	fs.Uint64("block-offset", def.BlockOffset, "L2 genesis offset between event block numbers and state-commitment element indices")
	fs.Int("parallel-proof-builders", def.ParallelProofBuilders, "number of messages to build proofs for concurrently per tick")
	fs.String("log-level", def.LogLevel, "log level: trace, debug, info, warn, error, crit")
	fs.String("log-file", def.LogFile, "optional rotating log file path (empty disables file logging)")
	fs.String("metrics-addr", def.MetricsAddr, "reserved; accepted and logged, no metrics exporter is wired (see SPEC_FULL.md §9)")
	config := fs.String("config", "", "optional YAML config file, overridden by any flag also set explicitly")
	if err := fs.Parse(args); err != nil {
		return fileConfig{}, err
	}

	k := koanf.New(".")
	defaults, err := structToMap(def)
	if err != nil {
		return fileConfig{}, fmt.Errorf("preparing defaults: %w", err)
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return fileConfig{}, fmt.Errorf("loading defaults: %w", err)
	}
	if *config != "" {
		if err := k.Load(file.Provider(*config), yaml.Parser()); err != nil {
			return fileConfig{}, fmt.Errorf("loading config file %q: %w", *config, err)
		}
	}
	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return fileConfig{}, fmt.Errorf("loading flags: %w", err)
	}

	var cfg fileConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// structToMap copies def's non-empty defaults (starting height, polling
// interval, block offset, parallel proof builders, log level) into the
// flat map the confmap provider wants, keyed by hand with the same names
// as the fields' koanf tags. It never returns an error.
func structToMap(def fileConfig) (map[string]interface{}, error) {
	return map[string]interface{}{
		"l2-chain-starting-height": def.L2ChainStartingHeight,
		"polling-interval":         def.PollingInterval,
		"block-offset":             def.BlockOffset,
		"parallel-proof-builders":  def.ParallelProofBuilders,
		"log-level":                def.LogLevel,
	}, nil
}
