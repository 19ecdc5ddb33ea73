// Command relayer runs the cross-domain message relayer core
// (relayer.RelayLoop) against a live L1/L2 RPC pair. This binary is pure
// ambient plumbing per spec.md §1's non-goal on CLI argument loading and
// process lifecycle: it never implements finalization, scanning, or
// proof logic itself, only wires flags/config/logging/signing into the
// relayer package.
package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/cross-domain-relayer/relayer"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Crit("relayer exited with error", "err", err)
	}
}

func run(args []string) error {
	cfg, err := parseFlags(args)
	if err != nil {
		return fmt.Errorf("parsing configuration: %w", err)
	}
	initLogging(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	relayerCfg, err := buildRelayerConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("building relayer config: %w", err)
	}

	loop, err := relayer.NewRelayLoop(ctx, relayerCfg)
	if err != nil {
		return fmt.Errorf("initializing relay loop: %w", err)
	}
	loop.Start(ctx)
	<-ctx.Done()
	loop.Stop()
	return nil
}

// initLogging sets up go-ethereum's structured logger the way
// cmd/bold-deploy does (NewGlogHandler over a StreamHandler), optionally
// also writing to a lumberjack-rotated file, matching nitro's
// log-to-file convention.
func initLogging(cfg fileConfig) {
	lvl, err := log.LvlFromString(strings.ToLower(cfg.LogLevel))
	if err != nil {
		lvl = log.LvlInfo
	}
	out := io.Writer(os.Stderr)
	if cfg.LogFile != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100, // MB
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	glogger := log.NewGlogHandler(log.StreamHandler(out, log.TerminalFormat(false)))
	glogger.Verbosity(lvl)
	log.Root().SetHandler(glogger)

	if cfg.MetricsAddr != "" {
		log.Warn("metrics-addr is accepted but not yet wired to any metrics exporter", "metricsAddr", cfg.MetricsAddr)
	}
}

// buildRelayerConfig dials both RPC endpoints, parses the relay signing
// key, and assembles the relayer.Config the core package accepts. This is
// the one place process-level concerns (net dial, key material) reach
// into configuration; relayer.Config itself only holds already-constructed
// handles.
func buildRelayerConfig(ctx context.Context, cfg fileConfig) (relayer.Config, error) {
	l1, err := ethclient.DialContext(ctx, cfg.L1RPC)
	if err != nil {
		return relayer.Config{}, fmt.Errorf("dialing l1-rpc: %w", err)
	}
	l2, err := ethclient.DialContext(ctx, cfg.L2RPC)
	if err != nil {
		return relayer.Config{}, fmt.Errorf("dialing l2-rpc: %w", err)
	}

	chainID, err := l1.ChainID(ctx)
	if err != nil {
		return relayer.Config{}, fmt.Errorf("reading L1 chain id: %w", err)
	}
	key, err := parsePrivateKey(cfg.RelayPrivateKey)
	if err != nil {
		return relayer.Config{}, fmt.Errorf("parsing relay-private-key: %w", err)
	}
	signer, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return relayer.Config{}, fmt.Errorf("deriving relay signer: %w", err)
	}

	relayerCfg := relayer.ConfigDefault()
	relayerCfg.L1RPC = l1
	relayerCfg.L2RPC = l2
	relayerCfg.StateCommitmentChainAddress = common.HexToAddress(cfg.StateCommitmentChainAddress)
	relayerCfg.L1CrossDomainMessengerAddress = common.HexToAddress(cfg.L1CrossDomainMessengerAddress)
	relayerCfg.L2CrossDomainMessengerAddress = common.HexToAddress(cfg.L2CrossDomainMessengerAddress)
	relayerCfg.L2ToL1MessagePasserAddress = common.HexToAddress(cfg.L2ToL1MessagePasserAddress)
	relayerCfg.RelaySigner = signer
	relayerCfg.L2ChainStartingHeight = cfg.L2ChainStartingHeight
	relayerCfg.PollingInterval = cfg.PollingInterval
	relayerCfg.BlockOffset = cfg.BlockOffset
	relayerCfg.ParallelProofBuilders = cfg.ParallelProofBuilders
	return relayerCfg, nil
}

func parsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	return crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
}
