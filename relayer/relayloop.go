package relayer

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/cross-domain-relayer/relayer/internal/stopwaiter"
)

// batchFinalizer is the subset of BatchIndex's contract RelayLoop needs.
// Defined as an interface so tests can drive the state machine against an
// in-memory fixture instead of live L1 RPC (SPEC_FULL.md §8).
type batchFinalizer interface {
	GetStateBatchHeader(ctx context.Context, height uint64) (*StateBatchHeader, error)
	IsTransactionFinalized(ctx context.Context, height uint64) (bool, error)
}

// messageLister is the subset of MessageScanner's contract RelayLoop needs.
type messageLister interface {
	GetSentMessages(ctx context.Context, startHeight, endHeight uint64) ([]SentMessage, error)
}

// messageProver is the subset of ProofBuilder's contract RelayLoop needs.
type messageProver interface {
	GetMessageProof(ctx context.Context, msg SentMessage) (MessageProof, error)
}

// relayDestination is the subset of L1Client's contract RelayLoop needs
// for dedup and submission.
type relayDestination interface {
	SuccessfulMessage(ctx context.Context, hash common.Hash) (bool, error)
	RelayMessage(ctx context.Context, msg SentMessage, proof MessageProof) (*types.Receipt, error)
}

// RelayLoop is the controller: it advances a finalization cursor, invokes
// the scanner and proof builder, filters against already-relayed
// messages, and submits relays. One instance owns its Cursor; ticks never
// overlap (stopwaiter.CallIteratively only launches the next tick once
// the previous one returns).
type RelayLoop struct {
	stopwaiter.StopWaiter

	cfg     Config
	l1      relayDestination
	batches batchFinalizer
	scanner messageLister
	proofs  messageProver

	cursor Cursor

	// pending holds messages that soft-failed proof construction, dedup
	// checking, or submission in an earlier tick. They are retried at the
	// top of every tick regardless of the scan window, since the cursor
	// never revisits a height once it has advanced past it (spec.md §7:
	// "the same message will be re-attempted next tick because it is not
	// yet relayed").
	pending []SentMessage

	finalizationCheckFirstFailure time.Time
}

// NewRelayLoop wires the RelayLoop's components from cfg and runs the
// _init sanity checks spec.md §4.4 requires. Construction fails with
// ErrConfiguration if Config.Validate rejects cfg or either provider never
// answers detectNetwork. l2ChainStartingHeight needs no check: as a uint64
// it cannot be negative.
func NewRelayLoop(ctx context.Context, cfg Config) (*RelayLoop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l1, err := NewL1Client(cfg.L1RPC, cfg.StateCommitmentChainAddress, cfg.L1CrossDomainMessengerAddress, cfg.RelaySigner)
	if err != nil {
		return nil, errors.Wrap(ErrConfiguration, err.Error())
	}
	l2, err := NewL2Client(cfg.L2RPC, cfg.L2CrossDomainMessengerAddress)
	if err != nil {
		return nil, errors.Wrap(ErrConfiguration, err.Error())
	}
	if err := l1.DetectNetwork(ctx); err != nil {
		return nil, err
	}
	if err := l2.DetectNetwork(ctx); err != nil {
		return nil, err
	}

	batches, err := NewBatchIndex(l1, 256)
	if err != nil {
		return nil, errors.Wrap(ErrConfiguration, err.Error())
	}
	if header, err := batches.GetStateBatchHeader(ctx, cfg.L2ChainStartingHeight); err != nil {
		return nil, err
	} else if header == nil {
		log.Warn("no state batch events observed yet at startup", "l2ChainStartingHeight", cfg.L2ChainStartingHeight)
	}

	scanner := NewMessageScanner(l2, cfg.BlockOffset)
	proofs := NewProofBuilder(l2, batches, cfg.L2CrossDomainMessengerAddress, cfg.L2ToL1MessagePasserAddress, cfg.BlockOffset)

	return &RelayLoop{
		cfg:     cfg,
		l1:      l1,
		batches: batches,
		scanner: scanner,
		proofs:  proofs,
		cursor: Cursor{
			LastFinalizedTxHeight:   cfg.L2ChainStartingHeight,
			NextUnfinalizedTxHeight: cfg.L2ChainStartingHeight,
		},
	}, nil
}

// newRelayLoopForTest wires a RelayLoop directly from fakes, bypassing
// NewRelayLoop's live-RPC construction and _init sanity checks. Used by
// this package's tests to exercise the state machine (spec.md §8
// scenarios) without a simulated chain.
func newRelayLoopForTest(cfg Config, l1 relayDestination, batches batchFinalizer, scanner messageLister, proofs messageProver, startingHeight uint64) *RelayLoop {
	return &RelayLoop{
		cfg:     cfg,
		l1:      l1,
		batches: batches,
		scanner: scanner,
		proofs:  proofs,
		cursor: Cursor{
			LastFinalizedTxHeight:   startingHeight,
			NextUnfinalizedTxHeight: startingHeight,
		},
	}
}

// Start transitions the loop into running: it launches the ticking
// goroutine against ctx and returns immediately.
func (r *RelayLoop) Start(ctx context.Context) {
	r.StopWaiter.Start(ctx, r)
	r.CallIteratively(func(ctx context.Context) time.Duration {
		r.tick(ctx)
		return r.cfg.PollingInterval
	})
}

// Stop cancels the loop's context and blocks until the ticking goroutine
// has returned. A tick in progress sees the cancelled context (its RPC
// calls fail and it stops between messages) and returns; no new tick
// starts.
func (r *RelayLoop) Stop() {
	r.StopAndWait()
}

// Cursor returns a copy of the controller's current cursor state, for
// observability/tests. It is never mutated outside tick.
func (r *RelayLoop) Cursor() Cursor {
	return r.cursor
}

// tick runs one iteration of the state machine in spec.md §4.4 steps 2–6.
// Sleeping between ticks (step 1) is CallIteratively's job, not tick's.
// Retrying pending messages (step 2a) runs unconditionally, before the
// finalization gate: a message that soft-failed last tick must not wait
// on a new batch finalizing to get another attempt.
func (r *RelayLoop) tick(ctx context.Context) {
	r.retryPending(ctx)

	finalized, err := r.batches.IsTransactionFinalized(ctx, r.cursor.NextUnfinalizedTxHeight)
	if err != nil {
		logLevelEphemeralError(err, 5*time.Minute, &r.finalizationCheckFirstFailure)(
			"checking finalization failed, will retry next tick", "height", r.cursor.NextUnfinalizedTxHeight, "err", err)
		return
	}
	r.finalizationCheckFirstFailure = time.Time{}
	if !finalized {
		log.Debug("next height not yet finalized", "height", r.cursor.NextUnfinalizedTxHeight)
		return
	}

	// A failure before the scan succeeds restores prev, so the next tick
	// advances over and scans the same range again.
	prev := r.cursor
	r.cursor.LastFinalizedTxHeight = r.cursor.NextUnfinalizedTxHeight

	for {
		if ctx.Err() != nil {
			return
		}
		finalized, err := r.batches.IsTransactionFinalized(ctx, r.cursor.NextUnfinalizedTxHeight)
		if err != nil {
			log.Warn("advancing cursor failed, will retry next tick", "height", r.cursor.NextUnfinalizedTxHeight, "err", err)
			r.cursor = prev
			return
		}
		if !finalized {
			break
		}
		header, err := r.batches.GetStateBatchHeader(ctx, r.cursor.NextUnfinalizedTxHeight)
		if err != nil {
			log.Warn("fetching batch header failed, will retry next tick", "height", r.cursor.NextUnfinalizedTxHeight, "err", err)
			r.cursor = prev
			return
		}
		if header == nil {
			// Finalized-but-no-header is a contradiction BatchIndex
			// shouldn't produce; treat as a missing-batch condition and
			// retry next tick rather than looping forever.
			log.Warn("finalized height has no covering batch header", "height", r.cursor.NextUnfinalizedTxHeight)
			r.cursor = prev
			return
		}
		r.cursor.NextUnfinalizedTxHeight += header.BatchSize.Uint64()
	}

	if r.cursor.LastFinalizedTxHeight >= r.cursor.NextUnfinalizedTxHeight {
		return
	}

	messages, err := r.scanner.GetSentMessages(ctx, r.cursor.LastFinalizedTxHeight, r.cursor.NextUnfinalizedTxHeight-1)
	if err != nil {
		log.Warn("scanning for sent messages failed, will retry next tick", "from", r.cursor.LastFinalizedTxHeight, "to", r.cursor.NextUnfinalizedTxHeight, "err", err)
		r.cursor = prev
		return
	}
	if len(messages) == 0 {
		return
	}

	r.relayMessages(ctx, messages)
}

// retryPending attempts every message that soft-failed in a previous
// tick, independent of the current scan window. Anything that fails
// again is re-queued by relayMessages for the next tick.
func (r *RelayLoop) retryPending(ctx context.Context) {
	if len(r.pending) == 0 {
		return
	}
	pending := r.pending
	r.pending = nil
	r.relayMessages(ctx, pending)
}

// relayMessages builds a proof for and attempts to relay each message in
// order. Any message that fails a dedup check, proof build, or submission
// is appended to r.pending so the next tick (via retryPending) retries it
// independent of whether the scan window would ever cover its height
// again.
func (r *RelayLoop) relayMessages(ctx context.Context, messages []SentMessage) {
	proofs := r.buildProofs(ctx, messages)
	for i, msg := range messages {
		if ctx.Err() != nil {
			r.pending = append(r.pending, messages[i:]...)
			return
		}
		already, err := r.l1.SuccessfulMessage(ctx, msg.Hash)
		if err != nil {
			log.Warn("dedup check failed, will retry next tick", "hash", msg.Hash, "err", err)
			r.pending = append(r.pending, msg)
			continue
		}
		if already {
			log.Debug("message already relayed, skipping", "hash", msg.Hash)
			continue
		}
		proof := proofs[i]
		if proof == nil {
			// buildProofs already logged the soft failure.
			r.pending = append(r.pending, msg)
			continue
		}
		if _, err := r.l1.RelayMessage(ctx, msg, *proof); err != nil {
			log.Warn("relay submission failed, will retry next tick", "hash", msg.Hash, "err", err)
			r.pending = append(r.pending, msg)
			continue
		}
		log.Info("relayed message", "hash", msg.Hash, "height", msg.Height, "nonce", msg.Nonce)
	}
}

// buildProofs builds one MessageProof per message, preserving input
// order. When Config.ParallelProofBuilders > 1 it fans out across an
// errgroup-bounded pool (§5's optional parallelism); submission in tick
// always walks the returned slice sequentially, so nonce ordering on the
// signer is unaffected regardless of this setting.
func (r *RelayLoop) buildProofs(ctx context.Context, messages []SentMessage) []*MessageProof {
	proofs := make([]*MessageProof, len(messages))
	parallel := r.cfg.ParallelProofBuilders
	if parallel <= 1 {
		for i, msg := range messages {
			proof, err := r.proofs.GetMessageProof(ctx, msg)
			if err != nil {
				log.Warn("building message proof failed, skipping for this tick", "hash", msg.Hash, "err", err)
				continue
			}
			proofs[i] = &proof
		}
		return proofs
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, msg := range messages {
		i, msg := i, msg
		g.Go(func() error {
			proof, err := r.proofs.GetMessageProof(gctx, msg)
			if err != nil {
				log.Warn("building message proof failed, skipping for this tick", "hash", msg.Hash, "err", err)
				return nil
			}
			proofs[i] = &proof
			return nil
		})
	}
	_ = g.Wait()
	return proofs
}
