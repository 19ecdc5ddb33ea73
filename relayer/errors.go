package relayer

import "github.com/pkg/errors"

// Sentinel error kinds, wrapped via github.com/pkg/errors at the call site
// so callers can still branch with errors.Is while the wrapped message
// keeps the underlying RPC/decode detail.
var (
	// ErrConfiguration is fatal and surfaces from NewRelayLoop (via
	// Config.Validate or the detectNetwork checks): a missing provider,
	// signer or contract address, a provider that never answers, and
	// similar construction-time problems.
	ErrConfiguration = errors.New("relayer: configuration error")

	// ErrRPCTransient covers connection, timeout, and reorg-induced
	// inconsistency from either provider. The current tick is abandoned
	// for the affected message; the loop continues.
	ErrRPCTransient = errors.New("relayer: transient RPC error")

	// ErrBatchNotFound is returned by ProofBuilder when no StateBatchAppended
	// event covers a message's height, including a height the cursor had
	// already considered finalized. BatchIndex itself reports that case as
	// a nil header with a nil error.
	ErrBatchNotFound = errors.New("relayer: no state batch covers height")

	// ErrSubmissionFailed marks a relayMessage call that reverted or whose
	// transaction failed on-chain. Logged as a non-fatal warning; the
	// dedup check next tick decides whether to retry.
	ErrSubmissionFailed = errors.New("relayer: relay submission failed")

	// ErrDecodeMessage marks a malformed SentMessage payload. The event is
	// skipped for the tick; it is not re-derivable from chain state so it
	// is simply dropped (the source never persists raw logs either).
	// L1Client also wraps an undecodable appendStateBatch calldata in it.
	ErrDecodeMessage = errors.New("relayer: could not decode SentMessage payload")
)
