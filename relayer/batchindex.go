package relayer

import (
	"context"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/cross-domain-relayer/relayer/solgen/go/sccgen"
)

// batchSource is the subset of L1Client's contract BatchIndex needs.
// Defined as an interface, like RelayLoop's dependencies, so the
// eviction/re-decode path can be driven by an in-memory fixture instead of
// live L1 RPC.
type batchSource interface {
	StateBatchAppendedEvents(ctx context.Context, fromBlock uint64) ([]*sccgen.StateBatchAppended, error)
	AppendStateBatchCalldata(ctx context.Context, ev *sccgen.StateBatchAppended) ([]common.Hash, *big.Int, error)
	InsideFraudProofWindow(ctx context.Context, header StateBatchHeader) (bool, error)
}

// BatchIndex resolves an L2 transaction height to the StateBatchHeader
// that commits its state root. §9 allows caching StateBatchAppended
// events; this implementation keeps an LRU of decoded headers (state
// roots included, the expensive part to hold in memory) plus an unbounded
// index of the raw StateBatchAppended events themselves (batchIndex,
// batchRoot, batchSize, prevTotalElements, extraData — no state roots, so
// cheap to retain for every batch ever seen). The index never forgets a
// batch it has indexed; an LRU eviction only costs a single targeted
// re-decode (one TransactionByHash + calldata unpack) on the next lookup,
// never a full FilterLogs re-sweep and never a false "batch not found".
type BatchIndex struct {
	l1 batchSource

	mu      sync.Mutex
	cache   *lru.Cache[uint64, *StateBatchHeader]  // keyed by BatchIndex, bounded, may evict
	events  map[uint64]*sccgen.StateBatchAppended  // keyed by BatchIndex, unbounded, never evicted
	sorted  []uint64                               // PrevTotalElements, ascending
	byStart map[uint64]uint64                      // PrevTotalElements -> BatchIndex
	synced  uint64                                 // highest L1 block already indexed
}

// NewBatchIndex constructs a BatchIndex with cacheSize decoded headers
// retained in memory. cacheSize bounds only the StateRoots cache; the
// batchIndex/prevTotalElements/batchSize event index used to resolve a
// height to a batch is never pruned.
func NewBatchIndex(l1 batchSource, cacheSize int) (*BatchIndex, error) {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[uint64, *StateBatchHeader](cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "constructing batch index cache")
	}
	return &BatchIndex{l1: l1, cache: cache, events: make(map[uint64]*sccgen.StateBatchAppended), byStart: make(map[uint64]uint64)}, nil
}

// refresh pulls any StateBatchAppended events emitted since the last
// refresh and folds their (unbounded) metadata into the index. It does
// not decode calldata up front; decodeAndCache does that lazily, on the
// first lookup that actually needs a given batch's state roots.
func (b *BatchIndex) refresh(ctx context.Context) error {
	events, err := b.l1.StateBatchAppendedEvents(ctx, b.synced)
	if err != nil {
		return err
	}
	for _, ev := range events {
		idx := ev.BatchIndex.Uint64()
		start := ev.PrevTotalElements.Uint64()
		if _, ok := b.byStart[start]; !ok {
			b.byStart[start] = idx
			b.sorted = append(b.sorted, start)
		}
		b.events[idx] = ev
		if ev.Raw.BlockNumber+1 > b.synced {
			b.synced = ev.Raw.BlockNumber + 1
		}
	}
	sort.Slice(b.sorted, func(i, j int) bool { return b.sorted[i] < b.sorted[j] })
	return nil
}

// GetStateBatchHeader resolves height to its covering StateBatchHeader, or
// (nil, nil) if no appended batch covers it yet.
func (b *BatchIndex) GetStateBatchHeader(ctx context.Context, height uint64) (*StateBatchHeader, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if header, ok := b.lookupCached(height); ok {
		return header, nil
	}
	if idx, ok := b.indexFor(height); ok {
		// The event index already knows a batch starting at or before
		// height exists; its decoded header was just never cached, or
		// was evicted. Re-decode it directly from the retained event
		// instead of falling through to refresh, which only scans
		// forward from b.synced and would never revisit this batch.
		return b.decodeAndCache(ctx, idx, height)
	}
	if err := b.refresh(ctx); err != nil {
		return nil, err
	}
	if header, ok := b.lookupCached(height); ok {
		return header, nil
	}
	if idx, ok := b.indexFor(height); ok {
		return b.decodeAndCache(ctx, idx, height)
	}
	return nil, nil
}

// lookupCached reports the covering header for height if its decoded
// form is still in the LRU.
func (b *BatchIndex) lookupCached(height uint64) (*StateBatchHeader, bool) {
	idx, ok := b.indexFor(height)
	if !ok {
		return nil, false
	}
	header, ok := b.cache.Get(idx)
	if !ok || !header.Covers(height) {
		return nil, false
	}
	return header, true
}

// indexFor binary-searches the sorted start-element index for the
// BatchIndex of the batch covering height, using only the unbounded event
// index (so it works whether or not the decoded header is cached).
func (b *BatchIndex) indexFor(height uint64) (uint64, bool) {
	n := len(b.sorted)
	if n == 0 {
		return 0, false
	}
	i := sort.Search(n, func(i int) bool { return b.sorted[i] > height })
	if i == 0 {
		return 0, false
	}
	start := b.sorted[i-1]
	idx, ok := b.byStart[start]
	if !ok {
		return 0, false
	}
	ev, ok := b.events[idx]
	if !ok || height >= start+ev.BatchSize.Uint64() {
		return 0, false
	}
	return idx, true
}

// decodeAndCache re-fetches and decodes the appendStateBatch calldata for
// the batch at idx (its state roots are the only part ever evicted from
// the LRU) and re-populates the cache.
func (b *BatchIndex) decodeAndCache(ctx context.Context, idx uint64, height uint64) (*StateBatchHeader, error) {
	ev, ok := b.events[idx]
	if !ok {
		return nil, nil
	}
	roots, start, err := b.l1.AppendStateBatchCalldata(ctx, ev)
	if err != nil {
		return nil, err
	}
	header := &StateBatchHeader{
		BatchIndex:        ev.BatchIndex,
		BatchRoot:         ev.BatchRoot,
		BatchSize:         ev.BatchSize,
		PrevTotalElements: start,
		ExtraData:         ev.ExtraData,
		StateRoots:        roots,
	}
	b.cache.Add(idx, header)
	if !header.Covers(height) {
		return nil, nil
	}
	return header, nil
}

// IsTransactionFinalized reports whether height's covering batch exists
// and has exited the fraud-proof window. A batch exactly at the window
// boundary (the view returns false) is considered finalized.
func (b *BatchIndex) IsTransactionFinalized(ctx context.Context, height uint64) (bool, error) {
	header, err := b.GetStateBatchHeader(ctx, height)
	if err != nil {
		return false, err
	}
	if header == nil {
		return false, nil
	}
	inside, err := b.l1.InsideFraudProofWindow(ctx, *header)
	if err != nil {
		return false, err
	}
	return !inside, nil
}
