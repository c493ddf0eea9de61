// Package indexer implements C8: chunked RPC log fetching per
// (contract_address, event_name) pair, typed row decode, and resumable
// checkpointed writes (spec.md §4.5).
//
// The reconnect/backoff shape is grounded on the teacher's
// EventListenerService.listenLoop (services/event_listener.go), adapted
// from a live WebSocket subscription onto historical chunked
// eth_getLogs polling, since Smorty trails a confirmations delay rather
// than tailing the chain live.
package indexer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"smorty/internal/apperr"
	"smorty/internal/ir"
)

// Pair is one (contract, event) ingestion target.
type Pair struct {
	Chain           string
	ContractID      string
	ContractAddress string
	ParsedABI       abi.ABI
	EventIR         *ir.EventIR
}

// Config holds the tunables from spec.md §4.5/§5.
type Config struct {
	Confirmations uint64        // default 12
	ChunkSize     uint64        // default 2000
	PollInterval  time.Duration // default per-chain poll delay when caught up to head
	Parallelism   int           // default 4, across distinct pairs
}

func (c Config) withDefaults() Config {
	if c.Confirmations == 0 {
		c.Confirmations = 12
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = 2000
	}
	if c.PollInterval == 0 {
		c.PollInterval = 15 * time.Second
	}
	if c.Parallelism == 0 {
		c.Parallelism = 4
	}
	return c
}

// Indexer drives ingestion for a set of pairs against a set of
// per-chain RPC clients.
type Indexer struct {
	db      *gorm.DB
	clients map[string]RPCClient // chain -> client
	cfg     Config
	log     *zap.SugaredLogger

	// chunkSizesMu guards chunkSizes, the current chunk size per pair,
	// stored after every shrink and every chunk and read at the start of
	// each RunOnce call (tick). Each successful chunk doubles a shrunk
	// size back toward the configured default, so a shrink carries over
	// to the next tick only while no chunk has succeeded since it.
	chunkSizesMu sync.Mutex
	chunkSizes   map[string]uint64
}

func New(db *gorm.DB, clients map[string]RPCClient, cfg Config, log *zap.SugaredLogger) *Indexer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Indexer{
		db: db, clients: clients, cfg: cfg.withDefaults(), log: log.With("component", "indexer"),
		chunkSizes: map[string]uint64{},
	}
}

func pairKey(p Pair) string {
	return p.Chain + "|" + p.ContractAddress + "|" + p.EventIR.EventName
}

func (ix *Indexer) chunkSizeFor(p Pair) uint64 {
	ix.chunkSizesMu.Lock()
	defer ix.chunkSizesMu.Unlock()
	if v, ok := ix.chunkSizes[pairKey(p)]; ok {
		return v
	}
	return ix.cfg.ChunkSize
}

func (ix *Indexer) setChunkSizeFor(p Pair, size uint64) {
	ix.chunkSizesMu.Lock()
	defer ix.chunkSizesMu.Unlock()
	ix.chunkSizes[pairKey(p)] = size
}

// RunOnce ingests every pair up to the current confirmed head, one pass,
// then returns. The CLI's `index` verb calls this in a loop with a fixed
// 15s sleep between passes; tests call it directly.
func (ix *Indexer) RunOnce(ctx context.Context, pairs []Pair) error {
	if err := ensureCheckpointTable(ix.db); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.cfg.Parallelism)

	for _, p := range pairs {
		p := p
		g.Go(func() error {
			return ix.runPair(gctx, p)
		})
	}
	return g.Wait()
}

// runPair walks chunks for a single pair strictly in order (spec.md §4.5
// "Concurrency within a run": no parallel gaps within one pair).
func (ix *Indexer) runPair(ctx context.Context, p Pair) error {
	client, ok := ix.clients[p.Chain]
	if !ok {
		return apperr.New(apperr.KindConfig, "no RPC client configured for chain "+p.Chain)
	}
	addr := common.HexToAddress(p.ContractAddress)
	if _, ok := p.ParsedABI.Events[p.EventIR.EventName]; !ok {
		return apperr.New(apperr.KindAbi, "abi has no event "+p.EventIR.EventName)
	}

	checkpoint, err := loadCheckpoint(ix.db, p.Chain, p.ContractAddress, p.EventIR.EventName)
	if err != nil {
		return err
	}
	start := checkpoint + 1
	if p.EventIR.StartBlock > start {
		start = p.EventIR.StartBlock
	}

	head, err := headBlock(ctx, client, ix.cfg.Confirmations)
	if err != nil {
		return err
	}
	if start > head {
		// Nothing new past the confirmations delay this pass.
		return nil
	}

	chunkSize := ix.chunkSizeFor(p)
	timestampCache := map[uint64]time.Time{}
	topic0 := common.HexToHash(p.EventIR.Topic0)

	for from := start; from <= head; {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		to := from + chunkSize - 1
		if to > head {
			to = head
		}

		logs, shrunk, err := ix.fetchChunkWithBackoff(ctx, client, addr, topic0, from, to, &chunkSize)
		if err != nil {
			return err
		}
		if shrunk {
			ix.setChunkSizeFor(p, chunkSize)
			// Retry this same `from` with the new, smaller chunkSize.
			continue
		}

		if err := ix.writeChunk(ctx, client, p, logs, to, timestampCache); err != nil {
			return err
		}

		ix.log.Infow("indexed chunk",
			"chain", p.Chain, "contract", p.ContractAddress, "event", p.EventIR.EventName,
			"from", from, "to", to, "rows", len(logs))

		from = to + 1
		// After a clean fetch, grow a shrunk chunk size back toward the
		// configured default by doubling it, never beyond the default.
		if chunkSize < ix.cfg.ChunkSize {
			chunkSize = min(chunkSize*2, ix.cfg.ChunkSize)
		}
		ix.setChunkSizeFor(p, chunkSize)
	}
	return nil
}

// fetchChunkWithBackoff fetches [from,to]. If the provider rejects the
// range as too large, it halves *chunkSize in place and returns
// shrunk=true so the caller retries the same `from` with a smaller
// window (spec.md §4.5 step 3a). Any other transient RpcError is
// retried with capped exponential backoff (spec.md §7: base 1s,
// factor 2, cap 60s, max 6 attempts) before surfacing as fatal.
func (ix *Indexer) fetchChunkWithBackoff(ctx context.Context, client RPCClient, addr common.Address, topic0 common.Hash, from, to uint64, chunkSize *uint64) (logs []types.Log, shrunk bool, err error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.Multiplier = 2
	policy.MaxInterval = 60 * time.Second
	bounded := backoff.WithMaxRetries(policy, 5) // 1 attempt + 5 retries = 6 attempts

	operation := func() error {
		result, ferr := fetchLogs(ctx, client, addr, topic0, from, to)
		if ferr != nil {
			if isRangeTooLarge(ferr) {
				return backoff.Permanent(ferr)
			}
			return ferr
		}
		logs = result
		return nil
	}

	retryErr := backoff.Retry(operation, backoff.WithContext(bounded, ctx))
	if retryErr == nil {
		return logs, false, nil
	}

	cause := retryErr
	if perm, ok := retryErr.(*backoff.PermanentError); ok {
		cause = perm.Err
	}

	if isRangeTooLarge(cause) {
		if *chunkSize <= 1 {
			return nil, false, apperr.New(apperr.KindRpc, "chunk size already at minimum, cannot shrink further")
		}
		*chunkSize = (*chunkSize + 1) / 2
		ix.log.Warnw("range too large, halving chunk size", "contract", addr.Hex(), "new_chunk_size", *chunkSize)
		return nil, true, nil
	}
	return nil, false, apperr.Wrap(apperr.KindRpc, fmt.Sprintf("fetch logs [%d,%d] failed after retries", from, to), cause)
}

// writeChunk decodes every log in the chunk and writes the rows plus the
// advanced checkpoint inside a single DB transaction (spec.md §4.5 step
// 3d, §5 atomicity guarantee).
func (ix *Indexer) writeChunk(ctx context.Context, client RPCClient, p Pair, logs []types.Log, to uint64, timestampCache map[uint64]time.Time) error {
	return ix.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, vLog := range logs {
			blockTime, err := fetchBlockTime(ctx, client, vLog.BlockNumber, timestampCache)
			if err != nil {
				return err
			}
			row, err := decodeLog(p.EventIR, p.ParsedABI, vLog, blockTime)
			if err != nil {
				return err
			}
			if err := insertRow(tx, p.EventIR.TableSchema.TableName, row); err != nil {
				return err
			}
		}
		return saveCheckpointTx(tx, p.Chain, p.ContractAddress, p.EventIR.EventName, to)
	})
}
