package indexer

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"smorty/internal/apperr"
)

// RPCClient is the subset of ethclient.Client the indexer needs, kept
// as an interface so tests can supply a fake without dialing a node.
type RPCClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	Close()
}

// Dial connects to an RPC endpoint, timing out per spec.md §5 default
// 30s RPC call timeout.
func Dial(ctx context.Context, url string) (RPCClient, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	client, err := ethclient.DialContext(dialCtx, url)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindRpc, "dial RPC endpoint "+url, err)
	}
	return client, nil
}

// rangeTooLargeMarkers are substrings providers commonly use for the
// "log range too large" rejection; matched case-insensitively since the
// exact message is provider-specific (spec.md §4.5 step 3a).
var rangeTooLargeMarkers = []string{
	"query returned more than",
	"range too large",
	"block range is too large",
	"exceed maximum block range",
	"limit exceeded",
}

func isRangeTooLarge(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range rangeTooLargeMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func fetchLogs(ctx context.Context, client RPCClient, addr common.Address, topic0 common.Hash, from, to uint64) ([]types.Log, error) {
	callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{addr},
		Topics:    [][]common.Hash{{topic0}},
	}
	logs, err := client.FilterLogs(callCtx, query)
	if err != nil {
		if isRangeTooLarge(err) {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.KindRpc, "eth_getLogs failed", err)
	}
	return logs, nil
}

func fetchBlockTime(ctx context.Context, client RPCClient, blockNumber uint64, cache map[uint64]time.Time) (time.Time, error) {
	if t, ok := cache[blockNumber]; ok {
		return t, nil
	}
	callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	header, err := client.HeaderByNumber(callCtx, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return time.Time{}, apperr.Wrap(apperr.KindRpc, "eth_getBlockByNumber failed", err)
	}
	t := time.Unix(int64(header.Time), 0).UTC()
	cache[blockNumber] = t
	return t, nil
}

func headBlock(ctx context.Context, client RPCClient, confirmations uint64) (uint64, error) {
	callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	n, err := client.BlockNumber(callCtx)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindRpc, "eth_blockNumber failed", err)
	}
	if n < confirmations {
		return 0, nil
	}
	return n - confirmations, nil
}
