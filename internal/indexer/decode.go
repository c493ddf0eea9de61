package indexer

import (
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"smorty/internal/apperr"
	"smorty/internal/ir"
)

// decodeLog turns one ethereum log plus its block timestamp into a row
// keyed by table_schema column name, per spec.md §4.5 step 3b: topics[1:]
// decode as indexed params in ABI order, data decodes as the ABI tuple
// of non-indexed params.
func decodeLog(eventIR *ir.EventIR, parsed abi.ABI, vLog types.Log, blockTime time.Time) (map[string]interface{}, error) {
	ev, ok := parsed.Events[eventIR.EventName]
	if !ok {
		return nil, apperr.New(apperr.KindDecode, "ABI has no event "+eventIR.EventName)
	}

	row := map[string]interface{}{
		"block_number":     vLog.BlockNumber,
		"block_timestamp":  blockTime,
		"transaction_hash": vLog.TxHash.Hex(),
		"log_index":        vLog.Index,
	}

	indexedArgs := indexedArguments(ev)
	if len(vLog.Topics)-1 != len(indexedArgs) {
		return nil, apperr.New(apperr.KindDecode, "log has "+strconv.Itoa(len(vLog.Topics)-1)+" indexed topics, ABI declares "+strconv.Itoa(len(indexedArgs)))
	}
	for i, arg := range indexedArgs {
		val, err := decodeIndexedTopic(arg, vLog.Topics[i+1])
		if err != nil {
			return nil, err
		}
		row[columnNameFor(eventIR, arg.Name, true)] = val
	}

	if len(vLog.Data) > 0 || len(ev.Inputs)-len(indexedArgs) > 0 {
		values, err := ev.Inputs.NonIndexed().Unpack(vLog.Data)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindDecode, "unpack non-indexed data for "+eventIR.EventName, err)
		}
		nonIndexed := ev.Inputs.NonIndexed()
		for i, arg := range nonIndexed {
			if i >= len(values) {
				break
			}
			row[columnNameFor(eventIR, arg.Name, false)] = normalizeValue(values[i])
		}
	}

	return row, nil
}

func indexedArguments(ev abi.Event) abi.Arguments {
	var out abi.Arguments
	for _, in := range ev.Inputs {
		if in.Indexed {
			out = append(out, in)
		}
	}
	return out
}

func columnNameFor(eventIR *ir.EventIR, abiName string, indexed bool) string {
	fields := eventIR.DataFields
	if indexed {
		fields = eventIR.IndexedFields
	}
	for _, f := range fields {
		if f.Name == abiName {
			return f.ColumnName
		}
	}
	return abiName
}

// decodeIndexedTopic decodes a single 32-byte indexed topic per its
// solidity type. Indexed dynamic types (string, bytes) are hashed by the
// EVM and arrive as their keccak256 digest; Smorty stores the hex digest
// verbatim rather than attempting (impossible) recovery of the original
// value.
func decodeIndexedTopic(arg abi.Argument, topic common.Hash) (interface{}, error) {
	t := arg.Type.String()
	switch {
	case t == "address":
		return common.HexToAddress(topic.Hex()).Hex(), nil
	case t == "bool":
		return topic.Big().Sign() != 0, nil
	case t == "string", strings.HasPrefix(t, "bytes"):
		return topic.Hex(), nil
	case strings.HasPrefix(t, "uint"), strings.HasPrefix(t, "int"):
		n := new(big.Int).SetBytes(topic.Bytes())
		if strings.HasPrefix(t, "int") {
			n = asSigned(topic)
		}
		return normalizeValue(n), nil
	default:
		return topic.Hex(), nil
	}
}

func asSigned(topic common.Hash) *big.Int {
	n := new(big.Int).SetBytes(topic.Bytes())
	// Two's-complement: if the high bit of a 256-bit word is set, the
	// value is negative.
	threshold := new(big.Int).Lsh(big.NewInt(1), 255)
	if n.Cmp(threshold) >= 0 {
		modulus := new(big.Int).Lsh(big.NewInt(1), 256)
		n.Sub(n, modulus)
	}
	return n
}

// normalizeValue converts go-ethereum's ABI decode output into values
// the DB driver and JSON encoder handle directly: *big.Int becomes its
// decimal string (NUMERIC columns bind strings; spec.md §4.2 wide-int
// columns are NUMERIC), fixed byte arrays become hex strings.
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case *big.Int:
		return val.String()
	case common.Address:
		return val.Hex()
	case [32]byte:
		return common.BytesToHash(val[:]).Hex()
	case []byte:
		return common.Bytes2Hex(val)
	default:
		return val
	}
}
