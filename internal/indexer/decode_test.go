package indexer

import (
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smorty/internal/ir"
)

const transferABI = `[{
  "anonymous": false,
  "inputs": [
    {"indexed": true,  "name": "from",  "type": "address"},
    {"indexed": true,  "name": "to",    "type": "address"},
    {"indexed": false, "name": "value", "type": "uint256"}
  ],
  "name": "Transfer",
  "type": "event"
}]`

func mustParseABI(t *testing.T) abi.ABI {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(transferABI))
	require.NoError(t, err)
	return parsed
}

func transferEventIR() *ir.EventIR {
	return &ir.EventIR{
		ContractID: "weth",
		EventName:  "Transfer",
		IndexedFields: []ir.EventField{
			{Name: "from", ColumnName: "from_addr"},
			{Name: "to", ColumnName: "to_addr"},
		},
		DataFields: []ir.EventField{
			{Name: "value", ColumnName: "value"},
		},
		TableSchema: ir.TableSchema{TableName: "transfers"},
	}
}

func TestDecodeLog_MapsIndexedAndDataFieldsToColumns(t *testing.T) {
	parsed := mustParseABI(t)
	eventIR := transferEventIR()

	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")

	packed, err := parsed.Events["Transfer"].Inputs.NonIndexed().Pack(big.NewInt(1000))
	require.NoError(t, err)

	vLog := types.Log{
		Topics: []common.Hash{
			parsed.Events["Transfer"].ID,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data:        packed,
		BlockNumber: 42,
		TxHash:      common.HexToHash("0xabc"),
		Index:       3,
	}

	row, err := decodeLog(eventIR, parsed, vLog, time.Unix(1000, 0).UTC())
	require.NoError(t, err)

	assert.Equal(t, from.Hex(), row["from_addr"])
	assert.Equal(t, to.Hex(), row["to_addr"])
	assert.Equal(t, "1000", row["value"])
	assert.EqualValues(t, 42, row["block_number"])
	assert.Equal(t, vLog.TxHash.Hex(), row["transaction_hash"])
	assert.EqualValues(t, 3, row["log_index"])
}

func TestDecodeLog_TopicCountMismatch_Errors(t *testing.T) {
	parsed := mustParseABI(t)
	eventIR := transferEventIR()

	vLog := types.Log{
		Topics: []common.Hash{parsed.Events["Transfer"].ID, common.HexToHash("0x01")},
		Data:   []byte{},
	}

	_, err := decodeLog(eventIR, parsed, vLog, time.Now())
	assert.Error(t, err)
}
