package specgen

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/require"

	"smorty/internal/abiutil"
	"smorty/internal/apperr"
)

const transferABI = `[{
	"anonymous": false,
	"inputs": [
		{"indexed": true, "name": "from", "type": "address"},
		{"indexed": true, "name": "to", "type": "address"},
		{"indexed": false, "name": "value", "type": "uint256"}
	],
	"name": "Transfer",
	"type": "event"
}]`

func mustContract(t *testing.T) *abiutil.Contract {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(transferABI))
	require.NoError(t, err)
	return &abiutil.Contract{Parsed: parsed, Raw: json.RawMessage(transferABI)}
}

type fakeAIClient struct {
	raw json.RawMessage
	err error
}

func (f *fakeAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string, jsonSchema map[string]interface{}) (json.RawMessage, error) {
	return f.raw, f.err
}

func TestGenerate_ResolvesSuggestedFieldsAgainstABI(t *testing.T) {
	contract := mustContract(t)
	ai := &fakeAIClient{raw: json.RawMessage(`{
		"table_name": "transfers",
		"indexed_fields": [{"name":"from"},{"name":"to"}],
		"data_fields": [{"name":"value"}],
		"description": "ERC20 transfers"
	}`)}

	eventIR, err := Generate(context.Background(), ai, Request{
		ContractID: "token", Chain: "ethereum", Address: "0xabc",
		EventName: "Transfer", TaskText: "index transfers", Contract: contract, ModelID: "gpt-test",
	})
	require.NoError(t, err)
	require.Equal(t, "transfers", eventIR.TableSchema.TableName)
	require.Len(t, eventIR.IndexedFields, 2)
	require.Len(t, eventIR.DataFields, 1)
	require.Equal(t, "uint256", eventIR.DataFields[0].SolidityType)
	require.NotEmpty(t, eventIR.Topic0)
	require.NotEmpty(t, eventIR.PromptHash)
}

func TestGenerate_MissingEventInABI_Errors(t *testing.T) {
	contract := mustContract(t)
	ai := &fakeAIClient{raw: json.RawMessage(`{}`)}

	_, err := Generate(context.Background(), ai, Request{
		EventName: "DoesNotExist", Contract: contract,
	})
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.KindAbi))
}

func TestGenerate_AISuggestsUnknownField_Errors(t *testing.T) {
	contract := mustContract(t)
	ai := &fakeAIClient{raw: json.RawMessage(`{
		"indexed_fields": [{"name":"notAnArg"}],
		"data_fields": []
	}`)}

	_, err := Generate(context.Background(), ai, Request{EventName: "Transfer", Contract: contract})
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.KindIrValidation))
}

func TestGenerate_AIOmitsField_FilledInDeterministically(t *testing.T) {
	contract := mustContract(t)
	ai := &fakeAIClient{raw: json.RawMessage(`{
		"indexed_fields": [{"name":"from"}],
		"data_fields": []
	}`)}

	eventIR, err := Generate(context.Background(), ai, Request{EventName: "Transfer", Contract: contract})
	require.NoError(t, err)
	require.Len(t, eventIR.IndexedFields, 2)

	names := map[string]bool{}
	for _, f := range eventIR.IndexedFields {
		names[f.Name] = true
	}
	require.True(t, names["to"])
}

func TestToSnakeCase(t *testing.T) {
	require.Equal(t, "token_id", toSnakeCase("tokenId"))
	require.Equal(t, "from", toSnakeCase("from"))
}

func TestPluralSnake(t *testing.T) {
	require.Equal(t, "transfers", pluralSnake("Transfer"))
	require.Equal(t, "approvals", pluralSnake("Approvals"))
}
