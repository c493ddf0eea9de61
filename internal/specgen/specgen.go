// Package specgen produces an event IR from a contract ABI, an event
// name, and a natural-language task description (spec.md §4.2, C5).
package specgen

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"smorty/internal/abiutil"
	"smorty/internal/apperr"
	"smorty/internal/ir"
)

// AIClient is the subset of aiclient.Client that specgen needs, kept as
// an interface so tests can stub the AI round trip.
type AIClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, jsonSchema map[string]interface{}) (json.RawMessage, error)
}

// Request is the input to Generate.
type Request struct {
	ContractID string
	Chain      string
	Address    string
	StartBlock uint64
	EventName  string
	TaskText   string
	Contract   *abiutil.Contract
	ModelID    string
}

// aiEventIR is the shape we ask the AI to produce: a loose suggestion
// that Generate then validates and corrects against the ABI and the
// authoritative solidity->sql mapping table.
type aiEventIR struct {
	TableName     string            `json:"table_name"`
	IndexedFields []fieldSuggestion `json:"indexed_fields"`
	DataFields    []fieldSuggestion `json:"data_fields"`
	Description   string            `json:"description"`
}

type fieldSuggestion struct {
	Name         string `json:"name"`
	SolidityType string `json:"solidity_type"`
	ColumnName   string `json:"column_name"`
	ColumnType   string `json:"column_type"`
}

// Generate builds an event IR for one (contract, event) pair.
func Generate(ctx context.Context, client AIClient, req Request) (*ir.EventIR, error) {
	info, err := req.Contract.ResolveEvent(req.EventName)
	if err != nil {
		return nil, err
	}

	systemPrompt := eventIRSystemPrompt()
	userPrompt := eventIRUserPrompt(req, info)
	promptHash := hashPrompt(systemPrompt, userPrompt)

	raw, err := client.Complete(ctx, systemPrompt, userPrompt, eventIRJSONSchema())
	if err != nil {
		return nil, err
	}

	var suggestion aiEventIR
	if err := json.Unmarshal(raw, &suggestion); err != nil {
		return nil, apperr.Wrap(apperr.KindAiSchema, "decode event IR suggestion", err)
	}

	indexedFields, err := resolveFields(suggestion.IndexedFields, info.IndexedArgs)
	if err != nil {
		return nil, err
	}
	dataFields, err := resolveFields(suggestion.DataFields, info.NonIndexedArgs)
	if err != nil {
		return nil, err
	}

	tableName := suggestion.TableName
	if tableName == "" {
		tableName = pluralSnake(req.EventName)
	}
	schema := buildTableSchema(tableName, indexedFields, dataFields)

	eventIR := &ir.EventIR{
		ContractID:     req.ContractID,
		EventName:      req.EventName,
		EventSignature: info.Signature,
		Topic0:         info.Topic0,
		Chain:          req.Chain,
		ContractAddr:   req.Address,
		StartBlock:     req.StartBlock,
		IndexedFields:  indexedFields,
		DataFields:     dataFields,
		TableSchema:    schema,
		Description:    suggestion.Description,
		ModelID:        req.ModelID,
		PromptHash:     promptHash,
	}

	if err := Validate(eventIR, info); err != nil {
		return nil, err
	}
	return eventIR, nil
}

// resolveFields matches the AI's field suggestions against the ABI's
// actual arguments by name (spec.md §4.2 post-validation rule), then
// overrides column_type with the authoritative solidity->sql mapping —
// "AI output is a suggestion; the mapping table is authoritative."
func resolveFields(suggestions []fieldSuggestion, abiArgs []abi.Argument) ([]ir.EventField, error) {
	byName := make(map[string]abi.Argument, len(abiArgs))
	for _, a := range abiArgs {
		byName[a.Name] = a
	}

	out := make([]ir.EventField, 0, len(abiArgs))
	seen := make(map[string]bool, len(abiArgs))

	for _, s := range suggestions {
		arg, ok := byName[s.Name]
		if !ok {
			return nil, apperr.New(apperr.KindIrValidation, "AI suggested field "+s.Name+" that is not an ABI argument with matching indexed-ness")
		}
		solType := arg.Type.String()
		colName := s.ColumnName
		if colName == "" {
			colName = toSnakeCase(s.Name)
		}
		out = append(out, ir.EventField{
			Name:         s.Name,
			SolidityType: solType,
			ColumnName:   colName,
			ColumnType:   ir.SQLTypeForSolidity(solType),
		})
		seen[s.Name] = true
	}

	// Any ABI argument the AI silently dropped is filled in deterministically
	// so every indexed/non-indexed parameter always ends up as a column.
	for _, a := range abiArgs {
		if seen[a.Name] {
			continue
		}
		out = append(out, ir.EventField{
			Name:         a.Name,
			SolidityType: a.Type.String(),
			ColumnName:   toSnakeCase(a.Name),
			ColumnType:   ir.SQLTypeForSolidity(a.Type.String()),
		})
	}

	return out, nil
}

func hashPrompt(system, user string) string {
	sum := sha256.Sum256([]byte(system + "\x00" + user))
	return hex.EncodeToString(sum[:])
}

func pluralSnake(name string) string {
	snake := toSnakeCase(name)
	if len(snake) == 0 {
		return snake
	}
	if snake[len(snake)-1] == 's' {
		return snake
	}
	return snake + "s"
}

func toSnakeCase(s string) string {
	out := make([]byte, 0, len(s)+4)
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				out = append(out, '_')
			}
			out = append(out, byte(r-'A'+'a'))
		} else {
			out = append(out, byte(r))
		}
	}
	return string(out)
}

func buildTableSchema(tableName string, indexed, data []ir.EventField) ir.TableSchema {
	cols := append([]ir.Column{}, ir.StandardColumns()...)
	for _, f := range indexed {
		cols = append(cols, ir.Column{Name: f.ColumnName, SQLType: f.ColumnType, Nullable: false})
	}
	for _, f := range data {
		cols = append(cols, ir.Column{Name: f.ColumnName, SQLType: f.ColumnType, Nullable: false})
	}
	idx := []ir.Index{
		{
			Name:    ir.StandardIndexName(tableName),
			Columns: []string{"transaction_hash", "log_index"},
			Unique:  true,
		},
	}
	return ir.TableSchema{TableName: tableName, Columns: cols, Indexes: idx}
}
