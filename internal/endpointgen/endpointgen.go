// Package endpointgen produces an endpoint IR from an HTTP path, a
// natural-language task, and the catalog of tables already available
// from event IRs (spec.md §4.3, C6).
package endpointgen

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"smorty/internal/apperr"
	"smorty/internal/ir"
)

// AIClient mirrors specgen.AIClient; kept as its own interface to avoid
// an import cycle and to keep each generator independently testable.
type AIClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, jsonSchema map[string]interface{}) (json.RawMessage, error)
}

// TableCatalogEntry describes one table an endpoint may reference.
type TableCatalogEntry struct {
	TableName string
	Columns   []ir.Column
}

// Request is the input to Generate.
type Request struct {
	EndpointPath    string
	TaskText        string
	AvailableTables []TableCatalogEntry
	ModelID         string
}

type aiEndpointIR struct {
	SQLQuery         string      `json:"sql_query"`
	PathParams       []aiParam   `json:"path_params"`
	QueryParams      []aiParam   `json:"query_params"`
	ResponseShape    []respField `json:"response_shape"`
	TablesReferenced []string    `json:"tables_referenced"`
}

type aiParam struct {
	Name     string `json:"name"`
	Kind     string `json:"semantic_type"`
	Optional bool   `json:"optional"`
	Default  string `json:"default,omitempty"`
}

type respField struct {
	Column   string `json:"column"`
	JSONKey  string `json:"json_key"`
	JSONType string `json:"json_type"`
}

var placeholderRe = regexp.MustCompile(`\$(\d+)`)

// Generate builds an endpoint IR, validating it against spec.md §4.3.
func Generate(ctx context.Context, client AIClient, req Request) (*ir.EndpointIR, error) {
	systemPrompt := endpointIRSystemPrompt()
	userPrompt := endpointIRUserPrompt(req)
	promptHash := hashPrompt(systemPrompt, userPrompt)

	raw, err := client.Complete(ctx, systemPrompt, userPrompt, endpointIRJSONSchema())
	if err != nil {
		return nil, err
	}

	var suggestion aiEndpointIR
	if err := json.Unmarshal(raw, &suggestion); err != nil {
		return nil, apperr.Wrap(apperr.KindAiSchema, "decode endpoint IR suggestion", err)
	}

	endpoint := &ir.EndpointIR{
		EndpointPath:     req.EndpointPath,
		Method:           "GET",
		TablesReferenced: suggestion.TablesReferenced,
		SQLQuery:         strings.TrimSpace(suggestion.SQLQuery),
		ModelID:          req.ModelID,
		PromptHash:       promptHash,
	}
	for _, p := range suggestion.PathParams {
		endpoint.PathParams = append(endpoint.PathParams, toParam(p))
	}
	for _, p := range suggestion.QueryParams {
		endpoint.QueryParams = append(endpoint.QueryParams, toParam(p))
	}
	for _, f := range suggestion.ResponseShape {
		endpoint.ResponseShape = append(endpoint.ResponseShape, ir.ResponseField{
			Column: f.Column, JSONKey: f.JSONKey, JSONType: f.JSONType,
		})
	}

	if err := Validate(endpoint, req.AvailableTables); err != nil {
		return nil, err
	}
	return endpoint, nil
}

func toParam(p aiParam) ir.Param {
	return ir.Param{
		Name:       p.Name,
		Kind:       ir.ParamKind(p.Kind),
		Optional:   p.Optional,
		Default:    p.Default,
		HasDefault: p.Default != "",
	}
}

// Validate enforces the endpoint IR invariants from spec.md §4.3 and §8:
// referenced tables exist, every $k placeholder is declared exactly once
// in binding order, defaults parse as their semantic type, and the SQL
// is a single SELECT touching only listed tables.
func Validate(e *ir.EndpointIR, catalog []TableCatalogEntry) error {
	known := map[string]bool{}
	for _, t := range catalog {
		known[t.TableName] = true
	}
	for _, t := range e.TablesReferenced {
		if !known[t] {
			return apperr.New(apperr.KindIrValidation, "endpoint references unknown table "+t)
		}
	}

	q := strings.TrimSpace(e.SQLQuery)
	upper := strings.ToUpper(q)
	if !strings.HasPrefix(upper, "SELECT") {
		return apperr.New(apperr.KindIrValidation, "sql_query must begin with SELECT")
	}
	if strings.Contains(strings.TrimSuffix(strings.TrimSpace(q), ";"), ";") {
		return apperr.New(apperr.KindIrValidation, "sql_query must be a single statement")
	}
	for _, t := range e.TablesReferenced {
		if !strings.Contains(q, t) {
			return apperr.New(apperr.KindIrValidation, "sql_query never references declared table "+t)
		}
	}
	// Reject references to tables outside tables_referenced by checking
	// every known table name that appears in the query is declared.
	for t := range known {
		if strings.Contains(q, t) {
			declared := false
			for _, d := range e.TablesReferenced {
				if d == t {
					declared = true
					break
				}
			}
			if !declared {
				return apperr.New(apperr.KindIrValidation, "sql_query references table "+t+" not listed in tables_referenced")
			}
		}
	}

	placeholders := map[int]bool{}
	for _, m := range placeholderRe.FindAllStringSubmatch(q, -1) {
		n, _ := strconv.Atoi(m[1])
		placeholders[n] = true
	}

	allParams := e.AllParams()
	if len(placeholders) != len(allParams) {
		return apperr.New(apperr.KindIrValidation, fmt.Sprintf(
			"endpoint declares %d params but sql_query has %d distinct placeholders", len(allParams), len(placeholders)))
	}
	for i := 1; i <= len(allParams); i++ {
		if !placeholders[i] {
			return apperr.New(apperr.KindIrValidation, fmt.Sprintf("sql_query missing placeholder $%d", i))
		}
	}

	for _, p := range allParams {
		if p.HasDefault {
			if err := validateDefault(p); err != nil {
				return err
			}
		}
	}
	if err := validateNullableCasts(e, allParams); err != nil {
		return err
	}

	return nil
}

// validateNullableCasts enforces spec.md §9: every optional (nullable)
// parameter's placeholder must appear with an explicit SQL cast
// ($n::TYPE) somewhere in the query, so drivers don't infer NULL as
// BIGINT and fail equality against non-integer columns.
func validateNullableCasts(e *ir.EndpointIR, allParams []ir.Param) error {
	for i, p := range allParams {
		if !p.Optional {
			continue
		}
		placeholder := fmt.Sprintf("$%d::", i+1)
		if !strings.Contains(e.SQLQuery, placeholder) {
			return apperr.New(apperr.KindIrValidation,
				fmt.Sprintf("nullable parameter %s ($%d) must be explicitly cast in sql_query, e.g. $%d::TEXT", p.Name, i+1, i+1))
		}
	}
	return nil
}

func validateDefault(p ir.Param) error {
	switch p.Kind {
	case ir.ParamInt64:
		if _, err := strconv.ParseInt(p.Default, 10, 64); err != nil {
			return apperr.New(apperr.KindIrValidation, "default for "+p.Name+" does not parse as "+string(p.Kind))
		}
	case ir.ParamUint64:
		if _, err := strconv.ParseUint(p.Default, 10, 64); err != nil {
			return apperr.New(apperr.KindIrValidation, "default for "+p.Name+" does not parse as "+string(p.Kind))
		}
	case ir.ParamBool:
		if _, err := strconv.ParseBool(p.Default); err != nil {
			return apperr.New(apperr.KindIrValidation, "default for "+p.Name+" does not parse as bool")
		}
	case ir.ParamDecimal:
		if _, err := strconv.ParseFloat(p.Default, 64); err != nil {
			return apperr.New(apperr.KindIrValidation, "default for "+p.Name+" does not parse as decimal")
		}
	}
	return nil
}

func hashPrompt(system, user string) string {
	sum := sha256.Sum256([]byte(system + "\x00" + user))
	return hex.EncodeToString(sum[:])
}
