package endpointgen

import (
	"fmt"
	"strings"
)

func endpointIRSystemPrompt() string {
	return strings.TrimSpace(`
You write a single parameterised PostgreSQL SELECT statement that serves
one HTTP GET endpoint over a set of already-existing tables.

Rules:
  - Emit exactly one SELECT statement, referencing only the listed tables.
  - Positional placeholders $1..$n bind in this exact order: path
    parameters first (in path order), then query parameters (in
    declaration order). Each placeholder must be used exactly once.
  - Every nullable (optional) parameter MUST be explicitly cast at every
    use, e.g. "$2::TEXT", "$2::BIGINT" — never a bare "$2" — because SQL
    engines infer a bare NULL bind as BIGINT, which breaks equality
    against non-integer columns.
  - Declare path_params and query_params with semantic_type one of
    string, int64, uint64, bool, decimal, and optional:true for any
    parameter that may be absent (option<T> in the spec).
  - Declare response_shape as the ordered list of selected columns with
    a json_key and json_type for each.
  - Declare tables_referenced as the tables the query actually touches.
`)
}

func endpointIRUserPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Endpoint path: ")
	b.WriteString(req.EndpointPath)
	b.WriteString("\n\nAvailable tables:\n")
	for _, t := range req.AvailableTables {
		fmt.Fprintf(&b, "- %s(", t.TableName)
		for i, c := range t.Columns {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s %s", c.Name, c.SQLType)
		}
		b.WriteString(")\n")
	}
	b.WriteString("\nTask: ")
	b.WriteString(req.TaskText)
	return b.String()
}

func endpointIRJSONSchema() map[string]interface{} {
	paramSchema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name":          map[string]interface{}{"type": "string"},
			"semantic_type": map[string]interface{}{"type": "string"},
			"optional":      map[string]interface{}{"type": "boolean"},
			"default":       map[string]interface{}{"type": "string"},
		},
		"required": []string{"name", "semantic_type"},
	}
	respFieldSchema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"column":    map[string]interface{}{"type": "string"},
			"json_key":  map[string]interface{}{"type": "string"},
			"json_type": map[string]interface{}{"type": "string"},
		},
		"required": []string{"column", "json_key", "json_type"},
	}
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"sql_query":         map[string]interface{}{"type": "string"},
			"path_params":       map[string]interface{}{"type": "array", "items": paramSchema},
			"query_params":      map[string]interface{}{"type": "array", "items": paramSchema},
			"response_shape":    map[string]interface{}{"type": "array", "items": respFieldSchema},
			"tables_referenced": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		},
		"required": []string{"sql_query", "path_params", "query_params", "response_shape", "tables_referenced"},
	}
}
