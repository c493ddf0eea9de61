package specgen

import (
	"fmt"
	"strings"

	"smorty/internal/abiutil"
)

func eventIRSystemPrompt() string {
	return strings.TrimSpace(`
You design database tables for indexing a single EVM smart-contract event.
Given an event's ABI fragment and a natural-language task description,
respond with a JSON object describing:
  - table_name: a snake_case plural table name for this event's rows
  - indexed_fields: one entry per indexed (topic) parameter, each with
    name, solidity_type, column_name, column_type
  - data_fields: one entry per non-indexed (data) parameter, same shape
  - description: one sentence summarizing what the table captures

Every "name" must exactly match an ABI parameter name. column_type
suggestions are advisory — the caller authoritatively remaps solidity
types to SQL types, so focus on correct column_name and solidity_type.
`)
}

func eventIRUserPrompt(req Request, info *abiutil.EventInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Event: %s\n", info.Signature)
	fmt.Fprintf(&b, "Topic0: %s\n", info.Topic0)
	fmt.Fprintf(&b, "Chain: %s\n", req.Chain)
	fmt.Fprintf(&b, "Contract address: %s\n", req.Address)
	fmt.Fprintf(&b, "Start block: %d\n", req.StartBlock)
	b.WriteString("Indexed parameters: ")
	for i, a := range info.IndexedArgs {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", a.Type.String(), a.Name)
	}
	b.WriteString("\nNon-indexed parameters: ")
	for i, a := range info.NonIndexedArgs {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", a.Type.String(), a.Name)
	}
	b.WriteString("\n\nTask: ")
	b.WriteString(req.TaskText)
	return b.String()
}

func eventIRJSONSchema() map[string]interface{} {
	fieldSchema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name":          map[string]interface{}{"type": "string"},
			"solidity_type": map[string]interface{}{"type": "string"},
			"column_name":   map[string]interface{}{"type": "string"},
			"column_type":   map[string]interface{}{"type": "string"},
		},
		"required": []string{"name", "solidity_type", "column_name"},
	}
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"table_name":     map[string]interface{}{"type": "string"},
			"indexed_fields": map[string]interface{}{"type": "array", "items": fieldSchema},
			"data_fields":    map[string]interface{}{"type": "array", "items": fieldSchema},
			"description":    map[string]interface{}{"type": "string"},
		},
		"required": []string{"table_name", "indexed_fields", "data_fields", "description"},
	}
}
