package server

import (
	"database/sql"
	"math/big"

	"smorty/internal/apperr"
	"smorty/internal/ir"
)

// scanRows maps *sql.Rows returned by a raw query onto JSON-ready maps
// keyed by response_shape's json_key, in column order, per spec.md
// §4.6 step 4. Values the driver returns as raw bytes (such as NUMERIC
// columns wider than 64 bits) or as *big.Int serialise as JSON strings,
// whatever their json_type, so large values never lose precision going
// through a JSON number.
func scanRows(rows *sql.Rows, shape []ir.ResponseField) ([]map[string]interface{}, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDb, "read result columns", err)
	}

	jsonKeyByColumn := map[string]ir.ResponseField{}
	for _, f := range shape {
		jsonKeyByColumn[f.Column] = f
	}

	out := make([]map[string]interface{}, 0)
	for rows.Next() {
		raw := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, apperr.Wrap(apperr.KindDb, "scan result row", err)
		}

		obj := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			field, known := jsonKeyByColumn[col]
			key := col
			jsonType := ""
			if known {
				key = field.JSONKey
				jsonType = field.JSONType
			}
			obj[key] = jsonValue(raw[i], jsonType)
		}
		out = append(out, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindDb, "iterate result rows", err)
	}
	return out, nil
}

// jsonValue converts a driver value into its JSON-encodable form. The
// Postgres driver returns NUMERIC/TEXT columns as []byte; rendering
// those as a plain string (rather than letting encoding/json guess) is
// what keeps a 78-digit NUMERIC value exact instead of silently
// truncating through a JSON number.
func jsonValue(v interface{}, jsonType string) interface{} {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case *big.Int:
		return val.String()
	default:
		return val
	}
}
