package specgen

import (
	"smorty/internal/abiutil"
	"smorty/internal/apperr"
	"smorty/internal/ir"
)

// Validate runs the post-generation checks from spec.md §4.2: every
// indexed/data field matches the ABI's indexed-ness, and the standard
// columns are present with the required types.
func Validate(e *ir.EventIR, info *abiutil.EventInfo) error {
	indexedNames := map[string]bool{}
	for _, a := range info.IndexedArgs {
		indexedNames[a.Name] = true
	}
	dataNames := map[string]bool{}
	for _, a := range info.NonIndexedArgs {
		dataNames[a.Name] = true
	}

	for _, f := range e.IndexedFields {
		if !indexedNames[f.Name] {
			return apperr.New(apperr.KindIrValidation, "indexed field "+f.Name+" is not an indexed ABI parameter")
		}
	}
	for _, f := range e.DataFields {
		if !dataNames[f.Name] {
			return apperr.New(apperr.KindIrValidation, "data field "+f.Name+" is not a non-indexed ABI parameter")
		}
	}

	required := ir.StandardColumns()
	have := map[string]ir.Column{}
	for _, c := range e.TableSchema.Columns {
		have[c.Name] = c
	}
	for _, want := range required {
		got, ok := have[want.Name]
		if !ok {
			return apperr.New(apperr.KindIrValidation, "table schema missing standard column "+want.Name)
		}
		if got.SQLType != want.SQLType {
			return apperr.New(apperr.KindIrValidation, "standard column "+want.Name+" has wrong sql_type "+got.SQLType)
		}
	}

	hasUniqueTxLogIdx := false
	for _, idx := range e.TableSchema.Indexes {
		if idx.Unique && len(idx.Columns) == 2 && idx.Columns[0] == "transaction_hash" && idx.Columns[1] == "log_index" {
			hasUniqueTxLogIdx = true
		}
	}
	if !hasUniqueTxLogIdx {
		return apperr.New(apperr.KindIrValidation, "table schema missing unique index on (transaction_hash, log_index)")
	}

	return nil
}
