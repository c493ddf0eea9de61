package ir

// SchemaState is the persisted JSON document recording the last-migrated
// shape of every table Smorty has ever created (spec.md §3). It is the
// sole source of truth for diff planning — never the live database.
type SchemaState struct {
	Tables map[string]TableSchema `json:"tables"`
}

// NewSchemaState returns an empty state.
func NewSchemaState() *SchemaState {
	return &SchemaState{Tables: map[string]TableSchema{}}
}

// Clone deep-copies the state so callers can diff against a prior
// snapshot without aliasing slices.
func (s *SchemaState) Clone() *SchemaState {
	out := NewSchemaState()
	for name, t := range s.Tables {
		cols := make([]Column, len(t.Columns))
		copy(cols, t.Columns)
		idxs := make([]Index, len(t.Indexes))
		for i, idx := range t.Indexes {
			cs := make([]string, len(idx.Columns))
			copy(cs, idx.Columns)
			idxs[i] = Index{Name: idx.Name, Columns: cs, Unique: idx.Unique}
		}
		out.Tables[name] = TableSchema{TableName: t.TableName, Columns: cols, Indexes: idxs}
	}
	return out
}
