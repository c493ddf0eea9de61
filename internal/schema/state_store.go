package schema

import (
	"encoding/json"
	"os"
	"path/filepath"

	"smorty/internal/apperr"
	"smorty/internal/ir"
)

// StateStore reads and writes the recorded schema state at
// <baseDir>/migrations/schema.json, the record of what DDL has already
// been applied (spec.md §4.4).
type StateStore struct {
	BaseDir string
}

func NewStateStore(baseDir string) *StateStore {
	return &StateStore{BaseDir: baseDir}
}

func (s *StateStore) path() string {
	return filepath.Join(s.BaseDir, "migrations", "schema.json")
}

// Load returns the recorded state, or an empty state if none exists yet
// (first run).
func (s *StateStore) Load() (*ir.SchemaState, error) {
	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return ir.NewSchemaState(), nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "read schema state", err)
	}
	state := ir.NewSchemaState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "decode schema state", err)
	}
	return state, nil
}

// Save persists the state, pretty-printed for clean version-control diffs.
func (s *StateStore) Save(state *ir.SchemaState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "encode schema state", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path()), 0o755); err != nil {
		return apperr.Wrap(apperr.KindInternal, "create migrations directory", err)
	}
	if err := os.WriteFile(s.path(), append(data, '\n'), 0o644); err != nil {
		return apperr.Wrap(apperr.KindInternal, "write schema state", err)
	}
	return nil
}

// TargetFromEvents builds the target schema state as the union of every
// event IR's table_schema (spec.md §4.4: "the target schema is the union
// of every event IR's table_schema").
func TargetFromEvents(events []*ir.EventIR) *ir.SchemaState {
	state := ir.NewSchemaState()
	for _, e := range events {
		state.Tables[e.TableSchema.TableName] = e.TableSchema
	}
	return state
}
