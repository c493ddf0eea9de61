package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smorty/internal/ir"
)

func sampleTable(extraCol ...ir.Column) ir.TableSchema {
	cols := append(ir.StandardColumns(), ir.Column{Name: "from_addr", SQLType: "VARCHAR(42)"})
	cols = append(cols, extraCol...)
	return ir.TableSchema{
		TableName: "transfers",
		Columns:   cols,
		Indexes: []ir.Index{
			{Name: "transfers_tx_log_idx", Columns: []string{"transaction_hash", "log_index"}, Unique: true},
		},
	}
}

func TestDiff_NewTable_EmitsCreateThenIndexes(t *testing.T) {
	target := ir.NewSchemaState()
	target.Tables["transfers"] = sampleTable()
	previous := ir.NewSchemaState()

	plan, err := Diff(target, previous)
	require.NoError(t, err)
	require.Len(t, plan.Statements, 2)
	assert.Equal(t, KindCreateTable, plan.Statements[0].Kind)
	assert.Equal(t, KindIndexChange, plan.Statements[1].Kind)
	assert.Empty(t, plan.Warnings)
}

func TestDiff_AddedColumn_EmitsAlterAddColumn(t *testing.T) {
	previous := ir.NewSchemaState()
	previous.Tables["transfers"] = sampleTable()
	target := ir.NewSchemaState()
	target.Tables["transfers"] = sampleTable(ir.Column{Name: "memo", SQLType: "TEXT"})

	plan, err := Diff(target, previous)
	require.NoError(t, err)
	require.Len(t, plan.Statements, 1)
	assert.Equal(t, KindAlterColumn, plan.Statements[0].Kind)
	assert.Contains(t, plan.Statements[0].SQL, "ADD COLUMN memo TEXT")
}

func TestDiff_SafeWidening_BigintToNumeric(t *testing.T) {
	previous := ir.NewSchemaState()
	prevTable := sampleTable()
	prevTable.Columns = append(prevTable.Columns, ir.Column{Name: "amount", SQLType: "BIGINT"})
	previous.Tables["transfers"] = prevTable

	target := ir.NewSchemaState()
	nextTable := sampleTable()
	nextTable.Columns = append(nextTable.Columns, ir.Column{Name: "amount", SQLType: "NUMERIC(78,0)"})
	target.Tables["transfers"] = nextTable

	plan, err := Diff(target, previous)
	require.NoError(t, err)
	require.Len(t, plan.Statements, 1)
	assert.Contains(t, plan.Statements[0].SQL, "ALTER COLUMN amount TYPE NUMERIC(78,0)")
}

func TestDiff_UnsafeTypeChange_ReturnsUnsafeMigrationError(t *testing.T) {
	previous := ir.NewSchemaState()
	prevTable := sampleTable()
	prevTable.Columns = append(prevTable.Columns, ir.Column{Name: "amount", SQLType: "BOOLEAN"})
	previous.Tables["transfers"] = prevTable

	target := ir.NewSchemaState()
	nextTable := sampleTable()
	nextTable.Columns = append(nextTable.Columns, ir.Column{Name: "amount", SQLType: "TEXT"})
	target.Tables["transfers"] = nextTable

	_, err := Diff(target, previous)
	require.Error(t, err)
}

func TestDiff_DroppedTableAndColumn_WarnOnlyNoStatements(t *testing.T) {
	previous := ir.NewSchemaState()
	previous.Tables["transfers"] = sampleTable(ir.Column{Name: "legacy_flag", SQLType: "BOOLEAN"})
	oldEvents := sampleTable()
	oldEvents.TableName = "old_events"
	previous.Tables["old_events"] = oldEvents

	target := ir.NewSchemaState()
	target.Tables["transfers"] = sampleTable()

	plan, err := Diff(target, previous)
	require.NoError(t, err)
	assert.Empty(t, plan.Statements)
	assert.Len(t, plan.Warnings, 2)
}

func TestDiff_NoChange_IsIdempotent(t *testing.T) {
	state := ir.NewSchemaState()
	state.Tables["transfers"] = sampleTable()
	clone := state.Clone()

	plan, err := Diff(clone, state)
	require.NoError(t, err)
	assert.Empty(t, plan.Statements)
	assert.Empty(t, plan.Warnings)
}

func TestDiff_StatementOrdering_CreatesBeforeAltersBeforeIndexes(t *testing.T) {
	previous := ir.NewSchemaState()
	previous.Tables["transfers"] = sampleTable()

	target := ir.NewSchemaState()
	target.Tables["transfers"] = sampleTable(ir.Column{Name: "memo", SQLType: "TEXT"})
	approvals := sampleTable()
	approvals.TableName = "approvals"
	target.Tables["approvals"] = approvals

	plan, err := Diff(target, previous)
	require.NoError(t, err)

	// approvals is brand new: its CREATE must sort before the ALTER on the
	// pre-existing transfers table (its index sorts after, with the other
	// index changes).
	require.GreaterOrEqual(t, len(plan.Statements), 3)
	assert.Equal(t, KindCreateTable, plan.Statements[0].Kind)
	foundAlter := false
	for _, s := range plan.Statements {
		if s.Kind == KindAlterColumn {
			foundAlter = true
		}
		if foundAlter && s.Kind == KindCreateTable {
			t.Fatalf("CREATE TABLE statement found after an ALTER statement")
		}
	}
}
