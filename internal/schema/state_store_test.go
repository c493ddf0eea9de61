package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smorty/internal/ir"
)

func TestStateStore_LoadMissing_ReturnsEmptyState(t *testing.T) {
	store := NewStateStore(t.TempDir())
	state, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, state.Tables)
}

func TestStateStore_SaveThenLoad_RoundTrips(t *testing.T) {
	store := NewStateStore(t.TempDir())
	state := ir.NewSchemaState()
	state.Tables["transfers"] = sampleTable()

	require.NoError(t, store.Save(state))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Contains(t, loaded.Tables, "transfers")
	assert.Equal(t, state.Tables["transfers"].TableName, loaded.Tables["transfers"].TableName)
	assert.Len(t, loaded.Tables["transfers"].Columns, len(state.Tables["transfers"].Columns))
}

func TestTargetFromEvents_UnionsTableSchemas(t *testing.T) {
	events := []*ir.EventIR{
		{ContractID: "weth", EventName: "Transfer", TableSchema: sampleTable()},
	}
	approvals := sampleTable()
	approvals.TableName = "approvals"
	events = append(events, &ir.EventIR{ContractID: "weth", EventName: "Approval", TableSchema: approvals})

	target := TargetFromEvents(events)
	assert.Len(t, target.Tables, 2)
	assert.Contains(t, target.Tables, "transfers")
	assert.Contains(t, target.Tables, "approvals")
}
