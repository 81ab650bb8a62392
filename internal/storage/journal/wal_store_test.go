package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWALStore_AppendAndRead(t *testing.T) {
	dir := t.TempDir()

	store, err := NewWALStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Append(Entry{WorkflowID: "wf-1", From: "IDLE", To: "APPROVING", Event: "approve"}))
	require.NoError(t, store.Append(Entry{WorkflowID: "wf-2", From: "IDLE", To: "APPROVING", Event: "approve"}))
	require.NoError(t, store.Append(Entry{WorkflowID: "wf-1", From: "APPROVING", To: "FUNDING_NEEDED", Event: "insufficient_funds", AmountNeeded: "3000.00"}))
	assert.Equal(t, uint64(3), store.CurrentIndex())

	entries, err := store.Workflow("wf-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "FUNDING_NEEDED", entries[1].To)
	assert.Equal(t, "3000.00", entries[1].AmountNeeded)
	assert.NotEmpty(t, entries[0].ID)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
	assert.False(t, entries[0].Time.IsZero())

	after, err := store.EntriesAfter(2)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, uint64(3), after[0].Index)

	none, err := store.EntriesAfter(3)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, store.Close())

	reopened, err := NewWALStore(dir)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, uint64(3), reopened.CurrentIndex())
}

func TestWALStore_RequiresWorkflowID(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.Error(t, store.Append(Entry{From: "IDLE"}))
}

func TestWALStore_NilSafe(t *testing.T) {
	var store *WALStore
	assert.Error(t, store.Append(Entry{WorkflowID: "x"}))
	assert.Equal(t, uint64(0), store.CurrentIndex())
}

func TestWALStore_SkipsForeignRecordsAfterReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewWALStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Append(Entry{WorkflowID: "wf-1", From: "IDLE", To: "APPROVING", Event: "approve"}))
	require.NoError(t, store.wal.Write(store.wal.CurrentIndex()+1, "snapshot_1", []byte(`{"ignored":true}`)))
	require.NoError(t, store.Append(Entry{WorkflowID: "wf-1", From: "APPROVING", To: "IDLE", Event: "approved"}))
	require.NoError(t, store.Close())

	reopened, err := NewWALStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	records, err := reopened.EntriesAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, uint64(1), records[0].Index)
	assert.Equal(t, uint64(3), records[1].Index)
	assert.Equal(t, "approved", records[1].Entry.Event)
}
