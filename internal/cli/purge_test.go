package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/wordbook/internal/history"
	"github.com/runnerr0/wordbook/internal/storage"
)

func TestPurgeCommand_WithAllAndForce(t *testing.T) {
	store, db := newTestStore(t)
	hist := newTestHistory(t, db)
	ctx := context.Background()

	seedCard(t, store, "perro", "dog")
	hist.Record(ctx, history.Entry{Query: "perro", ResultCount: 1})

	cmd := &PurgeCommand{All: true, Force: true, globals: &GlobalFlags{}}
	cmd.setDB(db)

	output := captureOutput(t, func() {
		require.NoError(t, cmd.Execute(nil))
	})

	assert.Contains(t, output, "Purged all data")

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalCards)
	assert.Zero(t, stats.TotalHistory)
}

func TestPurgeCommand_ReseedsDefaultFolder(t *testing.T) {
	store, db := newTestStore(t)
	seedCard(t, store, "perro", "dog")

	cmd := &PurgeCommand{All: true, Force: true, globals: &GlobalFlags{}}
	cmd.setDB(db)

	captureOutput(t, func() {
		require.NoError(t, cmd.Execute(nil))
	})

	ctx := context.Background()
	folders, err := store.ListFolders(ctx)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, storage.DefaultFolderName, folders[0].Name)

	// The store stays usable after a purge.
	card := &storage.Card{Word: "gato", Translation: "cat"}
	require.NoError(t, store.AddCard(ctx, card))
}

func TestPurgeCommand_JSONOutput(t *testing.T) {
	_, db := newTestStore(t)

	cmd := &PurgeCommand{All: true, Force: true, globals: &GlobalFlags{JSON: true}}
	cmd.setDB(db)

	output := captureOutput(t, func() {
		require.NoError(t, cmd.Execute(nil))
	})

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(output), &result), "output should be valid JSON: %s", output)
	assert.Equal(t, true, result["purged"])
	assert.Equal(t, "all data deleted", result["message"])
}

func TestPurgeCommand_WithoutAllFlag(t *testing.T) {
	cmd := &PurgeCommand{globals: &GlobalFlags{}}

	err := cmd.Execute(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "purge requires --all flag for safety")
}
