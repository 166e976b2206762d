// File: internal/history/history_test.go
package history

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	return NewIndex(t.TempDir(), zap.NewNop())
}

func readRows(t *testing.T, ix *Index) [][]string {
	t.Helper()
	f, err := os.Open(filepath.Join(ix.base, "main.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestAppendCreatesFileWithHeader(t *testing.T) {
	ix := newTestIndex(t)

	query, err := ix.Append("action_1")
	require.NoError(t, err)
	assert.Equal(t, "default_0", query)

	rows := readRows(t, ix)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"query", "location"}, rows[0])
	assert.Equal(t, []string{"default_0", "action_1"}, rows[1])
}

func TestAppendAssignsNextFreeDefaultIndex(t *testing.T) {
	ix := newTestIndex(t)

	for _, folder := range []string{"action_1", "action_2", "action_3"} {
		_, err := ix.Append(folder)
		require.NoError(t, err)
	}

	// Renamed entries must not reserve their old default slot.
	require.NoError(t, ix.Rename("action_2", "open settings"))

	query, err := ix.Append("action_4")
	require.NoError(t, err)
	assert.Equal(t, "default_3", query, "highest surviving default is default_2")
}

func TestRenameValidation(t *testing.T) {
	ix := newTestIndex(t)
	_, err := ix.Append("action_1")
	require.NoError(t, err)

	assert.Error(t, ix.Rename("action_1", ""))
	assert.Error(t, ix.Rename("action_1", "   "))
	assert.Error(t, ix.Rename("action_1", "default_7"))
}

func TestRenameRewritesOnlyMatchingRow(t *testing.T) {
	ix := newTestIndex(t)
	_, err := ix.Append("action_1")
	require.NoError(t, err)
	_, err = ix.Append("action_2")
	require.NoError(t, err)

	require.NoError(t, ix.Rename("action_1", "log into dashboard"))

	rows := readRows(t, ix)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"log into dashboard", "action_1"}, rows[1])
	assert.Equal(t, []string{"default_1", "action_2"}, rows[2])
}

func TestRenameMissingEntryIsNotAnError(t *testing.T) {
	ix := newTestIndex(t)
	_, err := ix.Append("action_1")
	require.NoError(t, err)

	assert.NoError(t, ix.Rename("action_99", "whatever"))
}

func TestMatchWordOverlap(t *testing.T) {
	ix := newTestIndex(t)
	_, err := ix.Append("action_1")
	require.NoError(t, err)
	_, err = ix.Append("action_2")
	require.NoError(t, err)
	require.NoError(t, ix.Rename("action_1", "log into the dashboard"))
	require.NoError(t, ix.Rename("action_2", "export report as pdf"))

	locations, err := ix.Match("Open the DASHBOARD now")
	require.NoError(t, err)
	assert.Equal(t, []string{"action_1"}, locations)

	locations, err = ix.Match("compile kernel")
	require.NoError(t, err)
	assert.Empty(t, locations)
}

func TestMatchMissingIndexIsAnError(t *testing.T) {
	ix := newTestIndex(t)
	_, err := ix.Match("anything")
	require.Error(t, err)
}

func TestGatherContextConcatenatesCSVFiles(t *testing.T) {
	ix := newTestIndex(t)
	dir := filepath.Join(ix.base, "encrypted_csv", "action_1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.csv"), []byte("second"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte("first"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignore.txt"), []byte("nope"), 0o644))

	got := ix.GatherContext([]string{"action_1", "missing_folder"})
	assert.Contains(t, got, "--- Context from ")
	assert.Contains(t, got, "first")
	assert.Contains(t, got, "second")
	assert.NotContains(t, got, "nope")
	// Files are concatenated in name order.
	assert.Less(t, strings.Index(got, "first"), strings.Index(got, "second"))
}

func TestContextForCombinesMatchAndGather(t *testing.T) {
	ix := newTestIndex(t)
	_, err := ix.Append("action_1")
	require.NoError(t, err)
	require.NoError(t, ix.Rename("action_1", "open settings"))

	dir := filepath.Join(ix.base, "encrypted_csv", "action_1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "parsed.csv"), []byte("id,content"), 0o644))

	got, err := ix.ContextFor("open the settings panel")
	require.NoError(t, err)
	assert.Contains(t, got, "id,content")

	got, err = ix.ContextFor("unrelated words entirely")
	require.NoError(t, err)
	assert.Empty(t, got)
}
