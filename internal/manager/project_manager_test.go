package manager

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynguyendang/cardcalc/pkg/card"
	apperr "github.com/duynguyendang/cardcalc/pkg/common/errors"
	"github.com/duynguyendang/cardcalc/pkg/logic"
	"github.com/duynguyendang/cardcalc/pkg/solver"
)

// writeProject lays out a minimal project and returns its root.
func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeCard := func(rel, content string) {
		dir := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, card.MetadataFile), []byte(content), 0o644))
	}
	writeCard("cardRoot/project_a1b2c3d4", "cardtype: epic\nsummary: Root\nworkflowstate: open\n")
	writeCard("cardRoot/project_a1b2c3d4/c/task_11112222", "cardtype: task\nsummary: A task\nworkflowstate: open\n")
	return root
}

func TestGetOpensAndCaches(t *testing.T) {
	pm := NewProjectManager(solver.DefaultConfig())
	root := writeProject(t)

	pc, err := pm.Get(root)
	require.NoError(t, err)
	assert.NotNil(t, pc.Store)
	assert.NotNil(t, pc.Engine)

	again, err := pm.Get(root)
	require.NoError(t, err)
	assert.Same(t, pc, again, "repeated Get returns the cached context")
}

func TestGetRejectsNonProject(t *testing.T) {
	pm := NewProjectManager(solver.DefaultConfig())
	_, err := pm.Get(t.TempDir())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestResolveByCardPath(t *testing.T) {
	pm := NewProjectManager(solver.DefaultConfig())
	root := writeProject(t)

	cardPath := filepath.Join(root, "cardRoot", "project_a1b2c3d4", "c", "task_11112222")
	pc, err := pm.ResolveByCardPath(cardPath)
	require.NoError(t, err)
	assert.Equal(t, root, pc.Root)

	// Same project resolved through a different card shares a context.
	other, err := pm.ResolveByCardPath(filepath.Join(root, "cardRoot", "project_a1b2c3d4"))
	require.NoError(t, err)
	assert.Same(t, pc, other)
}

func TestResolveByCardPathOutsideProject(t *testing.T) {
	pm := NewProjectManager(solver.DefaultConfig())
	_, err := pm.ResolveByCardPath(filepath.Join(t.TempDir(), "stray"))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestLookupCardSuggestion(t *testing.T) {
	pm := NewProjectManager(solver.DefaultConfig())
	pc, err := pm.Get(writeProject(t))
	require.NoError(t, err)

	c, err := pm.LookupCard(pc, "task_11112222")
	require.NoError(t, err)
	assert.Equal(t, "task_11112222", c.Key)

	// One character off: the error names the intended key.
	_, err = pm.LookupCard(pc, "task_11112223")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Contains(t, err.Error(), `did you mean "task_11112222"?`)

	// Nothing close: plain not-found, no suggestion.
	_, err = pm.LookupCard(pc, "zzz")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestLifecycleHandlers(t *testing.T) {
	pm := NewProjectManager(solver.DefaultConfig())
	root := writeProject(t)
	ctx := context.Background()

	pc, err := pm.Get(root)
	require.NoError(t, err)
	require.NoError(t, pc.Engine.Generate(ctx, ""))

	taskPath := filepath.Join(root, "cardRoot", "project_a1b2c3d4", "c", "task_11112222")

	// Edit: the card's unit picks up the new field value.
	require.NoError(t, os.WriteFile(filepath.Join(taskPath, card.MetadataFile),
		[]byte("cardtype: task\nsummary: Edited\nworkflowstate: done\n"), 0o644))
	require.NoError(t, pm.CardChanged(ctx, taskPath))
	unit, err := os.ReadFile(filepath.Join(pc.Engine.CalcDir(), logic.CardUnit("task_11112222")))
	require.NoError(t, err)
	assert.Contains(t, string(unit), `field(task_11112222, "summary", "Edited").`)

	// Add: a new card gains a unit and an aggregator row.
	_, err = pc.Store.CreateCard("project_a1b2c3d4", "task_33334444", map[string]any{
		"cardtype": "task", "summary": "New", "workflowstate": "open",
	})
	require.NoError(t, err)
	newPath := filepath.Join(root, "cardRoot", "project_a1b2c3d4", "c", "task_33334444")
	require.NoError(t, pm.CardsAdded(ctx, []string{newPath}))
	assert.FileExists(t, filepath.Join(pc.Engine.CalcDir(), logic.CardUnit("task_33334444")))

	// Delete: the unit and its row go away.
	require.NoError(t, pm.CardDeleted(ctx, newPath))
	assert.NoFileExists(t, filepath.Join(pc.Engine.CalcDir(), logic.CardUnit("task_33334444")))
	tree, err := os.ReadFile(filepath.Join(pc.Engine.CalcDir(), logic.CardTreeUnit))
	require.NoError(t, err)
	assert.NotContains(t, string(tree), "task_33334444")
}

func TestCardsAddedEmpty(t *testing.T) {
	pm := NewProjectManager(solver.DefaultConfig())
	err := pm.CardsAdded(context.Background(), nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}
