package batchrename_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	batchrename "github.com/thrawn01/batch-rename"
)

// failingFS fails any rename whose destination has one of the listed names.
type failingFS struct {
	batchrename.OSFileSystem
	failTo map[string]error
}

func (f failingFS) Rename(oldPath, newPath string) error {
	if err, ok := f.failTo[filepath.Base(newPath)]; ok {
		return err
	}
	return f.OSFileSystem.Rename(oldPath, newPath)
}

func writeFiles(t *testing.T, dir string, contents map[string]string) {
	t.Helper()
	for name, content := range contents {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
}

func dirContents(t *testing.T, dir string) map[string]string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	out := make(map[string]string, len(entries))
	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		require.NoError(t, err)
		out[entry.Name()] = string(data)
	}
	return out
}

func change(from, to string) batchrename.PreviewEntry {
	return batchrename.PreviewEntry{Original: from, Renamed: to, Changed: from != to}
}

func TestExecutorRenameAndUndo(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "A", "b.txt": "B", "c.txt": "C"})

	executor := batchrename.NewExecutor(nil, batchrename.DefaultConfig())
	ctx := context.Background()

	previews := batchrename.Preview(files("a.txt", "b.txt", "c.txt"), []batchrename.Rule{batchrename.Prefix{Value: "x_"}})
	result, err := executor.Execute(ctx, dir, previews)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Success)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 0, result.Skipped)
	assert.Empty(t, result.Errors)
	assert.Equal(t, []batchrename.UndoEntry{
		{From: "x_a.txt", To: "a.txt"},
		{From: "x_b.txt", To: "b.txt"},
		{From: "x_c.txt", To: "c.txt"},
	}, result.UndoMap)
	assert.Equal(t, map[string]string{"x_a.txt": "A", "x_b.txt": "B", "x_c.txt": "C"}, dirContents(t, dir))

	undo, err := executor.Undo(ctx, dir, result.UndoMap)
	require.NoError(t, err)
	assert.Equal(t, 3, undo.Success)
	assert.Equal(t, 0, undo.Failed)
	assert.Equal(t, map[string]string{"a.txt": "A", "b.txt": "B", "c.txt": "C"}, dirContents(t, dir))
}

func TestExecutorSwap(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "A", "b.txt": "B"})

	rules := []batchrename.Rule{
		batchrename.Regex{Find: `^a$`, Replace: "tmp"},
		batchrename.Regex{Find: `^b$`, Replace: "a"},
		batchrename.Regex{Find: `^tmp$`, Replace: "b"},
	}
	previews := batchrename.Preview(files("a.txt", "b.txt"), rules)
	require.False(t, batchrename.HasConflicts(previews))

	result, err := batchrename.NewExecutor(nil, nil).Execute(context.Background(), dir, previews)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Success)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, map[string]string{"a.txt": "B", "b.txt": "A"}, dirContents(t, dir))
}

func TestExecutorRotation(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "A", "b.txt": "B", "c.txt": "C"})

	executor := batchrename.NewExecutor(nil, nil)
	result, err := executor.Execute(context.Background(), dir, []batchrename.PreviewEntry{
		change("a.txt", "b.txt"),
		change("b.txt", "c.txt"),
		change("c.txt", "a.txt"),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Success)
	assert.Equal(t, map[string]string{"a.txt": "C", "b.txt": "A", "c.txt": "B"}, dirContents(t, dir))

	undo, err := executor.Undo(context.Background(), dir, result.UndoMap)
	require.NoError(t, err)
	assert.Equal(t, 3, undo.Success)
	assert.Equal(t, 0, undo.Failed)
	assert.Equal(t, map[string]string{"a.txt": "A", "b.txt": "B", "c.txt": "C"}, dirContents(t, dir))
}

func TestExecutorSkipsIneligibleEntries(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"keep.txt": "K", "skip.txt": "S", "x.txt": "X", "y.txt": "Y", "move.txt": "M"})

	executor := batchrename.NewExecutor(nil, nil)
	result, err := executor.Execute(context.Background(), dir, []batchrename.PreviewEntry{
		{Original: "keep.txt", Renamed: "keep.txt"},
		{Original: "skip.txt", Renamed: "skip.txt", Skip: true},
		{Original: "x.txt", Renamed: "z.txt", Changed: true, Conflict: true},
		{Original: "y.txt", Renamed: "z.txt", Changed: true, Conflict: true},
		change("move.txt", "moved.txt"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 4, result.Skipped)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, []batchrename.UndoEntry{{From: "moved.txt", To: "move.txt"}}, result.UndoMap)
	assert.Equal(t, map[string]string{
		"keep.txt":  "K",
		"skip.txt":  "S",
		"x.txt":     "X",
		"y.txt":     "Y",
		"moved.txt": "M",
	}, dirContents(t, dir))
}

func TestExecutorRefusesOccupiedTarget(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "A", "c.txt": "C"})

	executor := batchrename.NewExecutor(nil, nil)
	result, err := executor.Execute(context.Background(), dir, []batchrename.PreviewEntry{
		change("a.txt", "c.txt"),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Success)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "a.txt", result.Errors[0].File)
	assert.Contains(t, result.Errors[0].Error, batchrename.ErrTargetExists.Error())
	assert.Empty(t, result.UndoMap)
	assert.Equal(t, map[string]string{"a.txt": "A", "c.txt": "C"}, dirContents(t, dir))
}

func TestExecutorRestoresOnFailure(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "A", "b.txt": "B"})

	fsys := failingFS{failTo: map[string]error{"new-a.txt": errors.New("disk full")}}
	executor := batchrename.NewExecutor(fsys, nil)

	result, err := executor.Execute(context.Background(), dir, []batchrename.PreviewEntry{
		change("a.txt", "new-a.txt"),
		change("b.txt", "new-b.txt"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []batchrename.FileError{{File: "a.txt", Error: "disk full"}}, result.Errors)
	assert.Equal(t, []batchrename.UndoEntry{{From: "new-b.txt", To: "b.txt"}}, result.UndoMap)
	assert.Equal(t, map[string]string{"a.txt": "A", "new-b.txt": "B"}, dirContents(t, dir))
}

func TestExecutorStagingFailure(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "A"})

	executor := batchrename.NewExecutor(nil, nil)
	result, err := executor.Execute(context.Background(), dir, []batchrename.PreviewEntry{
		change("missing.txt", "found.txt"),
		change("a.txt", "b.txt"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, "missing.txt", result.Errors[0].File)
	assert.Equal(t, map[string]string{"b.txt": "A"}, dirContents(t, dir))
}

func TestExecutorRejectsUnsafeNames(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "work")
	require.NoError(t, os.Mkdir(dir, 0755))
	writeFiles(t, dir, map[string]string{"a.txt": "A"})

	executor := batchrename.NewExecutor(nil, nil)
	result, err := executor.Execute(context.Background(), dir, []batchrename.PreviewEntry{
		change("a.txt", "../escaped.txt"),
		change("a.txt", ""),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Failed)
	for _, e := range result.Errors {
		assert.Contains(t, e.Error, batchrename.ErrInvalidName.Error())
	}
	assert.Equal(t, map[string]string{"a.txt": "A"}, dirContents(t, dir))
	assert.NoFileExists(t, filepath.Join(parent, "escaped.txt"))
}

func TestExecutorCaseOnlyRename(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"readme.md": "R"})

	executor := batchrename.NewExecutor(nil, nil)
	result, err := executor.Execute(context.Background(), dir, []batchrename.PreviewEntry{
		change("readme.md", "README.md"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Success)
	assert.Equal(t, map[string]string{"README.md": "R"}, dirContents(t, dir))
}

func TestExecutorLeavesNoTemporaryFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"1.txt": "1", "2.txt": "2", "3.txt": "3"})

	config := batchrename.DefaultConfig()
	config.TempPrefix = ".staging-"
	fsys := failingFS{failTo: map[string]error{"two.txt": errors.New("denied")}}
	executor := batchrename.NewExecutor(fsys, config)

	_, err := executor.Execute(context.Background(), dir, []batchrename.PreviewEntry{
		change("1.txt", "one.txt"),
		change("2.txt", "two.txt"),
		change("3.txt", "three.txt"),
	})
	require.NoError(t, err)

	var names []string
	for name := range dirContents(t, dir) {
		names = append(names, name)
		assert.False(t, strings.HasPrefix(name, ".staging-"), name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"2.txt", "one.txt", "three.txt"}, names)
}

func TestExecutorCancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "A"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	executor := batchrename.NewExecutor(nil, nil)
	_, err := executor.Execute(ctx, dir, []batchrename.PreviewEntry{change("a.txt", "b.txt")})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = executor.Undo(ctx, dir, []batchrename.UndoEntry{{From: "a.txt", To: "b.txt"}})
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, map[string]string{"a.txt": "A"}, dirContents(t, dir))
}

func TestExecutorUndoPartialFailure(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"new-a.txt": "A", "new-b.txt": "B", "c.txt": "squatter"})

	executor := batchrename.NewExecutor(nil, nil)
	result, err := executor.Undo(context.Background(), dir, []batchrename.UndoEntry{
		{From: "new-a.txt", To: "a.txt"},
		{From: "gone.txt", To: "g.txt"},
		{From: "new-b.txt", To: "c.txt"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "gone.txt", result.Errors[0].File)
	assert.Equal(t, "new-b.txt", result.Errors[1].File)
	assert.Contains(t, result.Errors[1].Error, batchrename.ErrTargetExists.Error())
	assert.Equal(t, map[string]string{"a.txt": "A", "new-b.txt": "B", "c.txt": "squatter"}, dirContents(t, dir))
}
