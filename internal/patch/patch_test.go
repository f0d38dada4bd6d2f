package patch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goplus/recipe/internal/output"
	"github.com/goplus/recipe/recipe"
)

const cmakeLists = "project(flann)\nadd_subdirectory(src)\ninstall(FILES flann.pc)\n"

const goodPatch = `diff --git a/CMakeLists.txt b/CMakeLists.txt
--- a/CMakeLists.txt
+++ b/CMakeLists.txt
@@ -1,3 +1,3 @@
 project(flann)
-add_subdirectory(src)
+add_subdirectory(src EXCLUDE_FROM_ALL)
 install(FILES flann.pc)
diff --git a/src/cpp/empty.cpp b/src/cpp/empty.cpp
new file mode 100644
--- /dev/null
+++ b/src/cpp/empty.cpp
@@ -0,0 +1 @@
+/* empty */
`

// conflicting touches a line that does not exist after the first hunk of a
// second file, so the first file would apply cleanly on its own.
const conflictingPatch = `diff --git a/CMakeLists.txt b/CMakeLists.txt
--- a/CMakeLists.txt
+++ b/CMakeLists.txt
@@ -1,3 +1,3 @@
 project(flann)
-add_subdirectory(src)
+add_subdirectory(src EXCLUDE_FROM_ALL)
 install(FILES flann.pc)
diff --git a/README b/README
--- a/README
+++ b/README
@@ -1,1 +1,1 @@
-this line is not there
+replacement
`

func newTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "CMakeLists.txt"), []byte(cmakeLists), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README"), []byte("FLANN\n"), 0o644))
	return root
}

func newApplier(dirs ...string) *Applier {
	return &Applier{
		Finder: &Finder{Recipe: recipe.Flann(), Dirs: dirs},
		Logger: output.Discard(),
	}
}

func writePatch(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

var linux = recipe.Platform{OS: recipe.Linux, Compiler: recipe.GCC}

func TestFind(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	f := &Finder{Recipe: recipe.Flann(), Dirs: []string{first, second}}

	got, err := f.Find("1.8.4", recipe.Linux)
	require.NoError(t, err)
	assert.Empty(t, got)

	bare := writePatch(t, second, "patch-1.8.4-Linux", goodPatch)
	got, err = f.Find("1.8.4", recipe.Linux)
	require.NoError(t, err)
	assert.Equal(t, bare, got)

	// .patch suffix wins inside a directory, earlier directories win overall
	suffixed := writePatch(t, second, "patch-1.8.4-Linux.patch", goodPatch)
	got, _ = f.Find("1.8.4", recipe.Linux)
	assert.Equal(t, suffixed, got)

	early := writePatch(t, first, "patch-1.8.4-Linux", goodPatch)
	got, _ = f.Find("1.8.4", recipe.Linux)
	assert.Equal(t, early, got)

	// other OS and other versions do not match
	got, _ = f.Find("1.8.4", recipe.Windows)
	assert.Empty(t, got)
	got, _ = f.Find("1.9.1", recipe.Linux)
	assert.Empty(t, got)
}

func TestFind_SlashedRef(t *testing.T) {
	dir := t.TempDir()
	want := writePatch(t, dir, "patch-feature-x-Linux.patch", goodPatch)
	got, err := (&Finder{Recipe: recipe.Flann(), Dirs: []string{dir}}).Find("feature/x", recipe.Linux)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFind_IgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "patch-1.8.4-Linux.patch"), 0o755))
	got, err := (&Finder{Recipe: recipe.Flann(), Dirs: []string{dir}}).Find("1.8.4", recipe.Linux)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestApply_NoPatch(t *testing.T) {
	root := newTree(t)
	res, err := newApplier(t.TempDir()).Apply(context.Background(), root, "some-feature-branch", linux)
	require.NoError(t, err)
	assert.Empty(t, res.Path)

	data, _ := os.ReadFile(filepath.Join(root, "CMakeLists.txt"))
	assert.Equal(t, cmakeLists, string(data))
}

func TestApply(t *testing.T) {
	dir := t.TempDir()
	path := writePatch(t, dir, "patch-1.8.4-Linux.patch", goodPatch)
	root := newTree(t)

	res, err := newApplier(dir).Apply(context.Background(), root, "1.8.4", linux)
	require.NoError(t, err)
	assert.Equal(t, path, res.Path)
	assert.Equal(t, []string{"CMakeLists.txt", "src/cpp/empty.cpp"}, res.Files)

	data, err := os.ReadFile(filepath.Join(root, "CMakeLists.txt"))
	require.NoError(t, err)
	assert.Equal(t, "project(flann)\nadd_subdirectory(src EXCLUDE_FROM_ALL)\ninstall(FILES flann.pc)\n", string(data))

	data, err = os.ReadFile(filepath.Join(root, "src", "cpp", "empty.cpp"))
	require.NoError(t, err)
	assert.Equal(t, "/* empty */\n", string(data))
}

func TestApply_Conflict(t *testing.T) {
	dir := t.TempDir()
	writePatch(t, dir, "patch-1.8.4-Linux.patch", conflictingPatch)
	root := newTree(t)

	_, err := newApplier(dir).Apply(context.Background(), root, "1.8.4", linux)
	require.Error(t, err)
	assert.ErrorIs(t, err, recipe.ErrPatchConflict)

	// nothing was written, not even the file whose hunk applied
	data, _ := os.ReadFile(filepath.Join(root, "CMakeLists.txt"))
	assert.Equal(t, cmakeLists, string(data))
}

func TestApply_SecondApplicationConflicts(t *testing.T) {
	dir := t.TempDir()
	writePatch(t, dir, "patch-1.8.4-Linux.patch", goodPatch)
	root := newTree(t)
	a := newApplier(dir)

	_, err := a.Apply(context.Background(), root, "1.8.4", linux)
	require.NoError(t, err)
	_, err = a.Apply(context.Background(), root, "1.8.4", linux)
	assert.ErrorIs(t, err, recipe.ErrPatchConflict)
}

func TestApply_Garbage(t *testing.T) {
	dir := t.TempDir()
	writePatch(t, dir, "patch-1.8.4-Linux", "this is not a diff\n")
	_, err := newApplier(dir).Apply(context.Background(), newTree(t), "1.8.4", linux)
	assert.ErrorIs(t, err, recipe.ErrPatchConflict)
}

func TestApply_WriteFailureHasKind(t *testing.T) {
	// the new file's parent is a regular file in the tree
	const blocked = `diff --git a/README/notes.txt b/README/notes.txt
new file mode 100644
--- /dev/null
+++ b/README/notes.txt
@@ -0,0 +1 @@
+notes
`
	dir := t.TempDir()
	writePatch(t, dir, "patch-1.8.4-Linux.patch", blocked)
	_, err := newApplier(dir).Apply(context.Background(), newTree(t), "1.8.4", linux)
	require.Error(t, err)
	assert.ErrorIs(t, err, recipe.ErrPatchConflict)
}

func TestApply_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writePatch(t, dir, "patch-1.8.4-Linux.patch", goodPatch)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newApplier(dir).Apply(ctx, newTree(t), "1.8.4", linux)
	assert.ErrorIs(t, err, recipe.ErrCancelled)
}

func TestTreeName(t *testing.T) {
	root := newTree(t)
	assert.Equal(t, "CMakeLists.txt", treeName(root, "CMakeLists.txt"))
	assert.Equal(t, "CMakeLists.txt", treeName(root, "flann-1.8.4/CMakeLists.txt"))
	assert.Equal(t, "src/new.c", treeName(root, "b/src/new.c"))
	assert.Equal(t, "src/new.c", treeName(root, "src/new.c"))
}
