// Package patch selects and applies the per-version, per-OS source patch of
// a recipe.
package patch

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/charmbracelet/log"

	"github.com/goplus/recipe/recipe"
)

// Finder looks up patch files on an ordered search path. It only reads the
// file system and is safe for concurrent use.
type Finder struct {
	Recipe *recipe.Recipe
	Dirs   []string
}

// Find returns the patch for (version, os), or "" if there is none. At most
// one file is ever selected: the first candidate name found in the first
// directory that has one.
func (f *Finder) Find(version string, osFamily recipe.OSFamily) (string, error) {
	names := f.Recipe.PatchNames(version, osFamily)
	for _, dir := range f.Dirs {
		for _, name := range names {
			path := filepath.Join(dir, name)
			info, err := statFile(path)
			if err != nil {
				return "", err
			}
			if info != nil && info.Mode().IsRegular() {
				return path, nil
			}
		}
	}
	return "", nil
}

func statFile(path string) (fs.FileInfo, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return info, err
}

// Result describes an applied patch. A zero Result means no patch applied.
type Result struct {
	Path  string
	Files []string
}

// Applier applies the selected patch to a fresh source tree.
type Applier struct {
	Finder *Finder
	Logger *log.Logger
}

// Apply looks up the patch for version and platform and applies it to root.
// No patch is not an error. Any parse or hunk failure is ErrPatchConflict,
// and in that case no file of the tree has been modified.
func (a *Applier) Apply(ctx context.Context, root, version string, platform recipe.Platform) (Result, error) {
	path, err := a.Finder.Find(version, platform.OS)
	if err != nil {
		return Result{}, recipe.Errorf(recipe.ErrPatchConflict, "patch", "find", err)
	}
	if path == "" {
		a.logger().Debug("no patch", "version", version, "os", platform.OS)
		return Result{}, nil
	}
	if err := ctx.Err(); err != nil {
		return Result{}, recipe.Errorf(recipe.ErrCancelled, "patch", filepath.Base(path), err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, recipe.Errorf(recipe.ErrPatchConflict, "patch", filepath.Base(path), err)
	}
	changes, err := plan(root, data)
	if err != nil {
		return Result{}, recipe.Errorf(recipe.ErrPatchConflict, "patch", filepath.Base(path), err)
	}
	if err := commit(root, changes); err != nil {
		return Result{}, recipe.Errorf(recipe.ErrPatchConflict, "patch", filepath.Base(path), err)
	}

	res := Result{Path: path}
	for _, c := range changes {
		res.Files = append(res.Files, c.name)
	}
	a.logger().Info("applied patch", "patch", filepath.Base(path), "files", len(res.Files))
	return res, nil
}

func (a *Applier) logger() *log.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return log.Default()
}

// change is the computed outcome for one file of a patch.
type change struct {
	name    string // slash separated, relative to the tree root
	oldName string // set on renames
	data    []byte
	mode    os.FileMode
	remove  bool
}

// plan applies every file diff in memory.
func plan(root string, patch []byte) ([]change, error) {
	files, _, err := gitdiff.Parse(bytes.NewReader(patch))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no file changes found")
	}

	var changes []change
	for _, f := range files {
		if f.IsBinary {
			return nil, fmt.Errorf("%s: binary patches are not supported", f.NewName)
		}
		oldName := treeName(root, f.OldName)
		newName := treeName(root, f.NewName)

		var src []byte
		if !f.IsNew {
			src, err = os.ReadFile(filepath.Join(root, filepath.FromSlash(oldName)))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", oldName, err)
			}
		}
		if f.IsDelete {
			changes = append(changes, change{name: oldName, remove: true})
			continue
		}

		var dst bytes.Buffer
		if err := gitdiff.Apply(&dst, bytes.NewReader(src), f); err != nil {
			return nil, fmt.Errorf("%s: %w", newName, err)
		}
		c := change{name: newName, data: dst.Bytes(), mode: f.NewMode.Perm()}
		if f.IsRename {
			c.oldName = oldName
		}
		changes = append(changes, c)
	}
	return changes, nil
}

func commit(root string, changes []change) error {
	for _, c := range changes {
		path := filepath.Join(root, filepath.FromSlash(c.name))
		if c.remove {
			if err := os.Remove(path); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		mode := c.mode
		if mode == 0 {
			mode = 0o644
			if info, err := os.Stat(path); err == nil {
				mode = info.Mode().Perm()
			}
		}
		if err := os.WriteFile(path, c.data, mode); err != nil {
			return err
		}
		if c.oldName != "" && c.oldName != c.name {
			if err := os.Remove(filepath.Join(root, filepath.FromSlash(c.oldName))); err != nil {
				return err
			}
		}
	}
	return nil
}

// treeName maps a name from a patch header to a path inside root. Git style
// headers arrive without their a/ b/ prefixes; plain unified diffs may still
// carry one leading component, which is dropped when the name does not exist
// as given.
func treeName(root, name string) string {
	if name == "" {
		return name
	}
	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(name))); err == nil {
		return name
	}
	if _, rest, ok := strings.Cut(name, "/"); ok {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(rest))); err == nil {
			return rest
		}
		if strings.HasPrefix(name, "a/") || strings.HasPrefix(name, "b/") {
			return rest
		}
	}
	return name
}
