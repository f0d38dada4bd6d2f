// Package rewrite applies the source transformations some build tools and
// compilers need before a tree can be configured.
package rewrite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/mod/semver"

	"github.com/goplus/recipe/recipe"
)

// Report lists what a Rewrite did.
type Report struct {
	ToolVersion string
	Legacy      bool     // tool version is above the threshold
	Placeholder string   // created placeholder, slash separated
	Replaced    []string // substitutions that matched, as "file: old"
	NoOps       []string // substitutions whose text was absent
	Wrapped     bool
}

// Rewriter holds the recipe and the capabilities a rewrite needs.
type Rewriter struct {
	Recipe  *recipe.Recipe
	Wrapper Wrapper
	Logger  *log.Logger
}

// Rewrite applies the transformations selected by the build-tool version
// and the compiler family. The two are independent: either, both or neither
// may run. Running Rewrite again on its own output changes nothing.
func (rw *Rewriter) Rewrite(ctx context.Context, root, toolVersion string, compiler recipe.CompilerFamily) (Report, error) {
	rep := Report{ToolVersion: toolVersion}

	above, err := AboveThreshold(toolVersion, rw.Recipe.ToolThreshold)
	if err != nil {
		return rep, err
	}
	if above {
		rep.Legacy = true
		if err := rw.fixEmptyTargets(root, &rep); err != nil {
			return rep, err
		}
	}

	switch compiler {
	case recipe.GCC:
		if err := rw.Wrapper.Wrap(ctx, root); err != nil {
			return rep, recipe.Classify(ctx, "wrap", err, recipe.ErrBuildFailed)
		}
		rep.Wrapped = true
	case recipe.Clang, recipe.AppleClang, recipe.MSVC:
	default:
		return rep, recipe.Errorf(recipe.ErrUnsupportedPlatform, "rewrite", compiler.String(), nil)
	}
	return rep, nil
}

// AboveThreshold reports whether version > threshold. Both are dotted
// numeric versions such as "3.11" or "3.27.4".
func AboveThreshold(version, threshold string) (bool, error) {
	v, t := "v"+version, "v"+threshold
	if !semver.IsValid(v) {
		return false, recipe.Errorf(recipe.ErrToolVersionUnknown, "rewrite", fmt.Sprintf("%q", version), nil)
	}
	if !semver.IsValid(t) {
		return false, fmt.Errorf("invalid tool threshold %q", threshold)
	}
	return semver.Compare(v, t) > 0, nil
}

// fixEmptyTargets creates the placeholder source and replaces legacy
// add_library(name TYPE "") declarations, which newer CMake rejects.
func (rw *Rewriter) fixEmptyTargets(root string, rep *Report) error {
	r := rw.Recipe
	if r.Placeholder != "" {
		path := filepath.Join(root, filepath.FromSlash(r.Placeholder))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(r.PlaceholderText), 0o644); err != nil {
			return err
		}
		rep.Placeholder = r.Placeholder
	}

	for _, s := range r.Legacy {
		path := filepath.Join(root, filepath.FromSlash(s.File))
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			rw.logger().Info("compatibility rewrite skipped", "file", s.File, "reason", "file missing")
			rep.NoOps = append(rep.NoOps, s.File+": "+s.Old)
			continue
		}
		if err != nil {
			return err
		}
		text := string(data)
		if !strings.Contains(text, s.Old) {
			rw.logger().Info("compatibility rewrite is a no-op", "file", s.File, "pattern", s.Old)
			rep.NoOps = append(rep.NoOps, s.File+": "+s.Old)
			continue
		}
		text = strings.ReplaceAll(text, s.Old, s.New)
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return err
		}
		rep.Replaced = append(rep.Replaced, s.File+": "+s.Old)
	}
	return nil
}

func (rw *Rewriter) logger() *log.Logger {
	if rw.Logger != nil {
		return rw.Logger
	}
	return log.Default()
}
