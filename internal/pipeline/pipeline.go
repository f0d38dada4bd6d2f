// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline runs a recipe end to end: resolve the sources, patch and
// rewrite them, compile the build definitions, then configure, build and
// install the package.
package pipeline

import (
	"context"
	"errors"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/goplus/recipe/internal/artifact"
	"github.com/goplus/recipe/internal/configure"
	"github.com/goplus/recipe/internal/patch"
	"github.com/goplus/recipe/internal/rewrite"
	"github.com/goplus/recipe/internal/source"
	"github.com/goplus/recipe/internal/workspace"
	"github.com/goplus/recipe/mod/registry"
	"github.com/goplus/recipe/recipe"
	"github.com/goplus/recipe/x/cmake"
)

// Builder configures, builds and installs a prepared source tree.
type Builder interface {
	Apply(defs recipe.Definitions) error
	Configure(ctx context.Context, args ...string) error
	Build(ctx context.Context, args ...string) error
	Install(ctx context.Context, args ...string) error
}

// dependencyUser is implemented by builders that can point the build at
// dependency install roots.
type dependencyUser interface {
	Use(root string)
}

// NewBuilderFunc returns the Builder of one run for platform p.
type NewBuilderFunc func(sourceDir, buildDir, installDir string, p recipe.Platform) Builder

// CMakeTool locates cmake and picks how it generates the build.
type CMakeTool struct {
	Path      string
	Generator string // empty lets cmake choose
	Toolchain string
}

// CMake returns a NewBuilderFunc driving tool.
func CMake(tool CMakeTool) NewBuilderFunc {
	return func(sourceDir, buildDir, installDir string, p recipe.Platform) Builder {
		c := cmake.New(sourceDir, buildDir, installDir)
		c.Path(tool.Path)
		c.Generator(tool.Generator)
		c.Toolchain(tool.Toolchain)
		c.BuildType(p.BuildType)
		c.Stdout = os.Stderr
		return c
	}
}

// Pipeline holds a recipe and the capabilities it runs with. It keeps no
// state between runs.
type Pipeline struct {
	Recipe     *recipe.Recipe
	Registry   *registry.Registry
	Content    source.ContentFetcher
	Repository source.RepositoryFetcher
	PatchDirs  []string
	Probe      rewrite.VersionProbe
	Wrapper    rewrite.Wrapper
	NewBuilder NewBuilderFunc
	Logger     *log.Logger
}

// Request is one build to perform.
type Request struct {
	Version    string
	Platform   recipe.Platform
	Options    map[string]bool
	Deps       recipe.DependencyBinding
	WorkDir    string
	InstallDir string // defaults to WorkDir/package
}

func (r Request) installDir() string {
	if r.InstallDir != "" {
		return r.InstallDir
	}
	return filepath.Join(r.WorkDir, "package")
}

// Plan is a source tree ready to be configured.
type Plan struct {
	Version      string
	Platform     recipe.Platform
	Options      recipe.OptionSet
	Tree         source.Tree
	Patch        patch.Result
	Rewrite      rewrite.Report
	Definitions  recipe.Definitions
	Requirements []configure.Requirement
	Artifacts    []string // expected library file names
}

// Result is an installed package.
type Result struct {
	*Plan
	InstallDir string
	Installed  []string          // library files found after install
	Missing    []string          // expected libraries that were not installed
	Env        map[string]string // pkg-config environment for consumers
}

// Prepare resolves, patches and rewrites the sources of req and compiles
// its build definitions. Nothing is built.
func (p *Pipeline) Prepare(ctx context.Context, req Request) (*Plan, error) {
	opts, err := p.check(req)
	if err != nil {
		return nil, err
	}
	unlock, err := p.lock(ctx, req.WorkDir)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return p.prepare(ctx, req, opts)
}

// Run prepares req, then configures, builds and installs it.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	opts, err := p.check(req)
	if err != nil {
		return nil, err
	}
	unlock, err := p.lock(ctx, req.WorkDir)
	if err != nil {
		return nil, err
	}
	defer unlock()

	plan, err := p.prepare(ctx, req, opts)
	if err != nil {
		return nil, err
	}
	installDir := req.installDir()
	if err := p.build(ctx, plan, req.Deps, filepath.Join(req.WorkDir, "build"), installDir); err != nil {
		return nil, err
	}

	installed, err := artifact.Collect(filepath.Join(installDir, "lib"))
	if err != nil {
		return nil, recipe.Errorf(recipe.ErrInstallFailed, "collect", installDir, err)
	}
	res := &Result{
		Plan:       plan,
		InstallDir: installDir,
		Installed:  installed,
		Missing:    artifact.Missing(plan.Artifacts, installed),
		Env:        artifact.PackageEnv(p.Recipe, installDir, os.Getenv("PKG_CONFIG_PATH")),
	}
	logger := p.logger()
	if len(res.Missing) > 0 {
		logger.Warn("expected libraries not installed", "missing", res.Missing)
	}
	rec := &workspace.Record{
		Recipe:      p.Recipe.Name,
		Version:     plan.Version,
		Origin:      plan.Tree.Origin.String(),
		Commit:      plan.Tree.Commit,
		Platform:    plan.Platform.String(),
		Options:     plan.Options.String(),
		Definitions: plan.Definitions,
		Artifacts:   installed,
		BuildTime:   time.Now(),
	}
	if plan.Patch.Path != "" {
		rec.Patch = filepath.Base(plan.Patch.Path)
	}
	if err := workspace.SaveRecord(installDir, rec); err != nil {
		return nil, recipe.Errorf(recipe.ErrInstallFailed, "record", installDir, err)
	}
	logger.Info("installed", "version", plan.Version, "dir", installDir, "libraries", len(installed))
	return res, nil
}

// check validates everything that needs no capability: the version, the
// platform and the requested options.
func (p *Pipeline) check(req Request) (recipe.OptionSet, error) {
	if err := recipe.ValidateVersion(req.Version); err != nil {
		return recipe.OptionSet{}, err
	}
	if err := req.Platform.Validate(); err != nil {
		return recipe.OptionSet{}, err
	}
	opts := recipe.NewOptionSet(p.Recipe, req.Platform)
	if err := opts.Apply(req.Options); err != nil {
		return recipe.OptionSet{}, err
	}
	if req.WorkDir == "" {
		return recipe.OptionSet{}, errors.New("pipeline: no work directory")
	}
	return opts, nil
}

func (p *Pipeline) lock(ctx context.Context, dir string) (func(), error) {
	unlock, err := workspace.Lock(ctx, dir)
	if err != nil {
		return nil, recipe.Classify(ctx, "lock", err, recipe.ErrSourceUnavailable)
	}
	return unlock, nil
}

func (p *Pipeline) prepare(ctx context.Context, req Request, opts recipe.OptionSet) (*Plan, error) {
	logger := p.logger().With("version", req.Version, "os", req.Platform.OS, "compiler", req.Platform.Compiler)
	plan := &Plan{Version: req.Version, Platform: req.Platform, Options: opts}

	expected, err := artifact.Expected(p.Recipe, req.Platform, opts.Value(recipe.OptShared))
	if err != nil {
		return nil, err
	}
	plan.Artifacts = expected

	resolver := &source.Resolver{
		Recipe:     p.Recipe,
		Registry:   p.Registry,
		Content:    p.Content,
		Repository: p.Repository,
		Logger:     logger,
	}
	if plan.Tree, err = resolver.Resolve(ctx, req.Version, req.WorkDir); err != nil {
		return nil, err
	}
	logger.Debug("resolved", "origin", plan.Tree.Origin, "root", plan.Tree.Root)

	applier := &patch.Applier{
		Finder: &patch.Finder{Recipe: p.Recipe, Dirs: p.PatchDirs},
		Logger: logger,
	}
	if plan.Patch, err = applier.Apply(ctx, plan.Tree.Root, req.Version, req.Platform); err != nil {
		return nil, err
	}

	toolVersion, err := rewrite.DetectToolVersion(ctx, p.Probe)
	if err != nil {
		return nil, err
	}
	rewriter := &rewrite.Rewriter{Recipe: p.Recipe, Wrapper: p.Wrapper, Logger: logger}
	if plan.Rewrite, err = rewriter.Rewrite(ctx, plan.Tree.Root, toolVersion, req.Platform.Compiler); err != nil {
		return nil, err
	}

	plan.Definitions = configure.Compile(p.Recipe, opts, req.Platform, req.Deps)
	plan.Requirements = configure.Requirements(p.Recipe, req.Platform)
	logger.Debug("definitions\n" + plan.Definitions.String())
	return plan, nil
}

func (p *Pipeline) build(ctx context.Context, plan *Plan, deps recipe.DependencyBinding, buildDir, installDir string) error {
	if err := checkpoint(ctx, "configure"); err != nil {
		return err
	}
	if err := os.RemoveAll(buildDir); err != nil {
		return recipe.Errorf(recipe.ErrBuildFailed, "configure", "clear build dir", err)
	}
	b := p.NewBuilder(plan.Tree.Root, buildDir, installDir, plan.Platform)
	if u, ok := b.(dependencyUser); ok {
		for _, name := range slices.Sorted(maps.Keys(deps)) {
			if root, ok := deps.Root(name); ok {
				u.Use(root)
			}
		}
	}
	if err := b.Apply(plan.Definitions); err != nil {
		return recipe.Classify(ctx, "configure", err, recipe.ErrBuildFailed)
	}
	if err := b.Configure(ctx); err != nil {
		return recipe.Classify(ctx, "configure", err, recipe.ErrBuildFailed)
	}
	if err := b.Build(ctx); err != nil {
		return recipe.Classify(ctx, "build", err, recipe.ErrBuildFailed)
	}
	if err := b.Install(ctx); err != nil {
		return recipe.Classify(ctx, "install", err, recipe.ErrInstallFailed)
	}
	return nil
}

func checkpoint(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return recipe.Errorf(recipe.ErrCancelled, op, "", err)
	}
	return nil
}

func (p *Pipeline) logger() *log.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return log.Default()
}
