// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package source decides how the source of a version is obtained and
// produces a tree at a canonical path.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/goplus/recipe/mod/registry"
	"github.com/goplus/recipe/recipe"
)

// Origin tells how a tree was obtained.
type Origin int

const (
	FromArchive Origin = iota + 1
	FromRepository
)

func (o Origin) String() string {
	switch o {
	case FromArchive:
		return "archive"
	case FromRepository:
		return "repository"
	}
	return "unknown"
}

// Tree is a resolved source tree. Root always ends in the recipe's canonical
// SourceDir, whatever the version.
type Tree struct {
	Root    string
	Version string
	Origin  Origin
	URL     string // archive URL or repository URL
	Commit  string // checked out commit, repository trees only
}

// Resolver picks between the pinned archive path and the repository path.
type Resolver struct {
	Recipe     *recipe.Recipe
	Registry   *registry.Registry
	Content    ContentFetcher
	Repository RepositoryFetcher
	Logger     *log.Logger
}

// Resolve produces a fresh source tree for version under workDir. Versions
// pinned in the registry come from the checksummed archive; all others are
// treated as git refs. The two fetchers are never both called.
func (r *Resolver) Resolve(ctx context.Context, version, workDir string) (Tree, error) {
	if err := recipe.ValidateVersion(version); err != nil {
		return Tree{}, err
	}
	if err := ctx.Err(); err != nil {
		return Tree{}, recipe.Errorf(recipe.ErrCancelled, "resolve", version, err)
	}
	root := filepath.Join(workDir, r.Recipe.SourceDir)
	if err := os.RemoveAll(root); err != nil {
		return Tree{}, recipe.Errorf(recipe.ErrSourceUnavailable, "resolve", "clear previous tree", err)
	}

	if sum, ok := r.Registry.Lookup(version); ok {
		return r.fromArchive(ctx, version, sum, workDir, root)
	}
	return r.fromRepository(ctx, version, root)
}

func (r *Resolver) fromArchive(ctx context.Context, version, sum, workDir, root string) (Tree, error) {
	url := r.Recipe.ArchiveURLFor(version)
	r.logger().Info("fetching archive", "version", version, "url", url)

	archive, err := r.Content.Fetch(ctx, url, sum, workDir)
	if err != nil {
		return Tree{}, recipe.Classify(ctx, "resolve", err, recipe.ErrSourceUnavailable)
	}

	staging, err := os.MkdirTemp(workDir, ".unpack-")
	if err != nil {
		return Tree{}, recipe.Errorf(recipe.ErrSourceUnavailable, "unpack", "create staging dir", err)
	}
	defer os.RemoveAll(staging)

	if err := untar(archive, staging); err != nil {
		return Tree{}, recipe.Errorf(recipe.ErrIntegrity, "unpack", filepath.Base(archive), err)
	}
	top, err := topLevelDir(staging, r.Recipe.ArchiveDirFor(version))
	if err != nil {
		return Tree{}, recipe.Errorf(recipe.ErrIntegrity, "unpack", filepath.Base(archive), err)
	}
	if err := os.Rename(top, root); err != nil {
		return Tree{}, recipe.Errorf(recipe.ErrSourceUnavailable, "unpack", fmt.Sprintf("move %s to %s", filepath.Base(top), r.Recipe.SourceDir), err)
	}
	return Tree{Root: root, Version: version, Origin: FromArchive, URL: url}, nil
}

func (r *Resolver) fromRepository(ctx context.Context, ref, root string) (Tree, error) {
	r.logger().Info("cloning repository", "ref", ref, "url", r.Recipe.RepoURL)

	if err := r.Repository.Clone(ctx, r.Recipe.RepoURL, ref, root); err != nil {
		os.RemoveAll(root)
		return Tree{}, recipe.Classify(ctx, "resolve", err, recipe.ErrSourceUnavailable)
	}
	tree := Tree{Root: root, Version: ref, Origin: FromRepository, URL: r.Recipe.RepoURL}
	if h, ok := r.Repository.(headReader); ok {
		commit, err := h.Head(ctx, root)
		if err != nil {
			return Tree{}, recipe.Classify(ctx, "resolve", err, recipe.ErrSourceUnavailable)
		}
		tree.Commit = commit
	}
	return tree, nil
}

func (r *Resolver) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}
