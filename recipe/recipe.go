// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package recipe holds the data model shared by every stage of a build:
// the recipe descriptor, the target platform, options, definitions and the
// error kinds stages report.
package recipe

import (
	"fmt"
	"strings"
	"unicode"
)

// Substitution replaces Old with New in File, matched exactly.
type Substitution struct {
	File string // relative to the source root, slash separated
	Old  string
	New  string
}

// Recipe describes how one library is obtained, patched and built. It is
// read-only once constructed.
type Recipe struct {
	Name string

	// ArchiveURL is a fmt template taking the version, used for pinned
	// releases. ArchiveDir is a fmt template naming the top-level directory
	// inside that archive.
	ArchiveURL string
	ArchiveDir string

	// RepoURL is cloned for versions missing from the registry.
	RepoURL string

	// SourceDir is the canonical name of the resolved source tree.
	SourceDir string

	// PatchPrefix prefixes patch file names: <prefix><version>-<os>.
	PatchPrefix string

	// ToolThreshold is the build-tool version above which the legacy
	// substitutions are required.
	ToolThreshold   string
	Placeholder     string // slash separated, relative to the source root
	PlaceholderText string
	Legacy          []Substitution

	// GCCFlags is passed through ADDITIONAL_CXX_FLAGS on gcc.
	GCCFlags string

	// TestFramework is the dependency whose root becomes GTEST_ROOT.
	TestFramework string

	Libraries []string
	Options   []OptionDecl
}

// Flann returns the recipe for FLANN.
func Flann() *Recipe {
	return &Recipe{
		Name:            "flann",
		ArchiveURL:      "https://github.com/mariusmuja/flann/archive/%s.tar.gz",
		ArchiveDir:      "flann-%s",
		RepoURL:         "https://github.com/mariusmuja/flann",
		SourceDir:       "flann-src",
		PatchPrefix:     "patch-",
		ToolThreshold:   "3.11",
		Placeholder:     "src/cpp/empty.cpp",
		PlaceholderText: "/* empty */",
		Legacy: []Substitution{
			{
				File: "src/cpp/CMakeLists.txt",
				Old:  `add_library(flann_cpp SHARED "")`,
				New:  `add_library(flann_cpp SHARED "empty.cpp")`,
			},
			{
				File: "src/cpp/CMakeLists.txt",
				Old:  `add_library(flann SHARED "")`,
				New:  `add_library(flann SHARED "empty.cpp")`,
			},
		},
		GCCFlags:      "-frecord-gcc-switches",
		TestFramework: "gtest",
		Libraries:     []string{"flann", "flann_cpp_s", "flann_s"},
		Options: []OptionDecl{
			{Name: OptShared, Default: true},
			{Name: OptFPIC, Default: true},
			{Name: OptCXX11, Default: true},
		},
	}
}

// ArchiveURLFor returns the download URL of a pinned release.
func (r *Recipe) ArchiveURLFor(version string) string {
	return fmt.Sprintf(r.ArchiveURL, version)
}

// ArchiveDirFor returns the top-level directory name inside the release
// archive of version.
func (r *Recipe) ArchiveDirFor(version string) string {
	return fmt.Sprintf(r.ArchiveDir, version)
}

// PatchNames returns the candidate patch file names for a version and OS in
// lookup order. A '/' in a ref becomes '-', so "feature/x" looks for
// patch-feature-x-<OS>.patch in the patch directory itself.
func (r *Recipe) PatchNames(version string, osFamily OSFamily) []string {
	base := r.PatchPrefix + strings.ReplaceAll(version, "/", "-") + "-" + osFamily.String()
	return []string{base + ".patch", base}
}

// ValidateVersion rejects version strings that can name neither a release
// nor a git ref. It never looks at the network.
func ValidateVersion(v string) error {
	fail := func(msg string) error {
		return Errorf(ErrInvalidVersion, "validate", fmt.Sprintf("%q: %s", v, msg), nil)
	}
	switch {
	case v == "":
		return fail("empty")
	case strings.TrimSpace(v) != v:
		return fail("surrounding whitespace")
	case strings.HasPrefix(v, "-"):
		return fail("leading dash")
	case strings.HasPrefix(v, "/") || strings.HasSuffix(v, "/"):
		return fail("leading or trailing slash")
	case strings.Contains(v, ".."):
		return fail("contains \"..\"")
	case strings.HasSuffix(v, ".lock"):
		return fail("ends with .lock")
	}
	for _, c := range v {
		if unicode.IsControl(c) || !validRefChar(c) {
			return fail(fmt.Sprintf("invalid character %q", c))
		}
	}
	return nil
}

func validRefChar(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.ContainsRune("._/+-", c)
}
