// Package configure turns options, platform and dependency roots into the
// definitions passed to the build system.
package configure

import (
	"github.com/goplus/recipe/recipe"
	"github.com/goplus/recipe/x/gnu"
)

// Definition keys.
const (
	KeySharedLibs   = "BUILD_SHARED_LIBS:BOOL"
	KeyGTestRoot    = "GTEST_ROOT:PATH"
	KeyPIC          = "CMAKE_POSITION_INDEPENDENT_CODE"
	KeyCXXStandard  = "CMAKE_CXX_STANDARD"
	KeyExtraCXXFlag = "ADDITIONAL_CXX_FLAGS:STRING"
	KeyBuildType    = "CMAKE_BUILD_TYPE"
)

// Compile derives the build definitions. It is a pure function: equal
// inputs give equal definition sets whatever order the options were set in.
func Compile(r *recipe.Recipe, opts recipe.OptionSet, p recipe.Platform, deps recipe.DependencyBinding) recipe.Definitions {
	defs := recipe.Definitions{}

	defs[KeySharedLibs] = "FALSE"
	if opts.Value(recipe.OptShared) {
		defs[KeySharedLibs] = "TRUE"
	}
	if root, ok := deps.Root(r.TestFramework); ok {
		defs[KeyGTestRoot] = root
	}
	if opts.Has(recipe.OptFPIC) && opts.Value(recipe.OptFPIC) {
		defs[KeyPIC] = "ON"
	}
	if opts.Value(recipe.OptCXX11) {
		defs[KeyCXXStandard] = "11"
	}
	if p.Compiler == recipe.GCC && r.GCCFlags != "" {
		defs[KeyExtraCXXFlag] = r.GCCFlags
	}
	if p.BuildType != "" {
		defs[KeyBuildType] = p.BuildType
	}
	return defs
}

// Requirement is a dependency the host must resolve before a build.
type Requirement struct {
	Name       string
	Constraint string // "1.8.0" pins, ">=1.8.0" is a lower bound
}

func (r Requirement) String() string {
	return r.Name + "/" + r.Constraint
}

// Requirements lists the dependencies of r on platform p. Visual Studio 12
// and older cannot build test frameworks newer than 1.8.0.
func Requirements(r *recipe.Recipe, p recipe.Platform) []Requirement {
	if r.TestFramework == "" {
		return nil
	}
	constraint := ">=1.8.0"
	// Keyed on the compiler version, not on the FLANN version being built.
	if p.Compiler == recipe.MSVC && p.CompilerVersion != "" && gnu.AtMost(p.CompilerVersion, "12") {
		constraint = "1.8.0"
	}
	return []Requirement{{Name: r.TestFramework, Constraint: constraint}}
}
