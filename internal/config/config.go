// Package config loads the settings of a recipe run.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goplus/recipe/mod/registry"
	"github.com/goplus/recipe/recipe"
)

// PlatformConfig names the target platform.
type PlatformConfig struct {
	// OS is one of linux, windows, macos. Default: the host OS.
	OS string `mapstructure:"os"`

	// Compiler is one of gcc, clang, apple-clang, msvc.
	// Default: gcc on linux, apple-clang on macos, msvc on windows.
	Compiler        string `mapstructure:"compiler"`
	CompilerVersion string `mapstructure:"compiler_version"`
	Arch            string `mapstructure:"arch"`

	// BuildType is passed as CMAKE_BUILD_TYPE. Default: Release.
	BuildType string `mapstructure:"build_type"`
}

// ToolsConfig locates external executables.
type ToolsConfig struct {
	Git   string `mapstructure:"git"`   // Env: RECIPE_TOOLS_GIT
	CMake string `mapstructure:"cmake"` // Env: RECIPE_TOOLS_CMAKE

	// Generator is passed as cmake -G, e.g. "Ninja". Empty lets cmake pick.
	Generator string `mapstructure:"generator"`
	Toolchain string `mapstructure:"toolchain"` // CMAKE_TOOLCHAIN_FILE
}

// Config is the settings of one run.
type Config struct {
	// Version is a pinned release or any git ref. Env: RECIPE_VERSION
	Version  string          `mapstructure:"version"`
	Platform PlatformConfig  `mapstructure:"platform"`
	Options  map[string]bool `mapstructure:"options"`

	// Deps maps a dependency name to its install root.
	Deps map[string]string `mapstructure:"deps"`

	// PatchDirs are searched in order for patch files.
	// Env: RECIPE_PATCH_DIRS, comma separated.
	PatchDirs []string `mapstructure:"patch_dirs"`

	// Registry is an optional YAML file of extra pinned versions, merged
	// over the built-in ones. Env: RECIPE_REGISTRY
	Registry string `mapstructure:"registry"`

	WorkDir    string      `mapstructure:"work_dir"`    // Default: <user cache dir>/recipe
	InstallDir string      `mapstructure:"install_dir"` // Default: <work_dir>/package
	Tools      ToolsConfig `mapstructure:"tools"`
	Verbose    bool        `mapstructure:"verbose"`
}

// WithDefaults returns a copy of c with unset fields filled in.
func (c *Config) WithDefaults() *Config {
	cfg := *c
	if cfg.Platform.OS == "" {
		cfg.Platform.OS = runtime.GOOS
	}
	if cfg.Platform.Compiler == "" {
		cfg.Platform.Compiler = defaultCompiler(cfg.Platform.OS)
	}
	if cfg.Platform.Arch == "" {
		cfg.Platform.Arch = runtime.GOARCH
	}
	if cfg.Platform.BuildType == "" {
		cfg.Platform.BuildType = "Release"
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = DefaultWorkDir()
	}
	if cfg.Tools.Git == "" {
		cfg.Tools.Git = "git"
	}
	if cfg.Tools.CMake == "" {
		cfg.Tools.CMake = "cmake"
	}
	return &cfg
}

// DefaultWorkDir returns <user cache dir>/recipe, or ./_recipe when the
// platform has no cache dir.
func DefaultWorkDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "_recipe"
	}
	return filepath.Join(dir, "recipe")
}

func defaultCompiler(osName string) string {
	osFamily, err := recipe.ParseOS(osName)
	if err != nil {
		return ""
	}
	switch osFamily {
	case recipe.Windows:
		return "msvc"
	case recipe.Macos:
		return "apple-clang"
	}
	return "gcc"
}

// TargetPlatform converts the platform settings.
func (c *Config) TargetPlatform() (recipe.Platform, error) {
	osFamily, err := recipe.ParseOS(c.Platform.OS)
	if err != nil {
		return recipe.Platform{}, err
	}
	compiler, err := recipe.ParseCompiler(c.Platform.Compiler)
	if err != nil {
		return recipe.Platform{}, err
	}
	p := recipe.Platform{
		OS:              osFamily,
		Compiler:        compiler,
		CompilerVersion: c.Platform.CompilerVersion,
		Arch:            c.Platform.Arch,
		BuildType:       c.Platform.BuildType,
	}
	return p, p.Validate()
}

// RequestedOptions returns Options with each key spelled the way r
// declares it. Keys read through viper arrive lower-cased.
func (c *Config) RequestedOptions(r *recipe.Recipe) map[string]bool {
	if len(c.Options) == 0 {
		return nil
	}
	opts := make(map[string]bool, len(c.Options))
	for name, value := range c.Options {
		for _, decl := range r.Options {
			if strings.EqualFold(decl.Name, name) {
				name = decl.Name
				break
			}
		}
		opts[name] = value
	}
	return opts
}

// Dependencies returns the dependency roots as a binding.
func (c *Config) Dependencies() recipe.DependencyBinding {
	return recipe.DependencyBinding(c.Deps)
}

// Versions returns base merged with the registry file, if one is set.
func (c *Config) Versions(base *registry.Registry) (*registry.Registry, error) {
	if c.Registry == "" {
		return base, nil
	}
	path, err := ExpandPath(c.Registry)
	if err != nil {
		return nil, err
	}
	extra, err := registry.Parse(path, nil)
	if err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}
	return base.Merge(extra), nil
}
