package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goplus/recipe/mod/registry"
	"github.com/goplus/recipe/recipe"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoaderLoad(t *testing.T) {
	t.Run("loads config from file", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "recipe.yaml", `
version: 1.9.1
platform:
  os: windows
  compiler: msvc
  compiler_version: "12"
options:
  shared: false
  cxx11: true
deps:
  gtest: C:/deps/gtest
patch_dirs:
  - patches
  - vendor/patches
work_dir: build-area
tools:
  cmake: /opt/cmake/bin/cmake
`)
		cfg, err := NewLoader().Load(path)
		require.NoError(t, err)

		assert.Equal(t, "1.9.1", cfg.Version)
		assert.Equal(t, "windows", cfg.Platform.OS)
		assert.Equal(t, "msvc", cfg.Platform.Compiler)
		assert.Equal(t, "12", cfg.Platform.CompilerVersion)
		assert.Equal(t, map[string]bool{"shared": false, "cxx11": true}, cfg.Options)
		assert.Equal(t, map[string]string{"gtest": "C:/deps/gtest"}, cfg.Deps)
		assert.Equal(t, []string{"patches", "vendor/patches"}, cfg.PatchDirs)
		assert.Equal(t, "build-area", cfg.WorkDir)
		assert.Equal(t, "/opt/cmake/bin/cmake", cfg.Tools.CMake)
	})

	t.Run("missing default file is fine", func(t *testing.T) {
		t.Chdir(t.TempDir())
		cfg, err := NewLoader().Load("")
		require.NoError(t, err)
		assert.Empty(t, cfg.Version)
	})

	t.Run("missing explicit file fails", func(t *testing.T) {
		_, err := NewLoader().Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid yaml fails", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "recipe.yaml", "version: [unterminated\n")
		_, err := NewLoader().Load(path)
		assert.Error(t, err)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "recipe.yaml", "version: 1.8.4\nplatform:\n  os: linux\n")
		t.Setenv("RECIPE_VERSION", "main")
		t.Setenv("RECIPE_PLATFORM_COMPILER", "clang")
		t.Setenv("RECIPE_PATCH_DIRS", "a,b")

		cfg, err := NewLoader().Load(path)
		require.NoError(t, err)
		assert.Equal(t, "main", cfg.Version)
		assert.Equal(t, "linux", cfg.Platform.OS)
		assert.Equal(t, "clang", cfg.Platform.Compiler)
		assert.Equal(t, []string{"a", "b"}, cfg.PatchDirs)
	})

	t.Run("cmake generator and toolchain", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "recipe.yaml", "tools:\n  generator: Unix Makefiles\n  toolchain: ~/arm.cmake\n")
		t.Setenv("RECIPE_TOOLS_GENERATOR", "Ninja")

		cfg, err := NewLoader().Load(path)
		require.NoError(t, err)
		assert.Equal(t, "Ninja", cfg.Tools.Generator)
		assert.Equal(t, "~/arm.cmake", cfg.Tools.Toolchain)
	})

	t.Run("flags override environment", func(t *testing.T) {
		t.Setenv("RECIPE_VERSION", "main")
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		fs.String("version", "", "")
		require.NoError(t, fs.Parse([]string{"--version", "1.9.1"}))

		l := NewLoader()
		require.NoError(t, l.BindFlag("version", fs.Lookup("version")))
		cfg, err := l.Load(writeFile(t, t.TempDir(), "recipe.yaml", ""))
		require.NoError(t, err)
		assert.Equal(t, "1.9.1", cfg.Version)
	})
}

func TestWithDefaults(t *testing.T) {
	cfg := (&Config{Version: "1.9.1"}).WithDefaults()
	assert.Equal(t, runtime.GOOS, cfg.Platform.OS)
	assert.Equal(t, runtime.GOARCH, cfg.Platform.Arch)
	assert.Equal(t, "Release", cfg.Platform.BuildType)
	assert.Equal(t, DefaultWorkDir(), cfg.WorkDir)
	assert.Equal(t, "recipe", filepath.Base(cfg.WorkDir))
	assert.Equal(t, "git", cfg.Tools.Git)
	assert.Equal(t, "cmake", cfg.Tools.CMake)

	for osName, want := range map[string]string{
		"linux":   "gcc",
		"darwin":  "apple-clang",
		"windows": "msvc",
		"plan9":   "",
	} {
		got := (&Config{Platform: PlatformConfig{OS: osName}}).WithDefaults()
		assert.Equal(t, want, got.Platform.Compiler, osName)
	}

	kept := (&Config{Platform: PlatformConfig{OS: "linux", Compiler: "clang"}, WorkDir: "w"}).WithDefaults()
	assert.Equal(t, "clang", kept.Platform.Compiler)
	assert.Equal(t, "w", kept.WorkDir)
}

func TestTargetPlatform(t *testing.T) {
	cfg := &Config{Platform: PlatformConfig{OS: "macos", Compiler: "apple-clang", Arch: "arm64", BuildType: "Debug"}}
	p, err := cfg.TargetPlatform()
	require.NoError(t, err)
	assert.Equal(t, recipe.Platform{OS: recipe.Macos, Compiler: recipe.AppleClang, Arch: "arm64", BuildType: "Debug"}, p)

	_, err = (&Config{Platform: PlatformConfig{OS: "freebsd", Compiler: "gcc"}}).TargetPlatform()
	assert.ErrorIs(t, err, recipe.ErrUnsupportedPlatform)

	_, err = (&Config{Platform: PlatformConfig{OS: "linux", Compiler: "icc"}}).TargetPlatform()
	assert.ErrorIs(t, err, recipe.ErrUnsupportedPlatform)
}

func TestVersions(t *testing.T) {
	base := registry.Flann()

	got, err := (&Config{}).Versions(base)
	require.NoError(t, err)
	assert.Same(t, base, got)

	path := writeFile(t, t.TempDir(), "versions.yaml", "versions:\n  1.9.2: 0123456789abcdef0123456789abcdef\n")
	got, err = (&Config{Registry: path}).Versions(base)
	require.NoError(t, err)
	assert.True(t, got.Has("1.9.2"))
	assert.True(t, got.Has("1.8.4"))

	_, err = (&Config{Registry: filepath.Join(t.TempDir(), "missing.yaml")}).Versions(base)
	assert.Error(t, err)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandPath("~/recipe.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "recipe.yaml"), got)

	got, err = ExpandPath("relative/recipe.yaml")
	require.NoError(t, err)
	assert.Equal(t, "relative/recipe.yaml", got)
}

func TestRequestedOptions(t *testing.T) {
	path := writeFile(t, t.TempDir(), "recipe.yaml", "options:\n  fPIC: false\n  shared: true\n  examples: true\n")
	cfg, err := NewLoader().Load(path)
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{
		recipe.OptFPIC:   false,
		recipe.OptShared: true,
		"examples":       true,
	}, cfg.RequestedOptions(recipe.Flann()))
	assert.Nil(t, (&Config{}).RequestedOptions(recipe.Flann()))
}
