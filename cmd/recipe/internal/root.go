package internal

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goplus/recipe/internal/config"
	"github.com/goplus/recipe/internal/output"
	"github.com/goplus/recipe/internal/pipeline"
	"github.com/goplus/recipe/internal/rewrite"
	"github.com/goplus/recipe/internal/source"
	"github.com/goplus/recipe/internal/vcs"
	"github.com/goplus/recipe/mod/registry"
	"github.com/goplus/recipe/recipe"
)

var (
	configFile string
	optionArgs []string
	depArgs    []string
	loader     = config.NewLoader()

	// cfg is loaded before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "recipe",
	Short: "recipe builds the FLANN library from source",
	Long: `recipe resolves FLANN sources by version, applies platform patches and
build-tool compatibility fixes, and drives CMake to configure, build and
install the package.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "Config file (default ./"+config.DefaultFile+")")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.String("os", "", "Target OS: linux, windows, macos")
	flags.String("compiler", "", "Compiler: gcc, clang, apple-clang, msvc")
	flags.String("compiler-version", "", "Compiler version")
	flags.String("build-type", "", "CMAKE_BUILD_TYPE")
	flags.StringSlice("patch-dir", nil, "Directory searched for patch files (repeatable)")
	flags.String("registry", "", "YAML file of extra pinned versions")
	flags.String("work-dir", "", "Work directory")
	flags.StringP("generator", "G", "", "CMake generator, e.g. Ninja")
	flags.StringArrayVarP(&optionArgs, "option", "o", nil, "Set an option, as name=true|false (repeatable)")
	flags.StringArrayVar(&depArgs, "dep", nil, "Bind a dependency root, as name=dir (repeatable)")

	for key, name := range map[string]string{
		"verbose":                   "verbose",
		"platform.os":               "os",
		"platform.compiler":         "compiler",
		"platform.compiler_version": "compiler-version",
		"platform.build_type":       "build-type",
		"patch_dirs":                "patch-dir",
		"registry":                  "registry",
		"work_dir":                  "work-dir",
		"tools.generator":           "generator",
	} {
		if err := loader.BindFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		output.Logger.Error(err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := loader.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}
	opts, err := parseOptions(optionArgs)
	if err != nil {
		return err
	}
	if len(opts) > 0 && c.Options == nil {
		c.Options = make(map[string]bool)
	}
	for name, v := range opts {
		c.Options[strings.ToLower(name)] = v
	}
	deps, err := parsePairs(depArgs)
	if err != nil {
		return err
	}
	if len(deps) > 0 && c.Deps == nil {
		c.Deps = make(map[string]string)
	}
	for name, dir := range deps {
		c.Deps[name] = dir
	}
	output.SetupLogging(output.LogConfig{Verbose: c.Verbose})
	cfg = c
	return nil
}

// parseOptions parses "name=value" pairs with boolean values. A bare name
// means true.
func parseOptions(args []string) (map[string]bool, error) {
	opts := make(map[string]bool, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			opts[name] = true
			continue
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("option %s: %q is not a boolean", name, value)
		}
		opts[name] = b
	}
	return opts, nil
}

func parsePairs(args []string) (map[string]string, error) {
	pairs := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid binding %q, want name=dir", arg)
		}
		pairs[name] = value
	}
	return pairs, nil
}

// parseRecipeArg parses an argument in the form "flann@version" or "version".
func parseRecipeArg(r *recipe.Recipe, arg string) (string, error) {
	name, version, ok := strings.Cut(arg, "@")
	if !ok {
		return arg, nil
	}
	if name != r.Name {
		return "", fmt.Errorf("unknown recipe %q", name)
	}
	return version, nil
}

// versionArg returns the version named on the command line, falling back
// to the configured one.
func versionArg(r *recipe.Recipe, args []string) (string, error) {
	if len(args) > 0 {
		return parseRecipeArg(r, args[0])
	}
	if cfg.Version == "" {
		return "", fmt.Errorf("no version given")
	}
	return cfg.Version, nil
}

func newPipeline(r *recipe.Recipe) (*pipeline.Pipeline, error) {
	reg, err := cfg.Versions(registry.Flann())
	if err != nil {
		return nil, err
	}
	toolchain, err := config.ExpandPath(cfg.Tools.Toolchain)
	if err != nil {
		return nil, err
	}
	return &pipeline.Pipeline{
		Recipe:     r,
		Registry:   reg,
		Content:    source.NewHTTPFetcher(),
		Repository: vcs.NewGit(vcs.WithGitPath(cfg.Tools.Git)),
		PatchDirs:  cfg.PatchDirs,
		Probe:      rewrite.CMakeProbe{Path: cfg.Tools.CMake},
		Wrapper:    rewrite.CMakeWrapper{},
		NewBuilder: pipeline.CMake(pipeline.CMakeTool{
			Path:      cfg.Tools.CMake,
			Generator: cfg.Tools.Generator,
			Toolchain: toolchain,
		}),
		Logger:     output.RecipeLogger(r.Name),
	}, nil
}

func newRequest(r *recipe.Recipe, version string) (pipeline.Request, error) {
	p, err := cfg.TargetPlatform()
	if err != nil {
		return pipeline.Request{}, err
	}
	return pipeline.Request{
		Version:    version,
		Platform:   p,
		Options:    cfg.RequestedOptions(r),
		Deps:       cfg.Dependencies(),
		WorkDir:    cfg.WorkDir,
		InstallDir: cfg.InstallDir,
	}, nil
}
