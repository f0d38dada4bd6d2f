package internal

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/goplus/recipe/internal/artifact"
	"github.com/goplus/recipe/internal/workspace"
	"github.com/goplus/recipe/recipe"
)

var artifactsInstalled string

var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "List the library files a build produces",
	Long: `Artifacts prints the library file names a build produces on the
configured platform. With --installed it checks an install directory
against them and prints its pkg-config environment.`,
	Args: cobra.NoArgs,
	RunE: runArtifacts,
}

func init() {
	artifactsCmd.Flags().StringVar(&artifactsInstalled, "installed", "", "Install directory to check")
	rootCmd.AddCommand(artifactsCmd)
}

func runArtifacts(cmd *cobra.Command, args []string) error {
	r := recipe.Flann()
	p, err := cfg.TargetPlatform()
	if err != nil {
		return err
	}
	opts := recipe.NewOptionSet(r, p)
	if err := opts.Apply(cfg.RequestedOptions(r)); err != nil {
		return err
	}
	expected, err := artifact.Expected(r, p, opts.Value(recipe.OptShared))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if artifactsInstalled == "" {
		for _, name := range expected {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	if rec, err := workspace.LoadRecord(artifactsInstalled); err == nil {
		fmt.Fprintf(out, "# %s %s (%s) built %s\n", rec.Recipe, rec.Version, rec.Platform, rec.BuildTime.Format("2006-01-02 15:04"))
	}
	found, err := artifact.Collect(filepath.Join(artifactsInstalled, "lib"))
	if err != nil {
		return err
	}
	for _, name := range expected {
		mark := "ok"
		if !slices.Contains(found, name) {
			mark = "missing"
		}
		fmt.Fprintf(out, "%-24s %s\n", name, mark)
	}
	env := artifact.PackageEnv(r, artifactsInstalled, "")
	for _, key := range slices.Sorted(maps.Keys(env)) {
		fmt.Fprintf(out, "export %s=%q\n", key, env[key])
	}
	if missing := artifact.Missing(expected, found); len(missing) > 0 {
		return recipe.Errorf(recipe.ErrInstallFailed, "artifacts", fmt.Sprintf("%d of %d libraries missing", len(missing), len(expected)), nil)
	}
	return nil
}
