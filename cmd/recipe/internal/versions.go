package internal

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goplus/recipe/mod/registry"
	"github.com/goplus/recipe/recipe"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List pinned release versions",
	Long: `Versions lists the release versions that are fetched as checksummed
archives, with their checksums. Any other version is cloned from git.`,
	Args: cobra.NoArgs,
	RunE: runVersions,
}

func init() {
	rootCmd.AddCommand(versionsCmd)
}

func runVersions(cmd *cobra.Command, args []string) error {
	reg, err := cfg.Versions(registry.Flann())
	if err != nil {
		return err
	}
	r := recipe.Flann()
	out := cmd.OutOrStdout()
	for _, v := range reg.Versions() {
		sum, _ := reg.Lookup(v)
		fmt.Fprintf(out, "%-10s %s  %s\n", v, sum, r.ArchiveURLFor(v))
	}
	return nil
}
