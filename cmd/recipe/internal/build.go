package internal

import (
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/cobra"

	"github.com/goplus/recipe/recipe"
)

var buildOutput string

var buildCmd = &cobra.Command{
	Use:   "build [flann@]version",
	Short: "Build and install a FLANN version",
	Long: `Build resolves the sources of a version, patches and rewrites them,
then configures, builds and installs the package with CMake.

Pinned release versions come from a checksummed archive. Anything else is
treated as a git ref of the upstream repository.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildOutput, "output", "", "Copy the installed package to a directory or .zip file")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	r := recipe.Flann()
	version, err := versionArg(r, args)
	if err != nil {
		return err
	}
	req, err := newRequest(r, version)
	if err != nil {
		return err
	}
	p, err := newPipeline(r)
	if err != nil {
		return err
	}

	// Resolve output path to absolute before the build writes anything.
	if buildOutput != "" {
		abs, err := filepath.Abs(buildOutput)
		if err != nil {
			return fmt.Errorf("failed to resolve output path: %w", err)
		}
		buildOutput = abs
	}

	res, err := p.Run(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, key := range slices.Sorted(maps.Keys(res.Env)) {
		fmt.Fprintf(out, "export %s=%q\n", key, res.Env[key])
	}
	if buildOutput != "" {
		if err := outputResult(res.InstallDir, buildOutput); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

// outputResult writes the installed package to dest.
// If dest ends with ".zip", creates a zip archive; otherwise copies the directory.
func outputResult(srcDir, dest string) error {
	if strings.HasSuffix(dest, ".zip") {
		return zipDir(srcDir, dest)
	}
	return os.CopyFS(dest, os.DirFS(srcDir))
}

// zipDir creates a zip archive at dest from the contents of srcDir.
func zipDir(srcDir, dest string) (err error) {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := zip.NewWriter(f)
	walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return err
		}
		return addFile(w, srcDir, path, d)
	})
	// Close writes the central directory; without it the archive is unreadable.
	if err := w.Close(); walkErr == nil {
		walkErr = err
	}
	return walkErr
}

func addFile(w *zip.Writer, srcDir, path string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(srcDir, path)
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.ToSlash(rel)
	header.Method = zip.Deflate

	dst, err := w.CreateHeader(header)
	if err != nil {
		return err
	}
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = io.Copy(dst, src)
	return err
}
