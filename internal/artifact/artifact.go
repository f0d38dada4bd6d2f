// Package artifact names the libraries a build produces and describes the
// installed package to consumers.
package artifact

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goplus/recipe/recipe"
)

// Convention is the file naming rule of a platform.
type Convention struct {
	Prefix string
	Suffix string
}

// ConventionFor returns the naming rule for libraries on os.
func ConventionFor(osFamily recipe.OSFamily, shared bool) (Convention, error) {
	switch osFamily {
	case recipe.Linux:
		if shared {
			return Convention{Prefix: "lib", Suffix: ".so"}, nil
		}
		return Convention{Prefix: "lib", Suffix: ".a"}, nil
	case recipe.Windows, recipe.Macos:
		return Convention{Suffix: ".lib"}, nil
	case recipe.OSUnknown:
	}
	return Convention{}, recipe.Errorf(recipe.ErrUnsupportedPlatform, "artifacts", osFamily.String(), nil)
}

// FileName returns the file name of library name under c.
func (c Convention) FileName(name string) string {
	return c.Prefix + name + c.Suffix
}

// Expected returns the sorted library file names a successful build of r
// produces on platform p.
func Expected(r *recipe.Recipe, p recipe.Platform, shared bool) ([]string, error) {
	c, err := ConventionFor(p.OS, shared)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(r.Libraries))
	for _, lib := range r.Libraries {
		names = append(names, c.FileName(lib))
	}
	slices.Sort(names)
	return names, nil
}

var libSuffixes = []string{".so", ".a", ".lib", ".dylib", ".dll"}

// Collect lists the library files installed in libDir, sorted. Versioned
// shared objects such as libflann.so.1.9 are reported as-is.
func Collect(libDir string) ([]string, error) {
	entries, err := os.ReadDir(libDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var libs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if isLibrary(e.Name()) {
			libs = append(libs, e.Name())
		}
	}
	slices.Sort(libs)
	return libs, nil
}

func isLibrary(name string) bool {
	for _, s := range libSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return strings.Contains(name, ".so.")
}

// Missing returns the names of expected not present in found.
func Missing(expected, found []string) []string {
	var missing []string
	for _, name := range expected {
		if !slices.Contains(found, name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// PackageEnv returns the environment a consumer needs to find the package
// installed at dir through pkg-config: PKG_CONFIG_<NAME>_PREFIX and a
// PKG_CONFIG_PATH with dir/lib/pkgconfig prepended to existing.
func PackageEnv(r *recipe.Recipe, dir, existing string) map[string]string {
	dir = filepath.ToSlash(dir)
	pc := dir + "/lib/pkgconfig"
	path := pc
	if existing != "" {
		path = pc + string(os.PathListSeparator) + existing
	}
	env := map[string]string{"PKG_CONFIG_PATH": path}
	env["PKG_CONFIG_"+strings.ToUpper(r.Name)+"_PREFIX"] = dir
	return env
}
