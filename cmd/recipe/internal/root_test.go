package internal

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goplus/recipe/recipe"
)

func TestParseRecipeArg(t *testing.T) {
	r := recipe.Flann()
	tests := []struct {
		arg     string
		want    string
		wantErr bool
	}{
		{"flann@1.9.1", "1.9.1", false},
		{"1.8.4", "1.8.4", false},
		{"some-feature-branch", "some-feature-branch", false},
		{"flann@feature/x", "feature/x", false},
		{"qhull@2020.2", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := parseRecipeArg(r, tt.arg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"shared=false", "fPIC", "cxx11=1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"shared": false, "fPIC": true, "cxx11": true}, opts)

	_, err = parseOptions([]string{"shared=maybe"})
	assert.Error(t, err)
}

func TestParsePairs(t *testing.T) {
	deps, err := parsePairs([]string{"gtest=/deps/gtest"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"gtest": "/deps/gtest"}, deps)

	for _, bad := range []string{"gtest", "=/deps/gtest"} {
		_, err := parsePairs([]string{bad})
		assert.Error(t, err, bad)
	}
}

func installTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "lib", "pkgconfig"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "include", "flann"), 0o755))
	for name, body := range map[string]string{
		"lib/libflann.so":         "elf",
		"lib/pkgconfig/flann.pc":  "Name: flann\n",
		"include/flann/flann.hpp": "// flann\n",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, filepath.FromSlash(name)), []byte(body), 0o644))
	}
	return dir
}

func TestOutputResult_Dir(t *testing.T) {
	src := installTree(t)
	dest := filepath.Join(t.TempDir(), "out")

	require.NoError(t, outputResult(src, dest))
	data, err := os.ReadFile(filepath.Join(dest, "include", "flann", "flann.hpp"))
	require.NoError(t, err)
	assert.Equal(t, "// flann\n", string(data))
}

func TestOutputResult_Zip(t *testing.T) {
	src := installTree(t)
	dest := filepath.Join(t.TempDir(), "flann.zip")

	require.NoError(t, outputResult(src, dest))
	zr, err := zip.OpenReader(dest)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"include/flann/flann.hpp", "lib/libflann.so", "lib/pkgconfig/flann.pc"}, names)
}

func TestZipDir_Errors(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "flann.zip")
	assert.Error(t, zipDir(filepath.Join(t.TempDir(), "missing"), dest))

	// the archive is complete, so it opens even when the tree is empty
	require.NoError(t, zipDir(t.TempDir(), dest))
	zr, err := zip.OpenReader(dest)
	require.NoError(t, err)
	assert.Empty(t, zr.File)
	require.NoError(t, zr.Close())

	assert.Error(t, zipDir(installTree(t), filepath.Join(t.TempDir(), "no", "such", "flann.zip")))
}

func TestCommands(t *testing.T) {
	t.Chdir(t.TempDir())
	installed := installTree(t)

	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr bool
	}{
		{
			name: "versions",
			args: []string{"versions"},
			want: []string{"1.8.4", "774b74580e3cbc5b0d45c6ec345a64ae", "1.9.1", "archive/1.9.1.tar.gz"},
		},
		{
			name: "artifacts linux",
			args: []string{"artifacts", "--os", "linux", "--compiler", "gcc"},
			want: []string{"libflann.so\nlibflann_cpp_s.so\nlibflann_s.so\n"},
		},
		{
			name: "artifacts windows",
			args: []string{"artifacts", "--os", "windows", "--compiler", "msvc"},
			want: []string{"flann.lib\nflann_cpp_s.lib\nflann_s.lib\n"},
		},
		{
			name:    "artifacts installed",
			args:    []string{"artifacts", "--os", "linux", "--compiler", "gcc", "--installed", installed},
			want:    []string{"libflann.so", "ok", "libflann_s.so", "missing", "PKG_CONFIG_FLANN_PREFIX"},
			wantErr: true,
		},
		{
			name:    "unsupported os",
			args:    []string{"artifacts", "--os", "solaris", "--compiler", "gcc", "--installed", ""},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			rootCmd.SetOut(&out)
			rootCmd.SetErr(&out)
			rootCmd.SetArgs(tt.args)
			err := rootCmd.Execute()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			for _, want := range tt.want {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}
