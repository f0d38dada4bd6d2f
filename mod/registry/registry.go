// Package registry maps pinned release versions to the checksum of their
// source archive.
package registry

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goplus/recipe/x/gnu"
)

// Registry is an immutable version → checksum table. A Registry is safe for
// concurrent use.
type Registry struct {
	sums map[string]string
}

// file is the on-disk form of a registry:
//
//	versions:
//	  1.8.4: 774b74580e3cbc5b0d45c6ec345a64ae
type file struct {
	Versions map[string]string `yaml:"versions"`
}

// New returns a registry holding a copy of sums. Every checksum must be a
// hex encoded MD5 or SHA-256 digest.
func New(sums map[string]string) (*Registry, error) {
	r := &Registry{sums: make(map[string]string, len(sums))}
	for v, sum := range sums {
		sum = strings.ToLower(strings.TrimSpace(sum))
		if err := checkSum(sum); err != nil {
			return nil, fmt.Errorf("version %s: %w", v, err)
		}
		r.sums[v] = sum
	}
	return r, nil
}

// Flann returns the registry of pinned FLANN releases.
func Flann() *Registry {
	return &Registry{sums: map[string]string{
		"1.8.4": "774b74580e3cbc5b0d45c6ec345a64ae",
		"1.9.1": "73adef1c7bf8e8b978987e7860926ea6",
	}}
}

// Parse reads a registry from either provided data or a file path.
// If data is non-nil, it is used directly and the file parameter is ignored.
func Parse(path string, data []byte) (*Registry, error) {
	var reader io.Reader

	if data != nil {
		reader = bytes.NewReader(data)
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		reader = f
	}

	var fv file
	if err := yaml.NewDecoder(reader).Decode(&fv); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return New(fv.Versions)
}

// Lookup returns the checksum pinned for version.
func (r *Registry) Lookup(version string) (sum string, ok bool) {
	if r == nil {
		return "", false
	}
	sum, ok = r.sums[version]
	return
}

// Has reports whether version is pinned.
func (r *Registry) Has(version string) bool {
	_, ok := r.Lookup(version)
	return ok
}

// Versions returns the pinned versions in ascending version order.
func (r *Registry) Versions() []string {
	if r == nil {
		return nil
	}
	vs := slices.Collect(maps.Keys(r.sums))
	gnu.Sort(vs)
	return vs
}

// Merge returns a new registry with the entries of both r and other. Entries
// of other win on conflict. Neither input is modified.
func (r *Registry) Merge(other *Registry) *Registry {
	out := &Registry{sums: make(map[string]string)}
	if r != nil {
		maps.Copy(out.sums, r.sums)
	}
	if other != nil {
		maps.Copy(out.sums, other.sums)
	}
	return out
}

func checkSum(sum string) error {
	if len(sum) != 32 && len(sum) != 64 {
		return fmt.Errorf("checksum %q: want md5 or sha256 hex digest", sum)
	}
	if _, err := hex.DecodeString(sum); err != nil {
		return fmt.Errorf("checksum %q: %w", sum, err)
	}
	return nil
}
